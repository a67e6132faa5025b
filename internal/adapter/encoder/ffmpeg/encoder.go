package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"framelift/internal/port"
)

type Encoder struct{}

func NewEncoder() port.Encoder {
	return &Encoder{}
}

func (e *Encoder) ExtractFrames(ctx context.Context, videoPath, framesDir string) error {
	args := []string{
		"-i", videoPath,
		"-qscale:v", "1",
		"-y", filepath.Join(framesDir, "frame_%08d.png"),
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("extract frames: %w: %s", err, out)
	}
	return nil
}

func (e *Encoder) AssembleVideo(ctx context.Context, framesDir, outputPath string, fps float64) error {
	args := []string{
		"-framerate", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", filepath.Join(framesDir, "frame_%08d.png"),
		"-c:v", "libx264",
		"-crf", "18",
		"-preset", "medium",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-y", outputPath,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("assemble video: %w: %s", err, out)
	}
	return nil
}

func (e *Encoder) ProbeFPS(ctx context.Context, videoPath string) (float64, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		videoPath,
	}
	cmd := exec.CommandContext(ctx, "ffprobe", args...)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			FrameRate string `json:"r_frame_rate"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, stream := range probe.Streams {
		if stream.CodecType == "video" {
			return parseFrameRate(stream.FrameRate)
		}
	}

	return 0, fmt.Errorf("no video stream found in %s", videoPath)
}

// parseFrameRate handles ffprobe's rational notation ("24000/1001") as
// well as plain numbers.
func parseFrameRate(rate string) (float64, error) {
	num, den, found := strings.Cut(rate, "/")
	if !found {
		v, err := strconv.ParseFloat(rate, 64)
		if err != nil {
			return 0, fmt.Errorf("parse frame rate %q: %w", rate, err)
		}
		return v, nil
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", rate, err)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("parse frame rate %q: invalid denominator", rate)
	}
	return n / d, nil
}

var _ port.Encoder = (*Encoder)(nil)
