package processor

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// Native backends run the GPU builds of the frame tools against device 0.
const (
	interpolateNativeBin = "rife-ncnn-vulkan"
	upscaleNativeBin     = "realesrgan-ncnn-vulkan"
)

type nativeInterpolator struct{}

func (p *nativeInterpolator) Interpolate(ctx context.Context, framesDir, outDir string, factor float64) error {
	args := []string{
		"-i", framesDir,
		"-o", outDir,
		"-m", "rife-v4.6",
		"-n", strconv.FormatFloat(factor, 'f', -1, 64),
		"-g", "0",
	}
	cmd := exec.CommandContext(ctx, interpolateNativeBin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", interpolateNativeBin, err, out)
	}
	return nil
}

type nativeUpscaler struct{}

func (p *nativeUpscaler) Upscale(ctx context.Context, framesDir, outDir string, scale int) error {
	args := []string{
		"-i", framesDir,
		"-o", outDir,
		"-n", "realesrgan-x4plus",
		"-s", strconv.Itoa(scale),
		"-g", "0",
	}
	cmd := exec.CommandContext(ctx, upscaleNativeBin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", upscaleNativeBin, err, out)
	}
	return nil
}
