package processor

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// Fallback backends shell out to the CPU wrapper scripts shipped alongside
// the binary. Slow, but they run anywhere.
const (
	interpolateFallbackBin = "framelift-rife-cpu"
	upscaleFallbackBin     = "framelift-esrgan-cpu"
)

type fallbackInterpolator struct{}

func (p *fallbackInterpolator) Interpolate(ctx context.Context, framesDir, outDir string, factor float64) error {
	args := []string{
		framesDir,
		outDir,
		strconv.FormatFloat(factor, 'f', -1, 64),
	}
	cmd := exec.CommandContext(ctx, interpolateFallbackBin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", interpolateFallbackBin, err, out)
	}
	return nil
}

type fallbackUpscaler struct{}

func (p *fallbackUpscaler) Upscale(ctx context.Context, framesDir, outDir string, scale int) error {
	args := []string{
		framesDir,
		outDir,
		strconv.Itoa(scale),
	}
	cmd := exec.CommandContext(ctx, upscaleFallbackBin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", upscaleFallbackBin, err, out)
	}
	return nil
}
