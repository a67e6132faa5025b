package port

import "context"

type Interpolator interface {
	// Interpolate reads ordered frames from framesDir and writes the
	// interpolated sequence to outDir.
	Interpolate(ctx context.Context, framesDir, outDir string, factor float64) error
}

type Upscaler interface {
	Upscale(ctx context.Context, framesDir, outDir string, scale int) error
}
