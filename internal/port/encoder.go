package port

import "context"

// Encoder is the boundary to the external encode/decode tool.
type Encoder interface {
	ExtractFrames(ctx context.Context, videoPath, framesDir string) error
	AssembleVideo(ctx context.Context, framesDir, outputPath string, fps float64) error
	ProbeFPS(ctx context.Context, videoPath string) (float64, error)
}
