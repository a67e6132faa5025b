package port

import "context"

type Downloader interface {
	// Fetch retrieves the source into destDir and returns the local path.
	Fetch(ctx context.Context, source, destDir string) (string, error)
}

type Uploader interface {
	Put(ctx context.Context, localPath, destination string) error
}

// Confirmer answers whether the destination positively holds the artifact.
// Upload confirmation goes through this, never through "the Put call
// returned".
type Confirmer interface {
	Exists(ctx context.Context, destination string) (bool, error)
}
