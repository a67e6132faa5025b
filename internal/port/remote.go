package port

import "context"

// LogSource reads the accumulated log transcript of a remote instance.
// It returns the full transcript (or a bounded tail), not a diff, and is
// safe to call at high frequency.
type LogSource interface {
	ReadTail(ctx context.Context, instanceID string, maxLines int) (string, error)
}
