package port

import "framelift/internal/domain"

// PendingLedger is the durable record of artifacts produced locally but
// not yet confirmed persisted at their destination. It must survive
// process restart and be loadable in full before new jobs are accepted.
type PendingLedger interface {
	// Record durably writes an entry before any upload attempt begins.
	// Recording an existing job id replaces its entry.
	Record(jobID, artifactPath, destination string) error
	// Confirm removes the entry after positive destination confirmation.
	// Removing an absent entry is a no-op.
	Confirm(jobID string) error
	Get(jobID string) (*domain.PendingUpload, error)
	// ListPending returns all entries, oldest first.
	ListPending() ([]domain.PendingUpload, error)
	IncrementAttempts(jobID string) error
}
