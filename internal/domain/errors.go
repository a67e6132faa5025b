package domain

import "errors"

var (
	ErrNotFound              = errors.New("resource not found")
	ErrInvalidMode           = errors.New("invalid processing mode")
	ErrInvalidParam          = errors.New("invalid job parameter")
	ErrCapabilityUnavailable = errors.New("processor capability unavailable")
	ErrRemoteFailed          = errors.New("remote job reported failure")
	ErrTimeout               = errors.New("operation timed out")
)

// TransientError marks an error as safe to retry. Adapters wrap network
// and I/O blips with it; everything else is treated as permanent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
