package store

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrDuplicateKey      = errors.New("already exists")
	ErrDuplicateID       = fmt.Errorf("job id %w", ErrDuplicateKey)
	ErrCacheKeyConflict  = fmt.Errorf("live job with the same cache key %w", ErrDuplicateKey)
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// unavailableError marks an unexpected driver error as transient.
// errors.Is(err, ErrStoreUnavailable) holds and the driver error stays reachable.
type unavailableError struct {
	op  string
	err error
}

func (e *unavailableError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.op, e.err)
}

func (e *unavailableError) Unwrap() error {
	return e.err
}

func (e *unavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// Unavailable wraps a driver error returned by operation op. Nil stays nil.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &unavailableError{op: op, err: err}
}
