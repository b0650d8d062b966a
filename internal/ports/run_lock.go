package ports

import (
	"context"
	"errors"
	"time"
)

// ErrRunInProgress is returned when another run holds the lock for a dataset.
var ErrRunInProgress = errors.New("run already in progress")

// Port: mutual exclusion between optimization runs on the same dataset.
type RunLock interface {
	// Acquire the named lock for at most ttl. The returned release func must be
	// called once the run finishes. Fails with ErrRunInProgress when held.
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, err error)
}
