package domain

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrNotFound        = errors.New("watch criteria not found")
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrInvalidCriteria = errors.New("invalid watch criteria")
	ErrInvalidInterval = errors.New("interval must be at least one minute")
	ErrInvalidRequest  = errors.New("invalid request")
)

// Failure kinds. Adapters mark their errors with one of these so callers can
// classify a failure with errors.Is without knowing the adapter.
var (
	ErrConnectorInit = errors.New("connector initialization failed")
	ErrSearch        = errors.New("search failed")
	ErrApply         = errors.New("apply failed")
	ErrPersistence   = errors.New("persistence failed")
)

// persistTimeout bounds a bookkeeping write that outlives its caller.
const persistTimeout = 10 * time.Second

// detach returns a context for recording an outcome that has already
// happened. Cancelling ctx does not abort the write.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

func persistenceError(err error, op string) error {
	return errors.Mark(errors.Wrap(err, op), ErrPersistence)
}
