package application

import (
	"context"
	"time"
)

// ResourceLocks serializes transitions on one stored resource across
// idempotency keys. Holders must reload the resource after locking.
type ResourceLocks struct {
	locker  Locker
	timeout time.Duration
}

func NewResourceLocks(locker Locker, timeout time.Duration) *ResourceLocks {
	return &ResourceLocks{locker: locker, timeout: timeout}
}

// Lock waits at most the configured timeout and reports a busy resource as
// REQUEST_PROCESSING.
func (l *ResourceLocks) Lock(ctx context.Context, kind, id string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	unlock, err := l.locker.Lock(lockCtx, resourceLockKey(kind, id))
	if err != nil {
		return nil, NewRequestProcessingError(err)
	}
	return unlock, nil
}

func resourceLockKey(kind, id string) string {
	return "resource:" + kind + ":" + id
}
