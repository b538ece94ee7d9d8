package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/keppylab/mcpm/internal/mcpm/logging"
)

const lockRetryDelay = 250 * time.Millisecond

// errLockTimeout is returned when the lock stays held past the timeout.
var errLockTimeout = errors.New("timed out waiting for setup lock")

// acquireLock takes an exclusive advisory lock on path, retrying until
// timeout elapses. A zero timeout makes a single attempt.
func acquireLock(ctx context.Context, path string, timeout time.Duration) (func(), error) {
	fl := flock.New(path)

	var (
		locked bool
		err    error
	)
	if timeout <= 0 {
		locked, err = fl.TryLock()
	} else {
		lockCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		locked, err = fl.TryLockContext(lockCtx, lockRetryDelay)
		if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w %s after %s", errLockTimeout, path, timeout)
	}

	logging.Debug("Acquired setup lock", zap.String("path", path))
	return func() {
		if err := fl.Unlock(); err != nil {
			logging.Warn("Failed to release setup lock", zap.String("path", path), zap.Error(err))
		}
	}, nil
}
