package pilots

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	apperrors "air-jarvis/internal/errors"
)

const lockRetryDelay = 25 * time.Millisecond

// lock takes the exclusive lock for one identity when locking is enabled.
// The returned func releases it and is always safe to call.
func (s *Store) lock(ctx context.Context, key string) (func(), error) {
	if !s.locking {
		return func() {}, nil
	}
	path := filepath.Join(s.dir, key+".lock")
	fl := flock.New(path)
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.NewStorage(path, fmt.Errorf("acquiring record lock: %w", err))
	}
	if !ok {
		return nil, apperrors.NewStorage(path, fmt.Errorf("record lock not acquired"))
	}
	return func() {
		_ = fl.Unlock()
	}, nil
}
