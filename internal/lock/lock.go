// Package lock implements the distributed lock stores behind the lock API.
// Leases are TTL-bound; expired locks are reclaimed lazily on the next
// operation that touches them.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/enhanced"
)

// ErrNotHeld is returned by Renew when the lock is absent, expired or held
// by a different owner.
var ErrNotHeld = errors.New("lock: not held by owner")

// Store is one named lock store.
type Store interface {
	Name() string

	// TryLock is a non-blocking acquire. It succeeds when the resource is
	// free, its lease expired, or the same owner re-acquires (the TTL is
	// then reset).
	TryLock(ctx context.Context, resource, owner string, ttl time.Duration) (bool, error)

	Unlock(ctx context.Context, resource, owner string) (enhanced.UnlockStatus, error)

	// Renew extends the lease of a lock held by owner.
	Renew(ctx context.Context, resource, owner string, ttl time.Duration) error

	Status(ctx context.Context, resource string) (*enhanced.LockStatus, error)

	Close() error
}
