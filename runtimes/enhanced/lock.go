// Package enhanced defines the optional Cloud Runtimes capability set that
// extends the core APIs: distributed locks, file access and telemetry.
package enhanced

import (
	"context"
	"time"
)

// TryLockRequest attempts to acquire a named lock.
type TryLockRequest struct {
	StoreName string
	Resource  string
	Owner     string
	TTL       time.Duration
	Metadata  map[string]string
}

// TryLockResponse reports whether the lock was acquired. Owner echoes the
// token that must be presented to unlock or renew.
type TryLockResponse struct {
	Success bool   `json:"success"`
	Owner   string `json:"owner,omitempty"`
}

// UnlockStatus enumerates the outcomes of an unlock attempt.
type UnlockStatus string

const (
	UnlockSuccess        UnlockStatus = "success"
	UnlockNotExist       UnlockStatus = "lock_unexist"
	UnlockBelongsToOther UnlockStatus = "lock_belongs_to_others"
)

// UnlockRequest releases a held lock.
type UnlockRequest struct {
	StoreName string
	Resource  string
	Owner     string
	Metadata  map[string]string
}

// UnlockResponse reports the unlock outcome.
type UnlockResponse struct {
	Status UnlockStatus `json:"status"`
}

// LockStatus describes the current holder of a lock.
type LockStatus struct {
	Resource  string    `json:"resource"`
	Locked    bool      `json:"locked"`
	Owner     string    `json:"owner,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Lock is the distributed lock capability.
type Lock interface {
	// TryLock attempts a non-blocking acquire. An empty Owner in the
	// request gets a generated token back in the response.
	TryLock(ctx context.Context, req *TryLockRequest) (*TryLockResponse, error)
	Unlock(ctx context.Context, req *UnlockRequest) (*UnlockResponse, error)

	// RenewLock extends the lease of a held lock.
	RenewLock(ctx context.Context, storeName, resource, owner string, ttl time.Duration) error

	// GetLockStatus inspects a lock without acquiring it.
	GetLockStatus(ctx context.Context, storeName, resource string) (*LockStatus, error)
}
