package lock

import (
	"context"
	"sync"
	"time"

	"github.com/cloud-runtimes/cloudruntimes-go/internal/metrics"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/enhanced"
)

type lease struct {
	owner     string
	expiresAt time.Time
}

// MemoryStore is an in-process lock store.
type MemoryStore struct {
	name string

	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

// NewMemoryStore creates an in-process lock store.
func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{
		name:   name,
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

func (s *MemoryStore) Name() string { return s.name }

func (s *MemoryStore) TryLock(_ context.Context, resource, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if cur, held := s.leases[resource]; held && cur.expiresAt.After(now) && cur.owner != owner {
		metrics.RecordLockContention(s.name)
		return false, nil
	}
	s.leases[resource] = lease{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

func (s *MemoryStore) Unlock(_ context.Context, resource, owner string) (enhanced.UnlockStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, held := s.leases[resource]
	if !held || !cur.expiresAt.After(s.now()) {
		delete(s.leases, resource)
		return enhanced.UnlockNotExist, nil
	}
	if cur.owner != owner {
		return enhanced.UnlockBelongsToOther, nil
	}
	delete(s.leases, resource)
	return enhanced.UnlockSuccess, nil
}

func (s *MemoryStore) Renew(_ context.Context, resource, owner string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cur, held := s.leases[resource]
	if !held || !cur.expiresAt.After(now) || cur.owner != owner {
		return ErrNotHeld
	}
	s.leases[resource] = lease{owner: owner, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Status(_ context.Context, resource string) (*enhanced.LockStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, held := s.leases[resource]
	if !held || !cur.expiresAt.After(s.now()) {
		return &enhanced.LockStatus{Resource: resource}, nil
	}
	return &enhanced.LockStatus{
		Resource:  resource,
		Locked:    true,
		Owner:     cur.owner,
		ExpiresAt: cur.expiresAt,
	}, nil
}

func (s *MemoryStore) Close() error { return nil }
