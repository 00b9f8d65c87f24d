package state

import (
	"context"
	"sync"
)

type memoryEntry struct {
	value    []byte
	etag     string
	metadata map[string]string
}

// MemoryStore is the in-memory state store used by the default dev
// configuration and as the reference for driver semantics.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	value := make([]byte, len(e.value))
	copy(value, e.value)
	return &Item{Key: key, Value: value, ETag: e.etag, Metadata: e.metadata}, nil
}

func (s *MemoryStore) Set(ctx context.Context, req *SetRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(req)
}

func (s *MemoryStore) setLocked(req *SetRequest) (string, error) {
	if conditional(req.ETag, req.FirstWrite) {
		current, ok := s.entries[req.Key]
		if !ok || current.etag != req.ETag {
			return "", ErrETagMismatch
		}
	}
	value := make([]byte, len(req.Value))
	copy(value, req.Value)
	etag := newETag()
	s.entries[req.Key] = memoryEntry{value: value, etag: etag, metadata: req.Metadata}
	return etag, nil
}

func (s *MemoryStore) Delete(ctx context.Context, req *DeleteRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(req)
}

func (s *MemoryStore) deleteLocked(req *DeleteRequest) error {
	if conditional(req.ETag, req.FirstWrite) {
		current, ok := s.entries[req.Key]
		if !ok || current.etag != req.ETag {
			return ErrETagMismatch
		}
	}
	delete(s.entries, req.Key)
	return nil
}

func (s *MemoryStore) Multi(ctx context.Context, ops []TransactionOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every conditional operation before touching anything.
	for _, op := range ops {
		if op.Delete {
			if conditional(op.Del.ETag, op.Del.FirstWrite) {
				current, ok := s.entries[op.Del.Key]
				if !ok || current.etag != op.Del.ETag {
					return ErrETagMismatch
				}
			}
			continue
		}
		if conditional(op.Set.ETag, op.Set.FirstWrite) {
			current, ok := s.entries[op.Set.Key]
			if !ok || current.etag != op.Set.ETag {
				return ErrETagMismatch
			}
		}
	}

	for _, op := range ops {
		if op.Delete {
			delete(s.entries, op.Del.Key)
			continue
		}
		value := make([]byte, len(op.Set.Value))
		copy(value, op.Set.Value)
		s.entries[op.Set.Key] = memoryEntry{value: value, etag: newETag(), metadata: op.Set.Metadata}
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
