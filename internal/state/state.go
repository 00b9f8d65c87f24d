// Package state implements the daemon-side state stores behind the state
// management API: an in-memory store, a Badger-backed store and a
// Redis-backed store, all sharing ETag-based optimistic concurrency.
package state

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrKeyNotFound is returned when a key has no stored value.
	ErrKeyNotFound = errors.New("state: key not found")
	// ErrETagMismatch is returned when a conditional write loses the race.
	ErrETagMismatch = errors.New("state: etag mismatch")
)

// Item is one stored entry.
type Item struct {
	Key      string
	Value    []byte
	ETag     string
	Metadata map[string]string
}

// SetRequest writes one entry. A non-empty ETag with FirstWrite true makes
// the write conditional on the stored etag.
type SetRequest struct {
	Key        string
	Value      []byte
	ETag       string
	FirstWrite bool
	Metadata   map[string]string
}

// DeleteRequest removes one entry, optionally conditional on ETag.
type DeleteRequest struct {
	Key        string
	ETag       string
	FirstWrite bool
}

// TransactionOp is one entry of an atomic multi-operation.
type TransactionOp struct {
	// Delete selects between upsert (false) and delete (true).
	Delete bool
	Set    SetRequest
	Del    DeleteRequest
}

// Store is a named state store driver.
type Store interface {
	Get(ctx context.Context, key string) (*Item, error)
	Set(ctx context.Context, req *SetRequest) (etag string, err error)
	Delete(ctx context.Context, req *DeleteRequest) error

	// Multi applies all operations atomically: either every operation
	// takes effect or none does.
	Multi(ctx context.Context, ops []TransactionOp) error

	Ping(ctx context.Context) error
	Close() error
}

// newETag mints a fresh entity tag. ETags change on every successful write.
func newETag() string {
	return uuid.NewString()
}

// conditional reports whether a write must match the stored etag.
func conditional(etag string, firstWrite bool) bool {
	return etag != "" && firstWrite
}
