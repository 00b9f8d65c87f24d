package core

import "context"

// StateItem is a key/value entry of a state store.
type StateItem struct {
	Key      string   `json:"key"`
	Value    []byte   `json:"value"`
	ETag     string   `json:"etag,omitempty"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// BulkStateItem is one result of a bulk get. Error is set per item so a
// single failing key does not fail the whole batch.
type BulkStateItem struct {
	Key      string   `json:"key"`
	Value    []byte   `json:"value,omitempty"`
	ETag     string   `json:"etag,omitempty"`
	Metadata Metadata `json:"metadata,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// SetStateItem is one entry of a save or transaction request.
type SetStateItem struct {
	Key      string        `json:"key"`
	Value    []byte        `json:"value"`
	ETag     string        `json:"etag,omitempty"`
	Options  *StateOptions `json:"options,omitempty"`
	Metadata Metadata      `json:"metadata,omitempty"`
}

// TransactionOperation is a single upsert or delete inside a transaction.
type TransactionOperation struct {
	Type OperationType `json:"operation"`
	Item SetStateItem  `json:"request"`
}

// GetStateRequest fetches a single key.
type GetStateRequest struct {
	StoreName string
	Key       string
	Options   *StateOptions
	Metadata  Metadata
}

// GetBulkStateRequest fetches several keys, at most Parallelism at a time.
type GetBulkStateRequest struct {
	StoreName   string
	Keys        []string
	Parallelism int
	Metadata    Metadata
}

// SaveStateRequest writes a batch of items to one store.
type SaveStateRequest struct {
	StoreName string
	Items     []SetStateItem
}

// DeleteStateRequest removes a single key.
type DeleteStateRequest struct {
	StoreName string
	Key       string
	ETag      string
	Options   *StateOptions
	Metadata  Metadata
}

// ExecuteStateTransactionRequest applies all operations atomically.
type ExecuteStateTransactionRequest struct {
	StoreName  string
	Operations []TransactionOperation
	Metadata   Metadata
}

// State is the state management capability.
type State interface {
	// GetState retrieves a single item. A missing key yields a
	// CR_NOT_FOUND_ERROR, never an empty item.
	GetState(ctx context.Context, storeName, key string) (*StateItem, error)
	GetStateWithRequest(ctx context.Context, req *GetStateRequest) (*StateItem, error)

	// GetBulkState retrieves several keys. Results preserve request order.
	GetBulkState(ctx context.Context, req *GetBulkStateRequest) ([]BulkStateItem, error)

	// SaveState upserts a single item. A non-empty etag with first-write
	// concurrency makes the write conditional.
	SaveState(ctx context.Context, storeName, key string, value []byte, opts ...StateOption) error
	SaveBulkState(ctx context.Context, req *SaveStateRequest) error

	DeleteState(ctx context.Context, storeName, key string, opts ...StateOption) error

	// ExecuteStateTransaction applies upserts and deletes atomically.
	ExecuteStateTransaction(ctx context.Context, req *ExecuteStateTransactionRequest) error
}

// StateOption tweaks a single-item save or delete.
type StateOption func(*SetStateItem)

// WithETag makes the operation conditional on the stored etag.
func WithETag(etag string) StateOption {
	return func(it *SetStateItem) { it.ETag = etag }
}

// WithStateOptions sets consistency and concurrency for the operation.
func WithStateOptions(opts StateOptions) StateOption {
	return func(it *SetStateItem) { it.Options = &opts }
}

// WithMetadata attaches store-specific metadata to the operation.
func WithMetadata(md Metadata) StateOption {
	return func(it *SetStateItem) { it.Metadata = md }
}
