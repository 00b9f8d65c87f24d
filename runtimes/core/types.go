// Package core defines the baseline Cloud Runtimes capability set: service
// invocation, state, configuration, pub/sub, secrets and bindings.
package core

// Metadata carries free-form key/value pairs alongside a request.
type Metadata map[string]string

// Consistency controls read/write consistency of a state operation.
type Consistency int

const (
	ConsistencyUndefined Consistency = iota
	ConsistencyEventual
	ConsistencyStrong
)

func (c Consistency) String() string {
	switch c {
	case ConsistencyEventual:
		return "eventual"
	case ConsistencyStrong:
		return "strong"
	default:
		return "undefined"
	}
}

// Concurrency controls write conflict handling of a state operation.
type Concurrency int

const (
	ConcurrencyUndefined Concurrency = iota
	ConcurrencyFirstWrite
	ConcurrencyLastWrite
)

func (c Concurrency) String() string {
	switch c {
	case ConcurrencyFirstWrite:
		return "first-write"
	case ConcurrencyLastWrite:
		return "last-write"
	default:
		return "undefined"
	}
}

// StateOptions bundles the per-operation consistency and concurrency choice.
type StateOptions struct {
	Concurrency Concurrency `json:"concurrency,omitempty"`
	Consistency Consistency `json:"consistency,omitempty"`
}

// OperationType discriminates entries of a state transaction.
type OperationType string

const (
	OperationUpsert OperationType = "upsert"
	OperationDelete OperationType = "delete"
)

// Content type constants used across capability payloads.
const (
	ContentTypeJSON   = "application/json"
	ContentTypeText   = "text/plain"
	ContentTypeBinary = "application/octet-stream"
	ContentTypeXML    = "application/xml"
	ContentTypeYAML   = "application/x-yaml"
	ContentTypeForm   = "application/x-www-form-urlencoded"
)
