package core

import "context"

// InvokeBindingRequest invokes an operation on a named output binding.
type InvokeBindingRequest struct {
	Name      string
	Operation string
	Data      []byte
	Metadata  Metadata
}

// InvokeBindingResponse carries the binding's reply, if any.
type InvokeBindingResponse struct {
	Data     []byte
	Metadata Metadata
}

// BindingInfo describes a configured binding component.
type BindingInfo struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Operations []string `json:"operations,omitempty"`
	Metadata   Metadata `json:"metadata,omitempty"`
}

// Binding is the resource binding capability.
type Binding interface {
	InvokeBinding(ctx context.Context, name, operation string, data []byte) (*InvokeBindingResponse, error)
	InvokeBindingWithRequest(ctx context.Context, req *InvokeBindingRequest) (*InvokeBindingResponse, error)
	ListInputBindings(ctx context.Context) ([]BindingInfo, error)
	ListOutputBindings(ctx context.Context) ([]BindingInfo, error)
}
