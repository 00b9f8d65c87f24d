package core

import "context"

// Secret holds the key/value pairs of one named secret. Multi-field secrets
// (e.g. a credentials pair) map field name to value; simple secrets use the
// secret name as the single field.
type Secret map[string]string

// GetSecretRequest fetches a single secret.
type GetSecretRequest struct {
	StoreName string
	Key       string
	Metadata  Metadata
}

// GetBulkSecretRequest fetches several secrets at once. Empty Keys fetches
// every secret the store exposes.
type GetBulkSecretRequest struct {
	StoreName string
	Keys      []string
	Metadata  Metadata
}

// Secrets is the secret management capability.
type Secrets interface {
	GetSecret(ctx context.Context, storeName, key string) (Secret, error)
	GetSecretWithRequest(ctx context.Context, req *GetSecretRequest) (Secret, error)
	GetBulkSecret(ctx context.Context, req *GetBulkSecretRequest) (map[string]Secret, error)
}
