// Package secrets implements the secret store drivers behind the secrets
// API: process environment and flat files (JSON or YAML).
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

// ErrSecretNotFound is returned when a store has no secret under the key.
var ErrSecretNotFound = errors.New("secrets: secret not found")

// Store resolves named secrets.
type Store interface {
	Name() string
	Get(ctx context.Context, key string) (core.Secret, error)
	// GetBulk returns the secrets for keys, or every secret when keys is
	// empty. Missing keys are skipped, not errors.
	GetBulk(ctx context.Context, keys []string) (map[string]core.Secret, error)
}

// EnvStore exposes process environment variables as secrets. With a prefix,
// only variables carrying it are visible and keys are resolved both as-is
// and prefixed.
type EnvStore struct {
	name   string
	prefix string
}

// NewEnvStore creates an environment-backed store.
func NewEnvStore(name, prefix string) *EnvStore {
	return &EnvStore{name: name, prefix: prefix}
}

func (s *EnvStore) Name() string { return s.name }

func (s *EnvStore) Get(_ context.Context, key string) (core.Secret, error) {
	if val, ok := os.LookupEnv(s.prefix + key); ok {
		return core.Secret{key: val}, nil
	}
	if s.prefix != "" {
		if val, ok := os.LookupEnv(key); ok && strings.HasPrefix(key, s.prefix) {
			return core.Secret{key: val}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, key)
}

func (s *EnvStore) GetBulk(ctx context.Context, keys []string) (map[string]core.Secret, error) {
	out := make(map[string]core.Secret)
	if len(keys) > 0 {
		for _, key := range keys {
			secret, err := s.Get(ctx, key)
			if err != nil {
				continue
			}
			out[key] = secret
		}
		return out, nil
	}

	for _, entry := range os.Environ() {
		name, val, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(name, s.prefix) {
			continue
		}
		key := strings.TrimPrefix(name, s.prefix)
		if key == "" {
			continue
		}
		out[key] = core.Secret{key: val}
	}
	return out, nil
}

// FileStore reads secrets from a JSON or YAML file. Values may be plain
// strings or one level of nesting for multi-field secrets.
type FileStore struct {
	name    string
	path    string
	secrets map[string]core.Secret
}

// NewFileStore loads the secrets file at path. The format is chosen by
// extension; .json parses as JSON, everything else as YAML.
func NewFileStore(name, path string) (*FileStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secrets %s: reading %s: %w", name, path, err)
	}

	var raw map[string]any
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("secrets %s: parsing %s: %w", name, path, err)
	}

	parsed := make(map[string]core.Secret, len(raw))
	for key, value := range raw {
		secret, err := coerceSecret(key, value)
		if err != nil {
			return nil, fmt.Errorf("secrets %s: %w", name, err)
		}
		parsed[key] = secret
	}
	return &FileStore{name: name, path: path, secrets: parsed}, nil
}

func coerceSecret(key string, value any) (core.Secret, error) {
	switch v := value.(type) {
	case string:
		return core.Secret{key: v}, nil
	case map[string]any:
		secret := make(core.Secret, len(v))
		for field, fv := range v {
			str, ok := fv.(string)
			if !ok {
				return nil, fmt.Errorf("secret %s: field %s is not a string", key, field)
			}
			secret[field] = str
		}
		return secret, nil
	default:
		return nil, fmt.Errorf("secret %s: unsupported value type %T", key, value)
	}
}

func (s *FileStore) Name() string { return s.name }

func (s *FileStore) Get(_ context.Context, key string) (core.Secret, error) {
	secret, ok := s.secrets[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return secret, nil
}

func (s *FileStore) GetBulk(_ context.Context, keys []string) (map[string]core.Secret, error) {
	out := make(map[string]core.Secret)
	if len(keys) == 0 {
		for key, secret := range s.secrets {
			out[key] = secret
		}
		return out, nil
	}
	for _, key := range keys {
		if secret, ok := s.secrets[key]; ok {
			out[key] = secret
		}
	}
	return out, nil
}
