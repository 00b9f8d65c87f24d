package saas

import "context"

// Encryption is the cryptographic capability. It runs entirely in-process;
// no key material crosses the sidecar boundary.
type Encryption interface {
	// Encrypt seals plaintext with AES-256-GCM under the given key.
	Encrypt(ctx context.Context, key, plaintext []byte) ([]byte, error)
	// Decrypt opens a ciphertext produced by Encrypt.
	Decrypt(ctx context.Context, key, ciphertext []byte) ([]byte, error)

	// GenerateKey returns a fresh 256-bit key.
	GenerateKey(ctx context.Context) ([]byte, error)

	// Hash returns the SHA-256 digest of data.
	Hash(ctx context.Context, data []byte) ([]byte, error)
	// VerifyHash reports whether digest matches data in constant time.
	VerifyHash(ctx context.Context, data, digest []byte) (bool, error)

	// Sign produces an Ed25519 signature with the given private key seed.
	Sign(ctx context.Context, seed, data []byte) ([]byte, error)
	// VerifySignature checks an Ed25519 signature.
	VerifySignature(ctx context.Context, publicKey, data, signature []byte) (bool, error)

	// RandomBytes returns n cryptographically random bytes.
	RandomBytes(ctx context.Context, n int) ([]byte, error)
	// NewUUID returns a random UUID string.
	NewUUID(ctx context.Context) (string, error)
}
