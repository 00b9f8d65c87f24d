package client

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/google/uuid"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/saas"
)

// encryptionClient runs entirely in-process. Key material never crosses the
// sidecar boundary.
type encryptionClient struct{}

var _ saas.Encryption = encryptionClient{}

const keySize = 32

func (encryptionClient) gcm(key []byte) (cipher.AEAD, error) {
	if len(key) != keySize {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, cloudruntimes.Wrap(cloudruntimes.CodeSystem, err, "building cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, cloudruntimes.Wrap(cloudruntimes.CodeSystem, err, "building gcm")
	}
	return aead, nil
}

// Encrypt seals plaintext with AES-256-GCM. The nonce is prepended to the
// ciphertext.
func (c encryptionClient) Encrypt(_ context.Context, key, plaintext []byte) ([]byte, error) {
	aead, err := c.gcm(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, cloudruntimes.Wrap(cloudruntimes.CodeSystem, err, "generating nonce")
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (c encryptionClient) Decrypt(_ context.Context, key, ciphertext []byte) ([]byte, error) {
	aead, err := c.gcm(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "ciphertext shorter than nonce")
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, cloudruntimes.Wrap(cloudruntimes.CodeParam, err, "decryption failed")
	}
	return plaintext, nil
}

func (c encryptionClient) GenerateKey(ctx context.Context) ([]byte, error) {
	return c.RandomBytes(ctx, keySize)
}

func (encryptionClient) Hash(_ context.Context, data []byte) ([]byte, error) {
	sum := sha256.Sum256(data)
	return sum[:], nil
}

func (c encryptionClient) VerifyHash(ctx context.Context, data, digest []byte) (bool, error) {
	sum, err := c.Hash(ctx, data)
	if err != nil {
		return false, err
	}
	return hmac.Equal(sum, digest), nil
}

func (encryptionClient) Sign(_ context.Context, seed, data []byte) ([]byte, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.Sign(ed25519.NewKeyFromSeed(seed), data), nil
}

func (encryptionClient) VerifySignature(_ context.Context, publicKey, data, signature []byte) (bool, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return false, cloudruntimes.Errorf(cloudruntimes.CodeParam, "public key must be %d bytes, got %d", ed25519.PublicKeySize, len(publicKey))
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), data, signature), nil
}

func (encryptionClient) RandomBytes(_ context.Context, n int) ([]byte, error) {
	if n <= 0 {
		return nil, cloudruntimes.Errorf(cloudruntimes.CodeParam, "n must be positive")
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, cloudruntimes.Wrap(cloudruntimes.CodeSystem, err, "reading randomness")
	}
	return out, nil
}

func (encryptionClient) NewUUID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
