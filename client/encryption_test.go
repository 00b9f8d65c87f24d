package client

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cloudruntimes "github.com/cloud-runtimes/cloudruntimes-go"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc := encryptionClient{}
	ctx := context.Background()

	key, err := enc.GenerateKey(ctx)
	require.NoError(t, err)
	require.Len(t, key, 32)

	ciphertext, err := enc.Encrypt(ctx, key, []byte("attack at dawn"))
	require.NoError(t, err)
	assert.NotEqual(t, []byte("attack at dawn"), ciphertext)

	plaintext, err := enc.Decrypt(ctx, key, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("attack at dawn"), plaintext)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	enc := encryptionClient{}
	ctx := context.Background()

	key, err := enc.GenerateKey(ctx)
	require.NoError(t, err)
	ciphertext, err := enc.Encrypt(ctx, key, []byte("payload"))
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] ^= 0xff
	_, err = enc.Decrypt(ctx, key, ciphertext)
	require.Error(t, err)
	assert.Equal(t, cloudruntimes.CodeParam, cloudruntimes.Code(err))
}

func TestEncryptRejectsShortKey(t *testing.T) {
	enc := encryptionClient{}
	_, err := enc.Encrypt(context.Background(), []byte("short"), []byte("x"))
	require.Error(t, err)
	assert.Equal(t, cloudruntimes.CodeParam, cloudruntimes.Code(err))
}

func TestHashAndVerify(t *testing.T) {
	enc := encryptionClient{}
	ctx := context.Background()

	digest, err := enc.Hash(ctx, []byte("data"))
	require.NoError(t, err)
	require.Len(t, digest, 32)

	ok, err := enc.VerifyHash(ctx, []byte("data"), digest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = enc.VerifyHash(ctx, []byte("other"), digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignAndVerify(t *testing.T) {
	enc := encryptionClient{}
	ctx := context.Background()

	seed, err := enc.RandomBytes(ctx, ed25519.SeedSize)
	require.NoError(t, err)

	signature, err := enc.Sign(ctx, seed, []byte("release v1.2.3"))
	require.NoError(t, err)

	publicKey := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	ok, err := enc.VerifySignature(ctx, publicKey, []byte("release v1.2.3"), signature)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = enc.VerifySignature(ctx, publicKey, []byte("release v9.9.9"), signature)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewUUIDAndRandomBytes(t *testing.T) {
	enc := encryptionClient{}
	ctx := context.Background()

	a, err := enc.NewUUID(ctx)
	require.NoError(t, err)
	b, err := enc.NewUUID(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	_, err = enc.RandomBytes(ctx, 0)
	require.Error(t, err)
}
