package secure

import (
	"context"
	"sync"
	"testing"

	"gro-garden-sync/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySecrets struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newMemorySecrets() *memorySecrets {
	return &memorySecrets{values: make(map[string][]byte)}
}

func (m *memorySecrets) GetSecret(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, store.ErrSecretNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memorySecrets) PutSecret(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *memorySecrets) DeleteSecret(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func TestTokenStore_SetGetClear(t *testing.T) {
	ctx := context.Background()
	secrets := newMemorySecrets()
	tokens, err := NewTokenStore(secrets, []byte("master-secret"))
	require.NoError(t, err)

	_, err = tokens.Get(ctx)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, tokens.Set(ctx, "bridge-token-123"))

	raw := secrets.values[TokenKey]
	assert.NotContains(t, string(raw), "bridge-token-123", "token must be encrypted at rest")

	got, err := tokens.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bridge-token-123", got)

	require.NoError(t, tokens.Clear(ctx))
	_, err = tokens.Get(ctx)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenStore_WrongSecretCannotDecrypt(t *testing.T) {
	ctx := context.Background()
	secrets := newMemorySecrets()

	writer, err := NewTokenStore(secrets, []byte("first"))
	require.NoError(t, err)
	require.NoError(t, writer.Set(ctx, "token"))

	reader, err := NewTokenStore(secrets, []byte("second"))
	require.NoError(t, err)
	_, err = reader.Get(ctx)
	assert.ErrorIs(t, err, ErrTokenCorrupt)
}

func TestTokenStore_FreshNoncePerWrite(t *testing.T) {
	ctx := context.Background()
	secrets := newMemorySecrets()
	tokens, err := NewTokenStore(secrets, []byte("master-secret"))
	require.NoError(t, err)

	require.NoError(t, tokens.Set(ctx, "token"))
	first := append([]byte(nil), secrets.values[TokenKey]...)
	require.NoError(t, tokens.Set(ctx, "token"))
	assert.NotEqual(t, first, secrets.values[TokenKey])
}

func TestTokenStore_Validation(t *testing.T) {
	_, err := NewTokenStore(nil, []byte("x"))
	assert.Error(t, err)

	_, err = NewTokenStore(newMemorySecrets(), nil)
	assert.Error(t, err)

	tokens, err := NewTokenStore(newMemorySecrets(), []byte("x"))
	require.NoError(t, err)
	assert.Error(t, tokens.Set(context.Background(), "   "))
}

func TestTokenStore_TruncatedBlob(t *testing.T) {
	secrets := newMemorySecrets()
	secrets.values[TokenKey] = []byte{1, 2, 3}

	tokens, err := NewTokenStore(secrets, []byte("x"))
	require.NoError(t, err)
	_, err = tokens.Get(context.Background())
	assert.ErrorIs(t, err, ErrTokenCorrupt)
}
