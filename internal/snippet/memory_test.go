package snippet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Read(ctx, 201)
	require.Error(t, err, "reading before publish must fail")

	require.NoError(t, store.Publish(ctx, 201, []byte("first")))
	data, err := store.Read(ctx, 201)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)

	// Publish overwrites.
	require.NoError(t, store.Publish(ctx, 201, []byte("second")))
	data, err = store.Read(ctx, 201)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Remove(ctx, 201))
	_, err = store.Read(ctx, 201)
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())

	// Removing an absent artifact stays clean.
	require.NoError(t, store.Remove(ctx, 201))
}

func TestMemoryStoreIsolation(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	original := []byte("artifact")
	require.NoError(t, store.Publish(ctx, 201, original))
	original[0] = 'X'

	data, err := store.Read(ctx, 201)
	require.NoError(t, err)
	assert.Equal(t, []byte("artifact"), data, "store must hold its own copy")

	data[0] = 'Y'
	again, err := store.Read(ctx, 201)
	require.NoError(t, err)
	assert.Equal(t, []byte("artifact"), again, "readers must not share backing arrays")
}

func TestMemoryStoreFail(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("disk full")

	store.Fail(boom)
	assert.ErrorIs(t, store.Publish(ctx, 201, []byte("x")), boom)
	_, err := store.Read(ctx, 201)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, store.Remove(ctx, 201), boom)

	store.Fail(nil)
	assert.NoError(t, store.Publish(ctx, 201, []byte("x")))
}

func TestMemoryStorePath(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	assert.Equal(t, "/var/lib/vz/snippets/42.ign", store.Path(42))
}
