package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/lineagemap/internal/apperr"
	"github.com/starford/lineagemap/internal/testutil"
)

func TestByName(t *testing.T) {
	ms := testutil.NewMemMetadataStore(
		testutil.Meta("m1", "T1"),
		testutil.Meta("m2", "T2"),
		testutil.Meta("m3", "T2"),
	)
	ctx := context.Background()

	t.Run("unique", func(t *testing.T) {
		id, err := New(ms, false).IDByName(ctx, "T1")
		require.NoError(t, err)
		assert.Equal(t, "m1", id)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := New(ms, false).ByName(ctx, "nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("duplicate takes first", func(t *testing.T) {
		id, err := New(ms, false).IDByName(ctx, "T2")
		require.NoError(t, err)
		assert.Equal(t, "m2", id)
	})

	t.Run("duplicate strict", func(t *testing.T) {
		_, err := New(ms, true).ByName(ctx, "T2")
		assert.ErrorIs(t, err, apperr.ErrAmbiguous)
	})
}

func TestByID(t *testing.T) {
	r := New(testutil.NewMemMetadataStore(testutil.Meta("m1", "T1")), true)
	ctx := context.Background()

	name, err := r.Name(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "T1", name)

	_, err = r.ByID(ctx, "m9")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNameCache(t *testing.T) {
	ms := testutil.NewMemMetadataStore(testutil.Meta("m1", "T1"))
	cache := New(ms, false).NewNameCache()
	ctx := context.Background()

	for range 3 {
		name, err := cache.Name(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, "T1", name)
	}
	assert.Equal(t, 1, ms.Lookups)

	_, err := cache.Name(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResolverAgainstSQLite(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertMetadata(ctx, testutil.Meta("a", "orders")))
	require.NoError(t, db.UpsertMetadata(ctx, testutil.Meta("b", "orders")))

	id, err := New(db, false).IDByName(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "a", id)

	_, err = New(db, true).IDByName(ctx, "orders")
	assert.ErrorIs(t, err, apperr.ErrAmbiguous)
}
