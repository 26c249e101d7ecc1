//go:build sqlite_fts5

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/lineagemap/internal/models"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	require.NoError(t, db.conn.QueryRow(`SELECT count(*) FROM metadata_fts`).Scan(&count))
}

func TestFTS5_SearchByToken(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertMetadata(ctx, models.MetadataRef{ID: "m1", Name: "Hive table orders"}))
	require.NoError(t, db.UpsertMetadata(ctx, models.MetadataRef{ID: "m2", Name: "Datasource revenue"}))

	got, err := db.SearchMetadata(ctx, "orders", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)
}

func TestFTS5_RenameReplacesEntry(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertMetadata(ctx, models.MetadataRef{ID: "m1", Name: "alpha"}))
	require.NoError(t, db.UpsertMetadata(ctx, models.MetadataRef{ID: "m1", Name: "beta"}))

	got, err := db.SearchMetadata(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
