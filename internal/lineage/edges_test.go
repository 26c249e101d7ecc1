package lineage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/lineagemap/internal/apperr"
	"github.com/starford/lineagemap/internal/models"
	"github.com/starford/lineagemap/internal/testutil"
)

func TestEdgeCRUD(t *testing.T) {
	svc, err := NewService(testutil.NewMemEdgeStore(), testutil.NewMemMetadataStore(), nil, Options{})
	require.NoError(t, err)
	ctx := context.Background()

	e1, err := svc.CreateEdge(ctx, "a", "b", "etl")
	require.NoError(t, err)
	assert.NotEmpty(t, e1.ID)

	// No uniqueness check on explicit creation.
	e2, err := svc.CreateEdge(ctx, "a", "b", "etl")
	require.NoError(t, err)
	assert.NotEqual(t, e1.ID, e2.ID)
	assert.True(t, e1.Equal(*e2))

	all, err := svc.ListEdges(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, e1.ID, all[0].ID)

	got, err := svc.GetEdge(ctx, e2.ID)
	require.NoError(t, err)
	assert.Equal(t, "etl", got.Description)

	_, err = svc.GetEdge(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, svc.DeleteEdge(ctx, e1.ID))
	assert.ErrorIs(t, svc.DeleteEdge(ctx, e1.ID), apperr.ErrNotFound)
}

func TestCreateEdge_Validation(t *testing.T) {
	svc, err := NewService(testutil.NewMemEdgeStore(), testutil.NewMemMetadataStore(), nil, Options{})
	require.NoError(t, err)

	_, err = svc.CreateEdge(context.Background(), "", "b", "")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	_, err = svc.CreateEdge(context.Background(), "a", "", "")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestCreateEdge_PersistenceFailure(t *testing.T) {
	edges := testutil.NewMemEdgeStore()
	edges.SaveEdgeFn = func(context.Context, models.LineageEdge) (models.LineageEdge, error) {
		return models.LineageEdge{}, errors.New("readonly database")
	}
	svc, err := NewService(edges, testutil.NewMemMetadataStore(), nil, Options{})
	require.NoError(t, err)

	_, err = svc.CreateEdge(context.Background(), "a", "b", "")
	assert.ErrorIs(t, err, apperr.ErrPersistence)
}

func TestServiceAgainstSQLite(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()
	for _, m := range []models.MetadataRef{
		testutil.Meta("t1", "T1"),
		testutil.Meta("t2", "T2"),
		testutil.Meta("t3", "T3"),
	} {
		require.NoError(t, db.UpsertMetadata(ctx, m))
	}
	src := testutil.NewMemSource()
	src.Add(DefaultDataset,
		models.Row{"from_meta_name": "T1", "to_meta_name": "T2", "description": "sql"},
		models.Row{"from_meta_name": "T2", "to_meta_name": "T3", "description": "copy"},
		models.Row{"from_meta_name": "nobody", "to_meta_name": "T3", "description": "dangling"},
	)
	svc, err := NewService(db, db, src, Options{})
	require.NoError(t, err)

	first, err := svc.ImportLineage(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, first.Created)

	second, err := svc.ImportLineage(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, second.Replaced)
	for i := range first.Edges {
		assert.Equal(t, first.Edges[i].ID, second.Edges[i].ID)
	}

	all, err := svc.ListEdges(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	root, err := svc.GetLineageMap(ctx, "t2")
	require.NoError(t, err)
	require.Len(t, root.FromMapNodes, 1)
	assert.Equal(t, "t1", root.FromMapNodes[0].MetaID)
	require.Len(t, root.ToMapNodes, 1)
	assert.Equal(t, "t3", root.ToMapNodes[0].MetaID)

	// The dangling edge has no source and is left out of T3's upstream.
	root, err = svc.GetLineageMap(ctx, "t3")
	require.NoError(t, err)
	require.Len(t, root.FromMapNodes, 1)
	assert.Equal(t, "t2", root.FromMapNodes[0].MetaID)
}

func TestConcurrentImportsDoNotDuplicate(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()
	for _, m := range []models.MetadataRef{
		testutil.Meta("t1", "T1"),
		testutil.Meta("t2", "T2"),
		testutil.Meta("t3", "T3"),
	} {
		require.NoError(t, db.UpsertMetadata(ctx, m))
	}
	src := testutil.NewMemSource()
	ref := src.Add(DefaultDataset,
		models.Row{"from_meta_name": "T1", "to_meta_name": "T2", "description": "sql"},
		models.Row{"from_meta_name": "T2", "to_meta_name": "T3", "description": "copy"},
	)
	rows := []models.Row{
		{"from_meta_name": "T1", "to_meta_name": "T2", "description": "sql"},
		{"from_meta_name": "T2", "to_meta_name": "T3", "description": "copy"},
	}
	// Widen the gap between reading the dataset and scanning stored edges.
	src.LoadRowsFn = func(_ context.Context, r models.DatasetRef) ([]models.Row, error) {
		time.Sleep(5 * time.Millisecond)
		assert.Equal(t, ref.ID, r.ID)
		return rows, nil
	}
	svc, err := NewService(db, db, src, Options{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ImportLineage(ctx, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := svc.ListEdges(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
