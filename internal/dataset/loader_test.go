package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/lineagemap/internal/apperr"
	"github.com/starford/lineagemap/internal/models"
	"github.com/starford/lineagemap/internal/storage"
)

func newTestLoader(t *testing.T, files map[string]string, opts ...LoaderOption) *Loader {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	fs, err := storage.NewFS(dir)
	require.NoError(t, err)
	return NewLoader(fs, opts...)
}

func TestLoader_FindDatasetsByName(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"b/DEFAULT_LINEAGE_MAP.yaml": "[]",
		"a/DEFAULT_LINEAGE_MAP.csv":  "from_meta_name\n",
		"other.csv":                  "x\n",
	})

	refs, err := l.FindDatasetsByName(context.Background(), "DEFAULT_LINEAGE_MAP")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "a/DEFAULT_LINEAGE_MAP.csv", refs[0].ID)
	assert.Equal(t, "b/DEFAULT_LINEAGE_MAP.yaml", refs[1].ID)

	refs, err = l.FindDatasetsByName(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestLoader_LoadRowsNative(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"lineage.csv": "from_meta_name,to_meta_name,description\nT1,T2,etl\n",
		"lineage2.yml": "- from_meta_id: m1\n  to_meta_id: m2\n",
	})
	ctx := context.Background()

	rows, err := l.LoadRows(ctx, models.DatasetRef{ID: "lineage.csv", Format: storage.FormatCSV})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.Row{"from_meta_name": "T1", "to_meta_name": "T2", "description": "etl"}, rows[0])

	rows, err = l.LoadRows(ctx, models.DatasetRef{ID: "lineage2.yml", Format: storage.FormatYAML})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "m1", rows[0]["from_meta_id"])
}

func TestLoader_LoadRowsErrors(t *testing.T) {
	l := newTestLoader(t, map[string]string{"data.parquet": "PAR1"})
	ctx := context.Background()

	_, err := l.LoadRows(ctx, models.DatasetRef{ID: "data.parquet", Format: storage.FormatParquet})
	assert.ErrorIs(t, err, apperr.ErrDatasetLoad)

	_, err = l.LoadRows(ctx, models.DatasetRef{ID: "gone.csv", Format: storage.FormatCSV})
	assert.ErrorIs(t, err, apperr.ErrDatasetLoad)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = l.LoadRows(cancelled, models.DatasetRef{ID: "data.parquet", Format: storage.FormatParquet})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_DuckDB(t *testing.T) {
	duck, err := OpenDuckDB()
	require.NoError(t, err)
	t.Cleanup(func() { duck.Close() })

	l := newTestLoader(t, map[string]string{
		"it's.csv":     "from_meta_name,to_meta_name,description\nT1,T2,  etl\nT2,T3,\n",
		"lineage.json": `[{"from_meta_id":123456789012345678901234,"to_meta_id":"m2","description":1.50}]`,
	}, WithDuckDB(duck, true))
	ctx := context.Background()

	rows, err := l.LoadRows(ctx, models.DatasetRef{ID: "it's.csv", Format: storage.FormatCSV})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "T1", rows[0]["from_meta_name"])
	// Same cell text as the native reader.
	assert.Equal(t, "  etl", rows[0]["description"])
	assert.Equal(t, "T3", rows[1]["to_meta_name"])
	desc, _ := rows[1].Get("description")
	assert.Empty(t, desc)

	// JSON stays on the native decoder, which keeps number literals intact.
	rows, err = l.LoadRows(ctx, models.DatasetRef{ID: "lineage.json", Format: storage.FormatJSON})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.Row{"from_meta_id": "123456789012345678901234", "to_meta_id": "m2", "description": "1.50"}, rows[0])
}

func TestLoader_NativeAndDuckDBAgree(t *testing.T) {
	duck, err := OpenDuckDB()
	require.NoError(t, err)
	t.Cleanup(func() { duck.Close() })

	csv := "from_meta_id,to_meta_id,description\n0123,a b,  sql\n"
	native := newTestLoader(t, map[string]string{"l.csv": csv})
	viaDuck := newTestLoader(t, map[string]string{"l.csv": csv}, WithDuckDB(duck, true))
	ref := models.DatasetRef{ID: "l.csv", Format: storage.FormatCSV}

	want, err := native.LoadRows(context.Background(), ref)
	require.NoError(t, err)
	got, err := viaDuck.LoadRows(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "0123", want[0]["from_meta_id"])
}

func TestLoader_JSONWithoutDuckDB(t *testing.T) {
	l := newTestLoader(t, map[string]string{"deps.json": `[{"from_meta_id":"0123","to_meta_id":42}]`})
	rows, err := l.LoadRows(context.Background(), models.DatasetRef{ID: "deps.json", Format: storage.FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, models.Row{"from_meta_id": "0123", "to_meta_id": "42"}, rows[0])
}

func TestCellString(t *testing.T) {
	s, ok := cellString(nil)
	assert.False(t, ok)
	assert.Empty(t, s)
	s, ok = cellString([]byte("x"))
	assert.True(t, ok)
	assert.Equal(t, "x", s)
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'/tmp/a''b.csv'", quoteLiteral("/tmp/a'b.csv"))
}
