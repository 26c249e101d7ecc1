//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/lineagemap/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; metadata search uses LIKE on metadata.name.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _ string) error {
	return nil
}

// SearchMetadata performs a LIKE-based name search (fallback when FTS5 is not compiled in).
func (db *DB) SearchMetadata(ctx context.Context, query string, limit int) ([]models.MetadataRef, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, updated_at
		FROM metadata
		WHERE name LIKE ? OR id = ?
		ORDER BY rowid
		LIMIT ?
	`, "%"+query+"%", query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search metadata: %w", err)
	}
	return scanMetadata(rows)
}
