//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/lineagemap/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS metadata_fts USING fts5(
			id UNINDEXED,
			name,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, name string) error {
	_, _ = tx.Exec(`DELETE FROM metadata_fts WHERE id = ?`, id)
	if _, err := tx.Exec(`INSERT INTO metadata_fts (id, name) VALUES (?, ?)`, id, name); err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

// SearchMetadata performs an FTS5 name search ranked by relevance.
func (db *DB) SearchMetadata(ctx context.Context, query string, limit int) ([]models.MetadataRef, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT m.id, m.name, m.updated_at
		FROM metadata_fts
		JOIN metadata m ON m.id = metadata_fts.id
		WHERE metadata_fts MATCH ?
		ORDER BY metadata_fts.rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search metadata: %w", err)
	}
	return scanMetadata(rows)
}
