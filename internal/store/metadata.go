package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/lineagemap/internal/apperr"
	"github.com/starford/lineagemap/internal/models"
)

// GetMetadata returns the metadata entity with the given id or apperr.ErrNotFound.
func (db *DB) GetMetadata(ctx context.Context, id string) (*models.MetadataRef, error) {
	var m models.MetadataRef
	err := db.conn.QueryRowContext(ctx, `SELECT id, name, updated_at FROM metadata WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("metadata %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get metadata: %w", err)
	}
	return &m, nil
}

// FindMetadataByName returns every entity named name, oldest registration first.
func (db *DB) FindMetadataByName(ctx context.Context, name string) ([]models.MetadataRef, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name, updated_at FROM metadata WHERE name = ? ORDER BY rowid`, name)
	if err != nil {
		return nil, fmt.Errorf("store: find metadata by name: %w", err)
	}
	return scanMetadata(rows)
}

// UpsertMetadata inserts or renames a metadata entity. Renaming keeps its
// registration position.
func (db *DB) UpsertMetadata(ctx context.Context, m models.MetadataRef) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `
		INSERT INTO metadata (id, name, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name       = excluded.name,
			updated_at = excluded.updated_at
	`, m.ID, m.Name, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: upsert metadata: %w", err)
	}
	if err := ftsUpsert(tx, m.ID, m.Name); err != nil {
		return err
	}
	return tx.Commit()
}

// ListMetadata returns a page of entities in registration order and the total count.
func (db *DB) ListMetadata(ctx context.Context, limit, offset int) ([]models.MetadataRef, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM metadata`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count metadata: %w", err)
	}
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name, updated_at FROM metadata ORDER BY rowid LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list metadata: %w", err)
	}
	out, err := scanMetadata(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanMetadata(rows *sql.Rows) ([]models.MetadataRef, error) {
	defer rows.Close()
	out := []models.MetadataRef{}
	for rows.Next() {
		var m models.MetadataRef
		if err := rows.Scan(&m.ID, &m.Name, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan metadata: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
