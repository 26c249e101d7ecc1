package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/lineagemap/internal/apperr"
	"github.com/starford/lineagemap/internal/models"
)

const edgeColumns = `id, from_meta_id, to_meta_id, description, created_at, updated_at`

// SaveEdge inserts or replaces an edge. A new edge gets a UUIDv7 id.
func (db *DB) SaveEdge(ctx context.Context, e models.LineageEdge) (models.LineageEdge, error) {
	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV7()).String()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO lineage_edges (id, from_meta_id, to_meta_id, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			from_meta_id = excluded.from_meta_id,
			to_meta_id   = excluded.to_meta_id,
			description  = excluded.description,
			updated_at   = excluded.updated_at
	`, e.ID, nullString(e.FromMetaID), nullString(e.ToMetaID), e.Description, now, now)
	if err != nil {
		return models.LineageEdge{}, fmt.Errorf("store: save edge: %w", err)
	}
	saved, err := db.GetEdge(ctx, e.ID)
	if err != nil {
		return models.LineageEdge{}, err
	}
	return *saved, nil
}

// ListEdges returns every edge in insertion order.
func (db *DB) ListEdges(ctx context.Context) ([]models.LineageEdge, error) {
	return db.queryEdges(ctx, `SELECT `+edgeColumns+` FROM lineage_edges ORDER BY rowid`)
}

// GetEdge returns the edge with the given id or apperr.ErrNotFound.
func (db *DB) GetEdge(ctx context.Context, id string) (*models.LineageEdge, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+edgeColumns+` FROM lineage_edges WHERE id = ?`, id)
	e, err := scanEdge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("edge %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get edge: %w", err)
	}
	return &e, nil
}

// EdgesFrom returns the edges whose source is metaID (its downstream edges).
func (db *DB) EdgesFrom(ctx context.Context, metaID string) ([]models.LineageEdge, error) {
	return db.queryEdges(ctx, `SELECT `+edgeColumns+` FROM lineage_edges WHERE from_meta_id = ? ORDER BY rowid`, metaID)
}

// EdgesTo returns the edges whose target is metaID (its upstream edges).
func (db *DB) EdgesTo(ctx context.Context, metaID string) ([]models.LineageEdge, error) {
	return db.queryEdges(ctx, `SELECT `+edgeColumns+` FROM lineage_edges WHERE to_meta_id = ? ORDER BY rowid`, metaID)
}

// DeleteEdge removes an edge, returning apperr.ErrNotFound if it does not exist.
func (db *DB) DeleteEdge(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM lineage_edges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete edge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete edge: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("edge %q: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (db *DB) queryEdges(ctx context.Context, query string, args ...any) ([]models.LineageEdge, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query edges: %w", err)
	}
	defer rows.Close()

	out := []models.LineageEdge{}
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEdge(s scanner) (models.LineageEdge, error) {
	var (
		e        models.LineageEdge
		from, to sql.NullString
	)
	if err := s.Scan(&e.ID, &from, &to, &e.Description, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return models.LineageEdge{}, err
	}
	e.FromMetaID = from.String
	e.ToMetaID = to.String
	return e, nil
}
