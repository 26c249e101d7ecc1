// Package store provides the SQLite-backed edge and metadata stores.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/starford/lineagemap/internal/models"
)

// EdgeStore is the persistence contract for lineage edges.
type EdgeStore interface {
	// SaveEdge inserts e when e.ID is empty, otherwise replaces the stored edge with that ID.
	SaveEdge(ctx context.Context, e models.LineageEdge) (models.LineageEdge, error)
	ListEdges(ctx context.Context) ([]models.LineageEdge, error)
	GetEdge(ctx context.Context, id string) (*models.LineageEdge, error)
	EdgesFrom(ctx context.Context, metaID string) ([]models.LineageEdge, error)
	EdgesTo(ctx context.Context, metaID string) ([]models.LineageEdge, error)
	DeleteEdge(ctx context.Context, id string) error
}

// MetadataStore is the lookup contract for metadata entities.
type MetadataStore interface {
	GetMetadata(ctx context.Context, id string) (*models.MetadataRef, error)
	// FindMetadataByName returns matches in registration order.
	FindMetadataByName(ctx context.Context, name string) ([]models.MetadataRef, error)
	UpsertMetadata(ctx context.Context, m models.MetadataRef) error
	ListMetadata(ctx context.Context, limit, offset int) ([]models.MetadataRef, int, error)
	SearchMetadata(ctx context.Context, query string, limit int) ([]models.MetadataRef, error)
}

// Verify *DB satisfies both contracts at compile time.
var (
	_ EdgeStore     = (*DB)(nil)
	_ MetadataStore = (*DB)(nil)
)

// DB wraps a sql.DB with lineage-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and runs pending migrations.
//
// The pool is limited to one connection, which serializes statements. It
// does not make a multi-statement sequence atomic; callers that scan and
// then write must coordinate themselves.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

func migrate(conn *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("store: goose set dialect: %w", err)
	}
	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("store: goose up: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
