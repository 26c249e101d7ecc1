package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/starford/lineagemap/internal/models"
	"github.com/starford/lineagemap/internal/storage"
)

// DuckDB reads dataset files through an in-memory DuckDB instance.
type DuckDB struct {
	conn *sql.DB
}

// OpenDuckDB starts an in-memory DuckDB database.
func OpenDuckDB() (*DuckDB, error) {
	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("dataset: open duckdb: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("dataset: ping duckdb: %w", err)
	}
	return &DuckDB{conn: conn}, nil
}

// Close releases the DuckDB instance.
func (d *DuckDB) Close() error {
	return d.conn.Close()
}

// ReadRows selects every row of the file at absPath, each column cast to
// VARCHAR. NULL cells leave the column absent from the row.
func (d *DuckDB) ReadRows(ctx context.Context, absPath, format string) ([]models.Row, error) {
	var query string
	switch format {
	case storage.FormatCSV:
		query = fmt.Sprintf(`SELECT COLUMNS(*)::VARCHAR FROM read_csv(%s, header = true, all_varchar = true)`, quoteLiteral(absPath))
	case storage.FormatParquet:
		query = fmt.Sprintf(`SELECT COLUMNS(*)::VARCHAR FROM read_parquet(%s)`, quoteLiteral(absPath))
	default:
		return nil, fmt.Errorf("dataset: duckdb cannot read %q files", format)
	}

	rows, err := d.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dataset: duckdb query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("dataset: duckdb columns: %w", err)
	}

	out := []models.Row{}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("dataset: duckdb scan: %w", err)
		}
		row := make(models.Row, len(cols))
		for i, col := range cols {
			if s, ok := cellString(vals[i]); ok {
				row[col] = s
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// cellString converts a scanned cell. Queries cast every column to VARCHAR
// so cells arrive as DuckDB's own text rendering.
func cellString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case []byte:
		return string(t), true
	default:
		return fmt.Sprint(t), true
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
