package helpers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spektr-org/inspekt/schema"
)

// ============================================================================
// SQL HELPER — Reads inspection rows from any database/sql driver
// ============================================================================
// The query's result column names are resolved with the same Mapping as a
// CSV header, so `SELECT measured_at AS date, ...` and a columns override in
// config are interchangeable. Typed driver values (time.Time, float64,
// int64) are used as-is; text values are parsed like CSV cells.
// ============================================================================

// LoadRows runs query against db and converts the result set.
func LoadRows(ctx context.Context, db *sql.DB, query string, m schema.Mapping, opts ...LoadOption) (*LoadResult, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	defer rows.Close()

	return ScanRows(rows, m, opts...)
}

// ScanRows converts an open result set. The caller closes rows.
func ScanRows(rows *sql.Rows, m schema.Mapping, opts ...LoadOption) (*LoadResult, error) {
	cfg := applyLoadOptions(opts)

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("load rows: columns: %w", err)
	}
	idx, err := m.Resolve(columns)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}

	loader := newRowLoader(cfg, idx, m.DateFormat)
	cells := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range cells {
		dest[i] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			loader.reject(fmt.Sprintf("scan: %v", err))
			continue
		}
		loader.add(cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	return loader.finish("sql"), nil
}
