package sqlstore

import (
	"context"
	"fmt"
	"slices"

	"storefront/backend/internal/store"
)

// ProbeLineColumns inspects both line tables and returns, per table, the
// widest column set that avoids every generated column.
func (s *Store) ProbeLineColumns(ctx context.Context) (map[store.LineTable]store.ColumnSet, error) {
	result := make(map[store.LineTable]store.ColumnSet, 2)
	for _, table := range []store.LineTable{store.ProductLineTable, store.ComboLineTable} {
		generated, err := s.generatedColumns(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", table, err)
		}
		result[table] = store.ColumnsFor(
			slices.Contains(generated, "line_total"),
			slices.Contains(generated, "line_cost_total"),
		)
	}
	return result, nil
}

func (s *Store) generatedColumns(ctx context.Context, table store.LineTable) ([]string, error) {
	var columns []string
	var err error
	switch s.dialect {
	case SQLite:
		// hidden is 2 for virtual and 3 for stored generated columns
		err = s.db.SelectContext(ctx, &columns, `SELECT name FROM pragma_table_xinfo(?) WHERE hidden IN (2, 3)`, string(table))
	default:
		err = s.db.SelectContext(ctx, &columns, `
			SELECT column_name
			FROM information_schema.columns
			WHERE table_schema = current_schema()
				AND table_name = $1
				AND is_generated = 'ALWAYS'
		`, string(table))
	}
	return columns, err
}
