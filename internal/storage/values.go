package storage

import (
	"database/sql/driver"
	"fmt"
)

// PlainRow converts driver.Valuer values (the pgtype nullables load rows are
// made of) into plain Go values for database/sql drivers that do not know
// them. An invalid nullable becomes nil.
func PlainRow(row []any) ([]any, error) {
	out := make([]any, len(row))
	for i, v := range row {
		vr, ok := v.(driver.Valuer)
		if !ok {
			out[i] = v
			continue
		}
		pv, err := vr.Value()
		if err != nil {
			return nil, fmt.Errorf("storage: value %d: %w", i, err)
		}
		out[i] = pv
	}
	return out, nil
}

// PlainRows applies PlainRow to every row.
func PlainRows(rows [][]any) ([][]any, error) {
	out := make([][]any, len(rows))
	for i, r := range rows {
		p, err := PlainRow(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}
