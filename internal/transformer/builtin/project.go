package builtin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"koboetl/internal/schema"
	"koboetl/internal/transformer"
)

// Project reshapes the frame to exactly the contract fields, in contract
// order. Fields without a source column become all-absent columns; source
// columns outside the contract are dropped. Both cases raise one
// schema-mismatch warning each. Retained columns are coerced to their field
// kind.
//
// A field matches a column of the same name, or failing that a column whose
// name differs only in case.
type Project struct {
	Contract         schema.Contract
	DateLayouts      []string
	TimestampLayouts []string
}

func (p Project) Apply(f *transformer.Frame) error {
	names := f.Names()
	used := make([]bool, len(names))

	cols := make([][]any, len(p.Contract.Fields))
	types := make(map[string]schema.Kind, len(p.Contract.Fields))
	var missing []string
	for k, fd := range p.Contract.Fields {
		i := matchColumn(names, used, fd.Name)
		if i < 0 {
			cols[k] = make([]any, f.Len())
			if !f.Reported(fd.Name) {
				missing = append(missing, fd.Name)
			}
			continue
		}
		used[i] = true
		cols[k] = f.At(i)
		types[fd.Name] = fd.Kind
	}

	var extra []string
	for i, u := range used {
		if !u {
			extra = append(extra, names[i])
		}
	}

	if err := f.Replace(p.Contract.Names(), cols); err != nil {
		return err
	}
	if len(missing) > 0 {
		f.MarkReported(missing...)
		f.Warn(transformer.Warning{
			Kind:    transformer.WarnSchemaMismatch,
			Columns: missing,
			Message: "target columns not in export; filled with absent values",
		})
	}
	if len(extra) > 0 {
		f.Warn(transformer.Warning{
			Kind:    transformer.WarnSchemaMismatch,
			Columns: extra,
			Message: "export columns not in target schema; dropped",
		})
	}

	return Coerce{
		Types:            types,
		DateLayouts:      p.DateLayouts,
		TimestampLayouts: p.TimestampLayouts,
		Exact:            true,
	}.Apply(f)
}

func matchColumn(names []string, used []bool, want string) int {
	for i, n := range names {
		if !used[i] && n == want {
			return i
		}
	}
	for i, n := range names {
		if !used[i] && strings.EqualFold(n, want) {
			return i
		}
	}
	return -1
}

// LoadRows converts a projected frame into rows of pgtype values, one per
// frame row, with contract order and width. Absent values are Valid=false.
func LoadRows(f *transformer.Frame, c schema.Contract) ([][]any, error) {
	cols := make([][]any, len(c.Fields))
	for k, fd := range c.Fields {
		col, ok := f.Column(fd.Name)
		if !ok {
			return nil, fmt.Errorf("builtin: frame has no column %q; run Project first", fd.Name)
		}
		cols[k] = col
	}

	rows := make([][]any, f.Len())
	for r := range rows {
		row := make([]any, len(c.Fields))
		for k, fd := range c.Fields {
			v, err := toPG(fd.Kind, cols[k][r])
			if err != nil {
				return nil, fmt.Errorf("builtin: row %d column %q: %w", r, fd.Name, err)
			}
			row[k] = v
		}
		rows[r] = row
	}
	return rows, nil
}

func toPG(kind schema.Kind, v any) (any, error) {
	switch kind {
	case schema.KindTimestamp:
		t, ok := v.(time.Time)
		if v != nil && !ok {
			return nil, fmt.Errorf("want time, got %T", v)
		}
		if !ok {
			return pgtype.Timestamp{}, nil
		}
		// TIMESTAMP keeps the wall clock of the export and drops the offset.
		wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		return pgtype.Timestamp{Time: wall, Valid: true}, nil
	case schema.KindDate:
		t, ok := v.(time.Time)
		if v != nil && !ok {
			return nil, fmt.Errorf("want date, got %T", v)
		}
		if !ok {
			return pgtype.Date{}, nil
		}
		return pgtype.Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), Valid: true}, nil
	case schema.KindInt:
		switch x := v.(type) {
		case nil:
			return pgtype.Int8{}, nil
		case int64:
			return pgtype.Int8{Int64: x, Valid: true}, nil
		default:
			return nil, fmt.Errorf("want int, got %T", v)
		}
	case schema.KindFloat:
		switch x := v.(type) {
		case nil:
			return pgtype.Float8{}, nil
		case float64:
			return pgtype.Float8{Float64: x, Valid: true}, nil
		case int64:
			return pgtype.Float8{Float64: float64(x), Valid: true}, nil
		default:
			return nil, fmt.Errorf("want float, got %T", v)
		}
	default:
		switch x := v.(type) {
		case nil:
			return pgtype.Text{}, nil
		case string:
			return pgtype.Text{String: x, Valid: true}, nil
		case int64:
			return pgtype.Text{String: strconv.FormatInt(x, 10), Valid: true}, nil
		case float64:
			return pgtype.Text{String: strconv.FormatFloat(x, 'f', -1, 64), Valid: true}, nil
		case time.Time:
			return pgtype.Text{String: x.Format(time.RFC3339), Valid: true}, nil
		default:
			return nil, fmt.Errorf("want text, got %T", v)
		}
	}
}
