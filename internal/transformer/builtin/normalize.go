// Package builtin contains the cleaning steps used to turn a raw survey export
// into the incident contract.
package builtin

import (
	"strings"

	"koboetl/internal/transformer"
)

// NormalizeValues trims string values, folds non-breaking spaces, and turns
// empty strings into absent values.
type NormalizeValues struct{}

func (NormalizeValues) Apply(f *transformer.Frame) error {
	for i := range f.Names() {
		col := f.At(i)
		for r, v := range col {
			s, ok := v.(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
			if s == "" {
				col[r] = nil
				continue
			}
			col[r] = s
		}
	}
	return nil
}

// NormalizeHeaders rewrites column names with transformer.NormalizeHeader.
// Two columns mapping to one name is fatal (*transformer.CollisionError).
// Columns with an empty header are dropped with one schema-mismatch warning.
type NormalizeHeaders struct {
	// OnRename, when set, receives the names before and after cleaning.
	OnRename func(before, after []string)
}

func (n NormalizeHeaders) Apply(f *transformer.Frame) error {
	before := f.Names()
	after, err := transformer.NormalizeHeaders(before)
	if err != nil {
		return err
	}
	if err := f.Rename(after); err != nil {
		return err
	}
	unnamed := 0
	for i := len(after) - 1; i >= 0; i-- {
		if after[i] == "" {
			f.DropAt(i)
			unnamed++
		}
	}
	if unnamed > 0 {
		f.Warn(transformer.Warning{
			Kind:    transformer.WarnSchemaMismatch,
			Count:   unnamed,
			Message: "export columns without a header; dropped",
		})
	}
	if n.OnRename != nil {
		n.OnRename(before, f.Names())
	}
	return nil
}
