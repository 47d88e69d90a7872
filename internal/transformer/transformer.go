// Package transformer holds the column-oriented working table that cleaning
// steps operate on, the Transformer contract those steps implement, and the
// warnings they raise.
//
// Values in a Frame are nil (absent) or one of string, int64, float64 and
// time.Time. Steps replace strings with typed values as they coerce; a value
// that cannot be coerced becomes nil. NaN is never stored.
package transformer

import (
	"fmt"
	"strings"
)

// Transformer is one cleaning step.
type Transformer interface {
	Apply(f *Frame) error
}

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs every step in order and stops at the first error.
func (c Chain) Apply(f *Frame) error {
	for _, t := range c {
		if err := t.Apply(f); err != nil {
			return err
		}
	}
	return nil
}

// Frame is a column-oriented table: ordered names, one value slice per
// column, all of length Len().
type Frame struct {
	names    []string
	cols     [][]any
	rows     int
	warnings []Warning
	reported map[string]struct{}
}

// NewFrame builds a Frame from a header and equal-width string records.
// Empty strings are kept as-is; see builtin.NormalizeValues.
func NewFrame(header []string, records [][]string) *Frame {
	f := &Frame{
		names:    append([]string(nil), header...),
		cols:     make([][]any, len(header)),
		rows:     len(records),
		reported: map[string]struct{}{},
	}
	for j := range header {
		col := make([]any, len(records))
		for i, rec := range records {
			if j < len(rec) {
				col[i] = rec[j]
			}
		}
		f.cols[j] = col
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Names returns a copy of the column names in order.
func (f *Frame) Names() []string { return append([]string(nil), f.names...) }

// Index returns the position of the column with exactly this name, or -1.
func (f *Frame) Index(name string) int {
	for i, n := range f.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Lookup finds a column by exact name, falling back to the first column whose
// normalized header equals the normalized name, ignoring case. Steps that run
// before header normalization use it so " captured" still matches "Captured".
// Project applies the same case-insensitive rule after normalization.
func (f *Frame) Lookup(name string) int {
	if i := f.Index(name); i >= 0 {
		return i
	}
	want := NormalizeHeader(name)
	for i, n := range f.names {
		if NormalizeHeader(n) == want {
			return i
		}
	}
	for i, n := range f.names {
		if strings.EqualFold(NormalizeHeader(n), want) {
			return i
		}
	}
	return -1
}

// Column returns the values of the named column (exact match).
func (f *Frame) Column(name string) ([]any, bool) {
	i := f.Index(name)
	if i < 0 {
		return nil, false
	}
	return f.cols[i], true
}

// At returns the values of column i.
func (f *Frame) At(i int) []any { return f.cols[i] }

// Set replaces the named column or appends it when absent.
func (f *Frame) Set(name string, vals []any) error {
	if len(vals) != f.rows {
		return fmt.Errorf("transformer: column %q has %d values, frame has %d rows", name, len(vals), f.rows)
	}
	if i := f.Index(name); i >= 0 {
		f.cols[i] = vals
		return nil
	}
	f.names = append(f.names, name)
	f.cols = append(f.cols, vals)
	return nil
}

// DropAt removes column i.
func (f *Frame) DropAt(i int) {
	f.names = append(f.names[:i], f.names[i+1:]...)
	f.cols = append(f.cols[:i], f.cols[i+1:]...)
}

// Replace swaps the whole column set. Every column must have Len() values.
func (f *Frame) Replace(names []string, cols [][]any) error {
	if len(names) != len(cols) {
		return fmt.Errorf("transformer: replace with %d names and %d columns", len(names), len(cols))
	}
	for i, c := range cols {
		if len(c) != f.rows {
			return fmt.Errorf("transformer: column %q has %d values, frame has %d rows", names[i], len(c), f.rows)
		}
	}
	f.names = append([]string(nil), names...)
	f.cols = cols
	return nil
}

// Rename replaces all column names at once; len(names) must match.
func (f *Frame) Rename(names []string) error {
	if len(names) != len(f.names) {
		return fmt.Errorf("transformer: rename with %d names, frame has %d columns", len(names), len(f.names))
	}
	f.names = append(f.names[:0], names...)
	return nil
}

// Warn records a warning.
func (f *Frame) Warn(w Warning) { f.warnings = append(f.warnings, w) }

// Warnings returns the warnings recorded so far, in order.
func (f *Frame) Warnings() []Warning { return append([]Warning(nil), f.warnings...) }

// MarkReported notes that a missing column has already been named in a
// warning, so later steps do not report it twice.
func (f *Frame) MarkReported(names ...string) {
	for _, n := range names {
		f.reported[n] = struct{}{}
	}
}

// Reported reports whether MarkReported was called for name.
func (f *Frame) Reported(name string) bool {
	_, ok := f.reported[name]
	return ok
}
