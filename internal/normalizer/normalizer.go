// Package normalizer turns a raw Kobo incident export into rows shaped like
// the target table.
//
// Normalize never fails on data-shape problems: malformed lines, values that
// do not parse and missing or extra columns all degrade to warnings and
// absent values. It fails only when the input cannot be decoded or parsed at
// all (undecodable bytes, wrong separator, colliding headers).
package normalizer

import (
	"fmt"

	"koboetl/internal/parser/csv"
	"koboetl/internal/schema"
	"koboetl/internal/transformer"
	"koboetl/internal/transformer/builtin"
)

// Options configures Normalize. Empty layouts fall back to the builtin
// defaults and a zero Separator to ';'. DropColumns is used as given; start
// from DefaultOptions to get the standard list.
type Options struct {
	Separator        rune
	LazyQuotes       bool
	DropColumns      []string
	DateLayouts      []string
	TimestampLayouts []string
}

// DefaultOptions matches the Kobo export: semicolon-delimited, with the
// misspelled combat-intensity column dropped.
func DefaultOptions() Options {
	return Options{
		Separator:        ';',
		DropColumns:      builtin.DefaultDropColumns,
		DateLayouts:      builtin.DefaultDateLayouts,
		TimestampLayouts: builtin.DefaultTimestampLayouts,
	}
}

// LoadRow is one row in schema.Target order. Every value is a pgtype
// nullable (Timestamp, Date, Text, Int8 or Float8); absent is Valid=false.
type LoadRow []any

// Result is the outcome of Normalize.
type Result struct {
	// Columns are the destination column names, in row order.
	Columns []string
	Rows    []LoadRow

	Warnings []transformer.Warning

	// SourceColumns and CleanedColumns are the headers before and after
	// header normalization (known-bad columns already dropped).
	SourceColumns  []string
	CleanedColumns []string
	Dropped        []string

	Skipped      int
	SkippedLines []int
}

// Values returns the rows as plain [][]any for sinks.
func (r *Result) Values() [][]any {
	out := make([][]any, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row
	}
	return out
}

// NormalizeBytes decodes b as text and normalizes it.
func NormalizeBytes(b []byte, opt Options) (*Result, error) {
	text, err := csv.Decode(b)
	if err != nil {
		return nil, err
	}
	return Normalize(text, opt)
}

// Normalize parses text and reshapes it to schema.Target.
func Normalize(text string, opt Options) (*Result, error) {
	if opt.Separator == 0 {
		opt.Separator = ';'
	}
	raw, err := csv.Parse(text, csv.Options{Comma: opt.Separator, LazyQuotes: opt.LazyQuotes})
	if err != nil {
		return nil, err
	}

	res := &Result{
		Columns:      schema.Target.Columns(),
		Skipped:      raw.Skipped,
		SkippedLines: raw.SkippedLines,
	}

	f := transformer.NewFrame(raw.Header, raw.Records)
	if raw.Skipped > 0 {
		f.Warn(transformer.Warning{
			Kind:    transformer.WarnParse,
			Count:   raw.Skipped,
			Message: skippedMessage(raw.SkippedLines),
		})
	}

	chain := transformer.Chain{
		builtin.NormalizeValues{},
		builtin.DropColumns{
			Names:  opt.DropColumns,
			OnDrop: func(name string) { res.Dropped = append(res.Dropped, name) },
		},
		builtin.Coerce{Types: map[string]schema.Kind{schema.Captured: schema.KindInt}},
		builtin.NormalizeHeaders{
			OnRename: func(before, after []string) {
				res.SourceColumns = before
				res.CleanedColumns = after
			},
		},
		builtin.DefaultTotalCasualties(),
		builtin.Coerce{
			Types:       map[string]schema.Kind{schema.Date: schema.KindDate},
			DateLayouts: opt.DateLayouts,
		},
		builtin.Project{
			Contract:         schema.Target,
			DateLayouts:      opt.DateLayouts,
			TimestampLayouts: opt.TimestampLayouts,
		},
	}
	if err := chain.Apply(f); err != nil {
		return nil, err
	}

	rows, err := builtin.LoadRows(f, schema.Target)
	if err != nil {
		return nil, err
	}
	res.Rows = make([]LoadRow, len(rows))
	for i, r := range rows {
		res.Rows[i] = r
	}
	res.Warnings = f.Warnings()
	return res, nil
}

func skippedMessage(lines []int) string {
	if len(lines) == 0 {
		return "lines with a wrong field count were skipped"
	}
	return fmt.Sprintf("lines with a wrong field count were skipped (first at lines %v)", lines)
}
