// Package csv turns a decoded survey export into a header plus fixed-width
// records. Malformed lines are soft failures: they are skipped and counted,
// never fatal. The only fatal conditions are an undecodable payload (see
// Decode) and a separator that does not match the export.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxSkippedLines bounds how many offending line numbers RawTable keeps.
const maxSkippedLines = 50

// Options configures Parse.
type Options struct {
	// Comma is the field delimiter. It must be set; the Kobo export uses ';'.
	Comma rune

	// LazyQuotes relaxes quote handling (see encoding/csv.Reader.LazyQuotes).
	// Off by default so a stray quote costs one line, not the rest of the file.
	LazyQuotes bool
}

// RawTable is a parsed export: one header and records of the same width.
type RawTable struct {
	Header  []string
	Records [][]string

	// Skipped counts lines dropped for a wrong field count or a CSV syntax
	// error.
	Skipped int

	// SkippedLines holds the 1-based input line numbers of the first skipped
	// lines, for diagnostics.
	SkippedLines []int
}

// SeparatorError reports an export whose header is evidently delimited by a
// different character than the configured one.
type SeparatorError struct {
	Configured rune
	Detected   rune
}

func (e *SeparatorError) Error() string {
	return fmt.Sprintf("csv: header looks %q-delimited but separator is configured as %q", e.Detected, e.Configured)
}

// candidateSeparators are checked when the header collapses into one field.
var candidateSeparators = []rune{';', ',', '\t', '|'}

// Parse splits text into a RawTable. The first record is the header; every
// later record whose width differs from it is skipped and counted.
func Parse(text string, opt Options) (*RawTable, error) {
	if opt.Comma == 0 {
		return nil, errors.New("csv: separator must be set")
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = opt.Comma
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1 // widths are enforced below so bad lines can be counted

	t := &RawTable{}

	header, err := cr.Read()
	if err == io.EOF {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	header = StripHeaderBOM(append([]string(nil), header...))
	if err := checkSeparator(header, opt.Comma); err != nil {
		return nil, err
	}
	t.Header = header

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			t.skip(line)
			continue
		}
		if len(row) != len(header) {
			line, _ := cr.FieldPos(0)
			t.skip(line)
			continue
		}
		t.Records = append(t.Records, row)
	}
	return t, nil
}

func (t *RawTable) skip(line int) {
	t.Skipped++
	if line > 0 && len(t.SkippedLines) < maxSkippedLines {
		t.SkippedLines = append(t.SkippedLines, line)
	}
}

// checkSeparator flags a header that parsed as a single field but contains a
// different well-known delimiter. A genuinely single-column export has none.
func checkSeparator(header []string, comma rune) error {
	if len(header) != 1 {
		return nil
	}
	for _, r := range candidateSeparators {
		if r != comma && strings.ContainsRune(header[0], r) {
			return &SeparatorError{Configured: comma, Detected: r}
		}
	}
	return nil
}
