package transformer

import (
	"fmt"
	"strings"
)

// WarningKind classifies a recovered problem.
type WarningKind string

const (
	// WarnParse covers skipped lines and values that failed type coercion.
	WarnParse WarningKind = "parse"
	// WarnSchemaMismatch covers columns missing from, or extra in, the export.
	WarnSchemaMismatch WarningKind = "schema_mismatch"
)

// Warning is a data-shape problem that was recovered locally.
type Warning struct {
	Kind    WarningKind
	Columns []string
	Count   int
	Message string
}

func (w Warning) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", w.Kind, w.Message)
	if len(w.Columns) > 0 {
		fmt.Fprintf(&sb, " [%s]", strings.Join(w.Columns, ", "))
	}
	if w.Count > 0 {
		fmt.Fprintf(&sb, " (count=%d)", w.Count)
	}
	return sb.String()
}
