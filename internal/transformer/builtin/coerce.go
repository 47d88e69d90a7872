package builtin

import (
	"math"
	"strconv"
	"strings"
	"time"

	"koboetl/internal/schema"
	"koboetl/internal/transformer"
)

// DefaultDateLayouts are tried in order for calendar-date columns.
var DefaultDateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02.01.2006",
	"01/02/2006",
}

// DefaultTimestampLayouts are tried in order for timestamp columns. Kobo's
// start/end metadata uses RFC 3339 with milliseconds and an offset.
var DefaultTimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Coerce converts string values of the named columns to the given kinds.
// Values that fail to parse become absent and are counted in one parse
// warning per column. Columns not present are skipped; values that are
// already typed are left alone.
type Coerce struct {
	Types            map[string]schema.Kind
	DateLayouts      []string
	TimestampLayouts []string

	// Exact restricts column lookup to exact names. By default a column also
	// matches when its normalized header equals the configured name.
	Exact bool
}

func (c Coerce) Apply(f *transformer.Frame) error {
	for _, name := range sortedKeys(c.Types) {
		kind := c.Types[name]
		i := f.Index(name)
		if i < 0 && !c.Exact {
			i = f.Lookup(name)
		}
		if i < 0 {
			continue
		}
		col := f.At(i)
		failed := 0
		for r, v := range col {
			s, ok := v.(string)
			if !ok {
				continue
			}
			out, ok := c.convert(kind, s)
			if !ok {
				failed++
				col[r] = nil
				continue
			}
			col[r] = out
		}
		if failed > 0 {
			f.Warn(transformer.Warning{
				Kind:    transformer.WarnParse,
				Columns: []string{f.Names()[i]},
				Count:   failed,
				Message: "values could not be parsed as " + string(kind) + " and were set absent",
			})
		}
	}
	return nil
}

func (c Coerce) convert(kind schema.Kind, s string) (any, bool) {
	switch kind {
	case schema.KindInt:
		return ParseCount(s)
	case schema.KindFloat:
		return ParseFloat(s)
	case schema.KindDate:
		return ParseDate(s, orDefault(c.DateLayouts, DefaultDateLayouts))
	case schema.KindTimestamp:
		return ParseTimestamp(s, orDefault(c.TimestampLayouts, DefaultTimestampLayouts))
	default:
		return s, true
	}
}

// ParseInt parses an integer count. It accepts surrounding space, a sign,
// and integral decimals such as "3.0" (exports written by spreadsheets).
func ParseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	fl, ok := ParseFloat(s)
	if !ok || fl != math.Trunc(fl) || fl > math.MaxInt64 || fl < math.MinInt64 {
		return 0, false
	}
	return int64(fl), true
}

// ParseCount parses an integer column value. Integer columns are 32-bit in
// every backend, so values outside that range are rejected like any other
// unparseable value.
func ParseCount(s string) (int64, bool) {
	n, ok := ParseInt(s)
	if !ok || !fitsInt32(n) {
		return 0, false
	}
	return n, true
}

func fitsInt32(n int64) bool { return n >= math.MinInt32 && n <= math.MaxInt32 }

// ParseFloat parses a finite float. A lone comma is read as the decimal
// separator. NaN and infinities are rejected.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	fl, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(fl) || math.IsInf(fl, 0) {
		return 0, false
	}
	return fl, true
}

// ParseDate parses a calendar date with the first matching layout and drops
// the time of day.
func ParseDate(s string, layouts []string) (time.Time, bool) {
	t, ok := ParseTimestamp(s, layouts)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

// ParseTimestamp parses s with the first matching layout.
func ParseTimestamp(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
