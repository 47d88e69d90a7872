package transformer

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var headerReplacer = strings.NewReplacer(
	" ", "_",
	"&", "and",
	"-", "_",
)

// NormalizeHeader cleans one export header: NFC, trim, BOM strip, then
// space to underscore, "&" to "and", hyphen to underscore. It is idempotent.
func NormalizeHeader(h string) string {
	h = norm.NFC.String(h)
	h = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(h), "\uFEFF"))
	return headerReplacer.Replace(h)
}

// CollisionError reports two source headers that normalize to the same name.
type CollisionError struct {
	Name    string
	Sources []string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("transformer: headers %q all normalize to %q", e.Sources, e.Name)
}

// NormalizeHeaders normalizes every header and fails on the first collision.
// Headers that normalize to "" are unnamed cells, not a collision; they are
// returned as "" for the caller to drop.
func NormalizeHeaders(headers []string) ([]string, error) {
	out := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		n := NormalizeHeader(h)
		if n == "" {
			continue
		}
		if j, dup := seen[n]; dup {
			return nil, &CollisionError{Name: n, Sources: []string{headers[j], h}}
		}
		seen[n] = i
		out[i] = n
	}
	return out, nil
}
