package csv

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUndecodable is returned by Decode when the payload is not text.
var ErrUndecodable = errors.New("csv: payload is not decodable as text")

// Decode converts a raw export payload into a UTF-8 string.
//
// A leading BOM selects the encoding (UTF-8 or UTF-16 LE/BE) and is removed;
// without one the payload must already be UTF-8. Any byte sequence that cannot
// be decoded yields ErrUndecodable.
func Decode(b []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	// The decoders replace invalid sequences with U+FFFD rather than failing,
	// so a replacement rune that was not in the input means a bad sequence.
	if !utf8.Valid(out) || countRuneError(out) > countRuneError(b) {
		return "", ErrUndecodable
	}
	return string(out), nil
}

func countRuneError(b []byte) int {
	return bytes.Count(b, []byte(string(utf8.RuneError)))
}
