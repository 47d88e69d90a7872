package builtin

import (
	"strings"

	"koboetl/internal/transformer"
)

// DefaultDropColumns are the known-unreliable export columns: the misspelled
// "combat intensity" question under the spellings seen so far.
var DefaultDropColumns = []string{
	"Cambat Intensity",
	"Combat Intensity",
	"Cambat_Intensity",
	"Combat_Intensity",
}

// DropColumns removes columns whose normalized name matches one of Names,
// ignoring case. Missing columns are not an error.
type DropColumns struct {
	Names []string

	// OnDrop, when set, receives each removed source header.
	OnDrop func(name string)
}

func (d DropColumns) Apply(f *transformer.Frame) error {
	if len(d.Names) == 0 {
		return nil
	}
	want := make([]string, len(d.Names))
	for i, n := range d.Names {
		want[i] = transformer.NormalizeHeader(n)
	}

	names := f.Names()
	for i := len(names) - 1; i >= 0; i-- {
		got := transformer.NormalizeHeader(names[i])
		for _, w := range want {
			if strings.EqualFold(got, w) {
				f.DropAt(i)
				if d.OnDrop != nil {
					d.OnDrop(names[i])
				}
				break
			}
		}
	}
	return nil
}
