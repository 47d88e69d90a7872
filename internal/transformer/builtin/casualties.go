package builtin

import (
	"sort"

	"koboetl/internal/schema"
	"koboetl/internal/transformer"
)

// TotalCasualties derives Output as the per-row sum of Inputs.
//
// The rule is a column-presence check: when every input column exists, each
// row sums its values with absent counted as 0, unless all inputs are absent
// in that row (then the total is absent too). Inputs and totals outside the
// 32-bit integer range count as absent. When any input column is
// missing, the total is absent for every row and one schema-mismatch warning
// names the missing inputs.
type TotalCasualties struct {
	Inputs []string
	Output string
}

// DefaultTotalCasualties sums casualties, injured and captured.
func DefaultTotalCasualties() TotalCasualties {
	return TotalCasualties{Inputs: schema.CasualtyInputs, Output: schema.TotalCasualties}
}

func (t TotalCasualties) Apply(f *transformer.Frame) error {
	total := make([]any, f.Len())

	var missing []string
	cols := make([][]any, 0, len(t.Inputs))
	for _, name := range t.Inputs {
		i := f.Lookup(name)
		if i < 0 {
			missing = append(missing, name)
			continue
		}
		cols = append(cols, f.At(i))
	}

	if len(missing) > 0 {
		f.Warn(transformer.Warning{
			Kind:    transformer.WarnSchemaMismatch,
			Columns: missing,
			Message: "missing columns for " + t.Output + " calculation; total set absent for all rows",
		})
		f.MarkReported(missing...)
		return f.Set(t.Output, total)
	}

	for r := range total {
		var sum int64
		seen := false
		for _, col := range cols {
			n, ok := intValue(col[r])
			if !ok {
				continue
			}
			sum += n
			seen = true
		}
		if seen && fitsInt32(sum) {
			total[r] = sum
		}
	}
	return f.Set(t.Output, total)
}

// intValue reads a frame value as an integer. Strings not yet coerced are
// parsed leniently; anything unparseable counts as absent.
func intValue(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, fitsInt32(x)
	case string:
		return ParseCount(x)
	default:
		return 0, false
	}
}

func sortedKeys(m map[string]schema.Kind) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
