package transformer

import (
	"errors"
	"reflect"
	"testing"
)

/*
setTransformer appends or replaces a column with a constant value. Used to
verify that mutation flows through Chain in order.
*/
type setTransformer struct {
	name string
	val  any
}

func (s setTransformer) Apply(f *Frame) error {
	vals := make([]any, f.Len())
	for i := range vals {
		vals[i] = s.val
	}
	return f.Set(s.name, vals)
}

// stepFunc adapts a function to Transformer for chain tests.
type stepFunc func(*Frame) error

func (fn stepFunc) Apply(f *Frame) error { return fn(f) }

func TestChain_AppliesInOrder(t *testing.T) {
	t.Parallel()

	f := NewFrame([]string{"a"}, [][]string{{"1"}, {"2"}})
	c := Chain{
		setTransformer{name: "b", val: "x"},
		setTransformer{name: "b", val: "y"},
	}
	if err := c.Apply(f); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	col, ok := f.Column("b")
	if !ok || !reflect.DeepEqual(col, []any{"y", "y"}) {
		t.Fatalf("b got %#v", col)
	}
}

func TestChain_StopsOnError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	ran := false
	c := Chain{
		stepFunc(func(*Frame) error { return boom }),
		stepFunc(func(*Frame) error { ran = true; return nil }),
	}
	if err := c.Apply(NewFrame(nil, nil)); !errors.Is(err, boom) {
		t.Fatalf("got %v; want boom", err)
	}
	if ran {
		t.Fatalf("step after error ran")
	}
}

func TestNewFrame_ColumnOriented(t *testing.T) {
	t.Parallel()

	f := NewFrame([]string{"a", "b"}, [][]string{{"1", "2"}, {"3", "4"}})
	if f.Len() != 2 {
		t.Fatalf("Len %d", f.Len())
	}
	if !reflect.DeepEqual(f.At(1), []any{"2", "4"}) {
		t.Fatalf("column b %#v", f.At(1))
	}
	names := f.Names()
	names[0] = "mutated"
	if f.Names()[0] != "a" {
		t.Fatalf("Names returned internal slice")
	}
}

func TestFrame_LookupFallsBackToNormalizedHeader(t *testing.T) {
	t.Parallel()

	f := NewFrame([]string{"Date", " New Recruits "}, nil)
	tests := []struct {
		name string
		want int
	}{
		{"Date", 0},
		{"New_Recruits", 1},
		{"New Recruits", 1},
		{"new_recruits", 1},
		{"DATE", 0},
		{"Oblast", -1},
	}
	for _, tc := range tests {
		if got := f.Lookup(tc.name); got != tc.want {
			t.Fatalf("Lookup(%q) = %d; want %d", tc.name, got, tc.want)
		}
	}
	if f.Index("New_Recruits") != -1 {
		t.Fatalf("Index must be exact")
	}
}

func TestFrame_SetDropRename(t *testing.T) {
	t.Parallel()

	f := NewFrame([]string{"a", "b", "c"}, [][]string{{"1", "2", "3"}})
	if err := f.Set("d", []any{int64(4)}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := f.Set("e", []any{1, 2}); err == nil {
		t.Fatalf("Set accepted wrong length")
	}
	f.DropAt(1)
	if !reflect.DeepEqual(f.Names(), []string{"a", "c", "d"}) {
		t.Fatalf("names %q", f.Names())
	}
	if c, _ := f.Column("c"); c[0] != "3" {
		t.Fatalf("values misaligned after drop: %#v", c)
	}
	if err := f.Rename([]string{"x"}); err == nil {
		t.Fatalf("Rename accepted wrong width")
	}
	if err := f.Rename([]string{"x", "y", "z"}); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if c, _ := f.Column("z"); c[0] != int64(4) {
		t.Fatalf("z %#v", c)
	}
}

func TestFrame_Replace(t *testing.T) {
	t.Parallel()

	f := NewFrame([]string{"a"}, [][]string{{"1"}, {"2"}})
	if err := f.Replace([]string{"p", "q"}, [][]any{{1, 2}, {nil, nil}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if !reflect.DeepEqual(f.Names(), []string{"p", "q"}) {
		t.Fatalf("names %q", f.Names())
	}
	if err := f.Replace([]string{"p"}, [][]any{{1}}); err == nil {
		t.Fatalf("Replace accepted short column")
	}
	if err := f.Replace([]string{"p", "q"}, [][]any{{1, 2}}); err == nil {
		t.Fatalf("Replace accepted name/column mismatch")
	}
}

func TestFrame_WarningsAndReported(t *testing.T) {
	t.Parallel()

	f := NewFrame(nil, nil)
	f.Warn(Warning{Kind: WarnParse, Count: 2, Message: "skipped lines"})
	f.MarkReported("Injured")
	if len(f.Warnings()) != 1 || f.Warnings()[0].Count != 2 {
		t.Fatalf("warnings %v", f.Warnings())
	}
	if !f.Reported("Injured") || f.Reported("Captured") {
		t.Fatalf("reported set wrong")
	}
}

func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Date", "Date"},
		{"  Territory Status ", "Territory_Status"},
		{"Area & Size", "Area_and_Size"},
		{"New-Recruits", "New_Recruits"},
		{"\uFEFFstart", "start"},
		{"Civilian Casualities", "Civilian_Casualities"},
		{"Cafe\u0301", "Caf\u00e9"},
	}
	for _, tc := range tests {
		if got := NormalizeHeader(tc.in); got != tc.want {
			t.Fatalf("NormalizeHeader(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

/*
TestNormalizeHeaders_Idempotent verifies that normalizing an already
normalized header sequence yields the same sequence.
*/
func TestNormalizeHeaders_Idempotent(t *testing.T) {
	t.Parallel()

	in := []string{" start", "end ", "Date", "Territory Status", "Area & Size", "Percentage-Occupied", "\uFEFFCountry"}
	once, err := NormalizeHeaders(in)
	if err != nil {
		t.Fatalf("NormalizeHeaders: %v", err)
	}
	twice, err := NormalizeHeaders(once)
	if err != nil {
		t.Fatalf("NormalizeHeaders (2nd): %v", err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("not idempotent: %q -> %q", once, twice)
	}
}

func TestNormalizeHeaders_Collision(t *testing.T) {
	t.Parallel()

	_, err := NormalizeHeaders([]string{"Date", "Area Occupied", "Area-Occupied"})
	var ce *CollisionError
	if !errors.As(err, &ce) {
		t.Fatalf("want *CollisionError, got %v", err)
	}
	if ce.Name != "Area_Occupied" || !reflect.DeepEqual(ce.Sources, []string{"Area Occupied", "Area-Occupied"}) {
		t.Fatalf("collision %+v", ce)
	}
}

func TestNormalizeHeaders_EmptyHeadersDoNotCollide(t *testing.T) {
	t.Parallel()

	got, err := NormalizeHeaders([]string{"Date", "", " ", "\uFEFF"})
	if err != nil {
		t.Fatalf("NormalizeHeaders: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Date", "", "", ""}) {
		t.Fatalf("got %q", got)
	}
}
