package textlib

import (
	"strings"
	"testing"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func view(s string) *StringView {
	v := ViewOf(s)
	return &v
}

func TestLen(t *testing.T) {
	tests := []struct {
		input    string
		expected int32
	}{
		{"", 0},
		{"abc", 3},
		{"héllo", 5},
		{"日本語", 3},
	}
	for _, tt := range tests {
		if got := Len(view(tt.input)); got != tt.expected {
			t.Errorf("Len(%q) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}

func TestComparisons(t *testing.T) {
	tests := []struct {
		a, b                   string
		eq, ne, lt, le, gt, ge bool
	}{
		{"abc", "abc", true, false, false, true, false, true},
		{"abc", "abd", false, true, true, true, false, false},
		{"b", "abc", false, true, false, false, true, true},
		{"", "a", false, true, true, true, false, false},
	}
	for _, tt := range tests {
		a, b := view(tt.a), view(tt.b)
		if got := Eq(a, b); got != tt.eq {
			t.Errorf("Eq(%q, %q) = %t", tt.a, tt.b, got)
		}
		if got := Ne(a, b); got != tt.ne {
			t.Errorf("Ne(%q, %q) = %t", tt.a, tt.b, got)
		}
		if got := Lt(a, b); got != tt.lt {
			t.Errorf("Lt(%q, %q) = %t", tt.a, tt.b, got)
		}
		if got := Le(a, b); got != tt.le {
			t.Errorf("Le(%q, %q) = %t", tt.a, tt.b, got)
		}
		if got := Gt(a, b); got != tt.gt {
			t.Errorf("Gt(%q, %q) = %t", tt.a, tt.b, got)
		}
		if got := Ge(a, b); got != tt.ge {
			t.Errorf("Ge(%q, %q) = %t", tt.a, tt.b, got)
		}
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		s, sub             string
		find, rfind, count int32
		contains           bool
	}{
		{"hello world", "world", 6, 6, 1, true},
		{"hello world", "zzz", -1, -1, 0, false},
		{"hello world", "o", 4, 7, 2, true},
		{"abc", "", 0, 3, 4, true},
		{"日本語日本", "本", 1, 4, 2, true},
		{"aaaa", "aa", 0, 2, 2, true},
	}
	for _, tt := range tests {
		s, sub := view(tt.s), view(tt.sub)
		if got := Find(s, sub); got != tt.find {
			t.Errorf("Find(%q, %q) = %d, want %d", tt.s, tt.sub, got, tt.find)
		}
		if got := RFind(s, sub); got != tt.rfind {
			t.Errorf("RFind(%q, %q) = %d, want %d", tt.s, tt.sub, got, tt.rfind)
		}
		if got := Count(s, sub); got != tt.count {
			t.Errorf("Count(%q, %q) = %d, want %d", tt.s, tt.sub, got, tt.count)
		}
		if got := Contains(s, sub); got != tt.contains {
			t.Errorf("Contains(%q, %q) = %t, want %t", tt.s, tt.sub, got, tt.contains)
		}
	}
}

func TestPrefixSuffix(t *testing.T) {
	if !StartsWith(view("hello"), view("he")) {
		t.Error("expected hello to start with he")
	}
	if StartsWith(view("hello"), view("lo")) {
		t.Error("hello does not start with lo")
	}
	if !EndsWith(view("hello"), view("lo")) {
		t.Error("expected hello to end with lo")
	}
	if !EndsWith(view("hello"), view("")) {
		t.Error("every string ends with the empty string")
	}
}

func TestCaseConversion(t *testing.T) {
	arena := NewArena(16)
	var dst DynamicString

	n := Upper(view("MixedCase"), &dst, arena)
	if dst.String() != "MIXEDCASE" || n != 9 || dst.Length != 9 {
		t.Errorf("Upper = %q (%d bytes, %d chars)", dst.String(), n, dst.Length)
	}
	Lower(view("MixedCase"), &dst, arena)
	if dst.String() != "mixedcase" {
		t.Errorf("Lower = %q, want mixedcase", dst.String())
	}
	Upper(view("straße"), &dst, arena)
	if dst.String() != "STRASSE" {
		t.Errorf("Upper(straße) = %q, want STRASSE", dst.String())
	}
}

type countingAllocator struct{ calls int }

func (a *countingAllocator) Allocate(n int) []byte {
	a.calls++
	return make([]byte, 0, n)
}

func TestCaseConversionAllocation(t *testing.T) {
	alloc := &countingAllocator{}
	var dst DynamicString
	Upper(view("hello, world"), &dst, alloc)
	if dst.String() != "HELLO, WORLD" || alloc.calls != 1 {
		t.Errorf("Upper = %q after %d allocations, want one", dst.String(), alloc.calls)
	}

	// U+0390 upper-cases to three code points, tripling the byte length.
	in := strings.Repeat("\u0390", 10)
	want := cases.Upper(language.Und).String(in)
	alloc.calls = 0
	n := Upper(view(in), &dst, alloc)
	if dst.String() != want || int(n) != len(want) {
		t.Errorf("Upper(%q) = %q (%d bytes), want %q", in, dst.String(), n, want)
	}
	if len(want) > len(in)+utf8.UTFMax && alloc.calls < 2 {
		t.Errorf("expanding mapping used %d allocations", alloc.calls)
	}
	if int(dst.Length) != utf8.RuneCountInString(want) {
		t.Errorf("Length = %d, want %d", dst.Length, utf8.RuneCountInString(want))
	}
}

func TestFromViewCopies(t *testing.T) {
	backing := []byte("abc")
	v := NewStringView(backing)
	var dst DynamicString
	FromView(&v, &dst, HeapAllocator{})
	backing[0] = 'x'
	if dst.String() != "abc" {
		t.Errorf("dynamic string aliases its source: %q", dst.String())
	}
	if got := dst.View(); got.Length != 3 || got.Bytes != 3 {
		t.Errorf("View() = %+v", got)
	}
}

func TestArenaGrowsPastBlock(t *testing.T) {
	a := NewArena(4)
	first := a.Allocate(3)
	second := a.Allocate(10)
	if cap(first) != 3 || cap(second) != 10 {
		t.Fatalf("unexpected capacities %d, %d", cap(first), cap(second))
	}
	first = append(first, 'a', 'b', 'c')
	second = append(second, 'z')
	if string(first) != "abc" {
		t.Errorf("allocation was clobbered: %q", first)
	}
}

func TestLookupRoutine(t *testing.T) {
	for r := Routine(0); r.Valid(); r++ {
		got, ok := LookupRoutine(r.String())
		if !ok || got != r {
			t.Errorf("LookupRoutine(%q) = %v, %t", r.String(), got, ok)
		}
	}
	if _, ok := LookupRoutine("nope"); ok {
		t.Error("expected unknown routine")
	}
	if _, err := CallPredicate(RoutineFind, view("a"), view("a")); err == nil {
		t.Error("expected shape error for find called as predicate")
	}
}
