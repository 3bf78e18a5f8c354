package textlib

import "testing"

func TestClassification(t *testing.T) {
	tbl := CharacterFlagsTable()
	tests := []struct {
		input                                                 string
		digit, alpha, alnum, numeric, decimal, space, up, low bool
	}{
		{"", false, false, false, false, false, false, false, false},
		{"123", true, false, true, true, true, false, false, false},
		{"abc", false, true, true, false, false, false, false, true},
		{"ABC", false, true, true, false, false, false, true, false},
		{"Ab1", false, false, true, false, false, false, false, false},
		{" \t\n", false, false, false, false, false, true, false, false},
		{"²", true, false, true, true, false, false, false, false},
		{"½", false, false, true, true, false, false, false, false},
		{"HELLO WORLD 1", false, false, false, false, false, false, true, false},
	}
	for _, tt := range tests {
		s := view(tt.input)
		check := func(name string, got, want bool) {
			t.Helper()
			if got != want {
				t.Errorf("%s(%q) = %t, want %t", name, tt.input, got, want)
			}
		}
		check("IsDigit", IsDigit(s, tbl), tt.digit)
		check("IsAlpha", IsAlpha(s, tbl), tt.alpha)
		check("IsAlnum", IsAlnum(s, tbl), tt.alnum)
		check("IsNumeric", IsNumeric(s, tbl), tt.numeric)
		check("IsDecimal", IsDecimal(s, tbl), tt.decimal)
		check("IsSpace", IsSpace(s, tbl), tt.space)
		check("IsUpper", IsUpper(s, tbl), tt.up)
		check("IsLower", IsLower(s, tbl), tt.low)
	}
}

func TestCharacterFlagsTableIsShared(t *testing.T) {
	if CharacterFlagsTable() != CharacterFlagsTable() {
		t.Fatal("table must be initialized exactly once")
	}
	if CharacterFlagsTable().Flags(0x1F600) != 0 {
		t.Error("code points outside the table carry no flags")
	}
}
