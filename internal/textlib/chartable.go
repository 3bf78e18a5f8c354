package textlib

import (
	"sync"
	"unicode"
	"unicode/utf8"
)

// Character flag bits stored per code point in the classification table.
const (
	FlagDecimal uint8 = 1 << iota
	FlagNumeric
	FlagDigit
	FlagAlpha
	FlagSpace
	FlagUpper
	FlagLower
)

// tableSize covers the basic multilingual plane. Code points above it carry
// no flags.
const tableSize = 0x10000

// CharTable is the read-only character classification table.
type CharTable struct {
	flags [tableSize]uint8
}

var (
	charTableOnce sync.Once
	charTable     *CharTable
)

// CharacterFlagsTable returns the process-wide classification table. It is
// built on first use and never modified afterwards.
func CharacterFlagsTable() *CharTable {
	charTableOnce.Do(func() {
		charTable = buildCharTable()
	})
	return charTable
}

// Flags returns the flag bits of r.
func (t *CharTable) Flags(r rune) uint8 {
	if t == nil || r < 0 || r >= tableSize {
		return 0
	}
	return t.flags[r]
}

func buildCharTable() *CharTable {
	t := &CharTable{}
	for r := rune(0); r < tableSize; r++ {
		var f uint8
		if unicode.Is(unicode.Nd, r) {
			f |= FlagDecimal | FlagDigit
		}
		if unicode.IsNumber(r) {
			f |= FlagNumeric
		}
		if isExtraDigit(r) {
			f |= FlagDigit
		}
		if unicode.IsLetter(r) {
			f |= FlagAlpha
		}
		if unicode.IsSpace(r) {
			f |= FlagSpace
		}
		if unicode.IsUpper(r) {
			f |= FlagUpper
		}
		if unicode.IsLower(r) {
			f |= FlagLower
		}
		t.flags[r] = f
	}
	return t
}

// isExtraDigit covers the superscript and subscript digits, which are digits
// without being decimal.
func isExtraDigit(r rune) bool {
	switch {
	case r == 0x00B2, r == 0x00B3, r == 0x00B9:
		return true
	case r == 0x2070, r >= 0x2074 && r <= 0x2079:
		return true
	case r >= 0x2080 && r <= 0x2089:
		return true
	}
	return false
}

// allFlagged reports whether s is non-empty and every code point carries at
// least one of mask.
func allFlagged(s *StringView, tbl *CharTable, mask uint8) bool {
	data := s.bytes()
	if len(data) == 0 {
		return false
	}
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if tbl.Flags(r)&mask == 0 {
			return false
		}
		data = data[size:]
	}
	return true
}

func IsDigit(s *StringView, tbl *CharTable) bool { return allFlagged(s, tbl, FlagDigit) }

func IsAlpha(s *StringView, tbl *CharTable) bool { return allFlagged(s, tbl, FlagAlpha) }

func IsNumeric(s *StringView, tbl *CharTable) bool { return allFlagged(s, tbl, FlagNumeric) }

func IsDecimal(s *StringView, tbl *CharTable) bool { return allFlagged(s, tbl, FlagDecimal) }

func IsSpace(s *StringView, tbl *CharTable) bool { return allFlagged(s, tbl, FlagSpace) }

// IsAlnum reports whether every code point is alphabetic or numeric.
func IsAlnum(s *StringView, tbl *CharTable) bool {
	return allFlagged(s, tbl, FlagAlpha|FlagDigit|FlagNumeric|FlagDecimal)
}

// IsUpper reports whether s has at least one cased code point and none of
// its cased code points is lower case.
func IsUpper(s *StringView, tbl *CharTable) bool {
	return casedOnly(s, tbl, FlagUpper, FlagLower)
}

// IsLower is the mirror of IsUpper.
func IsLower(s *StringView, tbl *CharTable) bool {
	return casedOnly(s, tbl, FlagLower, FlagUpper)
}

func casedOnly(s *StringView, tbl *CharTable, want, reject uint8) bool {
	data := s.bytes()
	seen := false
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		f := tbl.Flags(r)
		if f&reject != 0 {
			return false
		}
		if f&want != 0 {
			seen = true
		}
		data = data[size:]
	}
	return seen
}
