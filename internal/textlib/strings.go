// Package textlib is the text-routine library linked into compiled kernels.
//
// Every routine is a freestanding function that takes its string operands by
// reference. A StringView never owns its bytes: it points into a buffer that
// is owned by the host column (or by the constant pool of a chunk) and that
// outlives the kernel launch. A DynamicString owns its bytes, which come from
// the per-unit Allocator.
package textlib

import (
	"bytes"
	"unicode/utf8"
)

// StringView is a non-owning reference to UTF-8 encoded bytes.
type StringView struct {
	Data   []byte
	Length int32 // code points
	Bytes  int32
}

// NewStringView builds a view over b. The view aliases b.
func NewStringView(b []byte) StringView {
	return StringView{
		Data:   b,
		Length: int32(utf8.RuneCount(b)),
		Bytes:  int32(len(b)),
	}
}

// ViewOf builds a view over the bytes of s.
func ViewOf(s string) StringView {
	return NewStringView([]byte(s))
}

func (s StringView) String() string {
	return string(s.Data[:s.Bytes])
}

func (s *StringView) bytes() []byte {
	if s == nil {
		return nil
	}
	return s.Data[:s.Bytes]
}

// DynamicString is an owned, growable string buffer.
type DynamicString struct {
	Data   []byte // len(Data) is the size in bytes, cap(Data) the capacity
	Length int32  // code points
}

// View returns a StringView over the current contents of d.
func (d *DynamicString) View() StringView {
	if d == nil {
		return StringView{}
	}
	return StringView{Data: d.Data, Length: d.Length, Bytes: int32(len(d.Data))}
}

// Capacity returns the number of bytes d can hold without reallocating.
func (d *DynamicString) Capacity() int {
	return cap(d.Data)
}

func (d *DynamicString) String() string {
	if d == nil {
		return ""
	}
	return string(d.Data)
}

// Len returns the number of code points in s.
func Len(s *StringView) int32 {
	if s == nil {
		return 0
	}
	return s.Length
}

// Contains reports whether sub occurs in s.
func Contains(s, sub *StringView) bool {
	return bytes.Contains(s.bytes(), sub.bytes())
}

// Eq reports whether a and b hold the same bytes.
func Eq(a, b *StringView) bool { return bytes.Equal(a.bytes(), b.bytes()) }

// Ne is the negation of Eq.
func Ne(a, b *StringView) bool { return !Eq(a, b) }

// Lt compares a and b byte-wise, which for UTF-8 matches code point order.
func Lt(a, b *StringView) bool { return bytes.Compare(a.bytes(), b.bytes()) < 0 }

func Le(a, b *StringView) bool { return bytes.Compare(a.bytes(), b.bytes()) <= 0 }

func Gt(a, b *StringView) bool { return bytes.Compare(a.bytes(), b.bytes()) > 0 }

func Ge(a, b *StringView) bool { return bytes.Compare(a.bytes(), b.bytes()) >= 0 }

// StartsWith reports whether s begins with prefix.
func StartsWith(s, prefix *StringView) bool {
	return bytes.HasPrefix(s.bytes(), prefix.bytes())
}

// EndsWith reports whether s ends with suffix.
func EndsWith(s, suffix *StringView) bool {
	return bytes.HasSuffix(s.bytes(), suffix.bytes())
}

// Find returns the code point position of the first occurrence of sub in s,
// or -1.
func Find(s, sub *StringView) int32 {
	data := s.bytes()
	idx := bytes.Index(data, sub.bytes())
	if idx < 0 {
		return -1
	}
	return int32(utf8.RuneCount(data[:idx]))
}

// RFind returns the code point position of the last occurrence of sub in s,
// or -1. An empty sub is found at the end of s.
func RFind(s, sub *StringView) int32 {
	data := s.bytes()
	idx := bytes.LastIndex(data, sub.bytes())
	if idx < 0 {
		return -1
	}
	return int32(utf8.RuneCount(data[:idx]))
}

// Count returns the number of non-overlapping occurrences of sub in s.
// An empty sub matches between every code point: Len(s)+1.
func Count(s, sub *StringView) int32 {
	return int32(bytes.Count(s.bytes(), sub.bytes()))
}
