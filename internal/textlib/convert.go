package textlib

import (
	"errors"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
)

// A Caser keeps state between calls, so each goroutine borrows its own.
var (
	upperCasers = sync.Pool{New: func() any { c := cases.Upper(language.Und); return &c }}
	lowerCasers = sync.Pool{New: func() any { c := cases.Lower(language.Und); return &c }}
)

// FromView copies src into dst, making dst the owner of its bytes. It
// returns the number of bytes written.
func FromView(src *StringView, dst *DynamicString, alloc Allocator) int32 {
	return fill(dst, src.bytes(), alloc)
}

// Upper writes the upper-case form of src into dst and returns the number of
// bytes written. The result may be longer than src.
func Upper(src *StringView, dst *DynamicString, alloc Allocator) int32 {
	return mapCase(&upperCasers, src, dst, alloc)
}

// Lower writes the lower-case form of src into dst and returns the number of
// bytes written.
func Lower(src *StringView, dst *DynamicString, alloc Allocator) int32 {
	return mapCase(&lowerCasers, src, dst, alloc)
}

func fill(dst *DynamicString, b []byte, alloc Allocator) int32 {
	if alloc == nil {
		alloc = HeapAllocator{}
	}
	buf := alloc.Allocate(len(b))
	buf = append(buf, b...)
	dst.Data = buf
	dst.Length = int32(utf8.RuneCount(buf))
	return int32(len(buf))
}

// mapCase transforms src straight into allocator storage. The first buffer
// fits any mapping that does not grow the text; a larger one is requested
// when the mapping expands.
func mapCase(pool *sync.Pool, src *StringView, dst *DynamicString, alloc Allocator) int32 {
	if alloc == nil {
		alloc = HeapAllocator{}
	}
	c := pool.Get().(*cases.Caser)
	defer pool.Put(c)

	in := src.bytes()
	size := len(in) + utf8.UTFMax
	for {
		c.Reset()
		buf := alloc.Allocate(size)
		n, _, err := c.Transform(buf[:cap(buf)], in, true)
		if errors.Is(err, transform.ErrShortDst) {
			size *= 2
			continue
		}
		dst.Data = buf[:n]
		dst.Length = int32(utf8.RuneCount(dst.Data))
		return int32(n)
	}
}
