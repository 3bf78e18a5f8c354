// Package typesystem describes the operand types that reach the lowering
// layer: primitives, the NA sentinel, string views and dynamic strings, and
// Masked wrappers around any of them.
package typesystem

import (
	"fmt"
	"reflect"
)

// Type is the interface for all operand types.
type Type interface {
	String() string
	Class() Class
}

// Class groups types for dispatch. Lowering rules are keyed by class, not by
// exact type.
type Class uint8

const (
	ClassBoolean Class = iota
	ClassInteger
	ClassFloat
	ClassDatetime
	ClassTimedelta
	ClassNA
	ClassStringLiteral
	ClassStringView
	ClassDynamicString
	ClassMasked
)

var classNames = [...]string{
	ClassBoolean:       "Boolean",
	ClassInteger:       "Integer",
	ClassFloat:         "Float",
	ClassDatetime:      "NPDatetime",
	ClassTimedelta:     "NPTimedelta",
	ClassNA:            "NAType",
	ClassStringLiteral: "StringLiteral",
	ClassStringView:    "StringView",
	ClassDynamicString: "DynamicString",
	ClassMasked:        "Masked",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Boolean is the bool type.
type Boolean struct{}

func (Boolean) String() string { return "bool" }
func (Boolean) Class() Class   { return ClassBoolean }

// Integer is a fixed-width signed or unsigned integer.
type Integer struct {
	Bits   uint8
	Signed bool
}

func (t Integer) String() string {
	if t.Signed {
		return fmt.Sprintf("int%d", t.Bits)
	}
	return fmt.Sprintf("uint%d", t.Bits)
}
func (Integer) Class() Class { return ClassInteger }

// Float is an IEEE float of 32 or 64 bits.
type Float struct {
	Bits uint8
}

func (t Float) String() string { return fmt.Sprintf("float%d", t.Bits) }
func (Float) Class() Class     { return ClassFloat }

// NPDatetime is a 64-bit count of Unit ticks since the epoch.
type NPDatetime struct {
	Unit string
}

func (t NPDatetime) String() string { return fmt.Sprintf("datetime64[%s]", t.Unit) }
func (NPDatetime) Class() Class     { return ClassDatetime }

// NPTimedelta is a 64-bit count of Unit ticks.
type NPTimedelta struct {
	Unit string
}

func (t NPTimedelta) String() string { return fmt.Sprintf("timedelta64[%s]", t.Unit) }
func (NPTimedelta) Class() Class     { return ClassTimedelta }

// NAType is the zero-sized missing-value sentinel. It only exists before
// coercion; every NA is cast into an invalid Masked value.
type NAType struct{}

func (NAType) String() string { return "NA" }
func (NAType) Class() Class   { return ClassNA }

// StringLiteral is a compile-time constant string.
type StringLiteral struct {
	Value string
}

func (t StringLiteral) String() string { return fmt.Sprintf("Literal[str](%q)", t.Value) }
func (StringLiteral) Class() Class     { return ClassStringLiteral }

// StringView is a non-owning reference into an external buffer.
type StringView struct{}

func (StringView) String() string { return "string_view" }
func (StringView) Class() Class   { return ClassStringView }

// DynamicString is an owned, growable string.
type DynamicString struct{}

func (DynamicString) String() string { return "dstring" }
func (DynamicString) Class() Class   { return ClassDynamicString }

// Masked pairs a value of type Value with a validity bit.
type Masked struct {
	Value Type
}

func (t Masked) String() string { return fmt.Sprintf("Masked(%s)", t.Value) }
func (Masked) Class() Class     { return ClassMasked }

// Common types.
var (
	Bool    Type = Boolean{}
	Int8    Type = Integer{Bits: 8, Signed: true}
	Int16   Type = Integer{Bits: 16, Signed: true}
	Int32   Type = Integer{Bits: 32, Signed: true}
	Int64   Type = Integer{Bits: 64, Signed: true}
	Uint8   Type = Integer{Bits: 8}
	Uint16  Type = Integer{Bits: 16}
	Uint32  Type = Integer{Bits: 32}
	Uint64  Type = Integer{Bits: 64}
	Float32 Type = Float{Bits: 32}
	Float64 Type = Float{Bits: 64}
	NA      Type = NAType{}
	StrView Type = StringView{}
	DString Type = DynamicString{}
)

// Equal reports whether a and b are the same type.
func Equal(a, b Type) bool {
	return reflect.DeepEqual(a, b)
}

// IsNumber reports whether t is an integer or a float.
func IsNumber(t Type) bool {
	c := t.Class()
	return c == ClassInteger || c == ClassFloat
}

// IsScalar reports whether t is one of the primitive value types that can be
// wrapped in Masked and operated on arithmetically.
func IsScalar(t Type) bool {
	switch t.Class() {
	case ClassBoolean, ClassInteger, ClassFloat, ClassDatetime, ClassTimedelta:
		return true
	}
	return false
}

// IsString reports whether t is any of the string representations.
func IsString(t Type) bool {
	switch t.Class() {
	case ClassStringLiteral, ClassStringView, ClassDynamicString:
		return true
	}
	return false
}

// MaskedValue returns the wrapped type of a Masked type.
func MaskedValue(t Type) (Type, bool) {
	m, ok := t.(Masked)
	if !ok {
		return nil, false
	}
	return m.Value, true
}

// unitNanos maps datetime and timedelta units to nanoseconds per tick.
var unitNanos = map[string]int64{
	"s":  1_000_000_000,
	"ms": 1_000_000,
	"us": 1_000,
	"ns": 1,
}

// UnitNanos returns the number of nanoseconds per tick of unit.
func UnitNanos(unit string) (int64, bool) {
	n, ok := unitNanos[unit]
	return n, ok
}

// FinerUnit returns whichever of a and b has the shorter tick.
func FinerUnit(a, b string) string {
	if unitNanos[a] <= unitNanos[b] {
		return a
	}
	return b
}

// TickUnit returns the unit of a datetime or timedelta type.
func TickUnit(t Type) (string, bool) {
	switch tt := t.(type) {
	case NPDatetime:
		return tt.Unit, true
	case NPTimedelta:
		return tt.Unit, true
	}
	return "", false
}
