package vm

import (
	"fmt"
	"math"

	"github.com/funvibe/coludf/internal/textlib"
)

// ValueType identifies the type of value stored in the Value struct
type ValueType uint8

const (
	ValUndef   ValueType = iota // Unspecified; must never be read
	ValUnit                     // The dummy value of the NA sentinel
	ValBool                     // Data holds 0/1
	ValInt                      // Data holds int64 bits (also datetime/timedelta ticks)
	ValUint                     // Data holds uint64
	ValFloat                    // Data holds float64 bits
	ValView                     // Obj holds a textlib.StringView
	ValDString                  // Obj holds a *textlib.DynamicString
	ValMasked                   // Obj holds the wrapped Value, Data the validity bit
	ValRef                      // Data holds a local slot index
	ValTable                    // Obj holds the *textlib.CharTable
)

var valueTypeNames = [...]string{
	ValUndef:   "undef",
	ValUnit:    "unit",
	ValBool:    "bool",
	ValInt:     "int",
	ValUint:    "uint",
	ValFloat:   "float",
	ValView:    "view",
	ValDString: "dstring",
	ValMasked:  "masked",
	ValRef:     "ref",
	ValTable:   "table",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "?"
}

// Value is a tagged union. Primitives live in Data without allocation;
// strings, tables and masked payloads live in Obj.
type Value struct {
	Type ValueType
	Data uint64
	Obj  any
}

// Constructors

func UndefVal() Value { return Value{Type: ValUndef} }

func UnitVal() Value { return Value{Type: ValUnit} }

func IntVal(v int64) Value {
	return Value{Type: ValInt, Data: uint64(v)}
}

func UintVal(v uint64) Value {
	return Value{Type: ValUint, Data: v}
}

func FloatVal(v float64) Value {
	return Value{Type: ValFloat, Data: math.Float64bits(v)}
}

func BoolVal(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Type: ValBool, Data: data}
}

func ViewVal(s textlib.StringView) Value {
	return Value{Type: ValView, Obj: s}
}

func DStringVal(d *textlib.DynamicString) Value {
	return Value{Type: ValDString, Obj: d}
}

// MaskedVal pairs value with a validity bit.
func MaskedVal(value Value, valid bool) Value {
	var data uint64
	if valid {
		data = 1
	}
	return Value{Type: ValMasked, Data: data, Obj: value}
}

func RefVal(slot int) Value {
	return Value{Type: ValRef, Data: uint64(slot)}
}

func TableVal(t *textlib.CharTable) Value {
	return Value{Type: ValTable, Obj: t}
}

// Accessors

func (v Value) AsInt() int64 { return int64(v.Data) }

func (v Value) AsUint() uint64 { return v.Data }

func (v Value) AsFloat() float64 { return math.Float64frombits(v.Data) }

func (v Value) AsBool() bool { return v.Data == 1 }

// AsView returns the string view held by v. Dynamic strings are viewed in
// place.
func (v Value) AsView() textlib.StringView {
	switch o := v.Obj.(type) {
	case textlib.StringView:
		return o
	case *textlib.DynamicString:
		return o.View()
	}
	return textlib.StringView{}
}

func (v Value) AsDString() *textlib.DynamicString {
	d, _ := v.Obj.(*textlib.DynamicString)
	return d
}

// MaskedParts splits a masked value into its payload and validity bit.
func (v Value) MaskedParts() (Value, bool) {
	inner, _ := v.Obj.(Value)
	return inner, v.Data == 1
}

func (v Value) AsTable() *textlib.CharTable {
	t, _ := v.Obj.(*textlib.CharTable)
	return t
}

func (v Value) IsMasked() bool { return v.Type == ValMasked }
func (v Value) IsUndef() bool  { return v.Type == ValUndef }

// String renders v for disassembly and test failures.
func (v Value) String() string {
	switch v.Type {
	case ValUndef:
		return "undef"
	case ValUnit:
		return "unit"
	case ValBool:
		return fmt.Sprintf("%t", v.AsBool())
	case ValInt:
		return fmt.Sprintf("%d", v.AsInt())
	case ValUint:
		return fmt.Sprintf("%du", v.AsUint())
	case ValFloat:
		return fmt.Sprintf("%g", v.AsFloat())
	case ValView:
		return fmt.Sprintf("view(%q)", v.AsView().String())
	case ValDString:
		return fmt.Sprintf("dstring(%q)", v.AsDString().String())
	case ValMasked:
		inner, valid := v.MaskedParts()
		if !valid {
			return "Masked(NA)"
		}
		return fmt.Sprintf("Masked(%s)", inner)
	case ValRef:
		return fmt.Sprintf("&local[%d]", v.Data)
	case ValTable:
		return "chartable"
	}
	return "?"
}
