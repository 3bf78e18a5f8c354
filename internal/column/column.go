// Package column is the host side of a launch: columns of one element type
// with a validity bitmap, fed to kernels as input and rebuilt from output
// records.
package column

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/funvibe/coludf/internal/textlib"
	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/vm"
)

// Column holds n elements of Type. Fixed-width elements live in values;
// strings live back to back in chars, delimited by offsets. A row is valid
// when its index is in the validity bitmap.
type Column struct {
	Type typesystem.Type

	n        int
	values   []vm.Value
	chars    []byte
	offsets  []int32
	validity *roaring.Bitmap
}

func isString(t typesystem.Type) bool {
	switch t.Class() {
	case typesystem.ClassStringView, typesystem.ClassDynamicString:
		return true
	}
	return false
}

func newColumn(t typesystem.Type, n int) *Column {
	c := &Column{Type: t, validity: roaring.New()}
	if isString(t) {
		c.offsets = make([]int32, 1, n+1)
	} else {
		c.values = make([]vm.Value, 0, n)
	}
	return c
}

// FromSlice builds a column from Go values; nil marks a missing row.
func FromSlice(t typesystem.Type, vals []any) (*Column, error) {
	if err := checkType(t); err != nil {
		return nil, err
	}
	c := newColumn(t, len(vals))
	for i, v := range vals {
		if v == nil {
			c.appendMissing()
			continue
		}
		if err := c.appendGo(v); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return c, nil
}

// FromOutput rebuilds a column of type t from a launch's output records.
func FromOutput(t typesystem.Type, out *vm.OutputBuffer) (*Column, error) {
	if err := checkType(t); err != nil {
		return nil, err
	}
	c := newColumn(t, out.Len())
	for _, rec := range out.Records {
		if !rec.Valid {
			c.appendMissing()
			continue
		}
		c.appendValue(rec.Value)
	}
	return c, nil
}

func checkType(t typesystem.Type) error {
	if t == nil || !(typesystem.IsScalar(t) || isString(t)) {
		return fmt.Errorf("unsupported column type %v", t)
	}
	return nil
}

func (c *Column) appendMissing() {
	if isString(c.Type) {
		c.offsets = append(c.offsets, int32(len(c.chars)))
	} else {
		c.values = append(c.values, vm.UndefVal())
	}
	c.n++
}

func (c *Column) appendValue(v vm.Value) {
	c.validity.Add(uint32(c.n))
	if isString(c.Type) {
		view := v.AsView()
		c.chars = append(c.chars, view.Data[:view.Bytes]...)
		c.offsets = append(c.offsets, int32(len(c.chars)))
	} else {
		c.values = append(c.values, v)
	}
	c.n++
}

func (c *Column) appendGo(v any) error {
	val, err := toValue(c.Type, v)
	if err != nil {
		return err
	}
	c.appendValue(val)
	return nil
}

// Len returns the number of rows.
func (c *Column) Len() int { return c.n }

// Valid reports whether row i holds a value.
func (c *Column) Valid(i int) bool { return c.validity.Contains(uint32(i)) }

// NullCount returns the number of missing rows.
func (c *Column) NullCount() int { return c.n - int(c.validity.GetCardinality()) }

// Validity returns the bitmap of valid rows. It must not be modified.
func (c *Column) Validity() *roaring.Bitmap { return c.validity }

// Row returns the element of row i for a launch. Strings are views into the
// column's character buffer.
func (c *Column) Row(i int) (vm.Value, bool) {
	if !c.Valid(i) {
		return vm.UndefVal(), false
	}
	if isString(c.Type) {
		return vm.ViewVal(textlib.NewStringView(c.chars[c.offsets[i]:c.offsets[i+1]])), true
	}
	return c.values[i], true
}

// Value returns row i as a Go value, or nil when it is missing.
func (c *Column) Value(i int) any {
	v, ok := c.Row(i)
	if !ok {
		return nil
	}
	return fromValue(c.Type, v)
}

// Values returns every row as a Go value, nil for missing rows.
func (c *Column) Values() []any {
	out := make([]any, c.n)
	for i := range out {
		out[i] = c.Value(i)
	}
	return out
}

func toValue(t typesystem.Type, v any) (vm.Value, error) {
	switch tt := t.(type) {
	case typesystem.Boolean:
		if b, ok := v.(bool); ok {
			return vm.BoolVal(b), nil
		}
	case typesystem.Integer:
		var raw uint64
		switch x := v.(type) {
		case int:
			raw = uint64(x)
		case int32:
			raw = uint64(x)
		case int64:
			raw = uint64(x)
		case uint64:
			raw = x
		default:
			return vm.Value{}, fmt.Errorf("%v (%T) is not an integer", v, v)
		}
		return vm.IntegerVal(tt, raw), nil
	case typesystem.Float:
		switch x := v.(type) {
		case float64:
			return vm.FloatVal(x), nil
		case float32:
			return vm.FloatVal(float64(x)), nil
		case int:
			return vm.FloatVal(float64(x)), nil
		case int64:
			return vm.FloatVal(float64(x)), nil
		}
	case typesystem.NPDatetime, typesystem.NPTimedelta:
		switch x := v.(type) {
		case int64:
			return vm.IntVal(x), nil
		case int:
			return vm.IntVal(int64(x)), nil
		}
	case typesystem.StringView, typesystem.DynamicString:
		switch x := v.(type) {
		case string:
			return vm.ViewVal(textlib.ViewOf(x)), nil
		case []byte:
			return vm.ViewVal(textlib.NewStringView(x)), nil
		}
	}
	return vm.Value{}, fmt.Errorf("%v (%T) does not fit %s", v, v, t)
}

func fromValue(t typesystem.Type, v vm.Value) any {
	switch tt := t.(type) {
	case typesystem.Boolean:
		return v.AsBool()
	case typesystem.Integer:
		if tt.Signed {
			return v.AsInt()
		}
		return v.AsUint()
	case typesystem.Float:
		if tt.Bits == 32 {
			return float32(v.AsFloat())
		}
		return v.AsFloat()
	case typesystem.NPDatetime, typesystem.NPTimedelta:
		return v.AsInt()
	case typesystem.StringView, typesystem.DynamicString:
		return v.AsView().String()
	}
	return nil
}
