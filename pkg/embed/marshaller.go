package coludf

import (
	"fmt"
	"reflect"

	"github.com/funvibe/coludf/internal/column"
	"github.com/funvibe/coludf/internal/typesystem"
)

// Marshaller converts between Go slices and columns.
type Marshaller struct{}

func NewMarshaller() *Marshaller {
	return &Marshaller{}
}

// ToColumn converts a Go slice into a column of element type t.
func (m *Marshaller) ToColumn(t typesystem.Type, rows any) (*column.Column, error) {
	v := reflect.ValueOf(rows)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("rows must be a slice, got %T", rows)
	}

	vals := make([]any, v.Len())
	for i := range vals {
		val, err := m.toValue(v.Index(i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		vals[i] = val
	}
	return column.FromSlice(t, vals)
}

// toValue unwraps pointers and interfaces and widens numbers to the forms
// columns accept. A nil pointer or interface is a missing row.
func (m *Marshaller) toValue(v reflect.Value) (any, error) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		return v.String(), nil
	}
	return nil, fmt.Errorf("unsupported element type %s", v.Type())
}

// FromColumn returns the rows of c, nil for missing ones.
func (m *Marshaller) FromColumn(c *column.Column) []any {
	return c.Values()
}
