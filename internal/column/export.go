package column

import (
	"fmt"
	"io"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/builder"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/funvibe/coludf/internal/typesystem"
)

// ExportJSON renders the column as {"type": ..., "values": [...]} with null
// for missing rows.
func ExportJSON(c *Column) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"type":   c.Type.String(),
		"values": c.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("exporting %s column: %w", c.Type, err)
	}
	return protojson.MarshalOptions{Multiline: true}.Marshal(s)
}

func protoFieldType(t typesystem.Type) *builder.FieldType {
	switch tt := t.(type) {
	case typesystem.Boolean:
		return builder.FieldTypeBool()
	case typesystem.Integer:
		if tt.Signed {
			return builder.FieldTypeInt64()
		}
		return builder.FieldTypeUInt64()
	case typesystem.Float:
		if tt.Bits == 32 {
			return builder.FieldTypeFloat()
		}
		return builder.FieldTypeDouble()
	case typesystem.StringView, typesystem.DynamicString:
		return builder.FieldTypeString()
	}
	return builder.FieldTypeInt64()
}

// RecordDescriptor builds the message type of one output record of element
// type t: an optional value and a validity flag.
func RecordDescriptor(t typesystem.Type) (*desc.MessageDescriptor, error) {
	mb := builder.NewMessage("Record").
		AddField(builder.NewField("value", protoFieldType(t)).SetNumber(1)).
		AddField(builder.NewField("valid", builder.FieldTypeBool()).SetNumber(2))
	md, err := mb.Build()
	if err != nil {
		return nil, fmt.Errorf("building record type for %s: %w", t, err)
	}
	return md, nil
}

// ExportProto writes one length-delimited Record message per row.
func ExportProto(w io.Writer, c *Column) error {
	md, err := RecordDescriptor(c.Type)
	if err != nil {
		return err
	}
	var buf []byte
	for i := 0; i < c.Len(); i++ {
		msg := dynamic.NewMessage(md)
		if v := c.Value(i); v != nil {
			if err := msg.TrySetFieldByNumber(1, v); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
		}
		if err := msg.TrySetFieldByNumber(2, c.Valid(i)); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		data, err := msg.Marshal()
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		buf = protowire.AppendVarint(buf[:0], uint64(len(data)))
		buf = append(buf, data...)
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// ImportProto reads records written by ExportProto back into a column.
func ImportProto(r io.Reader, t typesystem.Type) (*Column, error) {
	md, err := RecordDescriptor(t)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	c := newColumn(t, 0)
	for len(data) > 0 {
		size, n := protowire.ConsumeVarint(data)
		if n < 0 || uint64(len(data)-n) < size {
			return nil, fmt.Errorf("record %d: %w", c.Len(), io.ErrUnexpectedEOF)
		}
		msg := dynamic.NewMessage(md)
		if err := msg.Unmarshal(data[n : n+int(size)]); err != nil {
			return nil, fmt.Errorf("record %d: %w", c.Len(), err)
		}
		data = data[n+int(size):]

		if valid, _ := msg.GetFieldByNumber(2).(bool); !valid {
			c.appendMissing()
			continue
		}
		if err := c.appendGo(msg.GetFieldByNumber(1)); err != nil {
			return nil, fmt.Errorf("record %d: %w", c.Len(), err)
		}
	}
	return c, nil
}

// Equal reports whether two columns hold the same type, validity and values.
func Equal(a, b *Column) bool {
	if !typesystem.Equal(a.Type, b.Type) || a.Len() != b.Len() || !a.validity.Equals(b.validity) {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		if a.Value(i) != b.Value(i) {
			return false
		}
	}
	return true
}
