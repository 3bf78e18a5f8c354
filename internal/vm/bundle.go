package vm

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/funvibe/coludf/internal/textlib"
	"github.com/funvibe/coludf/internal/typesystem"
)

// Bundle is a compiled kernel in a form that can be written to disk and
// launched later without lowering again.
type Bundle struct {
	// ID identifies the kernel the bundle was made from.
	ID string

	// Input and Output are the column element types.
	Input  typesystem.Type
	Output typesystem.Type

	Chunk *Chunk
}

// bundleVersion is the image format written by Serialize.
const bundleVersion byte = 0x02

// bundleMagic starts every serialized bundle.
var bundleMagic = [4]byte{'C', 'U', 'D', 'K'}

var errNotBundle = errors.New("invalid magic number, expected CUDK")

// image is the gob payload. Types travel as their printed form and
// constants as plain fields, so nothing in it needs gob registration.
type image struct {
	ID         string
	Name       string
	Input      string
	Output     string
	Code       []byte
	Constants  []imageConst
	Types      []string
	LocalCount int
}

type imageConst struct {
	Type ValueType
	Data uint64
	Text []byte
}

// IsBundle reports whether data starts like a serialized bundle.
func IsBundle(data []byte) bool {
	return len(data) >= len(bundleMagic) && bytes.Equal(data[:len(bundleMagic)], bundleMagic[:])
}

// Serialize converts a Bundle to binary format.
// Format:
// - Magic number (4 bytes): "CUDK"
// - Version (1 byte): 0x02, local slot operands are 16-bit
// - Gob-encoded image
func (b *Bundle) Serialize() ([]byte, error) {
	if b.Chunk == nil || b.Input == nil || b.Output == nil {
		return nil, errors.New("bundle is incomplete")
	}
	img := image{
		ID:         b.ID,
		Name:       b.Chunk.Name,
		Input:      b.Input.String(),
		Output:     b.Output.String(),
		Code:       b.Chunk.Code,
		Constants:  make([]imageConst, len(b.Chunk.Constants)),
		Types:      make([]string, len(b.Chunk.Types)),
		LocalCount: b.Chunk.LocalCount,
	}
	for i, c := range b.Chunk.Constants {
		ic, err := encodeConstant(c)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		img.Constants[i] = ic
	}
	for i, t := range b.Chunk.Types {
		img.Types[i] = t.String()
	}

	buf := new(bytes.Buffer)
	buf.Write(bundleMagic[:])
	buf.WriteByte(bundleVersion)
	if err := gob.NewEncoder(buf).Encode(&img); err != nil {
		return nil, fmt.Errorf("bundle gob encoding failed: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeConstant(v Value) (imageConst, error) {
	switch v.Type {
	case ValUndef, ValUnit, ValBool, ValInt, ValUint, ValFloat:
		return imageConst{Type: v.Type, Data: v.Data}, nil
	case ValView:
		return imageConst{Type: ValView, Text: []byte(v.AsView().String())}, nil
	}
	return imageConst{}, fmt.Errorf("%s values cannot be serialized", v.Type)
}

// Deserialize reads a serialized bundle and verifies its chunk.
func Deserialize(data []byte) (*Bundle, error) {
	if len(data) < len(bundleMagic)+1 {
		return nil, errors.New("bytecode data too short")
	}
	if !IsBundle(data) {
		return nil, errNotBundle
	}
	if v := data[len(bundleMagic)]; v != bundleVersion {
		return nil, fmt.Errorf("unsupported bytecode version: %d (this binary supports version %d)", v, bundleVersion)
	}

	var img image
	if err := gob.NewDecoder(bytes.NewReader(data[len(bundleMagic)+1:])).Decode(&img); err != nil {
		return nil, fmt.Errorf("bundle gob decoding failed: %w", err)
	}

	b := &Bundle{ID: img.ID}
	var err error
	if b.Input, err = typesystem.Parse(img.Input); err != nil {
		return nil, fmt.Errorf("bundle input: %w", err)
	}
	if b.Output, err = typesystem.Parse(img.Output); err != nil {
		return nil, fmt.Errorf("bundle output: %w", err)
	}

	chunk := NewChunk(img.Name)
	chunk.Code = img.Code
	chunk.LocalCount = img.LocalCount
	for _, ic := range img.Constants {
		v := Value{Type: ic.Type, Data: ic.Data}
		if ic.Type == ValView {
			v = ViewVal(textlib.NewStringView(ic.Text))
		}
		chunk.Constants = append(chunk.Constants, v)
	}
	for _, s := range img.Types {
		t, err := typesystem.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("bundle type pool: %w", err)
		}
		chunk.Types = append(chunk.Types, t)
	}
	if err := Verify(chunk); err != nil {
		return nil, fmt.Errorf("bundle validation failed: %w", err)
	}
	b.Chunk = chunk
	return b, nil
}
