package vm

import (
	"errors"
	"testing"

	"github.com/funvibe/coludf/internal/textlib"
	"github.com/funvibe/coludf/internal/typesystem"
)

func TestBundleRoundTrip(t *testing.T) {
	c := addOneChunk()
	c.AddConstant(ViewVal(textlib.ViewOf("lit")))
	c.AddType(typesystem.StringLiteral{Value: "lit"})
	b := &Bundle{ID: "k1", Input: typesystem.Int64, Output: typesystem.Int64, Chunk: c}

	data, err := b.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if !IsBundle(data) {
		t.Fatal("serialized data does not start with the bundle magic")
	}

	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if got.ID != "k1" || got.Chunk.Name != "add_one" {
		t.Errorf("got id=%q name=%q", got.ID, got.Chunk.Name)
	}
	if Disassemble(got.Chunk, "k") != Disassemble(c, "k") {
		t.Errorf("bytecode changed:\n%s\nwant:\n%s", Disassemble(got.Chunk, "k"), Disassemble(c, "k"))
	}
	if s := got.Chunk.Constants[len(got.Chunk.Constants)-1].AsView().String(); s != "lit" {
		t.Errorf("literal constant = %q, want lit", s)
	}

	rec := run(t, got.Chunk, MaskedVal(IntVal(1), true))
	if !rec.Valid || rec.Value != IntVal(2) {
		t.Errorf("got=%v, want=valid 2", rec)
	}
}

func TestBundleRejects(t *testing.T) {
	c := addOneChunk()
	c.AddConstant(DStringVal(&textlib.DynamicString{}))
	if _, err := (&Bundle{ID: "x", Input: typesystem.Int64, Output: typesystem.Int64, Chunk: c}).Serialize(); err == nil {
		t.Error("expected error serializing a dstring constant")
	}
	if _, err := (&Bundle{}).Serialize(); err == nil {
		t.Error("expected error serializing an empty bundle")
	}

	if _, err := Deserialize([]byte("CU")); err == nil {
		t.Error("expected error for short data")
	}
	if _, err := Deserialize([]byte("NOPE\x01")); !errors.Is(err, errNotBundle) {
		t.Errorf("err = %v, want errNotBundle", err)
	}

	// Bytecode that fails verification is refused.
	bad := NewChunk("bad")
	bad.WriteOp(OP_RETURN)
	bad.WriteOp(OP_POP)
	data, err := (&Bundle{ID: "x", Input: typesystem.Int64, Output: typesystem.Int64, Chunk: bad}).Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if _, err := Deserialize(data); err == nil {
		t.Error("expected verification error")
	}
}
