package coludf_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	coludf "github.com/funvibe/coludf/pkg/embed"
)

const addOne = `
name: add_one
input: Masked(int64)
output: int64
body:
  if: {op: is_not, type: bool, args: [{param: 0}, {na: true}]}
  then: {op: add, type: Masked(int64), args: [{param: 0}, {const: 1, type: int64}]}
  else: {na: true}
  type: Masked(int64)
`

func ptr[T any](v T) *T { return &v }

func TestEmbedAPI(t *testing.T) {
	eng := coludf.New(coludf.WithWorkers(2), coludf.WithBlockSize(1))

	k, err := eng.Load([]byte(addOne))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if k.Name() != "add_one" {
		t.Errorf("Name() = %q, want add_one", k.Name())
	}

	got, err := k.Apply(context.Background(), []*int64{ptr(int64(1)), nil, ptr(int64(3))})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := []any{int64(2), nil, int64(4)}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEmbedMixedRows(t *testing.T) {
	k, err := coludf.New().Load([]byte(addOne))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got, err := k.Apply(context.Background(), []any{int32(9), nil, uint8(1)})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got[0] != int64(10) || got[1] != nil || got[2] != int64(2) {
		t.Errorf("got %v, want [10 <nil> 2]", got)
	}
}

func TestEmbedStrings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "upper.yaml")
	src := `
name: shout
input: Masked(dstring)
output: dstring
body: {op: upper, type: Masked(dstring), args: [{param: 0}]}
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	k, err := coludf.New().LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	got, err := k.Apply(context.Background(), []string{"ab", "Cd"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got[0] != "AB" || got[1] != "CD" {
		t.Errorf("got %v, want [AB CD]", got)
	}
	if k.ID() == "" {
		t.Error("kernel has no ID")
	}
	if k.Disassemble() == "" {
		t.Error("empty disassembly")
	}
}

func TestEmbedErrors(t *testing.T) {
	k, err := coludf.New().Load([]byte(addOne))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := k.Apply(context.Background(), 42); err == nil {
		t.Error("expected error for non-slice rows")
	}
	if _, err := k.Apply(context.Background(), []struct{}{{}}); err == nil {
		t.Error("expected error for struct rows")
	}
	if _, err := k.Apply(context.Background(), []string{"x"}); err == nil {
		t.Error("expected error for strings into an int64 kernel")
	}
	if _, err := coludf.New().Load([]byte("name: empty\n")); err == nil {
		t.Error("expected error for kernel without a body")
	}
}
