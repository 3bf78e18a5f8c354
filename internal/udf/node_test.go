package udf

import (
	"strings"
	"testing"

	"github.com/funvibe/coludf/internal/typesystem"
)

func TestParseOpRoundTrip(t *testing.T) {
	for _, op := range Ops() {
		got, ok := ParseOp(op.String())
		if !ok || got != op {
			t.Errorf("ParseOp(%q) = %v, %t", op, got, ok)
		}
	}
	if _, ok := ParseOp("frobnicate"); ok {
		t.Errorf("unknown operator resolved")
	}
}

func TestOpGroups(t *testing.T) {
	tests := []struct {
		op                          Op
		binary, unary, cmp, strMeth bool
	}{
		{OpAdd, true, false, false, false},
		{OpXor, true, false, false, false},
		{OpGe, true, false, true, false},
		{OpNeg, false, true, false, false},
		{OpAtanh, false, true, false, false},
		{OpIs, false, false, false, false},
		{OpLen, false, false, false, true},
		{OpLower, false, false, false, true},
	}
	for _, tt := range tests {
		if tt.op.IsBinary() != tt.binary || tt.op.IsUnary() != tt.unary ||
			tt.op.IsComparison() != tt.cmp || tt.op.IsStringMethod() != tt.strMeth {
			t.Errorf("%s: wrong classification", tt.op)
		}
	}
}

func TestValidate(t *testing.T) {
	mi := typesystem.Masked{Value: typesystem.Int64}
	x := &Param{T: mi}

	good := &Function{
		Name:  "add_one",
		Param: mi,
		Body:  NewCall(OpAdd, mi, x, Int(1)),
	}
	if err := Validate(good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := good.String(); !strings.Contains(got, "add(x, 1:int64)") {
		t.Errorf("String() = %q", got)
	}

	tests := []struct {
		name string
		body Node
		want string
	}{
		{"param mismatch", &Param{T: typesystem.Int64}, "parameter used as int64"},
		{"bad const", &Const{Value: "1", T: typesystem.Int64}, "does not fit"},
		{"untyped", &Call{Op: OpAdd, Args: []Node{x, Int(1)}}, "untyped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&Function{Name: "f", Param: mi, Body: tt.body})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got=%v, want error containing %q", err, tt.want)
			}
		})
	}
}
