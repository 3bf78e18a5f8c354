package typesystem

import (
	"errors"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []Type{
		Bool, Int8, Int16, Int32, Int64, Uint8, Uint64, Float32, Float64,
		NA, StrView, DString,
		NPDatetime{Unit: "ms"},
		NPTimedelta{Unit: "ns"},
		Masked{Value: Int64},
		Masked{Value: DString},
		Masked{Value: NPDatetime{Unit: "s"}},
		StringLiteral{Value: "he said \"hi\""},
	}
	for _, want := range tests {
		got, err := Parse(want.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", want.String(), err)
		}
		if !Equal(got, want) {
			t.Errorf("Parse(%q) = %s, want %s", want.String(), got, want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"int128", "Masked(NA)", "Masked(Masked(int8))", "datetime64[days]", ""} {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", input)
		}
	}
}

func TestUnify(t *testing.T) {
	tests := []struct {
		a, b, expected Type
	}{
		{Int32, Int64, Int64},
		{Uint8, Int8, Int16},
		{Uint32, Int64, Int64},
		{Uint64, Int64, Float64},
		{Int16, Float32, Float32},
		{Int32, Float32, Float64},
		{Float32, Float64, Float64},
		{Bool, Int8, Int8},
		{NPDatetime{Unit: "s"}, NPDatetime{Unit: "ms"}, NPDatetime{Unit: "ms"}},
		{NPTimedelta{Unit: "ns"}, NPTimedelta{Unit: "us"}, NPTimedelta{Unit: "ns"}},
	}
	for _, tt := range tests {
		got, err := Unify(tt.a, tt.b)
		if err != nil {
			t.Fatalf("Unify(%s, %s): %v", tt.a, tt.b, err)
		}
		if !Equal(got, tt.expected) {
			t.Errorf("Unify(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.expected)
		}
	}

	_, err := Unify(NPDatetime{Unit: "s"}, Int64)
	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
}

func TestCanCoerce(t *testing.T) {
	ok := [][2]Type{
		{Bool, Int64},
		{Int64, Float32},
		{Float64, Int8},
		{Int32, Bool},
		{NPDatetime{Unit: "s"}, NPDatetime{Unit: "ns"}},
		{NPTimedelta{Unit: "ms"}, NPTimedelta{Unit: "us"}},
	}
	for _, pair := range ok {
		if err := CanCoerce(pair[0], pair[1]); err != nil {
			t.Errorf("CanCoerce(%s, %s): %v", pair[0], pair[1], err)
		}
	}
	bad := [][2]Type{
		{NPDatetime{Unit: "s"}, NPTimedelta{Unit: "s"}},
		{Int64, NPDatetime{Unit: "s"}},
		{StrView, Int64},
		{Bool, DString},
	}
	for _, pair := range bad {
		err := CanCoerce(pair[0], pair[1])
		var mismatch *TypeMismatchError
		if !errors.As(err, &mismatch) {
			t.Errorf("CanCoerce(%s, %s) = %v, want TypeMismatchError", pair[0], pair[1], err)
		}
	}
}
