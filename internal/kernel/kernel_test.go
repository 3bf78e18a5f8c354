package kernel

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/funvibe/coludf/internal/textlib"
	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/udf"
	"github.com/funvibe/coludf/internal/vm"
)

var (
	mInt64   = typesystem.Masked{Value: typesystem.Int64}
	mDString = typesystem.Masked{Value: typesystem.DString}
)

type rows struct {
	values []vm.Value
	valid  []bool
}

func (r rows) Len() int                   { return len(r.values) }
func (r rows) Row(i int) (vm.Value, bool) { return r.values[i], r.valid[i] }

// addOneIfPresent is `x + 1 if x is not NA else NA`.
func addOneIfPresent() *udf.Function {
	x := &udf.Param{T: mInt64}
	return &udf.Function{
		Name:  "add_one",
		Param: mInt64,
		Body: &udf.IfElse{
			Cond: udf.NewCall(udf.OpIsNot, typesystem.Bool, x, udf.NA()),
			Then: udf.NewCall(udf.OpAdd, mInt64, x, udf.Int(1)),
			Else: udf.NA(),
			T:    mInt64,
		},
	}
}

func upperFunction() *udf.Function {
	x := &udf.Param{T: mDString}
	return &udf.Function{
		Name:  "upper",
		Param: mDString,
		Body:  udf.NewCall(udf.OpUpper, mDString, x),
	}
}

func TestAddOneEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	k, err := NewCompiler().Compile(addOneIfPresent(), typesystem.Int64, typesystem.Int64)
	require.NoError(t, err)

	in := rows{
		values: []vm.Value{vm.IntVal(1), vm.UndefVal(), vm.IntVal(3)},
		valid:  []bool{true, false, true},
	}
	out := vm.NewOutputBuffer(in.Len())
	require.NoError(t, k.Run(context.Background(), in, out, vm.LaunchConfig{Workers: 2, BlockSize: 1}))

	assert.Equal(t, []bool{true, false, true}, validity(out))
	assert.Equal(t, vm.IntVal(2), out.Records[0].Value)
	assert.Equal(t, vm.IntVal(4), out.Records[2].Value)
}

func TestUpperEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	k, err := NewCompiler().Compile(upperFunction(), typesystem.StrView, typesystem.DString)
	require.NoError(t, err)

	in := rows{
		values: []vm.Value{vm.ViewVal(textlib.ViewOf("ab")), vm.UndefVal(), vm.ViewVal(textlib.ViewOf("Cd"))},
		valid:  []bool{true, false, true},
	}
	out := vm.NewOutputBuffer(in.Len())
	require.NoError(t, k.Run(context.Background(), in, out, vm.LaunchConfig{}))

	assert.Equal(t, []bool{true, false, true}, validity(out))
	assert.Equal(t, "AB", out.Records[0].Value.AsView().String())
	assert.Equal(t, "CD", out.Records[2].Value.AsView().String())
}

func validity(out *vm.OutputBuffer) []bool {
	v := make([]bool, out.Len())
	for i, r := range out.Records {
		v[i] = r.Valid
	}
	return v
}

func TestCompileIsCachedPerTriple(t *testing.T) {
	c := NewCompiler()

	first, err := c.Compile(addOneIfPresent(), typesystem.Int64, typesystem.Int64)
	require.NoError(t, err)
	second, err := c.Compile(addOneIfPresent(), typesystem.Int64, typesystem.Int64)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, first.ID, second.ID)

	other, err := c.Compile(addOneIfPresent(), typesystem.Int32, typesystem.Float64)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, 2, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())
}

func TestCompileConvertsElementTypes(t *testing.T) {
	k, err := NewCompiler().Compile(addOneIfPresent(), typesystem.Int32, typesystem.Float64)
	require.NoError(t, err)

	in := rows{values: []vm.Value{vm.IntVal(41)}, valid: []bool{true}}
	out := vm.NewOutputBuffer(1)
	require.NoError(t, k.Run(context.Background(), in, out, vm.LaunchConfig{Workers: 1}))
	assert.Equal(t, vm.Record{Value: vm.FloatVal(42), Valid: true}, out.Records[0])
}

func TestCompileLongOperatorChain(t *testing.T) {
	const n = 200
	var body udf.Node = &udf.Param{T: mInt64}
	for i := 0; i < n; i++ {
		body = udf.NewCall(udf.OpAdd, mInt64, body, udf.Int(1))
	}
	fn := &udf.Function{Name: "chain", Param: mInt64, Body: body}

	k, err := NewCompiler().Compile(fn, typesystem.Int64, typesystem.Int64)
	require.NoError(t, err)
	assert.Greater(t, k.Chunk.LocalCount, 256)

	in := rows{values: []vm.Value{vm.IntVal(1), vm.UndefVal()}, valid: []bool{true, false}}
	out := vm.NewOutputBuffer(in.Len())
	require.NoError(t, k.Run(context.Background(), in, out, vm.LaunchConfig{Workers: 1}))
	assert.Equal(t, vm.Record{Value: vm.IntVal(n + 1), Valid: true}, out.Records[0])
	assert.False(t, out.Records[1].Valid)
}

func TestCompileErrors(t *testing.T) {
	c := NewCompiler()

	x := &udf.Param{T: mDString}
	bad := &udf.Function{Name: "bad", Param: mDString, Body: udf.NewCall(udf.OpSub, mDString, x, x)}
	_, err := c.Compile(bad, typesystem.StrView, typesystem.DString)
	var unsupported *typesystem.UnsupportedOperationError
	require.True(t, errors.As(err, &unsupported), "got %v", err)
	assert.Equal(t, "sub", unsupported.Op)

	dt := typesystem.NPDatetime{Unit: "s"}
	_, err = c.Compile(addOneIfPresent(), typesystem.Int64, dt)
	var mismatch *typesystem.TypeMismatchError
	assert.True(t, errors.As(err, &mismatch), "got %v", err)

	_, err = c.Compile(addOneIfPresent(), mInt64, typesystem.Int64)
	assert.ErrorContains(t, err, "not a column type")

	raw := &udf.Function{Name: "raw", Param: typesystem.Int64, Body: &udf.Param{T: typesystem.Int64}}
	_, err = c.Compile(raw, typesystem.Int64, typesystem.Int64)
	assert.ErrorContains(t, err, "binding parameter")

	assert.Equal(t, 0, c.Len())
}

func TestDisassembleNamesRoutines(t *testing.T) {
	k, err := NewCompiler().Compile(upperFunction(), typesystem.StrView, typesystem.DString)
	require.NoError(t, err)

	dis := k.Disassemble()
	assert.Contains(t, dis, "CALL_EXTERN")
	assert.Contains(t, dis, "upper/2")
	assert.Contains(t, dis, "dstring_from_view/2")
	assert.True(t, strings.HasPrefix(dis, "== upper (string_view -> dstring) =="), dis)
}

func TestPackageCompile(t *testing.T) {
	k, err := Compile(upperFunction(), typesystem.StrView, typesystem.DString)
	require.NoError(t, err)
	again, err := Compile(upperFunction(), typesystem.StrView, typesystem.DString)
	require.NoError(t, err)
	assert.Same(t, k, again)
}

func TestBundleRoundTrip(t *testing.T) {
	x := &udf.Param{T: mDString}
	mBool := typesystem.Masked{Value: typesystem.Bool}
	fn := &udf.Function{
		Name:  "starts_a",
		Param: mDString,
		Body:  udf.NewCall(udf.OpStartsWith, mBool, x, udf.Str("a")),
	}
	k, err := NewCompiler().Compile(fn, typesystem.StrView, typesystem.Bool)
	require.NoError(t, err)

	data, err := k.Bundle().Serialize()
	require.NoError(t, err)
	assert.True(t, vm.IsBundle(data))

	loaded, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, k.ID, loaded.ID)
	assert.Equal(t, k.Name, loaded.Name)
	assert.True(t, typesystem.Equal(k.Input, loaded.Input))
	assert.True(t, typesystem.Equal(k.Output, loaded.Output))
	assert.Equal(t, k.Disassemble(), loaded.Disassemble())

	in := rows{
		values: []vm.Value{vm.ViewVal(textlib.ViewOf("ab")), vm.UndefVal(), vm.ViewVal(textlib.ViewOf("Cd"))},
		valid:  []bool{true, false, true},
	}
	out := vm.NewOutputBuffer(in.Len())
	require.NoError(t, loaded.Run(context.Background(), in, out, vm.LaunchConfig{}))
	assert.Equal(t, []bool{true, false, true}, validity(out))
	assert.True(t, out.Records[0].Value.AsBool())
	assert.False(t, out.Records[2].Value.AsBool())
}

func TestLoadRejectsDamagedBundles(t *testing.T) {
	k, err := NewCompiler().Compile(addOneIfPresent(), typesystem.Int64, typesystem.Int64)
	require.NoError(t, err)
	data, err := k.Bundle().Serialize()
	require.NoError(t, err)

	_, err = Load(data[:3])
	assert.Error(t, err)

	_, err = Load(append([]byte("XXXX"), data[4:]...))
	assert.ErrorContains(t, err, "magic")

	badVersion := append([]byte(nil), data...)
	badVersion[4] = 0x7f
	_, err = Load(badVersion)
	assert.ErrorContains(t, err, "version")

	_, err = Load(data[:len(data)/2])
	assert.ErrorContains(t, err, "decoding")
}
