package column

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/coludf/internal/textlib"
	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/vm"
)

func TestFromSlice(t *testing.T) {
	c, err := FromSlice(typesystem.Int64, []any{1, nil, int64(3)})
	require.NoError(t, err)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 1, c.NullCount())
	assert.False(t, c.Valid(1))
	if diff := cmp.Diff([]any{int64(1), nil, int64(3)}, c.Values()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}

	v, ok := c.Row(1)
	assert.False(t, ok)
	assert.True(t, v.IsUndef())

	_, err = FromSlice(typesystem.Int64, []any{"x"})
	assert.Error(t, err)

	_, err = FromSlice(typesystem.Masked{Value: typesystem.Int64}, nil)
	assert.Error(t, err)
}

func TestFromSliceNarrowsIntegers(t *testing.T) {
	c, err := FromSlice(typesystem.Int8, []any{300, -129, int64(127)})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(44), int64(127), int64(127)}, c.Values())

	u, err := FromSlice(typesystem.Uint8, []any{256 + 7, -1, uint64(1) << 40})
	require.NoError(t, err)
	assert.Equal(t, []any{uint64(7), uint64(255), uint64(0)}, u.Values())
}

func TestStringColumn(t *testing.T) {
	c, err := FromSlice(typesystem.StrView, []any{"ab", nil, "", "héllo"})
	require.NoError(t, err)

	v, ok := c.Row(3)
	require.True(t, ok)
	view := v.AsView()
	assert.Equal(t, "héllo", view.String())
	assert.Equal(t, int32(5), view.Length)
	assert.Equal(t, int32(6), view.Bytes)

	v, ok = c.Row(2)
	assert.True(t, ok)
	assert.Equal(t, "", v.AsView().String())
	assert.Equal(t, []any{"ab", nil, "", "héllo"}, c.Values())
}

func TestFromOutput(t *testing.T) {
	out := vm.NewOutputBuffer(3)
	out.Records[0] = vm.Record{Value: vm.DStringVal(&textlib.DynamicString{Data: []byte("AB"), Length: 2}), Valid: true}
	out.Records[2] = vm.Record{Value: vm.ViewVal(textlib.ViewOf("CD")), Valid: true}

	c, err := FromOutput(typesystem.DString, out)
	require.NoError(t, err)
	assert.Equal(t, []any{"AB", nil, "CD"}, c.Values())
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "cols.db"))
	require.NoError(t, err)
	defer db.Close()

	tests := []struct {
		name string
		typ  typesystem.Type
		vals []any
	}{
		{"ints", typesystem.Int64, []any{int64(1), nil, int64(-3)}},
		{"floats", typesystem.Float64, []any{1.5, nil, 2.0}},
		{"bools", typesystem.Bool, []any{true, false, nil}},
		{"strings", typesystem.StrView, []any{"a", nil, "ü"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, err := FromSlice(tt.typ, tt.vals)
			require.NoError(t, err)
			require.NoError(t, WriteSQLite(ctx, db, tt.name, "v", col))

			back, err := ReadSQLite(ctx, db, tt.name, "v", tt.typ)
			require.NoError(t, err)
			assert.True(t, Equal(col, back), "got %v, want %v", back.Values(), col.Values())
		})
	}
}

func TestReadSQLiteMissingTable(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = ReadSQLite(context.Background(), db, "nope", "v", typesystem.Int64)
	assert.Error(t, err)
}

func TestExportJSON(t *testing.T) {
	c, err := FromSlice(typesystem.Int64, []any{2, nil, 4})
	require.NoError(t, err)

	data, err := ExportJSON(c)
	require.NoError(t, err)

	var got struct {
		Type   string `json:"type"`
		Values []any  `json:"values"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "int64", got.Type)
	assert.Equal(t, []any{2.0, nil, 4.0}, got.Values)
}

func TestProtoRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		typ  typesystem.Type
		vals []any
	}{
		{typesystem.Int64, []any{int64(2), nil, int64(4)}},
		{typesystem.Float32, []any{float32(0.5), nil}},
		{typesystem.Uint8, []any{uint64(7), nil}},
		{typesystem.DString, []any{"AB", nil, "CD"}},
	} {
		col, err := FromSlice(tc.typ, tc.vals)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, ExportProto(&buf, col))

		back, err := ImportProto(&buf, tc.typ)
		require.NoError(t, err)
		assert.True(t, Equal(col, back), "%s: got %v, want %v", tc.typ, back.Values(), col.Values())
	}
}
