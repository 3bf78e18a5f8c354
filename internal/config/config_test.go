package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/udf"
)

func TestParseConfigBasic(t *testing.T) {
	data := []byte(`
launch:
  workers: 4
  block_size: 256
logging:
  level: debug
  format: json
`)
	cfg, err := ParseConfig(data, "coludf.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Launch.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Launch.Workers)
	}
	if cfg.Launch.BlockSize != 256 {
		t.Errorf("block_size = %d, want 256", cfg.Launch.BlockSize)
	}
	if cfg.Launch.ArenaSize != DefaultArenaSize {
		t.Errorf("arena_size = %d, want default %d", cfg.Launch.ArenaSize, DefaultArenaSize)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Logging.Color != DefaultColor {
		t.Errorf("color = %q, want %q", cfg.Logging.Color, DefaultColor)
	}
}

func TestParseConfigEmpty(t *testing.T) {
	cfg, err := ParseConfig(nil, "coludf.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("empty config = %+v, want defaults %+v", cfg, Default())
	}
}

func TestParseConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"negative workers", "launch: {workers: -1}", "launch.workers"},
		{"negative block", "launch: {block_size: -8}", "launch.block_size"},
		{"level", "logging: {level: loud}", "logging.level"},
		{"format", "logging: {format: xml}", "logging.format"},
		{"color", "logging: {color: sometimes}", "logging.color"},
		{"syntax", "launch: [", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data), "coludf.yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	path, err := FindConfig(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" && strings.HasPrefix(path, root) {
		t.Errorf("found %q before creating one", path)
	}

	want := filepath.Join(root, "coludf.yml")
	if err := os.WriteFile(want, []byte("launch: {workers: 2}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	path, err = FindConfig(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Launch.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Launch.Workers)
	}
}

const addOneKernel = `
name: add_one
input: Masked(int64)
output: int64
body:
  if: {op: is_not, type: bool, args: [{param: 0}, {na: true}]}
  then: {op: add, type: Masked(int64), args: [{param: 0}, {const: 1, type: int64}]}
  else: {na: true}
  type: Masked(int64)
`

func TestParseKernelAddOne(t *testing.T) {
	k, err := ParseKernel([]byte(addOneKernel), "add_one.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k.Function.Name != "add_one" {
		t.Errorf("name = %q, want add_one", k.Function.Name)
	}
	if !typesystem.Equal(k.Input, typesystem.Int64) {
		t.Errorf("input = %s, want int64", k.Input)
	}
	if !typesystem.Equal(k.Output, typesystem.Int64) {
		t.Errorf("output = %s, want int64", k.Output)
	}

	ifElse, ok := k.Function.Body.(*udf.IfElse)
	if !ok {
		t.Fatalf("body = %T, want *udf.IfElse", k.Function.Body)
	}
	then, ok := ifElse.Then.(*udf.Call)
	if !ok || then.Op != udf.OpAdd {
		t.Fatalf("then = %s, want add", ifElse.Then)
	}
	c, ok := then.Args[1].(*udf.Const)
	if !ok || c.Value != int64(1) {
		t.Errorf("constant = %v, want int64 1", then.Args[1])
	}
	if _, ok := ifElse.Else.(*udf.Const); !ok {
		t.Errorf("else = %T, want NA constant", ifElse.Else)
	}
}

func TestParseKernelStringColumn(t *testing.T) {
	data := `
name: shout
input: Masked(dstring)
output: dstring
body: {op: upper, type: Masked(dstring), args: [{param: 0}]}
`
	k, err := ParseKernel([]byte(data), "shout.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !typesystem.Equal(k.Input, typesystem.StrView) {
		t.Errorf("input = %s, want string_view", k.Input)
	}
}

func TestParseKernelConstants(t *testing.T) {
	tests := []struct {
		node  string
		value any
		typ   string
		null  bool
	}{
		{"{const: 3}", int64(3), "int64", false},
		{"{const: 2.5}", 2.5, "float64", false},
		{"{const: true}", true, "bool", false},
		{`{const: "ab"}`, "ab", `Literal[str]("ab")`, false},
		{"{const: 2, type: float32}", float64(2), "float32", false},
		{"{const: 7, type: uint8}", uint64(7), "uint8", false},
		{"{const: 5, type: Masked(int32)}", int64(5), "Masked(int32)", false},
		{"{null: true, type: Masked(int32)}", nil, "Masked(int32)", true},
	}
	for _, tt := range tests {
		t.Run(tt.node, func(t *testing.T) {
			data := "name: k\ninput: Masked(int64)\noutput: int64\nbody: " + tt.node + "\n"
			k, err := ParseKernel([]byte(data), "k.yaml")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			c, ok := k.Function.Body.(*udf.Const)
			if !ok {
				t.Fatalf("body = %T, want *udf.Const", k.Function.Body)
			}
			if c.Value != tt.value {
				t.Errorf("value = %#v, want %#v", c.Value, tt.value)
			}
			if c.T.String() != tt.typ {
				t.Errorf("type = %s, want %s", c.T, tt.typ)
			}
			if c.Null != tt.null {
				t.Errorf("null = %v, want %v", c.Null, tt.null)
			}
		})
	}
}

func TestParseKernelErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"no name", "input: int64\noutput: int64\nbody: {param: 0}", "no name"},
		{"no body", "name: k\ninput: int64\noutput: int64", "no body"},
		{"bad input", "name: k\ninput: int128\noutput: int64\nbody: {param: 0}", "input"},
		{"missing output", "name: k\ninput: int64\nbody: {param: 0}", "output type is missing"},
		{"two kinds", "name: k\ninput: int64\noutput: int64\nbody: {param: 0, na: true}", "exactly one"},
		{"second param", "name: k\ninput: int64\noutput: int64\nbody: {param: 1}", "one parameter"},
		{"unknown op", "name: k\ninput: int64\noutput: int64\nbody: {op: frobnicate, type: int64}", "unknown operator"},
		{"untyped op", "name: k\ninput: int64\noutput: int64\nbody: {op: add, args: [{param: 0}, {param: 0}]}", "needs a type"},
		{"bad constant", "name: k\ninput: int64\noutput: int64\nbody: {const: yes-please, type: int64}", "does not fit"},
		{"unmasked null", "name: k\ninput: int64\noutput: int64\nbody: {null: true, type: int64}", "must be Masked"},
		{"half if", "name: k\ninput: int64\noutput: int64\nbody: {if: {const: true}, then: {param: 0}, type: int64}", "then and else"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseKernel([]byte(tt.data), "k.yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestConstValueKind(t *testing.T) {
	_, err := constValue(-1, typesystem.Uint32)
	if !errors.Is(err, errConstKind) {
		t.Errorf("err = %v, want errConstKind", err)
	}
}

func TestLoadKernelMissing(t *testing.T) {
	_, err := LoadKernel(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "reading kernel") {
		t.Errorf("err = %v, want reading error", err)
	}
}
