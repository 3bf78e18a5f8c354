package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/udf"
)

// KernelFile is a parsed kernel description: a typed function together with
// the element types of the columns it reads and writes.
type KernelFile struct {
	Function *udf.Function
	// Input is the element type of the input column.
	Input typesystem.Type
	// Output is the element type of the output column.
	Output typesystem.Type
}

type kernelSpec struct {
	Name   string    `yaml:"name"`
	Input  string    `yaml:"input"`
	Column string    `yaml:"column,omitempty"`
	Output string    `yaml:"output"`
	Body   *nodeSpec `yaml:"body"`
}

// nodeSpec is one body node. Exactly one of param, const, null, na, op, if or
// cast selects its kind.
type nodeSpec struct {
	Param *int       `yaml:"param"`
	Const *yaml.Node `yaml:"const"`
	NA    bool       `yaml:"na"`
	Null  bool       `yaml:"null"`
	Op    string     `yaml:"op"`
	Args  []nodeSpec `yaml:"args"`
	If    *nodeSpec  `yaml:"if"`
	Then  *nodeSpec  `yaml:"then"`
	Else  *nodeSpec  `yaml:"else"`
	Cast  *nodeSpec  `yaml:"cast"`
	Type  string     `yaml:"type"`

	line int
}

func (n *nodeSpec) UnmarshalYAML(value *yaml.Node) error {
	type plain nodeSpec
	if err := value.Decode((*plain)(n)); err != nil {
		return err
	}
	n.line = value.Line
	return nil
}

// LoadKernel reads and parses a kernel file.
func LoadKernel(path string) (*KernelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading kernel %s: %w", path, err)
	}
	return ParseKernel(data, path)
}

// ParseKernel parses kernel file content. The path argument is used only for
// error messages.
func ParseKernel(data []byte, path string) (*KernelFile, error) {
	var spec kernelSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("%s: kernel has no name", path)
	}
	if spec.Body == nil {
		return nil, fmt.Errorf("%s: kernel %s has no body", path, spec.Name)
	}

	param, err := parseType(spec.Input, "input")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	output, err := parseType(spec.Output, "output")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	input, err := columnType(param, spec.Column)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	p := &parser{param: param}
	body, err := p.node(spec.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	fn := &udf.Function{Name: spec.Name, Param: param, Body: body}
	if err := udf.Validate(fn); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &KernelFile{Function: fn, Input: input, Output: output}, nil
}

func parseType(s, field string) (typesystem.Type, error) {
	if s == "" {
		return nil, fmt.Errorf("%s type is missing", field)
	}
	t, err := typesystem.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}

// columnType derives the input column element from the parameter type.
// String parameters read views unless the file names a column type.
func columnType(param typesystem.Type, column string) (typesystem.Type, error) {
	if column != "" {
		return parseType(column, "column")
	}
	inner, ok := typesystem.MaskedValue(param)
	if !ok {
		inner = param
	}
	if inner.Class() == typesystem.ClassDynamicString {
		return typesystem.StrView, nil
	}
	return inner, nil
}

type parser struct {
	param typesystem.Type
}

func (p *parser) node(n *nodeSpec) (udf.Node, error) {
	kinds := 0
	for _, set := range []bool{n.Param != nil, n.Const != nil || n.Null, n.NA, n.Op != "", n.If != nil, n.Cast != nil} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return nil, fmt.Errorf("line %d: node must have exactly one of param, const, null, na, op, if, cast", n.line)
	}

	switch {
	case n.Param != nil:
		if *n.Param != 0 {
			return nil, fmt.Errorf("line %d: kernels take one parameter, got param %d", n.line, *n.Param)
		}
		return &udf.Param{T: p.param}, nil
	case n.NA:
		return udf.NA(), nil
	case n.Const != nil || n.Null:
		return p.constant(n)
	case n.Op != "":
		return p.call(n)
	case n.If != nil:
		return p.ifElse(n)
	default:
		return p.cast(n)
	}
}

func (p *parser) typeOf(n *nodeSpec) (typesystem.Type, error) {
	if n.Type == "" {
		return nil, fmt.Errorf("line %d: %s node needs a type", n.line, n.kind())
	}
	t, err := typesystem.Parse(n.Type)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", n.line, err)
	}
	return t, nil
}

func (n *nodeSpec) kind() string {
	switch {
	case n.Op != "":
		return n.Op
	case n.If != nil:
		return "if"
	case n.Cast != nil:
		return "cast"
	}
	return "const"
}

func (p *parser) call(n *nodeSpec) (udf.Node, error) {
	op, ok := udf.ParseOp(n.Op)
	if !ok {
		return nil, fmt.Errorf("line %d: unknown operator %q", n.line, n.Op)
	}
	t, err := p.typeOf(n)
	if err != nil {
		return nil, err
	}
	args := make([]udf.Node, len(n.Args))
	for i := range n.Args {
		if args[i], err = p.node(&n.Args[i]); err != nil {
			return nil, err
		}
	}
	return udf.NewCall(op, t, args...), nil
}

func (p *parser) ifElse(n *nodeSpec) (udf.Node, error) {
	if n.Then == nil || n.Else == nil {
		return nil, fmt.Errorf("line %d: if needs both then and else", n.line)
	}
	t, err := p.typeOf(n)
	if err != nil {
		return nil, err
	}
	cond, err := p.node(n.If)
	if err != nil {
		return nil, err
	}
	then, err := p.node(n.Then)
	if err != nil {
		return nil, err
	}
	els, err := p.node(n.Else)
	if err != nil {
		return nil, err
	}
	return &udf.IfElse{Cond: cond, Then: then, Else: els, T: t}, nil
}

func (p *parser) cast(n *nodeSpec) (udf.Node, error) {
	t, err := p.typeOf(n)
	if err != nil {
		return nil, err
	}
	arg, err := p.node(n.Cast)
	if err != nil {
		return nil, err
	}
	return &udf.Cast{Arg: arg, T: t}, nil
}

// constant decodes a literal. Without an explicit type, integers become
// int64, floats float64 and strings string literals.
func (p *parser) constant(n *nodeSpec) (udf.Node, error) {
	if n.Null {
		t, err := p.typeOf(n)
		if err != nil {
			return nil, err
		}
		if _, ok := typesystem.MaskedValue(t); !ok {
			return nil, fmt.Errorf("line %d: null constant must be Masked, got %s", n.line, t)
		}
		return &udf.Const{T: t, Null: true}, nil
	}

	var raw any
	if err := n.Const.Decode(&raw); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.line, err)
	}

	if n.Type == "" {
		switch v := raw.(type) {
		case int:
			return udf.Int(int64(v)), nil
		case float64:
			return udf.Float(v), nil
		case bool:
			return udf.Bool(v), nil
		case string:
			return udf.Str(v), nil
		}
		return nil, fmt.Errorf("line %d: cannot infer a type for constant %v", n.line, raw)
	}

	t, err := p.typeOf(n)
	if err != nil {
		return nil, err
	}
	elem := t
	if inner, ok := typesystem.MaskedValue(t); ok {
		elem = inner
	}
	v, err := constValue(raw, elem)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", n.line, err)
	}
	return &udf.Const{Value: v, T: t}, nil
}

var errConstKind = errors.New("constant does not fit its type")

func constValue(raw any, t typesystem.Type) (any, error) {
	switch t.Class() {
	case typesystem.ClassBoolean:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case typesystem.ClassInteger, typesystem.ClassDatetime, typesystem.ClassTimedelta:
		i, ok := raw.(int)
		if !ok {
			break
		}
		if it, unsigned := t.(typesystem.Integer); unsigned && !it.Signed {
			if i < 0 {
				return nil, fmt.Errorf("%w: %d is negative for %s", errConstKind, i, t)
			}
			return uint64(i), nil
		}
		return int64(i), nil
	case typesystem.ClassFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		}
	case typesystem.ClassStringLiteral, typesystem.ClassStringView, typesystem.ClassDynamicString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %v for %s", errConstKind, raw, t)
}
