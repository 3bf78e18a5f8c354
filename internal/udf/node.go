package udf

import (
	"fmt"
	"strings"

	"github.com/funvibe/coludf/internal/typesystem"
)

// Node is one typed operation in a user function body. Graphs arrive fully
// typed: every node knows its result type.
type Node interface {
	Type() typesystem.Type
	String() string
	node()
}

// Function is a row-wise user function of one parameter.
type Function struct {
	Name  string
	Param typesystem.Type
	Body  Node
}

func (f *Function) String() string {
	return fmt.Sprintf("def %s(x: %s) -> %s: %s", f.Name, f.Param, f.Body.Type(), f.Body)
}

// Param refers to the function's parameter.
type Param struct {
	T typesystem.Type
}

func (p *Param) Type() typesystem.Type { return p.T }
func (p *Param) String() string        { return "x" }
func (*Param) node()                   {}

// Const is a literal. Value holds an int64, uint64, float64, bool or string;
// it is ignored for NA and for a null Masked constant.
type Const struct {
	Value any
	T     typesystem.Type
	Null  bool
}

func (c *Const) Type() typesystem.Type { return c.T }

func (c *Const) String() string {
	switch {
	case c.T.Class() == typesystem.ClassNA:
		return "NA"
	case c.Null:
		return fmt.Sprintf("%s(NA)", c.T)
	case c.T.Class() == typesystem.ClassStringLiteral:
		return fmt.Sprintf("%q", c.Value)
	}
	return fmt.Sprintf("%v:%s", c.Value, c.T)
}

func (*Const) node() {}

// Call applies an operator to its arguments.
type Call struct {
	Op   Op
	Args []Node
	T    typesystem.Type
}

func (c *Call) Type() typesystem.Type { return c.T }

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s):%s", c.Op, strings.Join(args, ", "), c.T)
}

func (*Call) node() {}

// IfElse is a conditional expression. Both branches are converted to T.
type IfElse struct {
	Cond Node
	Then Node
	Else Node
	T    typesystem.Type
}

func (n *IfElse) Type() typesystem.Type { return n.T }

func (n *IfElse) String() string {
	return fmt.Sprintf("(%s if %s else %s):%s", n.Then, n.Cond, n.Else, n.T)
}

func (*IfElse) node() {}

// Cast converts Arg to T through the coercion rules.
type Cast struct {
	Arg Node
	T   typesystem.Type
}

func (c *Cast) Type() typesystem.Type { return c.T }
func (c *Cast) String() string        { return fmt.Sprintf("%s(%s)", c.T, c.Arg) }
func (*Cast) node()                   {}

// Walk calls fn for n and every node below it, parents first.
func Walk(n Node, fn func(Node)) {
	fn(n)
	switch n := n.(type) {
	case *Call:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *IfElse:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		Walk(n.Else, fn)
	case *Cast:
		Walk(n.Arg, fn)
	}
}
