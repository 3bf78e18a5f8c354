package udf

import (
	"errors"
	"fmt"

	"github.com/funvibe/coludf/internal/typesystem"
)

// Validate checks that fn is a well-formed typed graph: every node carries a
// type, parameters agree with the signature and constants hold a Go value of
// the right kind. It does not check operator applicability; lowering does.
func Validate(fn *Function) error {
	if fn == nil || fn.Body == nil {
		return errors.New("function has no body")
	}
	if fn.Param == nil {
		return fmt.Errorf("%s: parameter has no type", fn.Name)
	}

	var errs []error
	Walk(fn.Body, func(n Node) {
		if n.Type() == nil {
			errs = append(errs, fmt.Errorf("untyped node %s", n))
			return
		}
		switch n := n.(type) {
		case *Param:
			if !typesystem.Equal(n.T, fn.Param) {
				errs = append(errs, fmt.Errorf("parameter used as %s, declared %s", n.T, fn.Param))
			}
		case *Const:
			if err := checkConst(n); err != nil {
				errs = append(errs, err)
			}
		case *Call:
			if n.Op >= opCount {
				errs = append(errs, fmt.Errorf("unknown operator %d", n.Op))
			}
		case *IfElse:
			if n.Cond == nil || n.Then == nil || n.Else == nil {
				errs = append(errs, errors.New("conditional is missing a branch"))
			}
		case *Cast:
			if n.Arg == nil {
				errs = append(errs, errors.New("cast has no argument"))
			}
		}
	})
	if len(errs) > 0 {
		return fmt.Errorf("%s: %w", fn.Name, errors.Join(errs...))
	}
	return nil
}

func checkConst(c *Const) error {
	t := c.T
	if inner, ok := typesystem.MaskedValue(t); ok {
		if c.Null {
			return nil
		}
		t = inner
	}
	ok := false
	switch t.Class() {
	case typesystem.ClassNA:
		ok = true
	case typesystem.ClassBoolean:
		_, ok = c.Value.(bool)
	case typesystem.ClassInteger:
		switch c.Value.(type) {
		case int64, uint64:
			ok = true
		}
	case typesystem.ClassDatetime, typesystem.ClassTimedelta:
		_, ok = c.Value.(int64)
	case typesystem.ClassFloat:
		_, ok = c.Value.(float64)
	case typesystem.ClassStringLiteral, typesystem.ClassStringView, typesystem.ClassDynamicString:
		_, ok = c.Value.(string)
	}
	if !ok {
		return fmt.Errorf("constant %v (%T) does not fit %s", c.Value, c.Value, c.T)
	}
	return nil
}
