package udf

import "github.com/funvibe/coludf/internal/typesystem"

// Helpers for assembling graphs by hand.

func NewCall(op Op, t typesystem.Type, args ...Node) *Call {
	return &Call{Op: op, Args: args, T: t}
}

func Int(v int64) *Const { return &Const{Value: v, T: typesystem.Int64} }

func Float(v float64) *Const { return &Const{Value: v, T: typesystem.Float64} }

func Bool(v bool) *Const { return &Const{Value: v, T: typesystem.Bool} }

func Str(s string) *Const {
	return &Const{Value: s, T: typesystem.StringLiteral{Value: s}}
}

func NA() *Const { return &Const{T: typesystem.NA} }
