package typesystem

import (
	"fmt"
	"strings"
)

// UnsupportedOperationError indicates that no lowering is registered for an
// operator applied to the given operand types.
type UnsupportedOperationError struct {
	Op   string
	Args []Type
}

func (e *UnsupportedOperationError) Error() string {
	names := make([]string, len(e.Args))
	for i, a := range e.Args {
		names[i] = a.String()
	}
	return fmt.Sprintf("unsupported operation: %s(%s)", e.Op, strings.Join(names, ", "))
}

func NewUnsupportedOperationError(op string, args ...Type) *UnsupportedOperationError {
	return &UnsupportedOperationError{Op: op, Args: args}
}

// TypeMismatchError indicates that no coercion rule converts From to To.
type TypeMismatchError struct {
	From   Type
	To     Type
	Reason string
}

func (e *TypeMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("type mismatch: cannot convert %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("type mismatch: cannot convert %s to %s", e.From, e.To)
}

func NewTypeMismatchError(from, to Type, reason string) *TypeMismatchError {
	return &TypeMismatchError{From: from, To: to, Reason: reason}
}
