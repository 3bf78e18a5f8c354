package lowering

import (
	"sync"

	"github.com/funvibe/coludf/internal/typesystem"
	"github.com/funvibe/coludf/internal/udf"
)

// Op is an operator tag of the catalogue.
type Op = udf.Op

// Operand is an argument that has already been evaluated into a local slot.
type Operand struct {
	Slot int
	Type typesystem.Type
}

// Signature is the typed application being lowered.
type Signature struct {
	Op     Op
	Args   []typesystem.Type
	Result typesystem.Type
}

// Impl emits code for one signature. It must leave exactly one value of
// sig.Result on the stack.
type Impl func(c *Context, sig Signature, args []Operand) error

// Pattern matches operand types by class.
type Pattern struct {
	Name  string
	Match func(typesystem.Type) bool
}

func classPattern(name string, classes ...typesystem.Class) Pattern {
	return Pattern{Name: name, Match: func(t typesystem.Type) bool {
		for _, c := range classes {
			if t.Class() == c {
				return true
			}
		}
		return false
	}}
}

var (
	Any           = Pattern{Name: "Any", Match: func(typesystem.Type) bool { return true }}
	MaskedAny     = classPattern("Masked", typesystem.ClassMasked)
	NA            = classPattern("NA", typesystem.ClassNA)
	Number        = classPattern("Number", typesystem.ClassInteger, typesystem.ClassFloat)
	Boolean       = classPattern("Boolean", typesystem.ClassBoolean)
	Datetime      = classPattern("Datetime", typesystem.ClassDatetime)
	Timedelta     = classPattern("Timedelta", typesystem.ClassTimedelta)
	StringView    = classPattern("StringView", typesystem.ClassStringView)
	DynamicString = classPattern("DynamicString", typesystem.ClassDynamicString)
	StringLiteral = classPattern("StringLiteral", typesystem.ClassStringLiteral)

	// Text is any raw string representation.
	Text = classPattern("Text", typesystem.ClassStringView, typesystem.ClassStringLiteral, typesystem.ClassDynamicString)

	// Scalar is any raw primitive that can be wrapped in Masked.
	Scalar = classPattern("Scalar", typesystem.ClassBoolean, typesystem.ClassInteger,
		typesystem.ClassFloat, typesystem.ClassDatetime, typesystem.ClassTimedelta)
)

// MaskedOf matches Masked types whose payload matches p.
func MaskedOf(p Pattern) Pattern {
	return Pattern{Name: "Masked(" + p.Name + ")", Match: func(t typesystem.Type) bool {
		inner, ok := typesystem.MaskedValue(t)
		return ok && p.Match(inner)
	}}
}

type entry struct {
	patterns []Pattern
	impl     Impl
}

func (e entry) matches(args []typesystem.Type) bool {
	if len(args) != len(e.patterns) {
		return false
	}
	for i, p := range e.patterns {
		if !p.Match(args[i]) {
			return false
		}
	}
	return true
}

// Registry is the closed dispatch table from (operator, operand classes) to a
// lowering. Lookup is first match in registration order.
type Registry struct {
	entries map[Op][]entry
	casts   []castRule
}

func newRegistry() *Registry {
	return &Registry{entries: make(map[Op][]entry)}
}

func (r *Registry) register(op Op, impl Impl, patterns ...Pattern) {
	r.entries[op] = append(r.entries[op], entry{patterns: patterns, impl: impl})
}

// Lookup returns the lowering registered for op applied to args.
func (r *Registry) Lookup(op Op, args []typesystem.Type) (Impl, error) {
	for _, e := range r.entries[op] {
		if e.matches(args) {
			return e.impl, nil
		}
	}
	return nil, typesystem.NewUnsupportedOperationError(op.String(), args...)
}

// Supports reports whether op has a lowering for args.
func (r *Registry) Supports(op Op, args ...typesystem.Type) bool {
	_, err := r.Lookup(op, args)
	return err == nil
}

var (
	defaultRegistry *Registry
	registryOnce    sync.Once
)

// DefaultRegistry returns the built-in table. It is built on first use and
// never modified afterwards.
func DefaultRegistry() *Registry {
	registryOnce.Do(func() {
		r := newRegistry()
		registerMasked(r)
		registerStrings(r)
		registerPacking(r)
		registerCasts(r)
		defaultRegistry = r
	})
	return defaultRegistry
}
