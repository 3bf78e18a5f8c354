package textlib

import "fmt"

// Routine identifies an entry point of the library. Compiled chunks refer to
// routines by this number.
type Routine uint8

const (
	RoutineLen Routine = iota
	RoutineContains
	RoutineEq
	RoutineNe
	RoutineLt
	RoutineLe
	RoutineGt
	RoutineGe
	RoutineStartsWith
	RoutineEndsWith
	RoutineFind
	RoutineRFind
	RoutineCount
	RoutineIsDigit
	RoutineIsAlpha
	RoutineIsAlnum
	RoutineIsNumeric
	RoutineIsDecimal
	RoutineIsSpace
	RoutineIsUpper
	RoutineIsLower
	RoutineUpper
	RoutineLower
	RoutineFromView

	routineCount
)

// Shape describes the calling convention of a routine.
type Shape uint8

const (
	// ShapeLength: (view) -> int32
	ShapeLength Shape = iota
	// ShapePredicate: (view, view) -> bool
	ShapePredicate
	// ShapeIndex: (view, view) -> int32
	ShapeIndex
	// ShapeClassify: (view, table) -> bool
	ShapeClassify
	// ShapeTransform: (view, out dstring) -> int32
	ShapeTransform
)

type routineInfo struct {
	name  string
	shape Shape
}

var routines = [routineCount]routineInfo{
	RoutineLen:        {"len", ShapeLength},
	RoutineContains:   {"contains", ShapePredicate},
	RoutineEq:         {"eq", ShapePredicate},
	RoutineNe:         {"ne", ShapePredicate},
	RoutineLt:         {"lt", ShapePredicate},
	RoutineLe:         {"le", ShapePredicate},
	RoutineGt:         {"gt", ShapePredicate},
	RoutineGe:         {"ge", ShapePredicate},
	RoutineStartsWith: {"startswith", ShapePredicate},
	RoutineEndsWith:   {"endswith", ShapePredicate},
	RoutineFind:       {"find", ShapeIndex},
	RoutineRFind:      {"rfind", ShapeIndex},
	RoutineCount:      {"count", ShapeIndex},
	RoutineIsDigit:    {"isdigit", ShapeClassify},
	RoutineIsAlpha:    {"isalpha", ShapeClassify},
	RoutineIsAlnum:    {"isalnum", ShapeClassify},
	RoutineIsNumeric:  {"isnumeric", ShapeClassify},
	RoutineIsDecimal:  {"isdecimal", ShapeClassify},
	RoutineIsSpace:    {"isspace", ShapeClassify},
	RoutineIsUpper:    {"isupper", ShapeClassify},
	RoutineIsLower:    {"islower", ShapeClassify},
	RoutineUpper:      {"upper", ShapeTransform},
	RoutineLower:      {"lower", ShapeTransform},
	RoutineFromView:   {"dstring_from_view", ShapeTransform},
}

var (
	predicates = map[Routine]func(a, b *StringView) bool{
		RoutineContains:   Contains,
		RoutineEq:         Eq,
		RoutineNe:         Ne,
		RoutineLt:         Lt,
		RoutineLe:         Le,
		RoutineGt:         Gt,
		RoutineGe:         Ge,
		RoutineStartsWith: StartsWith,
		RoutineEndsWith:   EndsWith,
	}
	indexers = map[Routine]func(a, b *StringView) int32{
		RoutineFind:  Find,
		RoutineRFind: RFind,
		RoutineCount: Count,
	}
	classifiers = map[Routine]func(s *StringView, t *CharTable) bool{
		RoutineIsDigit:   IsDigit,
		RoutineIsAlpha:   IsAlpha,
		RoutineIsAlnum:   IsAlnum,
		RoutineIsNumeric: IsNumeric,
		RoutineIsDecimal: IsDecimal,
		RoutineIsSpace:   IsSpace,
		RoutineIsUpper:   IsUpper,
		RoutineIsLower:   IsLower,
	}
	transforms = map[Routine]func(src *StringView, dst *DynamicString, alloc Allocator) int32{
		RoutineUpper:    Upper,
		RoutineLower:    Lower,
		RoutineFromView: FromView,
	}
)

func (r Routine) String() string {
	if r >= routineCount {
		return fmt.Sprintf("routine(%d)", uint8(r))
	}
	return routines[r].name
}

// Valid reports whether r names a routine of this library.
func (r Routine) Valid() bool { return r < routineCount }

// Shape returns the calling convention of r.
func (r Routine) Shape() Shape { return routines[r].shape }

// LookupRoutine finds a routine by name.
func LookupRoutine(name string) (Routine, bool) {
	for i, info := range routines {
		if info.name == name {
			return Routine(i), true
		}
	}
	return 0, false
}

// CallPredicate invokes a ShapePredicate routine.
func CallPredicate(r Routine, a, b *StringView) (bool, error) {
	fn, ok := predicates[r]
	if !ok {
		return false, fmt.Errorf("%s is not a predicate routine", r)
	}
	return fn(a, b), nil
}

// CallIndex invokes a ShapeIndex routine.
func CallIndex(r Routine, a, b *StringView) (int32, error) {
	fn, ok := indexers[r]
	if !ok {
		return 0, fmt.Errorf("%s is not an index routine", r)
	}
	return fn(a, b), nil
}

// CallClassify invokes a ShapeClassify routine.
func CallClassify(r Routine, s *StringView, t *CharTable) (bool, error) {
	fn, ok := classifiers[r]
	if !ok {
		return false, fmt.Errorf("%s is not a classification routine", r)
	}
	return fn(s, t), nil
}

// CallTransform invokes a ShapeTransform routine.
func CallTransform(r Routine, src *StringView, dst *DynamicString, alloc Allocator) (int32, error) {
	fn, ok := transforms[r]
	if !ok {
		return 0, fmt.Errorf("%s is not a transform routine", r)
	}
	return fn(src, dst, alloc), nil
}
