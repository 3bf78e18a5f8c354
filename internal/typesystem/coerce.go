package typesystem

// CanCoerce checks the primitive coercion table: it reports whether a value
// of type from can be converted to type to, and why not if it cannot.
//
// The table covers numeric widening and narrowing (float to integer
// truncates), boolean to and from numbers, and unit changes within datetime
// and within timedelta.
func CanCoerce(from, to Type) error {
	if Equal(from, to) {
		return nil
	}
	switch from.Class() {
	case ClassBoolean, ClassInteger, ClassFloat:
		switch to.Class() {
		case ClassBoolean, ClassInteger, ClassFloat:
			return nil
		}
	case ClassDatetime, ClassTimedelta:
		if from.Class() != to.Class() {
			break
		}
		fu, _ := TickUnit(from)
		tu, _ := TickUnit(to)
		if _, ok := UnitNanos(fu); !ok {
			return NewTypeMismatchError(from, to, "unknown unit "+fu)
		}
		if _, ok := UnitNanos(tu); !ok {
			return NewTypeMismatchError(from, to, "unknown unit "+tu)
		}
		return nil
	}
	return NewTypeMismatchError(from, to, "")
}
