package typesystem

// Unify finds the common primitive type two operands are converted to before
// a comparison. It follows numpy promotion: mixed signedness widens to the
// next signed width, small integers meet float32 as float32 and everything
// else that meets a float becomes float64.
func Unify(a, b Type) (Type, error) {
	if Equal(a, b) {
		return a, nil
	}
	switch {
	case a.Class() == ClassBoolean && IsNumber(b):
		return b, nil
	case b.Class() == ClassBoolean && IsNumber(a):
		return a, nil
	}

	switch ta := a.(type) {
	case Integer:
		switch tb := b.(type) {
		case Integer:
			return unifyIntegers(ta, tb), nil
		case Float:
			return unifyIntFloat(ta, tb), nil
		}
	case Float:
		switch tb := b.(type) {
		case Integer:
			return unifyIntFloat(tb, ta), nil
		case Float:
			if tb.Bits > ta.Bits {
				return tb, nil
			}
			return ta, nil
		}
	case NPDatetime:
		if tb, ok := b.(NPDatetime); ok {
			return NPDatetime{Unit: FinerUnit(ta.Unit, tb.Unit)}, nil
		}
	case NPTimedelta:
		if tb, ok := b.(NPTimedelta); ok {
			return NPTimedelta{Unit: FinerUnit(ta.Unit, tb.Unit)}, nil
		}
	}
	return nil, NewTypeMismatchError(a, b, "no common type")
}

func unifyIntegers(a, b Integer) Type {
	if a.Signed == b.Signed {
		if b.Bits > a.Bits {
			return b
		}
		return a
	}
	signed, unsigned := a, b
	if !a.Signed {
		signed, unsigned = b, a
	}
	if signed.Bits > unsigned.Bits {
		return signed
	}
	if unsigned.Bits >= 64 {
		return Float64
	}
	return Integer{Bits: unsigned.Bits * 2, Signed: true}
}

func unifyIntFloat(i Integer, f Float) Type {
	if f.Bits == 32 && i.Bits <= 16 {
		return f
	}
	return Float64
}
