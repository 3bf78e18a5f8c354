package typesystem

import (
	"fmt"
	"strconv"
	"strings"
)

var namedTypes = map[string]Type{
	"bool":        Bool,
	"boolean":     Bool,
	"int8":        Int8,
	"int16":       Int16,
	"int32":       Int32,
	"int64":       Int64,
	"uint8":       Uint8,
	"uint16":      Uint16,
	"uint32":      Uint32,
	"uint64":      Uint64,
	"float32":     Float32,
	"float64":     Float64,
	"NA":          NA,
	"string_view": StrView,
	"dstring":     DString,
}

// Parse reads a type written the way String prints it, for example
// "Masked(int64)", "datetime64[ms]" or `Literal[str]("abc")`.
func Parse(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if t, ok := namedTypes[s]; ok {
		return t, nil
	}

	if inner, ok := cut(s, "Masked(", ")"); ok {
		v, err := Parse(inner)
		if err != nil {
			return nil, err
		}
		if v.Class() == ClassMasked || v.Class() == ClassNA {
			return nil, fmt.Errorf("invalid type %q: cannot wrap %s in Masked", s, v)
		}
		return Masked{Value: v}, nil
	}
	if unit, ok := cut(s, "datetime64[", "]"); ok {
		if _, known := UnitNanos(unit); !known {
			return nil, fmt.Errorf("invalid type %q: unknown unit %q", s, unit)
		}
		return NPDatetime{Unit: unit}, nil
	}
	if unit, ok := cut(s, "timedelta64[", "]"); ok {
		if _, known := UnitNanos(unit); !known {
			return nil, fmt.Errorf("invalid type %q: unknown unit %q", s, unit)
		}
		return NPTimedelta{Unit: unit}, nil
	}
	if quoted, ok := cut(s, "Literal[str](", ")"); ok {
		v, err := strconv.Unquote(quoted)
		if err != nil {
			return nil, fmt.Errorf("invalid type %q: %w", s, err)
		}
		return StringLiteral{Value: v}, nil
	}
	return nil, fmt.Errorf("unknown type %q", s)
}

// MustParse is Parse for tests and static tables.
func MustParse(s string) Type {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func cut(s, prefix, suffix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, suffix) {
		return "", false
	}
	return s[len(prefix) : len(s)-len(suffix)], true
}
