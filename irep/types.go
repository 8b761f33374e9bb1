package irep

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeKind classifies the value domain of an expression.
type TypeKind uint8

const (
	KindBool TypeKind = iota
	KindSigned
	KindUnsigned
)

// Type is a fixed-width scalar type. Bool is always width 1.
type Type struct {
	Kind  TypeKind
	Width uint
}

// BoolType is the type of conditions and comparisons.
var BoolType = Type{Kind: KindBool, Width: 1}

// Int returns a signed bit-vector type of the given width.
func Int(width uint) Type { return Type{Kind: KindSigned, Width: width} }

// Uint returns an unsigned bit-vector type of the given width.
func Uint(width uint) Type { return Type{Kind: KindUnsigned, Width: width} }

// IsBool reports whether t is the boolean type.
func (t Type) IsBool() bool { return t.Kind == KindBool }

// String returns the type as written in scenario files (bool, int32, uint8).
func (t Type) String() string {
	switch t.Kind {
	case KindBool:
		return "bool"
	case KindSigned:
		return "int" + strconv.FormatUint(uint64(t.Width), 10)
	case KindUnsigned:
		return "uint" + strconv.FormatUint(uint64(t.Width), 10)
	default:
		return fmt.Sprintf("Type<%d>", t.Kind)
	}
}

// ParseType parses the textual form produced by Type.String.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "bool" {
		return BoolType, nil
	}
	kind := KindSigned
	digits := ""
	switch {
	case strings.HasPrefix(s, "uint"):
		kind = KindUnsigned
		digits = s[len("uint"):]
	case strings.HasPrefix(s, "int"):
		digits = s[len("int"):]
	default:
		return Type{}, fmt.Errorf("unknown type %q", s)
	}
	width, err := strconv.ParseUint(digits, 10, 8)
	if err != nil || width == 0 || width > 64 {
		return Type{}, fmt.Errorf("invalid width in type %q", s)
	}
	return Type{Kind: kind, Width: uint(width)}, nil
}

// wrap truncates v to the width of t, sign-extending for signed types.
func wrap(v int64, t Type) int64 {
	switch t.Kind {
	case KindBool:
		if v != 0 {
			return 1
		}
		return 0
	case KindUnsigned:
		if t.Width >= 64 {
			return v
		}
		return int64(uint64(v) & (1<<t.Width - 1))
	default:
		if t.Width >= 64 {
			return v
		}
		shift := 64 - t.Width
		return (v << shift) >> shift
	}
}
