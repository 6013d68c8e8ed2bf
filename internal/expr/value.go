// Package expr implements the catalog's validation predicate language:
//
//	validate(is_pos_int($count$) AND $count$ <= 100, "count must be between 1 and 100")
//
// A validation string is parsed once into a Program (a small tagged AST) and
// evaluated against an Env binding parameter names to their values. There is
// no dynamic code execution.
package expr

import (
	"strconv"
	"strings"
)

// Kind is the dynamic type of a Value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Value is the result of evaluating a node.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
}

func String(s string) Value  { return Value{Kind: KindString, Str: s} }
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func Boolean(b bool) Value   { return Value{Kind: KindBool, Bool: b} }

// Text returns the string form of v.
func (v Value) Text() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// Float returns v as a number if it has a numeric reading.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindBool:
		return 0, false
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
}

// Truthy reports whether v counts as true in a boolean context. Strings in
// the boolean vocabulary read as that boolean; other strings are true when
// non-empty.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num != 0
	default:
		if b, ok := ParseBool(v.Str); ok {
			return b
		}
		return v.Str != ""
	}
}

// ParseBool parses the catalog's loose boolean vocabulary: 1, 0, true and
// false, case-insensitively.
func ParseBool(s string) (value, ok bool) {
	switch strings.ToLower(s) {
	case "1", "true":
		return true, true
	case "0", "false":
		return false, true
	default:
		return false, false
	}
}
