package document

import (
	"math"
	"strconv"
)

// Kind identifies what a Value holds.
type Kind uint8

const (
	// KindInvalid is the zero Kind; it is what a missing value reports.
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindSection
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSection:
		return "section"
	default:
		return "nil"
	}
}

// Value is a parsed leaf or sub-table. Exactly one payload field is
// meaningful, selected by kind. The zero Value is KindInvalid.
type Value struct {
	kind    Kind
	b       bool
	i       int64
	f       float64
	s       string
	list    []Value
	section *Section
}

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List returns a list Value holding items in order.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

func sectionValue(s *Section) Value { return Value{kind: KindSection, section: s} }

// Kind reports what the value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNumber reports whether the value is an int or a float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsInt64 returns the numeric payload as int64. Floats are truncated
// toward zero and saturate at the int64 bounds; NaN becomes 0.
func (v Value) AsInt64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		return saturate(v.f), true
	default:
		return 0, false
	}
}

// AsFloat64 returns the numeric payload as float64.
func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// AsString returns the string payload. Numbers and booleans are not strings.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsList returns the list payload.
func (v Value) AsList() ([]Value, bool) {
	return v.list, v.kind == KindList
}

// AsSection returns the sub-table payload.
func (v Value) AsSection() (*Section, bool) {
	return v.section, v.kind == KindSection
}

// Scalar renders a bool, number or string as text. Lists and sections are
// not scalars.
func (v Value) Scalar() (string, bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindBool:
		return strconv.FormatBool(v.b), true
	case KindInt:
		return strconv.FormatInt(v.i, 10), true
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64), true
	default:
		return "", false
	}
}

// Strings renders the scalar items of a list in order. Nested lists and
// sections are skipped. A non-list value yields nil, false.
func (v Value) Strings() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	out := make([]string, 0, len(v.list))
	for _, item := range v.list {
		if s, ok := item.Scalar(); ok {
			out = append(out, s)
		}
	}
	return out, true
}

func saturate(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}
