package classad

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueType discriminates the variants of Value.
type ValueType int

const (
	UndefinedValue ValueType = iota
	ErrorValue
	BooleanValue
	IntegerValue
	RealValue
	StringValue
	ListValue
)

func (t ValueType) String() string {
	switch t {
	case UndefinedValue:
		return "undefined"
	case ErrorValue:
		return "error"
	case BooleanValue:
		return "boolean"
	case IntegerValue:
		return "integer"
	case RealValue:
		return "real"
	case StringValue:
		return "string"
	case ListValue:
		return "list"
	}
	return fmt.Sprintf("ValueType(%d)", int(t))
}

// Value is the result of evaluating an expression. The zero Value is undefined.
type Value struct {
	typ  ValueType
	b    bool
	i    int64
	r    float64
	s    string
	list []Value
}

func Undefined() Value          { return Value{typ: UndefinedValue} }
func Error() Value              { return Value{typ: ErrorValue} }
func Bool(b bool) Value         { return Value{typ: BooleanValue, b: b} }
func Int(i int64) Value         { return Value{typ: IntegerValue, i: i} }
func Real(r float64) Value      { return Value{typ: RealValue, r: r} }
func String(s string) Value     { return Value{typ: StringValue, s: s} }
func List(items ...Value) Value { return Value{typ: ListValue, list: items} }

func (v Value) Type() ValueType   { return v.typ }
func (v Value) IsUndefined() bool { return v.typ == UndefinedValue }
func (v Value) IsError() bool     { return v.typ == ErrorValue }

// IsNumber returns true for integer and real values.
func (v Value) IsNumber() bool {
	return v.typ == IntegerValue || v.typ == RealValue
}

func (v Value) BoolValue() (bool, bool) {
	if v.typ != BooleanValue {
		return false, false
	}
	return v.b, true
}

func (v Value) IntValue() (int64, bool) {
	if v.typ != IntegerValue {
		return 0, false
	}
	return v.i, true
}

// RealValue returns the value as a float64. Integers are converted.
func (v Value) RealValue() (float64, bool) {
	switch v.typ {
	case RealValue:
		return v.r, true
	case IntegerValue:
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) StringValue() (string, bool) {
	if v.typ != StringValue {
		return "", false
	}
	return v.s, true
}

func (v Value) ListValue() ([]Value, bool) {
	if v.typ != ListValue {
		return nil, false
	}
	return v.list, true
}

// SameAs implements the meta-equality (=?=) comparison: same type and same value,
// with case-sensitive string comparison.
func (v Value) SameAs(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case UndefinedValue, ErrorValue:
		return true
	case BooleanValue:
		return v.b == o.b
	case IntegerValue:
		return v.i == o.i
	case RealValue:
		return v.r == o.r
	case StringValue:
		return v.s == o.s
	case ListValue:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].SameAs(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value using ClassAd literal syntax.
func (v Value) String() string {
	var sb strings.Builder
	writeValue(&sb, v)
	return sb.String()
}

func writeValue(sb *strings.Builder, v Value) {
	switch v.typ {
	case UndefinedValue:
		sb.WriteString("undefined")
	case ErrorValue:
		sb.WriteString("error")
	case BooleanValue:
		if v.b {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case IntegerValue:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case RealValue:
		sb.WriteString(formatReal(v.r))
	case StringValue:
		sb.WriteString(quoteString(v.s))
	case ListValue:
		sb.WriteString("{ ")
		for i, item := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, item)
		}
		sb.WriteString(" }")
	}
}

// formatReal keeps a decimal point or exponent so the text parses back as a real.
// Infinities and NaN have no literal form and are written as conversions.
func formatReal(r float64) string {
	switch {
	case math.IsInf(r, 1):
		return `real("INF")`
	case math.IsInf(r, -1):
		return `real("-INF")`
	case math.IsNaN(r):
		return `real("NaN")`
	}
	s := strconv.FormatFloat(r, 'g', -1, 64)
	if strings.ContainsAny(s, ".eE") {
		return s
	}
	return s + ".0"
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
