package classad

import (
	"math"
	"strconv"
	"strings"
)

// maxEvalDepth bounds attribute reference chains so that self-referential ads
// (A = B; B = A) evaluate to error instead of recursing forever.
const maxEvalDepth = 64

type evalState struct {
	ad    *ClassAd
	depth int
}

// Evaluate evaluates e with no enclosing ad; every attribute reference is undefined.
func Evaluate(e Expr) Value {
	return e.eval(&evalState{})
}

func (l *Literal) eval(_ *evalState) Value {
	return l.Value
}

func (a *AttrRef) eval(st *evalState) Value {
	if st.ad == nil || strings.EqualFold(a.Scope, "TARGET") {
		return Undefined()
	}
	e, ok := st.ad.Lookup(a.Name)
	if !ok {
		return Undefined()
	}
	if st.depth >= maxEvalDepth {
		return Error()
	}
	st.depth++
	v := e.eval(st)
	st.depth--
	return v
}

func (u *UnaryOp) eval(st *evalState) Value {
	x := u.X.eval(st)
	switch x.typ {
	case UndefinedValue, ErrorValue:
		return x
	}
	switch u.Op {
	case "-":
		switch x.typ {
		case IntegerValue:
			return Int(-x.i)
		case RealValue:
			return Real(-x.r)
		}
	case "+":
		if x.IsNumber() {
			return x
		}
	case "!":
		if x.typ == BooleanValue {
			return Bool(!x.b)
		}
	}
	return Error()
}

func (b *BinaryOp) eval(st *evalState) Value {
	switch b.Op {
	case "&&":
		return evalAnd(b.L.eval(st), func() Value { return b.R.eval(st) })
	case "||":
		return evalOr(b.L.eval(st), func() Value { return b.R.eval(st) })
	}
	l, r := b.L.eval(st), b.R.eval(st)
	switch b.Op {
	case "=?=", "is":
		return Bool(l.SameAs(r))
	case "=!=", "isnt":
		return Bool(!l.SameAs(r))
	}
	if l.typ == ErrorValue || r.typ == ErrorValue {
		return Error()
	}
	if l.typ == UndefinedValue || r.typ == UndefinedValue {
		return Undefined()
	}
	switch b.Op {
	case "+", "-", "*", "/", "%":
		return evalArithmetic(b.Op, l, r)
	case "==", "!=", "<", "<=", ">", ">=":
		return evalComparison(b.Op, l, r)
	}
	return Error()
}

func evalAnd(l Value, right func() Value) Value {
	switch l.typ {
	case ErrorValue:
		return Error()
	case BooleanValue:
		if !l.b {
			return Bool(false)
		}
		r := right()
		if r.typ == BooleanValue || r.typ == UndefinedValue {
			return r
		}
		return Error()
	case UndefinedValue:
		r := right()
		if r.typ == BooleanValue && !r.b {
			return Bool(false)
		}
		if r.typ == ErrorValue {
			return Error()
		}
		return Undefined()
	}
	return Error()
}

func evalOr(l Value, right func() Value) Value {
	switch l.typ {
	case ErrorValue:
		return Error()
	case BooleanValue:
		if l.b {
			return Bool(true)
		}
		r := right()
		if r.typ == BooleanValue || r.typ == UndefinedValue {
			return r
		}
		return Error()
	case UndefinedValue:
		r := right()
		if r.typ == BooleanValue && r.b {
			return Bool(true)
		}
		if r.typ == ErrorValue {
			return Error()
		}
		return Undefined()
	}
	return Error()
}

func evalArithmetic(op string, l, r Value) Value {
	if !l.IsNumber() || !r.IsNumber() {
		return Error()
	}
	if l.typ == IntegerValue && r.typ == IntegerValue {
		switch op {
		case "+":
			return Int(l.i + r.i)
		case "-":
			return Int(l.i - r.i)
		case "*":
			return Int(l.i * r.i)
		case "/":
			if r.i == 0 {
				return Error()
			}
			return Int(l.i / r.i)
		case "%":
			if r.i == 0 {
				return Error()
			}
			return Int(l.i % r.i)
		}
		return Error()
	}
	lf, _ := l.RealValue()
	rf, _ := r.RealValue()
	switch op {
	case "+":
		return Real(lf + rf)
	case "-":
		return Real(lf - rf)
	case "*":
		return Real(lf * rf)
	case "/":
		if rf == 0 {
			return Error()
		}
		return Real(lf / rf)
	}
	return Error()
}

func evalComparison(op string, l, r Value) Value {
	var cmp int
	switch {
	case l.IsNumber() && r.IsNumber():
		lf, _ := l.RealValue()
		rf, _ := r.RealValue()
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	case l.typ == StringValue && r.typ == StringValue:
		// string comparison in ClassAds is case-insensitive
		cmp = strings.Compare(strings.ToLower(l.s), strings.ToLower(r.s))
	case l.typ == BooleanValue && r.typ == BooleanValue:
		if op != "==" && op != "!=" {
			return Error()
		}
		if l.b != r.b {
			cmp = 1
		}
	default:
		return Error()
	}
	switch op {
	case "==":
		return Bool(cmp == 0)
	case "!=":
		return Bool(cmp != 0)
	case "<":
		return Bool(cmp < 0)
	case "<=":
		return Bool(cmp <= 0)
	case ">":
		return Bool(cmp > 0)
	case ">=":
		return Bool(cmp >= 0)
	}
	return Error()
}

func (c *Conditional) eval(st *evalState) Value {
	cond := c.Cond.eval(st)
	switch cond.typ {
	case BooleanValue:
		if cond.b {
			return c.Then.eval(st)
		}
		return c.Else.eval(st)
	case UndefinedValue:
		return Undefined()
	}
	return Error()
}

func (l *ListExpr) eval(st *evalState) Value {
	items := make([]Value, len(l.Items))
	for i, item := range l.Items {
		items[i] = item.eval(st)
	}
	return List(items...)
}

func (f *FuncCall) eval(st *evalState) Value {
	name := strings.ToLower(f.Name)
	if name == "ifthenelse" {
		if len(f.Args) != 3 {
			return Error()
		}
		return (&Conditional{Cond: f.Args[0], Then: f.Args[1], Else: f.Args[2]}).eval(st)
	}
	args := make([]Value, len(f.Args))
	for i, arg := range f.Args {
		args[i] = arg.eval(st)
	}
	switch name {
	case "isundefined":
		if len(args) != 1 {
			return Error()
		}
		return Bool(args[0].typ == UndefinedValue)
	case "iserror":
		if len(args) != 1 {
			return Error()
		}
		return Bool(args[0].typ == ErrorValue)
	case "strcat":
		var sb strings.Builder
		for _, arg := range args {
			s, ok := toString(arg)
			if !ok {
				return arg
			}
			sb.WriteString(s)
		}
		return String(sb.String())
	case "string":
		if len(args) != 1 {
			return Error()
		}
		if s, ok := toString(args[0]); ok {
			return String(s)
		}
		return args[0]
	case "int":
		if len(args) != 1 {
			return Error()
		}
		return toInt(args[0])
	case "real":
		if len(args) != 1 {
			return Error()
		}
		return toReal(args[0])
	case "floor", "ceiling", "round":
		if len(args) != 1 {
			return Error()
		}
		r := toReal(args[0])
		if r.typ != RealValue {
			return r
		}
		switch name {
		case "floor":
			return Int(int64(math.Floor(r.r)))
		case "ceiling":
			return Int(int64(math.Ceil(r.r)))
		default:
			return Int(int64(math.Round(r.r)))
		}
	case "size":
		if len(args) != 1 {
			return Error()
		}
		switch args[0].typ {
		case StringValue:
			return Int(int64(len(args[0].s)))
		case ListValue:
			return Int(int64(len(args[0].list)))
		case UndefinedValue:
			return Undefined()
		}
	}
	return Error()
}

func toString(v Value) (string, bool) {
	switch v.typ {
	case StringValue:
		return v.s, true
	case IntegerValue, RealValue, BooleanValue:
		return v.String(), true
	}
	return "", false
}

func toInt(v Value) Value {
	switch v.typ {
	case IntegerValue, UndefinedValue, ErrorValue:
		return v
	case RealValue:
		return Int(int64(v.r))
	case BooleanValue:
		if v.b {
			return Int(1)
		}
		return Int(0)
	case StringValue:
		if i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64); err == nil {
			return Int(i)
		}
		if r, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64); err == nil {
			return Int(int64(r))
		}
	}
	return Error()
}

func toReal(v Value) Value {
	switch v.typ {
	case RealValue, UndefinedValue, ErrorValue:
		return v
	case IntegerValue:
		return Real(float64(v.i))
	case BooleanValue:
		if v.b {
			return Real(1)
		}
		return Real(0)
	case StringValue:
		if r, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64); err == nil {
			return Real(r)
		}
	}
	return Error()
}
