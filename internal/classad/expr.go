package classad

import (
	"strings"
)

// Expr is a parsed, unevaluated ClassAd expression. Exprs are immutable once
// built, so they may be shared between ads.
type Expr interface {
	writeTo(sb *strings.Builder)
	eval(st *evalState) Value
}

// Literal is a constant value.
type Literal struct {
	Value Value
}

// AttrRef is a reference to another attribute, optionally qualified by MY or TARGET.
type AttrRef struct {
	Scope string
	Name  string
}

type UnaryOp struct {
	Op string
	X  Expr
}

type BinaryOp struct {
	Op   string
	L, R Expr
}

// Conditional is the ternary c ? t : f.
type Conditional struct {
	Cond, Then, Else Expr
}

type ListExpr struct {
	Items []Expr
}

type FuncCall struct {
	Name string
	Args []Expr
}

// Unparse renders an expression back into ClassAd syntax.
func Unparse(e Expr) string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	e.writeTo(&sb)
	return sb.String()
}

// HasAttrRefs reports whether the expression refers to any attribute.
func HasAttrRefs(e Expr) bool {
	switch x := e.(type) {
	case *AttrRef:
		return true
	case *UnaryOp:
		return HasAttrRefs(x.X)
	case *BinaryOp:
		return HasAttrRefs(x.L) || HasAttrRefs(x.R)
	case *Conditional:
		return HasAttrRefs(x.Cond) || HasAttrRefs(x.Then) || HasAttrRefs(x.Else)
	case *ListExpr:
		for _, item := range x.Items {
			if HasAttrRefs(item) {
				return true
			}
		}
	case *FuncCall:
		for _, arg := range x.Args {
			if HasAttrRefs(arg) {
				return true
			}
		}
	}
	return false
}

func (l *Literal) writeTo(sb *strings.Builder) {
	writeValue(sb, l.Value)
}

func (a *AttrRef) writeTo(sb *strings.Builder) {
	if a.Scope != "" {
		sb.WriteString(a.Scope)
		sb.WriteByte('.')
	}
	sb.WriteString(a.Name)
}

func (u *UnaryOp) writeTo(sb *strings.Builder) {
	sb.WriteString(u.Op)
	switch u.X.(type) {
	case *BinaryOp, *Conditional:
		sb.WriteByte('(')
		u.X.writeTo(sb)
		sb.WriteByte(')')
	default:
		u.X.writeTo(sb)
	}
}

func (b *BinaryOp) writeTo(sb *strings.Builder) {
	writeOperand(sb, b.L, b.Op, false)
	sb.WriteByte(' ')
	sb.WriteString(b.Op)
	sb.WriteByte(' ')
	writeOperand(sb, b.R, b.Op, true)
}

// writeOperand parenthesises nested operators that bind more loosely than the
// parent, and right operands of equal precedence, so the output re-parses to
// the same tree.
func writeOperand(sb *strings.Builder, e Expr, parentOp string, right bool) {
	needParens := false
	switch x := e.(type) {
	case *BinaryOp:
		p, pp := precedence(x.Op), precedence(parentOp)
		needParens = p < pp || (right && p == pp)
	case *Conditional:
		needParens = true
	}
	if needParens {
		sb.WriteByte('(')
		e.writeTo(sb)
		sb.WriteByte(')')
		return
	}
	e.writeTo(sb)
}

func (c *Conditional) writeTo(sb *strings.Builder) {
	writeOperand(sb, c.Cond, "?", false)
	sb.WriteString(" ? ")
	c.Then.writeTo(sb)
	sb.WriteString(" : ")
	c.Else.writeTo(sb)
}

func (l *ListExpr) writeTo(sb *strings.Builder) {
	sb.WriteString("{ ")
	for i, item := range l.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		item.writeTo(sb)
	}
	sb.WriteString(" }")
}

func (f *FuncCall) writeTo(sb *strings.Builder) {
	sb.WriteString(f.Name)
	sb.WriteByte('(')
	for i, arg := range f.Args {
		if i > 0 {
			sb.WriteByte(',')
		}
		arg.writeTo(sb)
	}
	sb.WriteByte(')')
}

func precedence(op string) int {
	switch strings.ToLower(op) {
	case "?":
		return 0
	case "||":
		return 1
	case "&&":
		return 2
	case "==", "!=", "=?=", "=!=", "is", "isnt":
		return 3
	case "<", "<=", ">", ">=":
		return 4
	case "+", "-":
		return 5
	case "*", "/", "%":
		return 6
	}
	return 7
}
