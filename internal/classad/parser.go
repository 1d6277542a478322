package classad

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// ErrParse is wrapped by every error returned from Parse.
var ErrParse = errors.New("classad parse error")

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInt
	tokReal
	tokString
	tokIdent
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	src    string
	pos    int
	tokens []token
}

// multi-character operators first so that the longest match wins
var operators = []string{
	"=?=", "=!=", "==", "!=", "<=", ">=", "&&", "||",
	"<", ">", "+", "-", "*", "/", "%", "!", "?", ":", "(", ")", "{", "}", ",", ".",
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			l.tokens = append(l.tokens, token{kind: tokEOF, pos: l.pos})
			return l.tokens, nil
		}
		c := l.src[l.pos]
		switch {
		case c == '"':
			if err := l.lexString(); err != nil {
				return nil, err
			}
		case isDigit(c) || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
			l.lexNumber()
		case isIdentStart(c):
			start := l.pos
			for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
				l.pos++
			}
			l.tokens = append(l.tokens, token{kind: tokIdent, text: l.src[start:l.pos], pos: start})
		default:
			if !l.lexOperator() {
				return nil, errors.Wrapf(ErrParse, "unexpected character %q at offset %d", c, l.pos)
			}
		}
	}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && unicode.IsSpace(rune(l.src[l.pos])) {
		l.pos++
	}
}

func (l *lexer) lexString() error {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '"':
			l.pos++
			l.tokens = append(l.tokens, token{kind: tokString, text: sb.String(), pos: start})
			return nil
		case '\\':
			if l.pos+1 >= len(l.src) {
				return errors.Wrapf(ErrParse, "unterminated escape at offset %d", l.pos)
			}
			l.pos++
			switch e := l.src[l.pos]; e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(e)
			}
		default:
			sb.WriteByte(c)
		}
		l.pos++
	}
	return errors.Wrapf(ErrParse, "unterminated string starting at offset %d", start)
}

func (l *lexer) lexNumber() {
	start := l.pos
	isReal := false
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		isReal = true
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		p := l.pos + 1
		if p < len(l.src) && (l.src[p] == '+' || l.src[p] == '-') {
			p++
		}
		if p < len(l.src) && isDigit(l.src[p]) {
			isReal = true
			l.pos = p
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		}
	}
	kind := tokInt
	if isReal {
		kind = tokReal
	}
	l.tokens = append(l.tokens, token{kind: kind, text: l.src[start:l.pos], pos: start})
}

func (l *lexer) lexOperator() bool {
	for _, op := range operators {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.tokens = append(l.tokens, token{kind: tokOp, text: op, pos: l.pos})
			l.pos += len(op)
			return true
		}
	}
	return false
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }

// IsValidAttributeName reports whether name can be used as an attribute name.
func IsValidAttributeName(name string) bool {
	if name == "" || !isIdentStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isIdentPart(name[i]) {
			return false
		}
	}
	return true
}

// maxNesting bounds how deeply expressions may nest.
const maxNesting = 256

type parser struct {
	tokens []token
	pos    int
	depth  int
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxNesting {
		return errors.Wrapf(ErrParse, "expression nested deeper than %d at offset %d", maxNesting, p.peek().pos)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

// Parse parses the right hand side of a ClassAd attribute assignment.
func Parse(text string) (Expr, error) {
	tokens, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, errors.Wrapf(ErrParse, "unexpected %q at offset %d", t.text, t.pos)
	}
	return e, nil
}

// MustParse is Parse for expressions known to be valid; it panics otherwise.
func MustParse(text string) Expr {
	e, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return e
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(ops ...string) (string, bool) {
	t := p.peek()
	switch t.kind {
	case tokOp:
		for _, op := range ops {
			if t.text == op {
				return op, true
			}
		}
	case tokIdent:
		// is / isnt are keyword aliases for =?= / =!=
		lower := strings.ToLower(t.text)
		for _, op := range ops {
			if lower == op {
				return op, true
			}
		}
	}
	return "", false
}

func (p *parser) expect(op string) error {
	t := p.next()
	if t.kind != tokOp || t.text != op {
		if t.kind == tokEOF {
			return errors.Wrapf(ErrParse, "expected %q but reached end of input", op)
		}
		return errors.Wrapf(ErrParse, "expected %q at offset %d, got %q", op, t.pos, t.text)
	}
	return nil
}

func (p *parser) parseExpr() (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	cond, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if _, ok := p.isOp("?"); !ok {
		return cond, nil
	}
	p.next()
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Conditional{Cond: cond, Then: then, Else: els}, nil
}

var binaryLevels = [][]string{
	1: {"||"},
	2: {"&&"},
	3: {"==", "!=", "=?=", "=!=", "is", "isnt"},
	4: {"<", "<=", ">", ">="},
	5: {"+", "-"},
	6: {"*", "/", "%"},
}

func (p *parser) parseBinary(level int) (Expr, error) {
	if level >= len(binaryLevels) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.isOp(binaryLevels[level]...)
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, L: left, R: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	if op, ok := p.isOp("-", "+", "!"); ok {
		p.next()
		if t := p.peek(); op == "-" && t.kind == tokInt {
			// the most negative integer has no positive counterpart
			if _, err := strconv.ParseInt(t.text, 10, 64); err != nil {
				if i, err := strconv.ParseInt("-"+t.text, 10, 64); err == nil {
					p.next()
					return &Literal{Value: Int(i)}, nil
				}
			}
		}
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: op, X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokInt:
		i, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrParse, "bad integer %q", t.text)
		}
		return &Literal{Value: Int(i)}, nil
	case tokReal:
		r, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrParse, "bad real %q", t.text)
		}
		return &Literal{Value: Real(r)}, nil
	case tokString:
		return &Literal{Value: String(t.text)}, nil
	case tokIdent:
		return p.parseIdent(t)
	case tokOp:
		switch t.text {
		case "(":
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return e, nil
		case "{":
			return p.parseList()
		}
		return nil, errors.Wrapf(ErrParse, "unexpected %q at offset %d", t.text, t.pos)
	}
	return nil, errors.Wrap(ErrParse, "unexpected end of input")
}

func (p *parser) parseIdent(t token) (Expr, error) {
	switch strings.ToLower(t.text) {
	case "true":
		return &Literal{Value: Bool(true)}, nil
	case "false":
		return &Literal{Value: Bool(false)}, nil
	case "undefined":
		return &Literal{Value: Undefined()}, nil
	case "error":
		return &Literal{Value: Error()}, nil
	}
	if _, ok := p.isOp("("); ok {
		p.next()
		args, err := p.parseArgs(")")
		if err != nil {
			return nil, err
		}
		return &FuncCall{Name: t.text, Args: args}, nil
	}
	if _, ok := p.isOp("."); ok {
		p.next()
		name := p.next()
		if name.kind != tokIdent {
			return nil, errors.Wrapf(ErrParse, "expected attribute name after %s. at offset %d", t.text, name.pos)
		}
		return &AttrRef{Scope: t.text, Name: name.text}, nil
	}
	return &AttrRef{Name: t.text}, nil
}

func (p *parser) parseList() (Expr, error) {
	items, err := p.parseArgs("}")
	if err != nil {
		return nil, err
	}
	return &ListExpr{Items: items}, nil
}

func (p *parser) parseArgs(closing string) ([]Expr, error) {
	var args []Expr
	if _, ok := p.isOp(closing); ok {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if _, ok := p.isOp(","); ok {
			p.next()
			continue
		}
		if err := p.expect(closing); err != nil {
			return nil, err
		}
		return args, nil
	}
}
