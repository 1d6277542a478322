package classad

import (
	"strconv"

	"github.com/pkg/errors"
)

type AttributeType int

const (
	ExprType AttributeType = iota
	IntegerType
	FloatType
	StringType
)

func (t AttributeType) String() string {
	switch t {
	case IntegerType:
		return "INTEGER"
	case FloatType:
		return "FLOAT"
	case StringType:
		return "STRING"
	}
	return "EXPR"
}

// Attribute is the typed, textual form of an attribute exchanged with callers.
// For StringType the Value is the raw string, without quotes; for ExprType it is
// the expression in ClassAd syntax.
type Attribute struct {
	Type  AttributeType
	Value string
}

// Literal renders the attribute as ClassAd text that parses back to the same value.
func (a Attribute) Literal() string {
	if a.Type == StringType {
		return quoteString(a.Value)
	}
	return a.Value
}

// AttributeView reads and writes a ClassAd through typed Attributes.
type AttributeView struct {
	ad *ClassAd
}

func NewAttributeView(ad *ClassAd) AttributeView {
	return AttributeView{ad: ad}
}

// Get evaluates name in the full chained context and reports the evaluated type.
// Values that are not integer, real or string are returned as ExprType holding the
// unevaluated expression text.
func (v AttributeView) Get(name string) (Attribute, bool) {
	e, ok := v.ad.Lookup(name)
	if !ok {
		return Attribute{}, false
	}
	return attributeOf(v.ad.EvaluateExpr(e), e), true
}

func attributeOf(val Value, e Expr) Attribute {
	switch val.Type() {
	case IntegerValue:
		return Attribute{Type: IntegerType, Value: strconv.FormatInt(val.i, 10)}
	case RealValue:
		return Attribute{Type: FloatType, Value: formatReal(val.r)}
	case StringValue:
		return Attribute{Type: StringType, Value: val.s}
	}
	return Attribute{Type: ExprType, Value: Unparse(e)}
}

// Set parses text and assigns it to name, storing self-contained expressions as the
// literal they evaluate to. The ad is left untouched if text does not parse.
func (v AttributeView) Set(name, text string) error {
	e, err := Normalize(text)
	if err != nil {
		return errors.WithMessagef(err, "attribute %s", name)
	}
	if !v.ad.Insert(name, e) {
		return errors.Errorf("invalid attribute name %q", name)
	}
	return nil
}

// SetAttribute writes a typed attribute using the assignment path matching its type.
func (v AttributeView) SetAttribute(name string, a Attribute) error {
	var ok bool
	switch a.Type {
	case IntegerType:
		i, err := strconv.ParseInt(a.Value, 10, 64)
		if err != nil {
			return errors.Wrapf(ErrParse, "attribute %s: bad integer %q", name, a.Value)
		}
		ok = v.ad.AssignInt(name, i)
	case FloatType:
		r, err := strconv.ParseFloat(a.Value, 64)
		if err != nil {
			return errors.Wrapf(ErrParse, "attribute %s: bad float %q", name, a.Value)
		}
		ok = v.ad.AssignReal(name, r)
	case StringType:
		ok = v.ad.AssignString(name, a.Value)
	default:
		return v.ad.AssignExpr(name, a.Value)
	}
	if !ok {
		return errors.Errorf("invalid attribute name %q", name)
	}
	return nil
}

// All evaluates every attribute visible through the chain.
func (v AttributeView) All() map[string]Attribute {
	flat := v.ad.Flatten()
	result := make(map[string]Attribute, flat.Len())
	flat.Range(func(name string, e Expr) bool {
		result[name] = attributeOf(v.ad.EvaluateExpr(e), e)
		return true
	})
	return result
}

// Normalize parses text. If the expression refers to no attributes and evaluates to
// an integer, real or string, the literal value is returned in its place.
func Normalize(text string) (Expr, error) {
	e, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if HasAttrRefs(e) {
		return e, nil
	}
	val := Evaluate(e)
	switch val.Type() {
	case IntegerValue, RealValue, StringValue:
		return &Literal{Value: val}, nil
	}
	return e, nil
}
