package classad

import (
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrChainCycle is returned by ChainTo when the requested parent already has the ad in its ancestry.
var ErrChainCycle = errors.New("classad chain would form a cycle")

// stamps are drawn from one process-wide counter so that a mutation anywhere in a chain always
// produces a generation no earlier observer has seen.
var stampCounter uint64

func nextStamp() uint64 {
	return atomic.AddUint64(&stampCounter, 1)
}

type attribute struct {
	name string
	expr Expr
}

// ClassAd is an ordered, case-insensitive mapping from attribute name to expression.
// An ad may be chained to a single parent: lookups that miss locally fall through to
// the parent, while assignments and deletes always act on the local attributes.
// The parent is referenced, not owned.
//
// ClassAd is not safe for concurrent use.
type ClassAd struct {
	attrs  map[string]*attribute
	order  []string
	parent *ClassAd
	stamp  uint64
}

func NewClassAd() *ClassAd {
	return &ClassAd{
		attrs: map[string]*attribute{},
		stamp: nextStamp(),
	}
}

func canonical(name string) string {
	return strings.ToLower(name)
}

func (ad *ClassAd) touch() {
	ad.stamp = nextStamp()
}

// Lookup returns the expression bound to name, searching the parent chain.
func (ad *ClassAd) Lookup(name string) (Expr, bool) {
	key := canonical(name)
	for cur := ad; cur != nil; cur = cur.parent {
		if a, ok := cur.attrs[key]; ok {
			return a.expr, true
		}
	}
	return nil, false
}

// LookupLocal is Lookup without the parent chain.
func (ad *ClassAd) LookupLocal(name string) (Expr, bool) {
	a, ok := ad.attrs[canonical(name)]
	if !ok {
		return nil, false
	}
	return a.expr, true
}

// Insert binds name to e locally. It returns false if name is not a valid attribute name.
func (ad *ClassAd) Insert(name string, e Expr) bool {
	if e == nil || !IsValidAttributeName(name) {
		return false
	}
	key := canonical(name)
	if a, ok := ad.attrs[key]; ok {
		a.expr = e
	} else {
		ad.attrs[key] = &attribute{name: name, expr: e}
		ad.order = append(ad.order, key)
	}
	ad.touch()
	return true
}

func (ad *ClassAd) AssignValue(name string, v Value) bool {
	return ad.Insert(name, &Literal{Value: v})
}

func (ad *ClassAd) AssignInt(name string, i int64) bool {
	return ad.AssignValue(name, Int(i))
}

func (ad *ClassAd) AssignReal(name string, r float64) bool {
	return ad.AssignValue(name, Real(r))
}

func (ad *ClassAd) AssignString(name string, s string) bool {
	return ad.AssignValue(name, String(s))
}

func (ad *ClassAd) AssignBool(name string, b bool) bool {
	return ad.AssignValue(name, Bool(b))
}

// AssignExpr parses text and binds the resulting expression, unevaluated, to name.
// Nothing is assigned if the text does not parse.
func (ad *ClassAd) AssignExpr(name, text string) error {
	e, err := Parse(text)
	if err != nil {
		return errors.WithMessagef(err, "attribute %s", name)
	}
	if !ad.Insert(name, e) {
		return errors.Errorf("invalid attribute name %q", name)
	}
	return nil
}

// Delete removes the local binding for name. The parent is never modified.
func (ad *ClassAd) Delete(name string) bool {
	key := canonical(name)
	if _, ok := ad.attrs[key]; !ok {
		return false
	}
	delete(ad.attrs, key)
	for i, k := range ad.order {
		if k == key {
			ad.order = append(ad.order[:i], ad.order[i+1:]...)
			break
		}
	}
	ad.touch()
	return true
}

// ChainTo makes parent the fallback for lookups, replacing any previous parent.
func (ad *ClassAd) ChainTo(parent *ClassAd) error {
	for cur := parent; cur != nil; cur = cur.parent {
		if cur == ad {
			return errors.WithStack(ErrChainCycle)
		}
	}
	ad.parent = parent
	ad.touch()
	return nil
}

// Unchain detaches the ad from its parent and returns the former parent, if any.
func (ad *ClassAd) Unchain() *ClassAd {
	parent := ad.parent
	if parent != nil {
		ad.parent = nil
		ad.touch()
	}
	return parent
}

func (ad *ClassAd) Parent() *ClassAd {
	return ad.parent
}

// Len is the number of local attributes.
func (ad *ClassAd) Len() int {
	return len(ad.attrs)
}

// Names returns the local attribute names in insertion order, as first spelled.
func (ad *ClassAd) Names() []string {
	names := make([]string, 0, len(ad.order))
	for _, key := range ad.order {
		names = append(names, ad.attrs[key].name)
	}
	return names
}

// Range calls fn for each local attribute in insertion order until fn returns false.
func (ad *ClassAd) Range(fn func(name string, e Expr) bool) {
	for _, key := range ad.order {
		a := ad.attrs[key]
		if !fn(a.name, a.expr) {
			return
		}
	}
}

// Generation changes whenever the ad or any ad on its parent chain is modified.
func (ad *ClassAd) Generation() uint64 {
	gen := ad.stamp
	for cur := ad.parent; cur != nil; cur = cur.parent {
		if cur.stamp > gen {
			gen = cur.stamp
		}
	}
	return gen
}

// Copy returns a shallow copy of the local attributes, chained to the same parent.
func (ad *ClassAd) Copy() *ClassAd {
	c := NewClassAd()
	ad.Range(func(name string, e Expr) bool {
		c.Insert(name, e)
		return true
	})
	c.parent = ad.parent
	return c
}

// Flatten returns an unchained ad holding every attribute visible through the chain.
// Inherited attributes come first, each level in its own insertion order.
func (ad *ClassAd) Flatten() *ClassAd {
	var chain []*ClassAd
	for cur := ad; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	flat := NewClassAd()
	for i := len(chain) - 1; i >= 0; i-- {
		chain[i].Range(func(name string, e Expr) bool {
			flat.Insert(name, e)
			return true
		})
	}
	return flat
}

// EvaluateExpr evaluates e with attribute references resolved against this ad.
func (ad *ClassAd) EvaluateExpr(e Expr) Value {
	return e.eval(&evalState{ad: ad})
}

// EvaluateAttr looks up name through the chain and evaluates it in the context of this ad.
func (ad *ClassAd) EvaluateAttr(name string) (Value, bool) {
	e, ok := ad.Lookup(name)
	if !ok {
		return Undefined(), false
	}
	return ad.EvaluateExpr(e), true
}

func (ad *ClassAd) LookupInteger(name string) (int64, bool) {
	v, ok := ad.EvaluateAttr(name)
	if !ok {
		return 0, false
	}
	return v.IntValue()
}

// LookupFloat accepts both real and integer attributes.
func (ad *ClassAd) LookupFloat(name string) (float64, bool) {
	v, ok := ad.EvaluateAttr(name)
	if !ok {
		return 0, false
	}
	return v.RealValue()
}

func (ad *ClassAd) LookupString(name string) (string, bool) {
	v, ok := ad.EvaluateAttr(name)
	if !ok {
		return "", false
	}
	return v.StringValue()
}

func (ad *ClassAd) LookupBool(name string) (bool, bool) {
	v, ok := ad.EvaluateAttr(name)
	if !ok {
		return false, false
	}
	return v.BoolValue()
}

// String renders the local attributes one per line.
func (ad *ClassAd) String() string {
	var sb strings.Builder
	ad.Range(func(name string, e Expr) bool {
		sb.WriteString(name)
		sb.WriteString(" = ")
		e.writeTo(&sb)
		sb.WriteByte('\n')
		return true
	})
	return sb.String()
}
