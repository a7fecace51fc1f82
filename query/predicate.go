package query

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ridge/quarry/store"
)

// Predicate is a boolean expression over the fields of entities of type E.
//
// The implementations are Comparison, Compound and Constant.
type Predicate[E any] interface {
	fmt.Stringer
	compile(kind *store.Kind) (store.Filter, error)
	precedence() int
}

const (
	precOr = iota + 1
	precAnd
	precNot
	precAtom
)

func render[E any](p Predicate[E], parent int) string {
	if p.precedence() < parent {
		return "(" + p.String() + ")"
	}
	return p.String()
}

// Comparison compares a field, given by its query key, with a constant
type Comparison[E any] struct {
	Key     string
	Op      Operator
	Value   any
	Options Options
}

func (c Comparison[E]) String() string {
	return fmt.Sprintf("%s %s%s %s", c.Key, c.Op, c.Options, formatValue(c.Value))
}

func formatValue(value any) string {
	if value == nil {
		return "nil"
	}
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "nil"
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.String {
		return fmt.Sprintf("%q", v.String())
	}
	return fmt.Sprintf("%v", v.Interface())
}

func (c Comparison[E]) compile(kind *store.Kind) (store.Filter, error) {
	return store.Compare(kind, c.Key, c.Op, c.Value, c.Options)
}

func (Comparison[E]) precedence() int {
	return precAtom
}

// CompoundType is the connective of a compound predicate
type CompoundType int

// CompoundType values
const (
	AndType CompoundType = iota
	OrType
	NotType
)

// Compound joins subpredicates. A NotType compound has exactly one
// subpredicate.
type Compound[E any] struct {
	Type          CompoundType
	Subpredicates []Predicate[E]
}

// operands copies subpredicates. A nil predicate filters nothing out, so it
// stands for True.
func operands[E any](ps []Predicate[E]) []Predicate[E] {
	res := make([]Predicate[E], 0, len(ps))
	for _, p := range ps {
		if p == nil {
			p = True[E]()
		}
		res = append(res, p)
	}
	return res
}

// And returns the conjunction of predicates. The conjunction of no predicates
// is true.
func And[E any](ps ...Predicate[E]) Predicate[E] {
	return Compound[E]{Type: AndType, Subpredicates: operands(ps)}
}

// Or returns the disjunction of predicates. The disjunction of no predicates
// is false.
func Or[E any](ps ...Predicate[E]) Predicate[E] {
	return Compound[E]{Type: OrType, Subpredicates: operands(ps)}
}

// Not returns the negation of a predicate
func Not[E any](p Predicate[E]) Predicate[E] {
	return Compound[E]{Type: NotType, Subpredicates: operands([]Predicate[E]{p})}
}

func (c Compound[E]) String() string {
	switch c.Type {
	case NotType:
		return "NOT " + render(c.Subpredicates[0], precAtom)
	case AndType, OrType:
		if len(c.Subpredicates) == 0 {
			return Constant[E]{Value: c.Type == AndType}.String()
		}
		sep := " AND "
		if c.Type == OrType {
			sep = " OR "
		}
		parts := make([]string, 0, len(c.Subpredicates))
		for _, p := range c.Subpredicates {
			parts = append(parts, render(p, c.precedence()))
		}
		return strings.Join(parts, sep)
	}
	return fmt.Sprintf("CompoundType(%d)", int(c.Type))
}

func (c Compound[E]) compile(kind *store.Kind) (store.Filter, error) {
	filters := make([]store.Filter, 0, len(c.Subpredicates))
	for _, p := range c.Subpredicates {
		f, err := p.compile(kind)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	switch c.Type {
	case AndType:
		return store.And(filters...), nil
	case OrType:
		return store.Or(filters...), nil
	case NotType:
		if len(filters) != 1 {
			return nil, fmt.Errorf("negation of %d predicates", len(filters))
		}
		return store.Not(filters[0]), nil
	}
	return nil, fmt.Errorf("unexpected compound type %d", int(c.Type))
}

func (c Compound[E]) precedence() int {
	switch {
	case c.Type == NotType:
		return precNot
	case len(c.Subpredicates) == 0:
		return precAtom
	case c.Type == AndType:
		return precAnd
	}
	return precOr
}

// Constant is a predicate that is always true or always false
type Constant[E any] struct {
	Value bool
}

// True returns a predicate that matches every entity
func True[E any]() Predicate[E] {
	return Constant[E]{Value: true}
}

// False returns a predicate that matches no entity
func False[E any]() Predicate[E] {
	return Constant[E]{Value: false}
}

func (c Constant[E]) String() string {
	if c.Value {
		return "TRUEPREDICATE"
	}
	return "FALSEPREDICATE"
}

func (c Constant[E]) compile(*store.Kind) (store.Filter, error) {
	return store.Constant(c.Value), nil
}

func (Constant[E]) precedence() int {
	return precAtom
}

// Where compares a field, given by its query key, with a value of any type.
// Text values get DefaultComparisonOptions.
func Where[E any](key string, op Operator, value any) Predicate[E] {
	return Comparison[E]{Key: key, Op: op, Value: value, Options: optionsFor(value)}
}

func optionsFor(value any) Options {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return 0
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.String {
		return DefaultComparisonOptions
	}
	return 0
}
