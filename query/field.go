package query

import "golang.org/x/exp/constraints"

// Field is a typed reference to a field of entities of type E holding values
// of type V
type Field[E any, V comparable] struct {
	key string
}

// NewField returns a reference to the field with the query key
func NewField[E any, V comparable](key string) Field[E, V] {
	return Field[E, V]{key: key}
}

// Key returns the query key of the field
func (f Field[E, V]) Key() string {
	return f.key
}

func (f Field[E, V]) compare(op Operator, value V) Predicate[E] {
	return Comparison[E]{Key: f.key, Op: op, Value: value, Options: optionsFor(value)}
}

// Eq matches entities with the field equal to value
func (f Field[E, V]) Eq(value V) Predicate[E] {
	return f.compare(OpEq, value)
}

// Ne matches entities with the field not equal to value
func (f Field[E, V]) Ne(value V) Predicate[E] {
	return f.compare(OpNe, value)
}

// OrderedField is a typed reference to a field holding ordered values
type OrderedField[E any, V constraints.Ordered] struct {
	Field[E, V]
}

// NewOrderedField returns a reference to the ordered field with the query key
func NewOrderedField[E any, V constraints.Ordered](key string) OrderedField[E, V] {
	return OrderedField[E, V]{Field: NewField[E, V](key)}
}

// Lt matches entities with the field less than value
func (f OrderedField[E, V]) Lt(value V) Predicate[E] {
	return f.compare(OpLt, value)
}

// Le matches entities with the field less than or equal to value
func (f OrderedField[E, V]) Le(value V) Predicate[E] {
	return f.compare(OpLe, value)
}

// Gt matches entities with the field greater than value
func (f OrderedField[E, V]) Gt(value V) Predicate[E] {
	return f.compare(OpGt, value)
}

// Ge matches entities with the field greater than or equal to value
func (f OrderedField[E, V]) Ge(value V) Predicate[E] {
	return f.compare(OpGe, value)
}

// Asc sorts by the field in ascending order
func (f OrderedField[E, V]) Asc() SortDescriptor[E] {
	return Ascending[E](f.key)
}

// Desc sorts by the field in descending order
func (f OrderedField[E, V]) Desc() SortDescriptor[E] {
	return Descending[E](f.key)
}
