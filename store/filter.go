package store

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/ridge/quarry/meta"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Operator is a comparison operator
type Operator int

// Operator values
const (
	OpEq Operator = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var operatorNames = [...]string{"==", "!=", "<", "<=", ">", ">="}

func (op Operator) String() string {
	if op < 0 || int(op) >= len(operatorNames) {
		return fmt.Sprintf("Operator(%d)", int(op))
	}
	return operatorNames[op]
}

func (op Operator) ordering() bool {
	return op >= OpLt
}

func (op Operator) holds(c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	panic(fmt.Errorf("unexpected operator %d", int(op)))
}

// Options modify text comparisons. They have no effect on non-text fields.
type Options uint8

// Options values
const (
	CaseInsensitive Options = 1 << iota
	DiacriticInsensitive
)

// String returns the options in the bracketed form used after an operator,
// like "[cd]", or "" if no options are set
func (o Options) String() string {
	if o == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('[')
	if o&CaseInsensitive != 0 {
		b.WriteByte('c')
	}
	if o&DiacriticInsensitive != 0 {
		b.WriteByte('d')
	}
	b.WriteByte(']')
	return b.String()
}

// folder folds text for insensitive comparisons. Not safe for concurrent use.
type folder struct {
	caser cases.Caser
	strip transform.Transformer
}

func newFolder() *folder {
	return &folder{
		caser: cases.Fold(),
		strip: transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
	}
}

func (f *folder) fold(s string, opts Options) string {
	if opts&DiacriticInsensitive != 0 {
		if stripped, _, err := transform.String(f.strip, s); err == nil {
			s = stripped
		}
	}
	if opts&CaseInsensitive != 0 {
		s = f.caser.String(s)
	}
	return s
}

// Filter is a predicate compiled against a kind
type Filter interface {
	fmt.Stringer
	match(v reflect.Value, f *folder) bool
}

type comparison struct {
	field meta.Field
	op    Operator
	value reflect.Value // of the field's base type; invalid for nil
	opts  Options
}

// Compare compiles a comparison of a field, given by its query key, with a
// constant value.
//
// The value must be of the field's type, of its pointer-free base type, or of
// another type of the same class (any string-based type for a string field,
// any signed integer for a signed integer field and so on). nil is accepted
// for pointer fields with == and != only.
func Compare(kind *Kind, key string, op Operator, value any, opts Options) (Filter, error) {
	field, ok := kind.FieldByKey(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no field %q", ErrInvalidField, kind, key)
	}
	base := field.Type
	if base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	if base.Kind() != reflect.String {
		opts = 0
	}

	rv := reflect.ValueOf(value)
	if rv.IsValid() && rv.Kind() == reflect.Ptr && rv.Type().Elem() == base {
		if rv.IsNil() {
			rv = reflect.Value{}
		} else {
			rv = rv.Elem()
		}
	}
	if !rv.IsValid() {
		if field.Type.Kind() != reflect.Ptr || op.ordering() {
			return nil, fmt.Errorf("%w: cannot compare %s.%s %s nil", ErrInvalidValue, kind, field, op)
		}
		return comparison{field: field, op: op, opts: opts}, nil
	}

	if !compatible(rv.Type(), base) {
		return nil, fmt.Errorf("%w: cannot compare %s.%s of type %s with %T", ErrInvalidValue, kind, field, field.Type, value)
	}
	if op.ordering() && !orderable(base) {
		return nil, fmt.Errorf("%w: %s.%s of type %s has no ordering", ErrInvalidValue, kind, field, field.Type)
	}
	return comparison{field: field, op: op, value: rv.Convert(base), opts: opts}, nil
}

func (c comparison) String() string {
	if !c.value.IsValid() {
		return fmt.Sprintf("%s %s nil", c.field.DBName, c.op)
	}
	if c.value.Kind() == reflect.String {
		return fmt.Sprintf("%s %s%s %q", c.field.DBName, c.op, c.opts, c.value.String())
	}
	return fmt.Sprintf("%s %s %v", c.field.DBName, c.op, c.value.Interface())
}

func (c comparison) match(v reflect.Value, f *folder) bool {
	fv := v.FieldByIndex(c.field.Index)
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			if !c.value.IsValid() {
				return c.op == OpEq
			}
			return c.op == OpNe
		}
		fv = fv.Elem()
	}
	if !c.value.IsValid() {
		return c.op == OpNe
	}
	if c.opts != 0 {
		return c.op.holds(strings.Compare(f.fold(fv.String(), c.opts), f.fold(c.value.String(), c.opts)))
	}
	return c.op.holds(compareValues(fv, c.value))
}

type compound struct {
	op      string
	filters []Filter
}

// And compiles a conjunction. An empty conjunction matches everything.
func And(filters ...Filter) Filter {
	return compound{op: "AND", filters: append([]Filter(nil), filters...)}
}

// Or compiles a disjunction. An empty disjunction matches nothing.
func Or(filters ...Filter) Filter {
	return compound{op: "OR", filters: append([]Filter(nil), filters...)}
}

func (c compound) String() string {
	parts := make([]string, 0, len(c.filters))
	for _, f := range c.filters {
		parts = append(parts, "("+f.String()+")")
	}
	return strings.Join(parts, " "+c.op+" ")
}

func (c compound) match(v reflect.Value, f *folder) bool {
	for _, filter := range c.filters {
		if filter.match(v, f) != (c.op == "AND") {
			return c.op != "AND"
		}
	}
	return c.op == "AND"
}

type negation struct {
	filter Filter
}

// Not compiles a negation
func Not(filter Filter) Filter {
	return negation{filter: filter}
}

func (n negation) String() string {
	return "NOT (" + n.filter.String() + ")"
}

func (n negation) match(v reflect.Value, f *folder) bool {
	return !n.filter.match(v, f)
}

type constant bool

// Constant compiles a filter that matches everything or nothing
func Constant(value bool) Filter {
	return constant(value)
}

func (c constant) String() string {
	if c {
		return "TRUEPREDICATE"
	}
	return "FALSEPREDICATE"
}

func (c constant) match(reflect.Value, *folder) bool {
	return bool(c)
}

// lookup finds a comparison that can be answered by an exact index lookup and
// that every match of the filter must satisfy
func lookup(kind *Kind, filter Filter) (string, any, bool) {
	switch f := filter.(type) {
	case comparison:
		if f.op != OpEq || f.opts != 0 || !f.value.IsValid() {
			return "", nil, false
		}
		index, ok := kind.exactIndex(f.field)
		if !ok {
			return "", nil, false
		}
		return index, f.value.Interface(), true
	case compound:
		if f.op != "AND" {
			return "", nil, false
		}
		for _, sub := range f.filters {
			if index, value, ok := lookup(kind, sub); ok {
				return index, value, true
			}
		}
	}
	return "", nil, false
}

var timeType = reflect.TypeOf(time.Time{})

type class int

const (
	classOther class = iota
	classBool
	classInt
	classUint
	classFloat
	classString
	classTime
)

func classOf(t reflect.Type) class {
	if t == timeType {
		return classTime
	}
	switch t.Kind() {
	case reflect.Bool:
		return classBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return classInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return classUint
	case reflect.Float32, reflect.Float64:
		return classFloat
	case reflect.String:
		return classString
	}
	return classOther
}

func compatible(value, field reflect.Type) bool {
	if value == field {
		return field.Comparable()
	}
	c := classOf(field)
	return c != classOther && c != classTime && classOf(value) == c
}

func orderable(t reflect.Type) bool {
	switch classOf(t) {
	case classOther:
		return false
	}
	return true
}

// compareValues compares two values of the same orderable type, or checks two
// values of another comparable type for equality
func compareValues(a, b reflect.Value) int {
	switch classOf(a.Type()) {
	case classBool:
		switch {
		case a.Bool() == b.Bool():
			return 0
		case b.Bool():
			return -1
		}
		return 1
	case classInt:
		return cmp.Compare(a.Int(), b.Int())
	case classUint:
		return cmp.Compare(a.Uint(), b.Uint())
	case classFloat:
		return cmp.Compare(a.Float(), b.Float())
	case classString:
		return strings.Compare(a.String(), b.String())
	case classTime:
		return a.Interface().(time.Time).Compare(b.Interface().(time.Time))
	}
	if a.Interface() == b.Interface() {
		return 0
	}
	return 1
}
