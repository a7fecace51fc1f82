package query

import (
	"reflect"
	"sync"

	"github.com/ridge/quarry/meta"
	"github.com/ridge/quarry/store"
	"golang.org/x/text/language"
)

// NoKey is the key of sort descriptors built without one. No field has it, so
// compiling such a descriptor fails with store.ErrInvalidField.
const NoKey = "<no key>"

// SortDescriptor is one level of ordering for entities of type E. Text fields
// are ordered by the collation derived from DefaultComparisonOptions when the
// descriptor is built. Other fields are ordered by value.
type SortDescriptor[E any] struct {
	key       string
	ascending bool
	collation store.Collation
	locale    language.Tag
}

// NewSortDescriptor returns a descriptor sorting by the field with the query
// key.
//
// An empty key is a programming error: it panics in builds tagged quarrydebug
// and is replaced with NoKey otherwise.
func NewSortDescriptor[E any](key string, ascending bool) SortDescriptor[E] {
	if key == "" {
		if Debug {
			panic("sort descriptor without a key")
		}
		key = NoKey
	}
	collation := store.CollationBinary
	if isText[E](key) {
		collation = CollationFor(DefaultComparisonOptions)
	}
	return SortDescriptor[E]{
		key:       key,
		ascending: ascending,
		collation: collation,
		locale:    DefaultLocale,
	}
}

var surveys sync.Map // reflect.Type -> *meta.Struct, nil for non-record types

func surveyOf(t reflect.Type) *meta.Struct {
	if s, ok := surveys.Load(t); ok {
		return s.(*meta.Struct)
	}
	var res *meta.Struct
	func() {
		// Survey panics on types that are not records
		defer func() {
			if recover() != nil {
				res = nil
			}
		}()
		s := meta.Survey(t)
		res = &s
	}()
	surveys.Store(t, res)
	return res
}

// isText reports whether key may name a text field of E. Unknown keys count
// as text: Compile rejects them anyway.
func isText[E any](key string) bool {
	s := surveyOf(reflect.TypeFor[E]())
	if s == nil {
		return true
	}
	f, ok := s.FieldByKey(key)
	return !ok || f.IsText()
}

// Ascending returns a descriptor sorting by the field in ascending order
func Ascending[E any](key string) SortDescriptor[E] {
	return NewSortDescriptor[E](key, true)
}

// Descending returns a descriptor sorting by the field in descending order
func Descending[E any](key string) SortDescriptor[E] {
	return NewSortDescriptor[E](key, false)
}

// FromRaw rebuilds a descriptor from a compiled sort key. The collation is
// derived from the current DefaultComparisonOptions, not taken from raw.
func FromRaw[E any](raw store.SortKey) SortDescriptor[E] {
	return NewSortDescriptor[E](raw.Field, raw.Ascending)
}

// CollationFor maps comparison options to the collation of text fields
func CollationFor(opts Options) store.Collation {
	ci := opts&CaseInsensitive != 0
	di := opts&DiacriticInsensitive != 0
	switch {
	case ci && di:
		return store.CollationLocalizedCaseInsensitive
	case ci:
		return store.CollationCaseInsensitive
	case di:
		return store.CollationLocalized
	}
	return store.CollationBinary
}

// Key returns the query key of the field
func (d SortDescriptor[E]) Key() string {
	return d.key
}

// IsAscending reports the direction of the descriptor
func (d SortDescriptor[E]) IsAscending() bool {
	return d.ascending
}

// Collation returns the collation used if the field holds text
func (d SortDescriptor[E]) Collation() store.Collation {
	return d.collation
}

// Raw returns the compiled sort key
func (d SortDescriptor[E]) Raw() store.SortKey {
	return store.SortKey{Field: d.key, Ascending: d.ascending, Collation: d.collation, Locale: d.locale}
}

func (d SortDescriptor[E]) String() string {
	return d.Raw().String()
}
