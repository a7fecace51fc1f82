package store

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ridge/quarry/meta"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collation selects how text fields are ordered. It has no effect on
// non-text fields.
type Collation int

// Collation values
const (
	// CollationBinary orders by byte values
	CollationBinary Collation = iota
	// CollationCaseInsensitive orders by byte values of case-folded text
	CollationCaseInsensitive
	// CollationLocalized orders by the rules of the key's locale
	CollationLocalized
	// CollationLocalizedCaseInsensitive orders by the rules of the key's
	// locale, ignoring case
	CollationLocalizedCaseInsensitive
)

var collationNames = [...]string{"binary", "ci", "localized", "localized,ci"}

func (c Collation) String() string {
	if c < 0 || int(c) >= len(collationNames) {
		return fmt.Sprintf("Collation(%d)", int(c))
	}
	return collationNames[c]
}

// SortKey is one level of ordering
type SortKey struct {
	Field     string // query key
	Ascending bool
	Collation Collation
	Locale    language.Tag // used by localized collations
}

func (sk SortKey) String() string {
	dir := "DESC"
	if sk.Ascending {
		dir = "ASC"
	}
	if sk.Collation == CollationBinary {
		return sk.Field + " " + dir
	}
	return fmt.Sprintf("%s %s [%s]", sk.Field, dir, sk.Collation)
}

type sortLevel struct {
	field     meta.Field
	ascending bool
	compare   func(a, b reflect.Value) int
}

// sorter is the comparator for one fetch. Not safe for concurrent use.
type sorter struct {
	levels   []sortLevel
	identity meta.Field
}

func compileSort(kind *Kind, keys []SortKey) (*sorter, error) {
	s := &sorter{identity: kind.Identity()}
	var f *folder
	for _, key := range keys {
		field, ok := kind.FieldByKey(key.Field)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no field %q to sort by", ErrInvalidField, kind, key.Field)
		}
		level := sortLevel{field: field, ascending: key.Ascending, compare: compareValues}
		base := field.Type
		if base.Kind() == reflect.Ptr {
			base = base.Elem()
		}
		if !orderable(base) {
			return nil, fmt.Errorf("%w: %s.%s of type %s has no ordering", ErrInvalidValue, kind, field, field.Type)
		}
		if field.IsText() {
			switch key.Collation {
			case CollationBinary:
			case CollationCaseInsensitive:
				if f == nil {
					f = newFolder()
				}
				level.compare = func(a, b reflect.Value) int {
					return strings.Compare(f.fold(a.String(), CaseInsensitive), f.fold(b.String(), CaseInsensitive))
				}
			case CollationLocalized, CollationLocalizedCaseInsensitive:
				var options []collate.Option
				if key.Collation == CollationLocalizedCaseInsensitive {
					options = append(options, collate.IgnoreCase)
				}
				c := collate.New(key.Locale, options...)
				level.compare = func(a, b reflect.Value) int {
					return c.CompareString(a.String(), b.String())
				}
			default:
				return nil, fmt.Errorf("%w: unknown collation %d for %s.%s", ErrInvalidValue, int(key.Collation), kind, field)
			}
		}
		s.levels = append(s.levels, level)
	}
	return s, nil
}

// compare orders two records of the kind. Records only compare equal to
// themselves: identity is the final tiebreaker.
func (s *sorter) compare(a, b reflect.Value) int {
	for _, level := range s.levels {
		c := compareNullable(a.FieldByIndex(level.field.Index), b.FieldByIndex(level.field.Index), level.compare)
		if c == 0 {
			continue
		}
		if !level.ascending {
			return -c
		}
		return c
	}
	return strings.Compare(a.FieldByIndex(s.identity.Index).String(), b.FieldByIndex(s.identity.Index).String())
}

// compareNullable orders nil pointers first
func compareNullable(a, b reflect.Value, compare func(a, b reflect.Value) int) int {
	if a.Kind() == reflect.Ptr {
		switch {
		case a.IsNil() && b.IsNil():
			return 0
		case a.IsNil():
			return -1
		case b.IsNil():
			return 1
		}
		return compare(a.Elem(), b.Elem())
	}
	return compare(a, b)
}
