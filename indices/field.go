package indices

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/go-memdb"
	"github.com/ridge/quarry/meta"
)

type fieldIndexDef struct {
	key        string
	skipZeros  bool
	ignoreCase bool
}

// FieldIndex specifies an index on a single field, named by its query key
// (DB name or Go name). The field must be of an indexable type, or a pointer
// to such type. Possible options are SkipZeros and IgnoreCase.
func FieldIndex(key string, options ...fieldIndexOption) Definition {
	fi := fieldIndexDef{key: key}
	for _, opt := range options {
		opt.apply(&fi)
	}
	return fi
}

type fieldIndexOption interface {
	apply(fi *fieldIndexDef)
}

// SkipZeros is an option to FieldIndex that makes the index exclude entities
// with zero values of the field. If the field is a pointer, zero values of the
// pointed-to type are excluded.
var SkipZeros skipZeros

type skipZeros struct{}

func (skipZeros) apply(fi *fieldIndexDef) {
	fi.skipZeros = true
}

// IgnoreCase is an option to FieldIndex that makes the index case-insensitive
// (per Unicode spec). The field must be a string, a named type based on a
// string, or a pointer to one of those. Values that only differ in case are
// considered equal by a case-insensitive index. In a UniquifyIndex, they
// conflict. Lookup is case-insensitive.
var IgnoreCase ignoreCase

type ignoreCase struct{}

func (ignoreCase) apply(fi *fieldIndexDef) {
	fi.ignoreCase = true
}

func (fid fieldIndexDef) Name() string {
	return fid.key
}

func (fid fieldIndexDef) Args() int {
	return 1
}

func (fid fieldIndexDef) ExactField() string {
	if fid.skipZeros || fid.ignoreCase {
		return ""
	}
	return fid.key
}

func (fid fieldIndexDef) field(s meta.Struct) meta.Field {
	field, ok := s.FieldByKey(fid.key)
	if !ok {
		panic(fmt.Errorf("field %s.%s not found", s.Type, fid.key))
	}
	return field
}

func (fid fieldIndexDef) Index(s meta.Struct) *memdb.IndexSchema {
	field := fid.field(s)
	t := field.Type
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	keyFn := keyFnForType(t)
	if keyFn == nil {
		panic(fmt.Errorf("field %s.%s has unsupported type %s", s.Type, fid.key, field.Type))
	}
	if fid.ignoreCase {
		if t.Kind() != reflect.String {
			panic(fmt.Errorf("field %s.%s must be string-based for case-insensitive indexing", s.Type, fid.key))
		}
		keyFn = func(v reflect.Value) ([]byte, bool) {
			s := v.String()
			return []byte(strings.ToLower(s) + "\x00"), s != ""
		}
	}
	indexer := fieldIndexer{def: fid, t: t, index: field.Index, keyFn: keyFn}
	schema := memdb.IndexSchema{
		Name:         fid.Name(),
		AllowMissing: fid.skipZeros,
		Indexer:      indexer,
	}
	if field.Type.Kind() == reflect.Ptr {
		schema.AllowMissing = true
		schema.Indexer = ptrFieldIndexer{indexer}
	}
	return &schema
}

// ObjectArgs returns the lookup arguments under which obj is indexed, or false
// if obj is absent from the index
func (fid fieldIndexDef) ObjectArgs(s meta.Struct, obj any) ([]any, bool) {
	v := reflect.ValueOf(obj).FieldByIndex(fid.field(s).Index)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if fid.skipZeros && v.IsZero() {
		return nil, false
	}
	return []any{v.Interface()}, true
}

type fieldIndexer struct {
	def   fieldIndexDef
	t     reflect.Type
	index []int
	keyFn keyFn
}

func (fi fieldIndexer) FromArgs(args ...any) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("index %s expects exactly one argument", fi.def.Name())
	}
	v := reflect.ValueOf(args[0])
	if !v.IsValid() || v.Type() != fi.t {
		return nil, fmt.Errorf("index %s expects %s value", fi.def.Name(), fi.t)
	}
	k, _ := fi.keyFn(v)
	return k, nil
}

func (fi fieldIndexer) FromObject(obj any) (bool, []byte, error) {
	v := reflect.ValueOf(obj).FieldByIndex(fi.index)
	k, ok := fi.keyFn(v)
	if !ok && fi.def.skipZeros {
		return false, nil, nil
	}
	return true, k, nil
}

type ptrFieldIndexer struct {
	fieldIndexer
}

func (pfi ptrFieldIndexer) FromObject(obj any) (bool, []byte, error) {
	v := reflect.ValueOf(obj).FieldByIndex(pfi.index)
	if v.IsNil() {
		return false, nil, nil
	}
	k, ok := pfi.keyFn(v.Elem())
	if !ok && pfi.def.skipZeros {
		return false, nil, nil
	}
	return true, k, nil
}

// Keyed is implemented by definitions that can report the lookup arguments
// of a given entity
type Keyed interface {
	Definition
	ObjectArgs(s meta.Struct, obj any) ([]any, bool)
}
