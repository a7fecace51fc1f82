package store

import (
	"fmt"
	"reflect"

	"github.com/hashicorp/go-memdb"
	"github.com/ridge/quarry/indices"
	"github.com/ridge/quarry/meta"
)

// Kind describes a particular type of records handled by the store.
// All fields are read-only.
type Kind struct {
	meta.Struct
	Indices     map[string]indices.Definition
	identity    indices.Definition
	indexSchema map[string]*memdb.IndexSchema
	exact       map[string]string // query key of the indexed field -> index name
}

// KindOf creates a Kind for a given record example and index definitions.
// See package documentation for indices.
func KindOf(example any, indexDefs ...indices.Definition) *Kind {
	t := reflect.TypeOf(example)
	metaStruct := meta.Survey(t)
	identity := indices.IdentityIndex()
	kind := Kind{
		Struct:   metaStruct,
		Indices:  map[string]indices.Definition{},
		identity: identity,
		indexSchema: map[string]*memdb.IndexSchema{
			identity.Name(): identity.Index(metaStruct),
		},
		exact: map[string]string{},
	}

	for _, indexDef := range indexDefs {
		name := indexDef.Name()
		if kind.indexSchema[name] != nil {
			panic(fmt.Sprintf("duplicate index name on %s: %s", metaStruct, name))
		}
		kind.Indices[name] = indexDef
		kind.indexSchema[name] = indexDef.Index(metaStruct)
		if exact, ok := indexDef.(indices.Exact); ok && exact.ExactField() != "" {
			field, _ := metaStruct.FieldByKey(exact.ExactField())
			if _, ok := kind.exact[field.DBName]; !ok {
				kind.exact[field.DBName] = name
			}
		}
	}

	return &kind
}

// exactIndex returns the name of an index that holds every record under the
// unmodified value of the field
func (k *Kind) exactIndex(field meta.Field) (string, bool) {
	name, ok := k.exact[field.DBName]
	return name, ok
}

// idOf returns the identity of a record of this kind
func (k *Kind) idOf(obj any) string {
	return reflect.ValueOf(obj).FieldByIndex(k.Identity().Index).String()
}
