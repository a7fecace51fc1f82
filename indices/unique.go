package indices

import (
	"github.com/hashicorp/go-memdb"
	"github.com/ridge/quarry/meta"
)

type uniqueIndexDef struct {
	def Definition
}

// UniquifyIndex makes an index unique
func UniquifyIndex(def Definition) Definition {
	return uniqueIndexDef{def: def}
}

func (uid uniqueIndexDef) Name() string {
	return uid.def.Name()
}

func (uid uniqueIndexDef) Args() int {
	return uid.def.Args()
}

func (uid uniqueIndexDef) ExactField() string {
	if exact, ok := uid.def.(Exact); ok {
		return exact.ExactField()
	}
	return ""
}

func (uid uniqueIndexDef) Index(s meta.Struct) *memdb.IndexSchema {
	schema := uid.def.Index(s)
	return &memdb.IndexSchema{
		Name:         schema.Name,
		AllowMissing: schema.AllowMissing,
		Unique:       true,
		Indexer:      schema.Indexer,
	}
}

func (uid uniqueIndexDef) ObjectArgs(s meta.Struct, obj any) ([]any, bool) {
	if keyed, ok := uid.def.(Keyed); ok {
		return keyed.ObjectArgs(s, obj)
	}
	return nil, false
}
