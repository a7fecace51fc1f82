// Package indices contains go-memdb index definitions for quarry kinds.
//
// Every kind has an implicit unique index on its identity field. Additional
// indices are declared next to the kind:
//
//	var (
//	    IndexFolder = indices.FieldIndex("Folder")
//	    IndexSlug   = indices.UniquifyIndex(indices.FieldIndex("Slug", indices.IgnoreCase))
//	    KindNote    = store.KindOf(Note{}, IndexFolder, IndexSlug)
//	)
//
// A unique index makes the store reject a save that would put two entities
// under the same key. A plain field index lets the store answer a top-level
// case-sensitive equality filter on that field without scanning the table.
//
// # Indexable types
//
// All integer and floating-point types, strings, booleans, time.Time, and all
// named types based on them are indexable. Fields of such types and pointers
// to those are supported by FieldIndex.
//
// Any other type can be made indexable by implementing a method
//
//	IndexKey() ([]byte, bool)
//
// The method should be a pure function that serializes the value as a byte
// sequence which later participates in lexicographical ordering. The second
// return value should be true if the value is nonempty (this is taken into
// account by FieldIndex with the SkipZeros option).
package indices
