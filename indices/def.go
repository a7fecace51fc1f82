package indices

import (
	"github.com/hashicorp/go-memdb"
	"github.com/ridge/quarry/meta"
)

// Definition is a blueprint for creating a memdb indexer. This intermediate step
// is needed because such blueprints are created before the Kind they are
// intended for.
type Definition interface {
	Name() string                         // stable unique name
	Args() int                            // number of expected lookup arguments
	Index(meta.Struct) *memdb.IndexSchema // create the indexer
}

// Exact is implemented by definitions whose index holds every entity under the
// unmodified value of a single field. An equality lookup on such an index
// finds exactly the entities a full scan comparing that field would find.
type Exact interface {
	Definition
	// ExactField returns the query key of the indexed field, or "" if the
	// index folds or skips values
	ExactField() string
}
