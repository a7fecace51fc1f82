package query

import (
	"reflect"
	"testing"

	"github.com/ridge/quarry/meta"
	"github.com/ridge/quarry/store"
)

type note struct {
	meta.Meta `quarry:"name=note"`
	ID        string  `quarry:"identity"`
	Title     string  `quarry:"name=title"`
	Rank      int     `quarry:"name=rank"`
	Score     float64 `quarry:"name=score"`
	Done      bool    `quarry:"name=done"`
	Parent    *string `quarry:"name=parent"`
}

var (
	kindNote = store.KindOf(note{})

	title = NewOrderedField[note, string]("title")
	rank  = NewOrderedField[note, int]("rank")
	done  = NewField[note, bool]("done")
)

type kinds []*store.Kind

func (ks kinds) KindFor(t reflect.Type) (*store.Kind, bool) {
	for _, k := range ks {
		if k.Type == t {
			return k, true
		}
	}
	return nil, false
}

var resolver = kinds{kindNote}

// withOptions overrides DefaultComparisonOptions for the duration of a test
func withOptions(t *testing.T, opts Options) {
	saved := DefaultComparisonOptions
	DefaultComparisonOptions = opts
	t.Cleanup(func() { DefaultComparisonOptions = saved })
}
