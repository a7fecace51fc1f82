package quarry

import (
	"cmp"
	"slices"

	"github.com/ridge/quarry/store"
)

// Row is an entity at a position of a result set
type Row[E any] struct {
	Index  int
	Object E
}

// Reduce applies a batch of row changes to a result set. It returns the new
// result set along with the positions of deleted rows in prev, and the
// inserted and modified rows at their positions in the new result set.
//
// Moves are reported as modifications.
func Reduce[E any](prev []E, batch []store.RowChange) Delta[E] {
	var d Delta[E]
	removed := map[int]bool{}
	var placed []Row[E]
	for _, change := range batch {
		switch change.Type {
		case store.RowDelete:
			d.Deletions = append(d.Deletions, change.OldIndex)
			removed[change.OldIndex] = true
		case store.RowInsert:
			row := Row[E]{Index: change.NewIndex, Object: change.Object.(E)}
			d.Insertions = append(d.Insertions, row)
			placed = append(placed, row)
		case store.RowUpdate, store.RowMove:
			row := Row[E]{Index: change.NewIndex, Object: change.Object.(E)}
			d.Modifications = append(d.Modifications, row)
			removed[change.OldIndex] = true
			placed = append(placed, row)
		}
	}
	slices.Sort(d.Deletions)
	byIndex := func(a, b Row[E]) int { return cmp.Compare(a.Index, b.Index) }
	slices.SortFunc(d.Insertions, byIndex)
	slices.SortFunc(d.Modifications, byIndex)
	slices.SortFunc(placed, byIndex)

	next := make([]E, 0, len(prev)-len(removed)+len(placed))
	for i, e := range prev {
		if !removed[i] {
			next = append(next, e)
		}
	}
	for _, row := range placed {
		next = slices.Insert(next, min(row.Index, len(next)), row.Object)
	}
	d.Objects = next
	return d
}
