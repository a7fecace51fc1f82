package quarry

import (
	"testing"

	"github.com/ridge/quarry/query"
	"github.com/ridge/quarry/store"
	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	tests := []struct {
		name     string
		prev     []string
		batch    []store.RowChange
		expected Delta[string]
	}{
		{
			name: "empty",
			prev: []string{"a"},
			expected: Delta[string]{
				Objects: []string{"a"},
			},
		},
		{
			name: "insert",
			prev: []string{"a", "c"},
			batch: []store.RowChange{
				{Type: store.RowInsert, OldIndex: -1, NewIndex: 1, Object: "b"},
				{Type: store.RowInsert, OldIndex: -1, NewIndex: 3, Object: "d"},
			},
			expected: Delta[string]{
				Objects:    []string{"a", "b", "c", "d"},
				Insertions: []Row[string]{{Index: 1, Object: "b"}, {Index: 3, Object: "d"}},
			},
		},
		{
			name: "delete",
			prev: []string{"a", "b", "c"},
			batch: []store.RowChange{
				{Type: store.RowDelete, OldIndex: 2, NewIndex: -1, Object: "c"},
				{Type: store.RowDelete, OldIndex: 0, NewIndex: -1, Object: "a"},
			},
			expected: Delta[string]{
				Objects:   []string{"b"},
				Deletions: []int{0, 2},
			},
		},
		{
			name: "update and move",
			prev: []string{"a", "b", "c"},
			batch: []store.RowChange{
				{Type: store.RowMove, OldIndex: 0, NewIndex: 2, Object: "a2"},
				{Type: store.RowUpdate, OldIndex: 1, NewIndex: 0, Object: "b2"},
			},
			expected: Delta[string]{
				Objects:       []string{"b2", "c", "a2"},
				Modifications: []Row[string]{{Index: 0, Object: "b2"}, {Index: 2, Object: "a2"}},
			},
		},
		{
			name: "mixed",
			prev: []string{"a", "b", "c", "d"},
			batch: []store.RowChange{
				{Type: store.RowDelete, OldIndex: 1, NewIndex: -1, Object: "b"},
				{Type: store.RowInsert, OldIndex: -1, NewIndex: 0, Object: "z"},
				{Type: store.RowMove, OldIndex: 3, NewIndex: 1, Object: "d2"},
			},
			expected: Delta[string]{
				Objects:       []string{"z", "d2", "a", "c"},
				Deletions:     []int{1},
				Insertions:    []Row[string]{{Index: 0, Object: "z"}},
				Modifications: []Row[string]{{Index: 1, Object: "d2"}},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, Reduce(tc.prev, tc.batch))
		})
	}
}

type batchRecorder struct {
	batches [][]store.RowChange
	objects [][]any
}

func (r *batchRecorder) ControllerDidChange(_ *store.ResultsController, changes []store.RowChange, objects []any) {
	r.batches = append(r.batches, changes)
	r.objects = append(r.objects, objects)
}

func (r *batchRecorder) ControllerDidFail(*store.ResultsController, error) {}

// Rows shifting into or out of a window without changing are not reported by
// the controller; reducing its batch still has to land on the fetched window.
func TestReduceWindow(t *testing.T) {
	a, b, c, d := note{ID: "a", Rank: 1}, note{ID: "b", Rank: 2}, note{ID: "c", Rank: 3}, note{ID: "d", Rank: 4}
	tests := []struct {
		name     string
		req      query.Request[note]
		change   func(s *Session) error
		expected Delta[note]
	}{
		{
			name: "insert before window",
			req:  byRank.Prefix(2),
			change: func(s *Session) error {
				s.Insert(note{ID: "z"})
				return nil
			},
			expected: Delta[note]{
				Objects:    []note{{ID: "z"}, a},
				Deletions:  []int{1},
				Insertions: []Row[note]{{Index: 0, Object: note{ID: "z"}}},
			},
		},
		{
			name:   "delete before window",
			req:    byRank.DropFirst(1).Prefix(2),
			change: func(s *Session) error { return s.Delete(a) },
			expected: Delta[note]{
				Objects:    []note{c, d},
				Deletions:  []int{0},
				Insertions: []Row[note]{{Index: 1, Object: d}},
			},
		},
		{
			name: "move out of window",
			req:  byRank.Prefix(3),
			change: func(s *Session) error {
				s.Insert(note{ID: "a", Rank: 10})
				return nil
			},
			expected: Delta[note]{
				Objects:    []note{b, c, d},
				Deletions:  []int{0},
				Insertions: []Row[note]{{Index: 2, Object: d}},
			},
		},
		{
			name: "move within window",
			req:  byRank.Prefix(3),
			change: func(s *Session) error {
				s.Insert(note{ID: "b"})
				return nil
			},
			expected: Delta[note]{
				Objects:       []note{{ID: "b"}, a, c},
				Modifications: []Row[note]{{Index: 0, Object: note{ID: "b"}}},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx, st := openStore(t)
			main := st.Main()
			req, err := tc.req.Compile(st)
			require.NoError(t, err)

			r := &batchRecorder{}
			var prev []any
			require.NoError(t, main.Perform(ctx, func(s *Session) error {
				for _, n := range []note{a, b, c, d} {
					s.Insert(n)
				}
				if err := s.Save(); err != nil {
					return err
				}
				var err error
				_, prev, err = s.Watch(req, r)
				return err
			}))
			require.NoError(t, main.Perform(ctx, func(s *Session) error {
				if err := tc.change(s); err != nil {
					return err
				}
				return s.Save()
			}))

			require.Len(t, r.batches, 1)
			delta := Reduce(entities[note](prev), r.batches[0])
			require.Equal(t, tc.expected, delta)
			require.Equal(t, entities[note](r.objects[0]), delta.Objects)
		})
	}
}
