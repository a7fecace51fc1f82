package quarry

import (
	"context"
	"testing"

	"github.com/ridge/quarry/query"
	"github.com/ridge/quarry/store"
	"github.com/ridge/quarry/test"
	"github.com/stretchr/testify/require"
)

type noteID string

type note struct {
	Meta  `quarry:"name=note"`
	ID    noteID `quarry:"identity"`
	Title string `quarry:"name=title"`
	Slug  string `quarry:"name=slug"`
	Rank  int    `quarry:"name=rank"`
}

var (
	kindNote = KindOf(note{},
		FieldIndex("title", IgnoreCase),
		UniquifyIndex(FieldIndex("slug", SkipZeros)),
	)

	title = query.NewOrderedField[note, string]("title")
	slug  = query.NewField[note, string]("slug")
	rank  = query.NewOrderedField[note, int]("rank")

	byRank = query.NewRequest[note]().Sorted(rank.Asc())
)

// draft is a domain value stored as a note
type draft struct {
	id    noteID
	title string
	slug  string
	rank  int
}

func (d draft) Record(*Session) (any, error) {
	return note{ID: d.id, Title: d.title, Slug: d.slug, Rank: d.rank}, nil
}

func (d draft) note() note {
	return note{ID: d.id, Title: d.title, Slug: d.slug, Rank: d.rank}
}

func openStore(t *testing.T) (context.Context, *store.Store) {
	ctx := test.Context(t)
	st, err := store.Open(ctx, store.Config{Kinds: []*Kind{kindNote}})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })
	return ctx, st
}

func newService(t *testing.T) (context.Context, *Service) {
	ctx, st := openStore(t)
	svc := New(ctx, Config{Store: st})
	t.Cleanup(svc.Close)
	return ctx, svc
}

func insert(t *testing.T, ctx context.Context, svc *Service, drafts ...draft) {
	for _, d := range drafts {
		require.NoError(t, svc.Insert(ctx, d))
	}
}
