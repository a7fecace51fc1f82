package quarry

import (
	"context"
	"testing"
	"time"

	"github.com/ridge/quarry/query"
	"github.com/ridge/quarry/store"
	"github.com/ridge/quarry/test"
	"github.com/stretchr/testify/require"
)

func observe(t *testing.T, svc *Service, req query.Request[note]) (*Observer[note], <-chan Event[note]) {
	obs, err := Observe(svc, req)
	require.NoError(t, err)
	events := make(chan Event[note], 16)
	require.NoError(t, obs.Observe(test.Context(t), func(ev Event[note]) { events <- ev }))
	t.Cleanup(obs.Stop)
	return obs, events
}

func TestObserveInsert(t *testing.T) {
	ctx, svc := newService(t)
	obs, events := observe(t, svc, byRank)
	require.Equal(t, Observed, obs.State())
	test.AssertForefrontEvents(t, events, Event[note](Initial[note]{Objects: []note{}}))

	d := draft{id: "n1", title: "a", rank: 1}
	insert(t, ctx, svc, d)
	test.AssertEvents(t, events, Event[note](Delta[note]{
		Objects:    []note{d.note()},
		Insertions: []Row[note]{{Index: 0, Object: d.note()}},
	}))
}

func TestObserveChanges(t *testing.T) {
	ctx, svc := newService(t)
	a := draft{id: "a", title: "a", rank: 1}
	b := draft{id: "b", title: "b", rank: 2}
	c := draft{id: "c", title: "c", rank: 3}
	insert(t, ctx, svc, a, b, c)

	_, events := observe(t, svc, byRank)
	test.AssertForefrontEvents(t, events, Event[note](Initial[note]{Objects: []note{a.note(), b.note(), c.note()}}))

	// b moves to the end
	b.rank = 4
	insert(t, ctx, svc, b)
	test.AssertForefrontEvents(t, events, Event[note](Delta[note]{
		Objects:       []note{a.note(), c.note(), b.note()},
		Modifications: []Row[note]{{Index: 2, Object: b.note()}},
	}))

	// a changes in place
	a.title = "A"
	insert(t, ctx, svc, a)
	test.AssertForefrontEvents(t, events, Event[note](Delta[note]{
		Objects:       []note{a.note(), c.note(), b.note()},
		Modifications: []Row[note]{{Index: 0, Object: a.note()}},
	}))

	require.NoError(t, svc.Delete(ctx, c))
	test.AssertEvents(t, events, Event[note](Delta[note]{
		Objects:   []note{a.note(), b.note()},
		Deletions: []int{1},
	}))
}

func TestObserveUnrelated(t *testing.T) {
	ctx, svc := newService(t)
	_, events := observe(t, svc, query.NewRequest[note]().Filtered(rank.Gt(10)))
	test.AssertForefrontEvents(t, events, Event[note](Initial[note]{Objects: []note{}}))

	insert(t, ctx, svc, draft{id: "n1", rank: 1})
	test.AssertNoEvents(t, events, 50*time.Millisecond)
}

func TestObserveTwice(t *testing.T) {
	_, svc := newService(t)
	obs, _ := observe(t, svc, byRank)
	err := obs.Observe(test.Context(t), func(Event[note]) {})
	require.ErrorIs(t, err, ErrAlreadyObserved)
	require.Equal(t, Observed, obs.State())
}

func TestObserveStop(t *testing.T) {
	ctx, svc := newService(t)
	obs, events := observe(t, svc, byRank)
	test.AssertForefrontEvents(t, events, Event[note](Initial[note]{Objects: []note{}}))

	obs.Stop()
	insert(t, ctx, svc, draft{id: "n1"})
	test.AssertNoEvents(t, events, 50*time.Millisecond)
}

func TestObserveStopInInitial(t *testing.T) {
	ctx, svc := newService(t)
	obs, err := Observe(svc, byRank)
	require.NoError(t, err)
	t.Cleanup(obs.Stop)

	events := make(chan Event[note], 16)
	require.NoError(t, obs.Observe(test.Context(t), func(ev Event[note]) {
		events <- ev
		if _, ok := ev.(Initial[note]); ok {
			obs.Stop()
		}
	}))
	test.AssertForefrontEvents(t, events, Event[note](Initial[note]{Objects: []note{}}))

	insert(t, ctx, svc, draft{id: "n1"})
	test.AssertNoEvents(t, events, 50*time.Millisecond)
}

func TestObserveCancelInDelta(t *testing.T) {
	ctx, svc := newService(t)
	obs, err := Observe(svc, byRank)
	require.NoError(t, err)
	t.Cleanup(obs.Stop)

	obsCtx, cancel := context.WithCancel(test.Context(t))
	defer cancel()
	events := make(chan Event[note], 16)
	require.NoError(t, obs.Observe(obsCtx, func(ev Event[note]) {
		if _, ok := ev.(Delta[note]); ok {
			cancel()
		}
		events <- ev
	}))
	test.AssertForefrontEvents(t, events, Event[note](Initial[note]{Objects: []note{}}))

	n1 := draft{id: "n1", rank: 1}
	insert(t, ctx, svc, n1)
	test.AssertForefrontEvents(t, events, Event[note](Delta[note]{
		Objects:    []note{n1.note()},
		Insertions: []Row[note]{{Index: 0, Object: n1.note()}},
	}))

	insert(t, ctx, svc, draft{id: "n2", rank: 2})
	test.AssertNoEvents(t, events, 50*time.Millisecond)
}

func TestObserveWindow(t *testing.T) {
	ctx, svc := newService(t)
	a := draft{id: "a", title: "a", rank: 1}
	b := draft{id: "b", title: "b", rank: 2}
	c := draft{id: "c", title: "c", rank: 3}
	insert(t, ctx, svc, a, b, c)

	req := byRank.Prefix(2)
	_, events := observe(t, svc, req)
	test.AssertForefrontEvents(t, events, Event[note](Initial[note]{Objects: []note{a.note(), b.note()}}))

	z := draft{id: "z", title: "z"}
	insert(t, ctx, svc, z)
	expected := Delta[note]{
		Objects:    []note{z.note(), a.note()},
		Deletions:  []int{1},
		Insertions: []Row[note]{{Index: 0, Object: z.note()}},
	}
	test.AssertEvents(t, events, Event[note](expected))

	fetched, err := Execute(ctx, svc, req)
	require.NoError(t, err)
	require.Equal(t, expected.Objects, fetched)
	require.Equal(t, expected, Reduce([]note{a.note(), b.note()}, []store.RowChange{
		{Type: store.RowDelete, OldIndex: 1, NewIndex: -1, Object: b.note()},
		{Type: store.RowInsert, OldIndex: -1, NewIndex: 0, Object: z.note()},
	}))
}

func TestObserveStoreClosed(t *testing.T) {
	_, svc := newService(t)
	obs, events := observe(t, svc, byRank)
	test.AssertForefrontEvents(t, events, Event[note](Initial[note]{Objects: []note{}}))

	require.NoError(t, svc.Store().Close())
	test.AssertEvents(t, events, Event[note](Failure[note]{Err: store.ErrClosed}))
	require.Equal(t, Failed, obs.State())
}

func TestObserveClosedService(t *testing.T) {
	_, svc := newService(t)
	svc.Close()

	obs, err := Observe(svc, byRank)
	require.NoError(t, err)
	events := make(chan Event[note], 1)
	err = obs.Observe(test.Context(t), func(ev Event[note]) { events <- ev })
	require.ErrorIs(t, err, ErrOwnerGone)
	test.AssertEvents(t, events, Event[note](Failure[note]{Err: ErrOwnerGone}))
	require.Equal(t, Failed, obs.State())
}

func TestObserveInvalidRequest(t *testing.T) {
	_, svc := newService(t)
	_, err := Observe(svc, query.NewRequest[unregistered]())
	require.ErrorIs(t, err, query.ErrInvalidFetchRequest)
}
