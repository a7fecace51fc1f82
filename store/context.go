package store

import (
	"context"
	"slices"
	"sync"

	"github.com/hashicorp/go-memdb"
)

// Change is a single record change done by a save. Before is nil for
// insertions, After is nil for deletions.
type Change struct {
	EID    EID
	Before any
	After  any
}

// SaveNotification describes a save committed by an execution context. It
// carries everything needed to merge the save into another context.
type SaveNotification struct {
	Source  *Context
	Seq     uint64 // commit sequence number
	Changes []Change

	snapshot *memdb.Txn
}

// Inserted returns the records created by the save
func (n SaveNotification) Inserted() []any {
	var res []any
	for _, change := range n.Changes {
		if change.Before == nil {
			res = append(res, change.After)
		}
	}
	return res
}

// Updated returns the new versions of records modified by the save
func (n SaveNotification) Updated() []any {
	var res []any
	for _, change := range n.Changes {
		if change.Before != nil && change.After != nil {
			res = append(res, change.After)
		}
	}
	return res
}

// Deleted returns the identities of records deleted by the save
func (n SaveNotification) Deleted() []EID {
	var res []EID
	for _, change := range n.Changes {
		if change.After == nil {
			res = append(res, change.EID)
		}
	}
	return res
}

func (n SaveNotification) eids() map[EID]struct{} {
	res := make(map[EID]struct{}, len(n.Changes))
	for _, change := range n.Changes {
		res[change.EID] = struct{}{}
	}
	return res
}

// DidSaveHandler is called after a context commits a save. It runs on the
// saving context's lane: it must not call Perform on that same context.
type DidSaveHandler func(ctx context.Context, n SaveNotification)

type stagedChange struct {
	eid EID
	obj any // nil for deletions
}

// Context is an execution context: a confinement lane for record access.
// Closures passed to Perform run one at a time.
type Context struct {
	store *Store
	name  string
	lane  chan struct{}

	// guarded by lane
	base   *memdb.Txn
	seq    uint64
	staged map[EID]any // nil value marks a deletion
	order  []EID

	mu          sync.Mutex
	controllers map[*ResultsController]struct{}
	handlers    map[int]DidSaveHandler
	nextHandler int
	nextSerial  int
}

// Name returns the name the context was created with
func (c *Context) Name() string {
	return c.name
}

func (c *Context) String() string {
	return c.name
}

// Store returns the store the context belongs to
func (c *Context) Store() *Store {
	return c.store
}

// Perform runs fn on the context's lane, waiting for closures already running
// there. The session passed to fn is valid only until fn returns.
//
// Returns ErrClosed if the store is closed, ctx.Err() if ctx is done before
// the lane frees up, and the error returned by fn otherwise.
func (c *Context) Perform(ctx context.Context, fn func(s *Session) error) error {
	select {
	case c.lane <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.lane }()

	if c.store.isClosed() {
		return ErrClosed
	}

	s := &Session{ctx: ctx, c: c}
	defer s.invalidate()
	return fn(s)
}

// OnDidSave registers a handler called after every save committed by this
// context. The returned function unregisters the handler.
func (c *Context) OnDidSave(handler DidSaveHandler) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextHandler
	c.nextHandler++
	c.handlers[id] = handler
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers, id)
	}
}

func (c *Context) didSaveHandlers() []DidSaveHandler {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]int, 0, len(c.handlers))
	for id := range c.handlers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	res := make([]DidSaveHandler, 0, len(ids))
	for _, id := range ids {
		res = append(res, c.handlers[id])
	}
	return res
}

func (c *Context) stage(eid EID, obj any) {
	if _, ok := c.staged[eid]; !ok {
		c.order = append(c.order, eid)
	}
	c.staged[eid] = obj
}

func (c *Context) unstage(eid EID) {
	if _, ok := c.staged[eid]; !ok {
		return
	}
	delete(c.staged, eid)
	c.order = slices.DeleteFunc(c.order, func(e EID) bool { return e == eid })
}

func (c *Context) resetStaged() {
	c.staged = map[EID]any{}
	c.order = nil
}

func (c *Context) stagedChanges() []stagedChange {
	res := make([]stagedChange, 0, len(c.order))
	for _, eid := range c.order {
		res = append(res, stagedChange{eid: eid, obj: c.staged[eid]})
	}
	return res
}

func (c *Context) attach(rc *ResultsController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rc.serial = c.nextSerial
	c.nextSerial++
	c.controllers[rc] = struct{}{}
}

func (c *Context) detach(rc *ResultsController) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.controllers[rc]
	delete(c.controllers, rc)
	return ok
}

func (c *Context) detachAll() []*ResultsController {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([]*ResultsController, 0, len(c.controllers))
	for rc := range c.controllers {
		res = append(res, rc)
	}
	c.controllers = map[*ResultsController]struct{}{}
	return res
}

func (c *Context) liveControllers() []*ResultsController {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([]*ResultsController, 0, len(c.controllers))
	for rc := range c.controllers {
		res = append(res, rc)
	}
	slices.SortFunc(res, func(a, b *ResultsController) int { return a.serial - b.serial })
	return res
}
