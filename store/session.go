package store

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"github.com/ridge/must/v2"
	"github.com/ridge/quarry/indices"
	"go.uber.org/zap"
)

// Session gives access to records from inside Context.Perform. Reads see the
// context's view of the store: the state as of its last save or merge,
// overlaid with its unsaved changes. Writes are staged in the context until
// Save or Rollback.
//
// A Session must not be used after the closure it was passed to returns.
type Session struct {
	ctx  context.Context
	c    *Context
	done bool
}

func (s *Session) invalidate() {
	s.done = true
}

func (s *Session) check() {
	if s.done {
		panic(fmt.Sprintf("session of context %s used outside of Perform", s.c.name))
	}
}

// Context returns the execution context of the session
func (s *Session) Context() *Context {
	return s.c
}

func (s *Session) checkKind(kind *Kind) error {
	if kind == nil || s.c.store.byStructType[kind.Type] != kind {
		return fmt.Errorf("%w: %v", ErrUnknownKind, kind)
	}
	return nil
}

func (c *Context) get(eid EID) any {
	if obj, ok := c.staged[eid]; ok {
		return obj
	}
	return must.OK1(c.base.First(eid.Kind.DBName, indices.IdentityName, eid.ID))
}

// Get returns the record of a kind with the given identity
func (s *Session) Get(kind *Kind, id string) (any, bool) {
	s.check()
	if err := s.checkKind(kind); err != nil {
		panic(err)
	}
	obj := s.c.get(EID{Kind: kind, ID: id})
	return obj, obj != nil
}

// matching returns the records matching the request's filter, unordered
func (c *Context) matching(req Request) []any {
	index, value := indices.IdentityName, any(nil)
	if req.Filter != nil {
		if name, v, ok := lookup(req.Kind, req.Filter); ok {
			index, value = name, v
		}
	}
	var iter memdb.ResultIterator
	if value != nil {
		iter = must.OK1(c.base.Get(req.Kind.DBName, index, value))
	} else {
		iter = must.OK1(c.base.Get(req.Kind.DBName, index))
	}

	f := newFolder()
	match := func(obj any) bool {
		return req.Filter == nil || req.Filter.match(reflect.ValueOf(obj), f)
	}

	var res []any
	for obj := iter.Next(); obj != nil; obj = iter.Next() {
		if _, ok := c.staged[EID{Kind: req.Kind, ID: req.Kind.idOf(obj)}]; ok {
			continue
		}
		if match(obj) {
			res = append(res, obj)
		}
	}
	for _, eid := range c.order {
		if eid.Kind != req.Kind {
			continue
		}
		if obj := c.staged[eid]; obj != nil && match(obj) {
			res = append(res, obj)
		}
	}
	return res
}

func (c *Context) fetch(req Request) ([]any, error) {
	sorter, err := compileSort(req.Kind, req.Sort)
	if err != nil {
		return nil, err
	}
	res := c.matching(req)
	slices.SortFunc(res, func(a, b any) int {
		return sorter.compare(reflect.ValueOf(a), reflect.ValueOf(b))
	})
	return window(res, req.Offset, req.Limit), nil
}

func window(objs []any, offset, limit int) []any {
	if offset >= len(objs) {
		return []any{}
	}
	objs = objs[offset:]
	if limit > 0 && limit < len(objs) {
		objs = objs[:limit]
	}
	return objs
}

// Fetch returns the records matching the request, in order
func (s *Session) Fetch(req Request) ([]any, error) {
	s.check()
	if err := s.checkKind(req.Kind); err != nil {
		return nil, err
	}
	return s.c.fetch(req)
}

// Iterate fetches the records matching the request and passes them to fn in
// batches of req.BatchSize records, or in a single batch if req.BatchSize is
// 0. Iteration stops at the first error returned by fn.
func (s *Session) Iterate(req Request, fn func(batch []any) error) error {
	objs, err := s.Fetch(req)
	if err != nil {
		return err
	}
	size := req.BatchSize
	if size <= 0 {
		size = len(objs)
	}
	for len(objs) > 0 {
		n := min(size, len(objs))
		if err := fn(objs[:n]); err != nil {
			return err
		}
		objs = objs[n:]
	}
	return nil
}

// Count returns the number of records Fetch would return
func (s *Session) Count(req Request) (int, error) {
	s.check()
	if err := s.checkKind(req.Kind); err != nil {
		return 0, err
	}
	n := max(len(s.c.matching(req))-req.Offset, 0)
	if req.Limit > 0 {
		n = min(n, req.Limit)
	}
	return n, nil
}

// Insert stages a record given by value or pointer, replacing any record with
// the same identity
func (s *Session) Insert(obj any) {
	s.check()
	obj = reflect.Indirect(reflect.ValueOf(obj)).Interface()
	s.c.stage(s.c.store.EIDOf(obj), obj)
}

// Delete stages the deletion of a record given by value or pointer. Returns
// ErrNotFound if the context does not see the record.
func (s *Session) Delete(obj any) error {
	s.check()
	eid := s.c.store.EIDOf(obj)
	if s.c.get(eid) == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, eid)
	}
	if must.OK1(s.c.base.First(eid.Kind.DBName, indices.IdentityName, eid.ID)) == nil {
		// never saved: forget it
		s.c.unstage(eid)
		return nil
	}
	s.c.stage(eid, nil)
	return nil
}

// New stages a zero record of the kind with a fresh time-ordered UUID as its
// identity, and returns it
func (s *Session) New(kind *Kind) any {
	s.check()
	if err := s.checkKind(kind); err != nil {
		panic(err)
	}
	v := reflect.New(kind.Type).Elem()
	id := must.OK1(uuid.NewV7()).String()
	v.FieldByIndex(kind.Identity().Index).SetString(id)
	obj := v.Interface()
	s.c.stage(EID{Kind: kind, ID: id}, obj)
	return obj
}

// HasChanges reports whether the context has unsaved changes
func (s *Session) HasChanges() bool {
	s.check()
	return len(s.c.order) > 0
}

// Save commits the context's unsaved changes, updates its results
// controllers and notifies its did-save handlers.
//
// If the save fails nothing is committed and the unsaved changes stay in the
// context.
func (s *Session) Save() error {
	s.check()
	c := s.c
	if len(c.order) == 0 {
		return nil
	}
	changes, seq, snapshot, err := c.store.commit(s.ctx, c.stagedChanges())
	if err != nil {
		return fmt.Errorf("failed to save context %s: %w", c.name, err)
	}
	c.resetStaged()
	c.base = snapshot
	c.seq = seq
	if len(changes) == 0 {
		return nil
	}

	n := SaveNotification{Source: c, Seq: seq, Changes: changes, snapshot: snapshot}
	c.store.logger.Debug("Saved", zap.Stringer("context", c), zap.Uint64("seq", seq), zap.Int("changes", len(changes)))
	c.refresh(n.eids())
	for _, handler := range c.didSaveHandlers() {
		handler(s.ctx, n)
	}
	return nil
}

// Rollback discards the context's unsaved changes
func (s *Session) Rollback() {
	s.check()
	s.c.resetStaged()
}

// Merge brings the changes of a save committed by another context into this
// one. Unsaved changes to the same records are dropped: the store wins.
func (s *Session) Merge(n SaveNotification) {
	s.check()
	c := s.c
	dropped := false
	for _, change := range n.Changes {
		if _, ok := c.staged[change.EID]; ok {
			c.unstage(change.EID)
			dropped = true
		}
	}
	if n.Seq <= c.seq {
		if dropped {
			c.refresh(n.eids())
		}
		return
	}
	c.base = n.snapshot
	c.seq = n.Seq
	c.store.logger.Debug("Merged", zap.Stringer("context", c), zap.Stringer("source", n.Source), zap.Uint64("seq", n.Seq))
	c.refresh(n.eids())
}
