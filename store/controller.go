package store

import (
	"fmt"
	"reflect"
)

// RowChangeType is the type of a row change reported by a results controller
type RowChangeType int

// RowChangeType values
const (
	RowInsert RowChangeType = iota
	RowDelete
	RowUpdate
	RowMove
)

var rowChangeTypeNames = [...]string{"insert", "delete", "update", "move"}

func (t RowChangeType) String() string {
	if t < 0 || int(t) >= len(rowChangeTypeNames) {
		return fmt.Sprintf("RowChangeType(%d)", int(t))
	}
	return rowChangeTypeNames[t]
}

// RowChange is a change of one row of a results controller's result set.
//
// OldIndex is the row's position in the previous result set and is -1 for
// insertions. NewIndex is the row's position in the new result set and is -1
// for deletions. Object is the new version of the record, or the last one for
// deletions.
type RowChange struct {
	Type     RowChangeType
	OldIndex int
	NewIndex int
	Object   any
}

// Delegate receives the updates of a results controller. Its methods are
// called on the context's lane: they must not call Perform on that context.
type Delegate interface {
	// ControllerDidChange reports the row changes caused by one save or
	// merge, along with the complete new result set
	ControllerDidChange(rc *ResultsController, changes []RowChange, objects []any)
	// ControllerDidFail reports a failure. The controller is detached and
	// reports nothing after it.
	ControllerDidFail(rc *ResultsController, err error)
}

// ResultsController tracks the result set of a request in one context.
// Every save of the context and every merge into it recomputes the result
// set and reports the difference to the delegate.
type ResultsController struct {
	c        *Context
	req      Request
	delegate Delegate
	serial   int
	objects  []any // guarded by the context's lane
}

// Watch fetches the records matching the request and starts tracking them.
// No change can slip in between the fetch and the start of tracking.
func (s *Session) Watch(req Request, delegate Delegate) (*ResultsController, []any, error) {
	objs, err := s.Fetch(req)
	if err != nil {
		return nil, nil, err
	}
	rc := &ResultsController{c: s.c, req: req, delegate: delegate, objects: objs}
	s.c.attach(rc)
	return rc, objs, nil
}

// Request returns the tracked request
func (rc *ResultsController) Request() Request {
	return rc.req
}

// Close stops tracking. The delegate is not called after Close returns,
// unless a call is already in progress.
func (rc *ResultsController) Close() {
	rc.c.detach(rc)
}

// refresh recomputes the results of every live controller. Must be called on
// the lane.
func (c *Context) refresh(changed map[EID]struct{}) {
	for _, rc := range c.liveControllers() {
		objs, err := c.fetch(rc.req)
		if err != nil {
			if c.detach(rc) {
				rc.delegate.ControllerDidFail(rc, err)
			}
			continue
		}
		changes := diffRows(rc.req.Kind, rc.objects, objs, changed)
		rc.objects = objs
		if len(changes) > 0 {
			rc.delegate.ControllerDidChange(rc, changes, objs)
		}
	}
}

// diffRows lists deletions by old index, then insertions, updates and moves
// by new index. A record present in both sets is updated if it was changed
// and kept its position, moved if it was changed and changed its position.
func diffRows(kind *Kind, before, after []any, changed map[EID]struct{}) []RowChange {
	oldIndex := make(map[string]int, len(before))
	for i, obj := range before {
		oldIndex[kind.idOf(obj)] = i
	}
	newIndex := make(map[string]int, len(after))
	for i, obj := range after {
		newIndex[kind.idOf(obj)] = i
	}

	var changes []RowChange
	for i, obj := range before {
		if _, ok := newIndex[kind.idOf(obj)]; !ok {
			changes = append(changes, RowChange{Type: RowDelete, OldIndex: i, NewIndex: -1, Object: obj})
		}
	}
	for j, obj := range after {
		id := kind.idOf(obj)
		i, ok := oldIndex[id]
		if !ok {
			changes = append(changes, RowChange{Type: RowInsert, OldIndex: -1, NewIndex: j, Object: obj})
			continue
		}
		_, isChanged := changed[EID{Kind: kind, ID: id}]
		if !isChanged && reflect.DeepEqual(before[i], obj) {
			continue
		}
		typ := RowUpdate
		if i != j {
			typ = RowMove
		}
		changes = append(changes, RowChange{Type: typ, OldIndex: i, NewIndex: j, Object: obj})
	}
	return changes
}
