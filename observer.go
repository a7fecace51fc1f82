package quarry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/ridge/parallel"
	"github.com/ridge/quarry/query"
	"github.com/ridge/quarry/store"
	"go.uber.org/zap"
)

// ErrAlreadyObserved is returned when an observer is observed a second time
var ErrAlreadyObserved = errors.New("observer is already observed")

// Event is an event of a change observer: Initial, Delta or Failure
type Event[E any] interface {
	isEvent(E)
}

// Initial carries the result set at the start of observation
type Initial[E any] struct {
	Objects []E
}

// Delta carries the result set after one save or merge, along with its
// difference from the previous one. Deletions are positions in the previous
// result set. Insertions and Modifications are positions in the new one.
type Delta[E any] struct {
	Objects       []E
	Deletions     []int
	Insertions    []Row[E]
	Modifications []Row[E]
}

// Failure ends observation
type Failure[E any] struct {
	Err error
}

func (Initial[E]) isEvent(E) {}
func (Delta[E]) isEvent(E)   {}
func (Failure[E]) isEvent(E) {}

// State is the state of an observer
type State int

// State values
const (
	Unobserved State = iota
	Observed
	Failed
)

func (s State) String() string {
	switch s {
	case Unobserved:
		return "unobserved"
	case Observed:
		return "observed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type update struct {
	changes []store.RowChange
	objects []any
	err     error
}

// Observer tracks the result set of a request in the service's read context
type Observer[E any] struct {
	svc *Service
	raw store.Request

	mu         sync.Mutex
	state      State
	stopped    bool
	queue      []update
	group      *parallel.Group
	controller *store.ResultsController

	signal chan struct{}
}

// Observe creates an observer for a request
func Observe[E any](svc *Service, req query.Request[E]) (*Observer[E], error) {
	raw, err := req.Compile(svc.store)
	if err != nil {
		return nil, err
	}
	return &Observer[E]{svc: svc, raw: raw, signal: make(chan struct{}, 1)}, nil
}

// State returns the state of the observer
func (o *Observer[E]) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Observe fetches the current result set and passes it to handler as Initial
// before returning. After that, every save or merge changing the result set
// is passed to handler as a Delta, in order, from a separate goroutine. A
// failure is passed as Failure and ends observation.
//
// If the initial fetch fails, handler gets Failure and the error is returned
// as well. Observation ends when ctx is done or Stop is called. To end it
// from inside handler, cancel ctx: Stop waits for handler to return.
//
// An observer can only be observed once. Later calls return
// ErrAlreadyObserved.
func (o *Observer[E]) Observe(ctx context.Context, handler func(Event[E])) error {
	o.mu.Lock()
	if o.state != Unobserved {
		o.mu.Unlock()
		if query.Debug {
			panic(ErrAlreadyObserved)
		}
		return ErrAlreadyObserved
	}
	o.state = Observed
	o.mu.Unlock()

	var objs []any
	err := o.svc.perform(ctx, "observe", o.svc.read, func(s *Session) error {
		rc, res, err := s.Watch(o.raw, delegate[E]{o: o})
		if err != nil {
			return err
		}
		o.controller, objs = rc, res
		return nil
	})
	if err != nil {
		o.fail()
		handler(Failure[E]{Err: err})
		return err
	}

	prev := entities[E](objs)
	handler(Initial[E]{Objects: prev})

	o.mu.Lock()
	stopped := o.stopped
	if !stopped {
		o.group = parallel.NewGroup(ctx)
		o.group.Spawn("pump", parallel.Exit, func(ctx context.Context) error {
			return o.pump(ctx, prev, handler)
		})
	}
	o.mu.Unlock()
	if stopped {
		o.controller.Close()
	}
	return nil
}

// Stop ends observation and waits until the handler is no longer called.
// Stopping a stopped observer does nothing. If Observe has not returned
// yet, it returns after Initial without delivering anything else.
//
// Stop must not be called from the handler of a Delta or a Failure.
func (o *Observer[E]) Stop() {
	o.mu.Lock()
	o.stopped = true
	group := o.group
	o.group = nil
	o.mu.Unlock()
	if group == nil {
		return
	}
	group.Exit(nil)
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		o.svc.logger.Warn("Observer stopped with error", zap.Stringer("request", o.raw), zap.Error(err))
	}
}

func (o *Observer[E]) fail() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Failed
}

func (o *Observer[E]) enqueue(u update) {
	o.mu.Lock()
	o.queue = append(o.queue, u)
	o.mu.Unlock()
	select {
	case o.signal <- struct{}{}:
	default:
	}
}

func (o *Observer[E]) drain() []update {
	o.mu.Lock()
	defer o.mu.Unlock()
	res := o.queue
	o.queue = nil
	return res
}

func (o *Observer[E]) pump(ctx context.Context, prev []E, handler func(Event[E])) error {
	defer o.controller.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-o.signal:
		}
		for _, u := range o.drain() {
			if ctx.Err() != nil {
				return nil
			}
			if u.err != nil {
				o.fail()
				handler(Failure[E]{Err: u.err})
				return nil
			}
			delta := Reduce(prev, u.changes)
			objects := entities[E](u.objects)
			if query.Debug && !reflect.DeepEqual(delta.Objects, objects) {
				panic(fmt.Errorf("reduced result set of %s diverged from the fetched one", o.raw))
			}
			delta.Objects = objects
			prev = objects
			handler(delta)
		}
	}
}

// delegate receives controller updates on the read context's lane and queues
// them for the pump
type delegate[E any] struct {
	o *Observer[E]
}

func (d delegate[E]) ControllerDidChange(_ *store.ResultsController, changes []store.RowChange, objects []any) {
	d.o.enqueue(update{changes: changes, objects: objects})
}

func (d delegate[E]) ControllerDidFail(_ *store.ResultsController, err error) {
	d.o.enqueue(update{err: err})
}

func entities[E any](objs []any) []E {
	res := make([]E, 0, len(objs))
	for _, obj := range objs {
		res = append(res, obj.(E))
	}
	return res
}
