package quarry

import (
	"context"
	"errors"
	"sync"

	"github.com/ridge/quarry/indices"
	"github.com/ridge/quarry/meta"
	"github.com/ridge/quarry/query"
	"github.com/ridge/quarry/store"
	"github.com/ridge/quarry/tlog"
	"go.uber.org/zap"
)

// Kind describes a particular type of records
type Kind = store.Kind

// KindOf creates a Kind from a record example and index definitions
var KindOf = store.KindOf

// Meta is a type for dummy fields bearing tags for the containing structure
type Meta = meta.Meta

// Session gives access to records from inside an execution context
type Session = store.Session

// Convenience reexports from indices package
var (
	FieldIndex    = indices.FieldIndex
	UniquifyIndex = indices.UniquifyIndex
	SkipZeros     = indices.SkipZeros
	IgnoreCase    = indices.IgnoreCase
)

// ErrOwnerGone is returned by operations on a closed service. The operation
// had no effect.
var ErrOwnerGone = errors.New("service is closed")

// ToStorage is implemented by domain values that can be stored
type ToStorage interface {
	// Record returns the stored record for the value, resolving or creating
	// it through the session
	Record(s *Session) (any, error)
}

// Config is the configuration of a Service
type Config struct {
	Store *store.Store

	// ReadFromMain makes the service read through the store's main context
	// instead of a dedicated background context
	ReadFromMain bool

	// Logger defaults to the logger of the context passed to New
	Logger *zap.Logger
}

// Service executes requests and writes against a store.
//
// Writes go through a dedicated write context. Reads go through the read
// context, into which every save of the write context is merged before the
// write operation returns. One operation runs at a time: others wait for
// their turn.
type Service struct {
	store *store.Store
	write *store.Context
	read  *store.Context
	gate  chan struct{}

	gone      chan struct{}
	closeOnce sync.Once
	stopMerge func()

	logger *zap.Logger
}

// New creates a service
func New(ctx context.Context, config Config) *Service {
	logger := config.Logger
	if logger == nil {
		logger = tlog.Get(ctx)
	}
	svc := &Service{
		store:     config.Store,
		write:     config.Store.NewBackgroundContext("write"),
		gate:      make(chan struct{}, 1),
		gone:      make(chan struct{}),
		stopMerge: func() {},
		logger:    logger,
	}
	if config.ReadFromMain {
		svc.read = config.Store.Main()
	} else {
		svc.read = config.Store.NewBackgroundContext("read")
	}
	svc.stopMerge = svc.write.OnDidSave(svc.merge)
	return svc
}

func (svc *Service) merge(ctx context.Context, n store.SaveNotification) {
	// the write has been committed: merge even if the caller gave up
	ctx = context.WithoutCancel(ctx)
	err := svc.read.Perform(ctx, func(s *Session) error {
		s.Merge(n)
		return nil
	})
	if err != nil {
		svc.logger.Error("Failed to merge save into read context", zap.Uint64("seq", n.Seq), zap.Error(err))
	}
}

// Close closes the service. Operations started after Close fail with
// ErrOwnerGone. Operations in progress run to completion.
func (svc *Service) Close() {
	svc.closeOnce.Do(func() {
		close(svc.gone)
		svc.stopMerge()
	})
}

// Store returns the underlying store
func (svc *Service) Store() *store.Store {
	return svc.store
}

func (svc *Service) acquire(ctx context.Context) error {
	select {
	case <-svc.gone:
		return ErrOwnerGone
	default:
	}
	select {
	case svc.gate <- struct{}{}:
	case <-svc.gone:
		return ErrOwnerGone
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-svc.gone:
		<-svc.gate
		return ErrOwnerGone
	default:
	}
	return nil
}

func (svc *Service) release() {
	<-svc.gate
}

// perform runs fn in an execution context while holding the service gate
func (svc *Service) perform(ctx context.Context, op string, c *store.Context, fn func(s *Session) error) error {
	if err := svc.acquire(ctx); err != nil {
		return err
	}
	defer svc.release()

	svc.logger.Debug("Operation", zap.String("op", op), zap.Stringer("context", c))
	return c.Perform(ctx, fn)
}

// writeOp runs fn in the write context and saves. If fn or the save fails,
// the write context is rolled back.
func (svc *Service) writeOp(ctx context.Context, op string, fn func(s *Session) error) error {
	return svc.perform(ctx, op, svc.write, func(s *Session) error {
		if err := fn(s); err != nil {
			s.Rollback()
			return err
		}
		if err := s.Save(); err != nil {
			s.Rollback()
			return err
		}
		return nil
	})
}

// Write runs fn in the write context and saves its changes, together with
// any pending ones. If fn or the save fails, the write context is rolled
// back.
func (svc *Service) Write(ctx context.Context, fn func(s *Session) error) error {
	return svc.writeOp(ctx, "write", fn)
}

// Save saves the pending changes of the write context, such as records made
// by FirstOrCreate. If the save fails, the write context is rolled back.
func (svc *Service) Save(ctx context.Context) error {
	return svc.writeOp(ctx, "save", func(*Session) error { return nil })
}

// Insert stores the record of a domain value and saves
func (svc *Service) Insert(ctx context.Context, model ToStorage) error {
	return svc.writeOp(ctx, "insert", func(s *Session) error {
		obj, err := model.Record(s)
		if err != nil {
			return err
		}
		s.Insert(obj)
		return nil
	})
}

// Delete deletes the record of a domain value and saves
func (svc *Service) Delete(ctx context.Context, model ToStorage) error {
	return svc.writeOp(ctx, "delete", func(s *Session) error {
		obj, err := model.Record(s)
		if err != nil {
			return err
		}
		return s.Delete(obj)
	})
}

// Execute returns the entities matching the request, in order. Returns an
// empty slice if nothing matches.
func Execute[E any](ctx context.Context, svc *Service, req query.Request[E]) ([]E, error) {
	return ExecuteMapped(ctx, svc, req, func(e E) (E, bool) { return e, true })
}

// ExecuteMapped returns the results of converting the entities matching the
// request, in order. Entities that fail to convert are skipped.
func ExecuteMapped[E, T any](ctx context.Context, svc *Service, req query.Request[E], convert func(E) (T, bool)) ([]T, error) {
	raw, err := req.Compile(svc.store)
	if err != nil {
		return nil, err
	}
	res := []T{}
	err = svc.perform(ctx, "execute", svc.read, func(s *Session) error {
		return s.Iterate(raw, func(batch []any) error {
			for _, obj := range batch {
				if t, ok := convert(obj.(E)); ok {
					res = append(res, t)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Count returns the number of entities Execute would return
func Count[E any](ctx context.Context, svc *Service, req query.Request[E]) (int, error) {
	raw, err := req.Compile(svc.store)
	if err != nil {
		return 0, err
	}
	var n int
	err = svc.perform(ctx, "count", svc.read, func(s *Session) error {
		var err error
		n, err = s.Count(raw)
		return err
	})
	return n, err
}

// First returns the first entity matching the request, if any
func First[E any](ctx context.Context, svc *Service, req query.Request[E]) (E, bool, error) {
	return FirstMapped(ctx, svc, req, func(e E) (E, bool) { return e, true })
}

// FirstMapped returns the result of converting the first entity matching the
// request. Returns false if nothing matches or the conversion fails.
func FirstMapped[E, T any](ctx context.Context, svc *Service, req query.Request[E], convert func(E) (T, bool)) (T, bool, error) {
	var zero T
	res, err := ExecuteMapped(ctx, svc, req.Prefix(1), convert)
	if err != nil || len(res) == 0 {
		return zero, false, err
	}
	return res[0], true, nil
}

// FirstOrCreate returns the first entity matching the request in the write
// context. If nothing matches, it returns a new entity with a fresh identity,
// staged in the write context: the caller is responsible for saving it.
func FirstOrCreate[E any](ctx context.Context, svc *Service, req query.Request[E]) (E, bool, error) {
	var res E
	created := false
	raw, err := req.Prefix(1).Compile(svc.store)
	if err != nil {
		return res, false, err
	}
	err = svc.perform(ctx, "firstOrCreate", svc.write, func(s *Session) error {
		objs, err := s.Fetch(raw)
		if err != nil {
			return err
		}
		if len(objs) > 0 {
			res = objs[0].(E)
			return nil
		}
		res = s.New(raw.Kind).(E)
		created = true
		return nil
	})
	return res, created, err
}
