package store

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-memdb"
	"github.com/ridge/must/v2"
	"github.com/ridge/quarry/indices"
	"github.com/ridge/quarry/retry"
	"github.com/ridge/quarry/tlog"
	"go.uber.org/zap"
)

// Config is the configuration of a store
type Config struct {
	Kinds []*Kind

	// Path of the SQLite journal. The journal is created if it does not
	// exist. An empty path opens an in-memory-only store.
	Path string

	// Busy paces the retries of journal writes while another process holds
	// the journal's lock. The zero value means retry.DefaultBackoff.
	Busy retry.Backoff

	// Logger defaults to the logger of the context passed to Open
	Logger *zap.Logger
}

// Store is a transactional object store over MemDB, optionally backed by a
// SQLite journal.
//
// Records are accessed through execution contexts. Each context sees the store
// as of its last save or merge, overlaid with its own unsaved changes.
type Store struct {
	byStructType map[reflect.Type]*Kind
	memdb        *memdb.MemDB
	journal      *journal // nil for in-memory stores
	logger       *zap.Logger

	commitMu sync.Mutex // orders commits, including their journal writes
	seq      uint64     // commit counter, guarded by commitMu

	mu       sync.Mutex
	closed   bool
	main     *Context
	contexts []*Context
}

func generateMemDBSchema(kinds []*Kind) *memdb.DBSchema {
	tables := map[string]*memdb.TableSchema{}

	for _, kind := range kinds {
		tables[kind.DBName] = &memdb.TableSchema{Name: kind.DBName, Indexes: kind.indexSchema}
	}

	return &memdb.DBSchema{Tables: tables}
}

// Open opens a store. Records persisted in the journal are loaded before Open
// returns.
func Open(ctx context.Context, config Config) (*Store, error) {
	logger := config.Logger
	if logger == nil {
		logger = tlog.Get(ctx)
	}
	s := &Store{
		byStructType: map[reflect.Type]*Kind{},
		logger:       logger,
	}
	names := map[string]bool{}
	for _, kind := range config.Kinds {
		if s.byStructType[kind.Type] != nil {
			panic(fmt.Sprintf("duplicate entity type: %v", kind.Type))
		}
		if names[kind.DBName] {
			panic(fmt.Sprintf("duplicate kind name: %s", kind.DBName))
		}
		s.byStructType[kind.Type] = kind
		names[kind.DBName] = true
	}
	s.memdb = must.OK1(memdb.NewMemDB(generateMemDBSchema(config.Kinds)))

	if config.Path != "" {
		busy := config.Busy
		if busy == (retry.Backoff{}) {
			busy = retry.DefaultBackoff
		}
		j, err := openJournal(ctx, config.Path, config.Kinds, busy)
		if err != nil {
			return nil, err
		}
		if err := s.load(ctx, j, config.Kinds); err != nil {
			_ = j.close()
			return nil, err
		}
		s.journal = j
	}

	s.main = s.newContext("main")
	return s, nil
}

func (s *Store) load(ctx context.Context, j *journal, kinds []*Kind) error {
	txn := s.memdb.Txn(true)
	defer txn.Abort()

	total := 0
	for _, kind := range kinds {
		objs, err := j.load(ctx, kind)
		if err != nil {
			return err
		}
		for _, obj := range objs {
			must.OK(txn.Insert(kind.DBName, obj))
		}
		s.logger.Debug("Loaded kind from journal", zap.Stringer("kind", kind), zap.Int("records", len(objs)))
		total += len(objs)
	}
	txn.Commit()
	s.logger.Info("Store loaded", zap.Int("records", total))
	return nil
}

// Main returns the main execution context
func (s *Store) Main() *Context {
	return s.main
}

// NewBackgroundContext creates an additional execution context
func (s *Store) NewBackgroundContext(name string) *Context {
	return s.newContext(name)
}

func (s *Store) newContext(name string) *Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &Context{
		store:       s,
		name:        name,
		lane:        make(chan struct{}, 1),
		staged:      map[EID]any{},
		controllers: map[*ResultsController]struct{}{},
		handlers:    map[int]DidSaveHandler{},
	}
	s.commitMu.Lock()
	c.base = s.memdb.Txn(false)
	c.seq = s.seq
	s.commitMu.Unlock()
	s.contexts = append(s.contexts, c)
	return c
}

// KindFor returns the kind registered for a record type
func (s *Store) KindFor(t reflect.Type) (*Kind, bool) {
	kind, ok := s.byStructType[t]
	return kind, ok
}

// Kinds returns the registered kinds ordered by name
func (s *Store) Kinds() []*Kind {
	kinds := make([]*Kind, 0, len(s.byStructType))
	for _, kind := range s.byStructType {
		kinds = append(kinds, kind)
	}
	slices.SortFunc(kinds, func(a, b *Kind) int { return strings.Compare(a.DBName, b.DBName) })
	return kinds
}

func (s *Store) kindOf(obj any) *Kind {
	t := reflect.TypeOf(obj)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	kind := s.byStructType[t]
	if kind == nil {
		panic(fmt.Sprintf("unexpected type: %T", obj))
	}
	return kind
}

// EIDOf returns the EID for a record given by value or pointer. The record
// need not be present in the store.
func (s *Store) EIDOf(obj any) EID {
	kind := s.kindOf(obj)
	r := reflect.Indirect(reflect.ValueOf(obj))
	idField := kind.Identity()
	id := r.FieldByIndex(idField.Index).String()
	if id == "" {
		panic(fmt.Sprintf("%s.%s is not set", kind, idField.GoName))
	}
	return EID{Kind: kind, ID: id}
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close closes the store. Live results controllers fail with ErrClosed, and
// later operations on the store's contexts return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	contexts := slices.Clone(s.contexts)
	s.mu.Unlock()

	for _, c := range contexts {
		for _, rc := range c.detachAll() {
			rc.delegate.ControllerDidFail(rc, ErrClosed)
		}
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if s.journal != nil {
		if err := s.journal.close(); err != nil {
			return fmt.Errorf("failed to close journal: %w", err)
		}
	}
	s.logger.Debug("Store closed")
	return nil
}

// commit applies staged changes. It returns the changes as they affected the
// store, the commit sequence number and a snapshot taken right after the
// commit.
func (s *Store) commit(ctx context.Context, staged []stagedChange) ([]Change, uint64, *memdb.Txn, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if s.isClosed() {
		return nil, 0, nil, ErrClosed
	}

	txn := s.memdb.Txn(true)
	defer txn.Abort() // no-op after Commit

	changes := make([]Change, 0, len(staged))
	for _, sc := range staged {
		kind := sc.eid.Kind
		before := must.OK1(txn.First(kind.DBName, indices.IdentityName, sc.eid.ID))
		if sc.obj == nil {
			if before == nil {
				continue // already gone
			}
			must.OK(txn.Delete(kind.DBName, before))
			changes = append(changes, Change{EID: sc.eid, Before: before})
			continue
		}

		if err := kind.ValidateRequired(sc.obj); err != nil {
			return nil, 0, nil, err
		}
		if before != nil {
			if err := kind.ValidateConst(before, sc.obj); err != nil {
				return nil, 0, nil, err
			}
		}
		if err := checkUnique(txn, kind, sc.eid, sc.obj); err != nil {
			return nil, 0, nil, err
		}
		must.OK(txn.Insert(kind.DBName, sc.obj))
		changes = append(changes, Change{EID: sc.eid, Before: before, After: sc.obj})
	}

	if len(changes) == 0 {
		return nil, s.seq, s.memdb.Txn(false), nil
	}
	if s.journal != nil {
		if err := s.journal.write(ctx, changes); err != nil {
			return nil, 0, nil, err
		}
	}
	txn.Commit()
	s.seq++
	s.logger.Debug("Committed", zap.Uint64("seq", s.seq), zap.Int("changes", len(changes)))
	return changes, s.seq, s.memdb.Txn(false), nil
}

// checkUnique makes sure no other record holds the same value of a unique
// index. MemDB silently overwrites such entries.
func checkUnique(txn *memdb.Txn, kind *Kind, eid EID, obj any) error {
	for name, def := range kind.Indices {
		if !kind.indexSchema[name].Unique {
			continue
		}
		keyed, ok := def.(indices.Keyed)
		if !ok {
			continue
		}
		args, ok := keyed.ObjectArgs(kind.Struct, obj)
		if !ok {
			continue
		}
		existing := must.OK1(txn.First(kind.DBName, name, args...))
		if existing != nil && kind.idOf(existing) != eid.ID {
			return fmt.Errorf("%w: %s conflicts with %s on index %s",
				ErrUniqueViolation, eid, EID{Kind: kind, ID: kind.idOf(existing)}, name)
		}
	}
	return nil
}
