package query

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/ridge/quarry/store"
)

// ErrInvalidFetchRequest is returned when a request cannot be compiled for its
// entity type
var ErrInvalidFetchRequest = errors.New("invalid fetch request")

// Resolver finds the kinds of entity types. *store.Store is a Resolver.
type Resolver interface {
	KindFor(t reflect.Type) (*store.Kind, bool)
}

// Request is a fetch request for entities of type E.
//
// Requests are values: every method returns a new request and leaves the
// receiver intact.
type Request[E any] struct {
	offset    int
	limit     int
	batchSize int
	predicate Predicate[E]
	sorts     []SortDescriptor[E]
}

// NewRequest returns a request for all entities of type E, in identity order,
// fetched in batches of DefaultBatchSize
func NewRequest[E any]() Request[E] {
	return Request[E]{batchSize: max(DefaultBatchSize, 0)}
}

// DropFirst skips the first n matches. Negative n is treated as 0.
func (r Request[E]) DropFirst(n int) Request[E] {
	r.offset = max(n, 0)
	return r
}

// Prefix limits the request to n matches, 0 meaning no limit. Negative n is
// treated as 0.
func (r Request[E]) Prefix(n int) Request[E] {
	r.limit = max(n, 0)
	return r
}

// WithBatchSize sets the batch size, 0 meaning a single batch. Negative n is
// treated as 0.
func (r Request[E]) WithBatchSize(n int) Request[E] {
	r.batchSize = max(n, 0)
	return r
}

// Filtered adds a predicate every match must satisfy, on top of the existing
// ones. A nil predicate adds nothing.
func (r Request[E]) Filtered(p Predicate[E]) Request[E] {
	switch {
	case p == nil:
	case r.predicate == nil:
		r.predicate = p
	default:
		r.predicate = And(r.predicate, p)
	}
	return r
}

// Sorted appends sort descriptors. Earlier descriptors take precedence.
func (r Request[E]) Sorted(ds ...SortDescriptor[E]) Request[E] {
	r.sorts = append(slices.Clip(r.sorts), ds...)
	return r
}

// Offset returns the number of skipped matches
func (r Request[E]) Offset() int {
	return r.offset
}

// Limit returns the maximum number of matches, 0 meaning no limit
func (r Request[E]) Limit() int {
	return r.limit
}

// BatchSize returns the requested batch size
func (r Request[E]) BatchSize() int {
	return r.batchSize
}

// Predicate returns the predicate of the request, or nil if it has none
func (r Request[E]) Predicate() Predicate[E] {
	return r.predicate
}

// SortDescriptors returns the sort descriptors of the request
func (r Request[E]) SortDescriptors() []SortDescriptor[E] {
	return slices.Clone(r.sorts)
}

// Compile compiles the request against the kind registered for E.
//
// A batch size larger than a non-zero limit compiles to 0: the matches are
// fetched at once.
func (r Request[E]) Compile(resolver Resolver) (store.Request, error) {
	t := reflect.TypeFor[E]()
	kind, ok := resolver.KindFor(t)
	if !ok {
		return store.Request{}, fmt.Errorf("%w: %v is not a registered kind", ErrInvalidFetchRequest, t)
	}

	raw := store.Request{
		Kind:      kind,
		Offset:    r.offset,
		Limit:     r.limit,
		BatchSize: r.batchSize,
	}
	if r.limit > 0 && r.batchSize > r.limit {
		raw.BatchSize = 0
	}
	if r.predicate != nil {
		filter, err := r.predicate.compile(kind)
		if err != nil {
			return store.Request{}, fmt.Errorf("failed to compile predicate %s: %w", r.predicate, err)
		}
		raw.Filter = filter
	}
	for _, d := range r.sorts {
		if _, ok := kind.FieldByKey(d.key); !ok {
			return store.Request{}, fmt.Errorf("%w: %s has no field %q to sort by", store.ErrInvalidField, kind, d.key)
		}
		raw.Sort = append(raw.Sort, d.Raw())
	}
	return raw, nil
}

func (r Request[E]) String() string {
	var b strings.Builder
	b.WriteString(reflect.TypeFor[E]().String())
	if r.predicate != nil {
		fmt.Fprintf(&b, " WHERE %s", r.predicate)
	}
	if len(r.sorts) > 0 {
		keys := make([]string, 0, len(r.sorts))
		for _, d := range r.sorts {
			keys = append(keys, d.String())
		}
		fmt.Fprintf(&b, " ORDER BY %s", strings.Join(keys, ", "))
	}
	if r.offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", r.offset)
	}
	if r.limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", r.limit)
	}
	fmt.Fprintf(&b, " BATCH %d", r.batchSize)
	return b.String()
}
