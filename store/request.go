package store

import (
	"fmt"
	"strings"
)

// Request is a compiled fetch request
type Request struct {
	Kind      *Kind
	Filter    Filter // nil matches every record
	Sort      []SortKey
	Offset    int
	Limit     int // 0 means unbounded
	BatchSize int // 0 means a single batch
}

func (r Request) String() string {
	var b strings.Builder
	b.WriteString(r.Kind.DBName)
	if r.Filter != nil {
		fmt.Fprintf(&b, " WHERE %s", r.Filter)
	}
	if len(r.Sort) > 0 {
		keys := make([]string, 0, len(r.Sort))
		for _, key := range r.Sort {
			keys = append(keys, key.String())
		}
		fmt.Fprintf(&b, " ORDER BY %s", strings.Join(keys, ", "))
	}
	if r.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", r.Offset)
	}
	if r.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", r.Limit)
	}
	if r.BatchSize > 0 {
		fmt.Fprintf(&b, " BATCH %d", r.BatchSize)
	}
	return b.String()
}
