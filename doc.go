// Package quarry is a typed access layer over an in-memory record store with
// an optional SQLite journal.
//
// # Kinds and records
//
// A record is a Go structure carrying a Meta field tagged with the kind name,
// and an identity field:
//
//	type Note struct {
//	    quarry.Meta `quarry:"name=note"`
//	    ID    string `quarry:"identity"`
//	    Title string `quarry:"name=title"`
//	    Rank  int    `quarry:"name=rank"`
//	}
//
//	var noteKind = quarry.KindOf(Note{}, quarry.FieldIndex("title", quarry.IgnoreCase))
//
// Kinds are registered when the store is opened (see package store).
//
// # Requests
//
// Requests are built with package query. A request is an immutable value:
// every builder method returns a modified copy.
//
//	title := query.NewOrderedField[Note, string]("title")
//	req := query.NewRequest[Note]().
//	    Filtered(title.Eq("groceries")).
//	    Sorted(title.Asc()).
//	    Prefix(10)
//
// # Service
//
// A Service runs requests in its read context and writes in its write
// context. Every save of the write context is merged into the read context
// before the write returns, so a write is visible to every operation started
// after it.
//
//	notes, err := quarry.Execute(ctx, svc, req)
//
// One operation runs at a time. After Close, operations fail with
// ErrOwnerGone.
//
// # Observers
//
// An Observer reports the result set of a request as an Initial event,
// followed by a Delta event for every save that changes it.
//
//	obs, err := quarry.Observe(svc, req)
//	err = obs.Observe(ctx, func(ev quarry.Event[Note]) {
//	    switch ev := ev.(type) {
//	    case quarry.Initial[Note]:
//	    case quarry.Delta[Note]:
//	    case quarry.Failure[Note]:
//	    }
//	})
//
// Reduce applies the row changes of a Delta to the previous result set.
package quarry
