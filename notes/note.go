package notes

import (
	"fmt"

	"github.com/ridge/quarry"
	"github.com/ridge/quarry/query"
	"github.com/ridge/quarry/store"
)

// NoteID is the identity of a note
type NoteID string

// Note is a stored note
type Note struct {
	quarry.Meta `quarry:"name=note"`
	ID          NoteID `quarry:"identity"`
	Title       string `quarry:"name=title,required"`
	Folder      string `quarry:"name=folder"`
	Rank        int    `quarry:"name=rank"`
	Done        bool   `quarry:"name=done"`
}

// KindNote is the kind of notes
var KindNote = quarry.KindOf(Note{},
	quarry.FieldIndex("folder"),
	quarry.FieldIndex("title", quarry.IgnoreCase),
)

// Fields of Note usable in requests
var (
	Title  = query.NewOrderedField[Note, string]("title")
	Folder = query.NewOrderedField[Note, string]("folder")
	Rank   = query.NewOrderedField[Note, int]("rank")
	Done   = query.NewField[Note, bool]("done")
)

// Kinds lists the kinds of the notes store
var Kinds = []*store.Kind{KindNote}

func (n Note) String() string {
	mark := " "
	if n.Done {
		mark = "x"
	}
	return fmt.Sprintf("[%s] %s %s/%s (%d)", mark, n.ID, n.Folder, n.Title, n.Rank)
}

// Ref refers to a stored note by identity
type Ref NoteID

// Record returns the stored note
func (r Ref) Record(s *quarry.Session) (any, error) {
	obj, ok := s.Get(KindNote, string(r))
	if !ok {
		return nil, fmt.Errorf("%w: note %s", store.ErrNotFound, r)
	}
	return obj, nil
}

// Completion marks a stored note done
type Completion NoteID

// Record returns the stored note marked done
func (c Completion) Record(s *quarry.Session) (any, error) {
	obj, err := Ref(c).Record(s)
	if err != nil {
		return nil, err
	}
	n := obj.(Note)
	n.Done = true
	return n, nil
}

// List returns the request for the notes of a folder, or of every folder if
// folder is empty. Open notes come first, then by rank and title.
func List(folder string) query.Request[Note] {
	req := query.NewRequest[Note]().Sorted(query.Ascending[Note]("done"), Rank.Asc(), Title.Asc())
	if folder != "" {
		req = req.Filtered(Folder.Eq(folder))
	}
	return req
}
