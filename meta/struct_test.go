package meta

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestField(t *testing.T) {
	require.Equal(t, "Title", Field{GoName: "Title"}.String())
	require.Equal(t, "Title (title)", Field{GoName: "Title", DBName: "title"}.String())
}

func TestFieldIsText(t *testing.T) {
	type Label string
	require.True(t, Field{Type: reflect.TypeOf("")}.IsText())
	require.True(t, Field{Type: reflect.TypeOf(Label(""))}.IsText())
	require.True(t, Field{Type: reflect.TypeOf(new(string))}.IsText())
	require.False(t, Field{Type: reflect.TypeOf(0)}.IsText())
	require.False(t, Field{Type: reflect.TypeOf([]string{})}.IsText())
}

func TestStruct(t *testing.T) {
	type NoteID string
	type Note struct{ ID NoteID }
	s := Struct{
		DBName: "note",
		Type:   reflect.TypeOf(Note{}),
		Fields: []Field{
			{
				GoName: "ID",
				DBName: "ID",
				Index:  []int{0},
				Type:   reflect.TypeOf(NoteID("")),
			},
		},
		identity: 0,
	}
	require.Equal(t, "meta.Note (note)", s.String())
	require.Equal(t, s.Fields[0], s.Identity())
	field, ok := s.Field("ID")
	require.True(t, ok)
	require.Equal(t, s.Identity(), field)
	_, ok = s.Field("id")
	require.False(t, ok)
}

func TestFieldByKey(t *testing.T) {
	type Note struct {
		Meta   `quarry:"name=note"`
		ID     string `quarry:"identity"`
		Title  string `quarry:"name=title"`
		Body   string `quarry:"name=Title2"`
		Title2 string `quarry:"name=other"`
		cache  int    `quarry:"-"`
	}
	s := Survey(reflect.TypeOf(Note{cache: 1}))

	f, ok := s.FieldByKey("title")
	require.True(t, ok)
	require.Equal(t, "Title", f.GoName)

	f, ok = s.FieldByKey("Title")
	require.True(t, ok)
	require.Equal(t, "title", f.DBName)

	// DB name wins over a Go name
	f, ok = s.FieldByKey("Title2")
	require.True(t, ok)
	require.Equal(t, "Body", f.GoName)

	_, ok = s.FieldByKey("cache")
	require.False(t, ok)
	_, ok = s.FieldByKey("missing")
	require.False(t, ok)
}
