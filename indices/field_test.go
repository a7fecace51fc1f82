package indices

import (
	"reflect"
	"testing"

	"github.com/hashicorp/go-memdb"
	"github.com/ridge/quarry/meta"
	"github.com/stretchr/testify/require"
)

func testSingleFromObjectValuesFound(t *testing.T, single memdb.SingleIndexer, obj any, expectedBytes []byte) {
	ok, bytes, err := single.FromObject(obj)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, expectedBytes, bytes)
}

func testSingleFromObjectValuesNotFound(t *testing.T, single memdb.SingleIndexer, obj any) {
	ok, bytes, err := single.FromObject(obj)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, bytes)
}

type folderID string

type note struct {
	meta.Meta `quarry:"name=note"`
	ID        string `quarry:"identity"`
	Folder    folderID
	Parent    *folderID `quarry:"name=parent"`
	Title     string
	Words     []string
	Rank      int
}

var noteStruct = meta.Survey(reflect.TypeOf(note{}))

func TestFieldIndex(t *testing.T) {
	def := FieldIndex("Folder")
	require.Equal(t, "Folder", def.Name())
	require.Equal(t, 1, def.Args())
	require.Equal(t, "Folder", def.(Exact).ExactField())

	schema := def.Index(noteStruct)
	require.Equal(t, "Folder", schema.Name)
	require.False(t, schema.AllowMissing)
	require.False(t, schema.Unique)

	b, err := schema.Indexer.FromArgs(folderID(""))
	require.NoError(t, err)
	require.Equal(t, []byte{0x00}, b)
	b, err = schema.Indexer.FromArgs(folderID("aA!"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x61, 0x41, 0x21, 0x00}, b)
	_, err = schema.Indexer.FromArgs("aA!")
	require.Error(t, err)

	single := schema.Indexer.(memdb.SingleIndexer)
	testSingleFromObjectValuesFound(t, single, note{}, []byte{0x00})
	testSingleFromObjectValuesFound(t, single, note{Folder: "aA!"}, []byte{0x61, 0x41, 0x21, 0x00})

	args, ok := def.(Keyed).ObjectArgs(noteStruct, note{Folder: "inbox"})
	require.True(t, ok)
	require.Equal(t, []any{folderID("inbox")}, args)
}

func TestFieldIndexSkipZeros(t *testing.T) {
	def := FieldIndex("Folder", SkipZeros)
	require.Equal(t, "", def.(Exact).ExactField())

	schema := def.Index(noteStruct)
	require.True(t, schema.AllowMissing)

	single := schema.Indexer.(memdb.SingleIndexer)
	testSingleFromObjectValuesNotFound(t, single, note{})
	testSingleFromObjectValuesFound(t, single, note{Folder: "aA!"}, []byte{0x61, 0x41, 0x21, 0x00})

	_, ok := def.(Keyed).ObjectArgs(noteStruct, note{})
	require.False(t, ok)
}

func TestFieldIndexPtr(t *testing.T) {
	def := FieldIndex("parent")
	schema := def.Index(noteStruct)
	require.Equal(t, "parent", schema.Name)
	require.True(t, schema.AllowMissing)

	b, err := schema.Indexer.FromArgs(folderID("x"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x78, 0x00}, b)

	parent := folderID("x")
	single := schema.Indexer.(memdb.SingleIndexer)
	testSingleFromObjectValuesNotFound(t, single, note{})
	testSingleFromObjectValuesFound(t, single, note{Parent: &parent}, []byte{0x78, 0x00})

	_, ok := def.(Keyed).ObjectArgs(noteStruct, note{})
	require.False(t, ok)
	args, ok := def.(Keyed).ObjectArgs(noteStruct, note{Parent: &parent})
	require.True(t, ok)
	require.Equal(t, []any{parent}, args)
}

func TestFieldIndexIgnoreCase(t *testing.T) {
	def := FieldIndex("Title", IgnoreCase)
	schema := def.Index(noteStruct)

	b, err := schema.Indexer.FromArgs("HeLLo")
	require.NoError(t, err)
	require.Equal(t, []byte("hello\x00"), b)

	single := schema.Indexer.(memdb.SingleIndexer)
	testSingleFromObjectValuesFound(t, single, note{Title: "HELLO"}, []byte("hello\x00"))
}

func TestFieldIndexInvalid(t *testing.T) {
	require.PanicsWithError(t, "field indices.note.Missing not found",
		func() { FieldIndex("Missing").Index(noteStruct) })
	require.PanicsWithError(t, "field indices.note.Words has unsupported type []string",
		func() { FieldIndex("Words").Index(noteStruct) })
	require.PanicsWithError(t, "field indices.note.Rank must be string-based for case-insensitive indexing",
		func() { FieldIndex("Rank", IgnoreCase).Index(noteStruct) })
}
