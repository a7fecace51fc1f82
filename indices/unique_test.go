package indices

import (
	"reflect"
	"testing"

	"github.com/ridge/quarry/meta"
	"github.com/stretchr/testify/require"
)

func TestUniquifyIndex(t *testing.T) {
	type Note struct {
		meta.Meta `quarry:"name=note"`
		ID        string `quarry:"identity"`
		Slug      string `quarry:"name=slug"`
	}
	s := meta.Survey(reflect.TypeOf(Note{}))

	def := UniquifyIndex(FieldIndex("slug"))
	require.Equal(t, "slug", def.Name())
	require.Equal(t, 1, def.Args())
	require.Equal(t, "slug", def.(Exact).ExactField())

	schema := def.Index(s)
	require.Equal(t, "slug", schema.Name)
	require.False(t, schema.AllowMissing)
	require.True(t, schema.Unique)

	args, ok := def.(Keyed).ObjectArgs(s, Note{ID: "n1", Slug: "hello"})
	require.True(t, ok)
	require.Equal(t, []any{"hello"}, args)

	folded := UniquifyIndex(FieldIndex("Slug", IgnoreCase))
	require.Equal(t, "", folded.(Exact).ExactField())
}
