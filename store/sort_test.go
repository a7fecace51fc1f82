package store

import (
	"reflect"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func sortIDs(t *testing.T, objs []note, keys ...SortKey) []noteID {
	s, err := compileSort(kindNote, keys)
	require.NoError(t, err)
	objs = slices.Clone(objs)
	slices.SortFunc(objs, func(a, b note) int { return s.compare(reflect.ValueOf(a), reflect.ValueOf(b)) })
	ids := make([]noteID, 0, len(objs))
	for _, obj := range objs {
		ids = append(ids, obj.ID)
	}
	return ids
}

func TestSortIdentityTiebreaker(t *testing.T) {
	objs := []note{{ID: "c"}, {ID: "a"}, {ID: "b"}}
	require.Equal(t, []noteID{"a", "b", "c"}, sortIDs(t, objs))
	require.Equal(t, []noteID{"a", "b", "c"}, sortIDs(t, objs, SortKey{Field: "rank", Ascending: false}))
}

func TestSortLevels(t *testing.T) {
	objs := []note{
		{ID: "1", Folder: "b", Rank: 1},
		{ID: "2", Folder: "a", Rank: 1},
		{ID: "3", Folder: "a", Rank: 2},
		{ID: "4", Folder: "b", Rank: 3},
	}
	require.Equal(t, []noteID{"3", "2", "4", "1"}, sortIDs(t, objs,
		SortKey{Field: "folder", Ascending: true},
		SortKey{Field: "rank", Ascending: false},
	))
	require.Equal(t, []noteID{"1", "2", "3", "4"}, sortIDs(t, objs,
		SortKey{Field: "rank", Ascending: true},
	))
}

func TestSortCollations(t *testing.T) {
	objs := []note{
		{ID: "1", Title: "b"},
		{ID: "2", Title: "B"},
		{ID: "3", Title: "a"},
		{ID: "4", Title: "é"},
		{ID: "5", Title: "f"},
	}
	require.Equal(t, []noteID{"2", "3", "1", "5", "4"}, sortIDs(t, objs,
		SortKey{Field: "title", Ascending: true, Collation: CollationBinary}))
	require.Equal(t, []noteID{"3", "1", "2", "5", "4"}, sortIDs(t, objs,
		SortKey{Field: "title", Ascending: true, Collation: CollationCaseInsensitive}))
	require.Equal(t, []noteID{"3", "1", "2", "4", "5"}, sortIDs(t, objs,
		SortKey{Field: "title", Ascending: true, Collation: CollationLocalizedCaseInsensitive, Locale: language.English}))
	// lower case first in the root collation
	require.Equal(t, []noteID{"3", "1", "2", "4", "5"}, sortIDs(t, objs,
		SortKey{Field: "title", Ascending: true, Collation: CollationLocalized, Locale: language.Und}))
}

func TestSortNilFirst(t *testing.T) {
	p := noteID("p")
	objs := []note{{ID: "1", Parent: &p}, {ID: "2"}}
	require.Equal(t, []noteID{"2", "1"}, sortIDs(t, objs, SortKey{Field: "Parent", Ascending: true}))
	require.Equal(t, []noteID{"1", "2"}, sortIDs(t, objs, SortKey{Field: "Parent", Ascending: false}))
}

func TestSortErrors(t *testing.T) {
	_, err := compileSort(kindNote, []SortKey{{Field: "missing"}})
	require.ErrorIs(t, err, ErrInvalidField)
	_, err = compileSort(kindNote, []SortKey{{Field: "title", Collation: Collation(9)}})
	require.ErrorIs(t, err, ErrInvalidValue)
}

func TestSortKeyString(t *testing.T) {
	require.Equal(t, "rank ASC", SortKey{Field: "rank", Ascending: true}.String())
	require.Equal(t, "title DESC [localized,ci]", SortKey{Field: "title", Collation: CollationLocalizedCaseInsensitive}.String())
}
