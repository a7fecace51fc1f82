package meta

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type validated struct {
	Meta    `quarry:"name=validated"`
	ID      string `quarry:"identity"`
	Owner   string `quarry:"const"`
	Count   int    `quarry:"required"`
	Tags    []string
	Extents map[string]int `quarry:"required"`
}

func TestValidateRequired(t *testing.T) {
	s := Survey(reflect.TypeOf(validated{}))
	require.PanicsWithValue(t, "expected struct type meta.validated",
		func() { _ = s.ValidateRequired(0) })
	require.EqualError(t, s.ValidateRequired(validated{}),
		"meta.validated (validated) validation failed: missing required field ID")
	require.EqualError(t, s.ValidateRequired(validated{ID: "x"}),
		"meta.validated (validated) validation failed: missing required field Count")
	require.EqualError(t, s.ValidateRequired(validated{ID: "x", Count: 1}),
		"meta.validated (validated) validation failed: missing required field Extents")
	require.NoError(t, s.ValidateRequired(validated{ID: "x", Count: 1, Extents: map[string]int{}}))
}

func TestValidateConst(t *testing.T) {
	s := Survey(reflect.TypeOf(validated{}))
	before := validated{ID: "x", Owner: "alice", Count: 1}
	require.NoError(t, s.ValidateConst(before, validated{ID: "x", Owner: "alice", Count: 2}))
	require.EqualError(t, s.ValidateConst(before, validated{ID: "x", Owner: "bob", Count: 1}),
		"meta.validated (validated) validation failed: const field Owner modified")
	require.EqualError(t, s.ValidateConst(before, validated{ID: "y", Owner: "alice", Count: 1}),
		"meta.validated (validated) validation failed: const field ID modified")
}
