package query

import (
	"github.com/ridge/quarry/store"
	"golang.org/x/text/language"
)

// Operator is a comparison operator
type Operator = store.Operator

// Operator values
const (
	OpEq = store.OpEq
	OpNe = store.OpNe
	OpLt = store.OpLt
	OpLe = store.OpLe
	OpGt = store.OpGt
	OpGe = store.OpGe
)

// Options modify text comparisons
type Options = store.Options

// Options values
const (
	CaseInsensitive      = store.CaseInsensitive
	DiacriticInsensitive = store.DiacriticInsensitive
)

// Process-wide defaults. Set them once at startup, before building requests.
var (
	// DefaultBatchSize is the batch size of new requests
	DefaultBatchSize = 20

	// DefaultComparisonOptions apply to comparisons with text values and
	// determine the collation of sort descriptors
	DefaultComparisonOptions = CaseInsensitive | DiacriticInsensitive

	// DefaultLocale is the locale of localized collations
	DefaultLocale = language.Und
)
