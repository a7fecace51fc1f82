// Package query builds typed fetch requests.
//
// Predicates, sort descriptors and requests are immutable values
// parameterized by the entity type E. Composing them never fails and never
// touches the store: keys and values are only validated when a request is
// compiled against the store's kinds.
//
//	title := query.NewField[Note, string]("title")
//	rank := query.NewOrderedField[Note, int]("rank")
//	req := query.NewRequest[Note]().
//		Filtered(query.Or(title.Eq("todo"), rank.Gt(3))).
//		Sorted(rank.Desc()).
//		Prefix(10)
package query
