//go:build !quarrydebug

package query

// Debug reports whether contract violations panic. Builds tagged
// quarrydebug panic, others degrade gracefully.
const Debug = false
