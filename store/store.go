// Package store models the execution boundary between the mapper core and a
// graph database: an executable Statement, a tabular Result made of Rows, and
// the Client interface that runs one against the other.
//
// Result values are deliberately not exposed as raw interface{} lookups. A
// Row hands out tagged Values (scalar, bag or absent) so callers distinguish
// "column missing" from "column present with an unexpected shape" without
// type-switching on dynamic data. The mapper's degraded-read paths depend on
// that distinction.
package store

import (
	"context"
)

// Statement is one executable query: text in the store's native language plus
// bound parameters. Statements are produced by a builder and treated as
// opaque by the client.
type Statement struct {
	Text   string
	Params map[string]interface{}
}

// ValueKind tags the shape of a column value.
type ValueKind int

const (
	// KindAbsent marks a column that is missing or null.
	KindAbsent ValueKind = iota

	// KindScalar marks a single primitive value.
	KindScalar

	// KindBag marks a raw property bag, the hydration payload convention
	// for node columns.
	KindBag
)

// Value is a tagged variant over the shapes a result column can take.
type Value struct {
	kind   ValueKind
	scalar interface{}
	bag    map[string]interface{}
}

// Absent returns the absent Value.
func Absent() Value { return Value{} }

// Scalar wraps a primitive column value.
func Scalar(v interface{}) Value {
	if v == nil {
		return Absent()
	}
	return Value{kind: KindScalar, scalar: v}
}

// Bag wraps a raw property bag column value.
func Bag(props map[string]interface{}) Value {
	if props == nil {
		return Absent()
	}
	return Value{kind: KindBag, bag: props}
}

// Kind reports the shape tag of the value.
func (v Value) Kind() ValueKind { return v.kind }

// AsBag returns the property bag and whether the value is bag-shaped.
func (v Value) AsBag() (map[string]interface{}, bool) {
	if v.kind != KindBag {
		return nil, false
	}
	return v.bag, true
}

// AsInt returns the value as an int64 and whether the value is an integer
// scalar. Stores report counts and identities as int64.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindScalar {
		return 0, false
	}
	switch n := v.scalar.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	}
	return 0, false
}

// AsAny returns the raw scalar value, nil for non-scalars.
func (v Value) AsAny() interface{} {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// Row is one matched record: a mapping from column key to tagged value.
type Row map[string]Value

// Bag extracts a bag-shaped column, reporting false when the column is
// missing or not a bag.
func (r Row) Bag(key string) (map[string]interface{}, bool) {
	return r[key].AsBag()
}

// Int extracts an integer scalar column, reporting false when the column is
// missing or not an integer.
func (r Row) Int(key string) (int64, bool) {
	return r[key].AsInt()
}

// Result is the ordered row set returned for one statement.
type Result struct {
	Rows []Row
}

// Len reports the number of matched rows.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// First returns the first row, or false when the result is empty.
func (r *Result) First() (Row, bool) {
	if r.Len() == 0 {
		return nil, false
	}
	return r.Rows[0], true
}

// Client executes statements against a graph store. Calls are synchronous
// request/response: they complete or fail, and any retry or timeout policy
// belongs to the implementation, never to the mapper core.
type Client interface {
	Run(ctx context.Context, stmt *Statement) (*Result, error)
}
