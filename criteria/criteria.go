// Package criteria provides a declarative search specification for graph
// lookups, independent of the store's native query syntax.
//
// A Criteria is an ordered conjunction of equality clauses over mapped field
// names, plus optional ordering, offset and limit. The pseudo-field
// criteria.ID denotes identity-based lookup and is translated by the
// statement builder into the store's native identity predicate. Criteria
// objects are built fresh per call and never persisted.
//
// Only equality conjunction is expressible at this layer. Callers that need
// disjunction, negation or range predicates use the raw-query lookup path
// instead.
package criteria

import (
	"sort"
)

// ID is the pseudo-field denoting identity-based lookup. A clause on ID is
// rendered against the store's record identity rather than a node property.
const ID = "id()"

// Direction orders a sort clause.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// Clause is a single equality predicate over a mapped field.
type Clause struct {
	Field string
	Value interface{}
}

// Order is a single ordering term.
type Order struct {
	Field     string
	Direction Direction
}

// Criteria is an equality-conjunction predicate set with optional ordering
// and pagination. The zero value matches everything, unordered, unbounded.
type Criteria struct {
	Clauses []Clause
	OrderBy []Order

	// Limit caps the number of returned rows; zero means unbounded.
	Limit int

	// Offset skips the first n rows; zero means none.
	Offset int
}

// New builds a Criteria from a filter mapping where every entry becomes an
// equality clause. Clauses are emitted in sorted key order so the generated
// statement text is deterministic; clause order carries no correctness
// meaning, the builder and store may only use it for query-plan hints.
func New(filters map[string]interface{}) *Criteria {
	c := &Criteria{}
	if len(filters) == 0 {
		return c
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c.Clauses = make([]Clause, 0, len(keys))
	for _, k := range keys {
		c.Clauses = append(c.Clauses, Clause{Field: k, Value: filters[k]})
	}
	return c
}

// ByID builds the identity-lookup Criteria used by Find and Reload.
func ByID(id int64) *Criteria {
	return &Criteria{
		Clauses: []Clause{{Field: ID, Value: id}},
		Limit:   1,
	}
}

// WithOrder appends an ordering term and returns the receiver for chaining.
func (c *Criteria) WithOrder(field string, dir Direction) *Criteria {
	c.OrderBy = append(c.OrderBy, Order{Field: field, Direction: dir})
	return c
}

// WithLimit sets the row ceiling and returns the receiver.
func (c *Criteria) WithLimit(limit int) *Criteria {
	c.Limit = limit
	return c
}

// WithOffset sets the number of skipped rows and returns the receiver.
func (c *Criteria) WithOffset(offset int) *Criteria {
	c.Offset = offset
	return c
}

// IsEmpty reports whether the criteria carries no predicate clauses.
func (c *Criteria) IsEmpty() bool {
	return len(c.Clauses) == 0
}
