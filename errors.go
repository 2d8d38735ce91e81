package graphom

import "errors"

var (
	// ErrNonUniqueResult is returned when a single-result lookup matched
	// more than one node. The criteria are ambiguous, not the data.
	ErrNonUniqueResult = errors.New("query matched more than one node")

	// ErrBadResultShape is returned when the store answered with rows that
	// do not follow the expected column convention.
	ErrBadResultShape = errors.New("unexpected result shape")
)
