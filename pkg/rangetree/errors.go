// Package rangetree implements immutable balanced trees answering ordered
// and interval containment lookups in O(log n)
package rangetree

import "errors"

var (
	// ErrInvalidInterval indicates an interval whose lower bound exceeds its upper bound
	ErrInvalidInterval = errors.New("rangetree: lower bound greater than upper bound")

	// ErrOverlappingIntervals indicates two intervals sharing at least one point
	ErrOverlappingIntervals = errors.New("rangetree: overlapping intervals")
)
