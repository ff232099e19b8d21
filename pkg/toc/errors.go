// Package toc is the in-memory table of contents of a product component
// repository. It indexes entry descriptors by id, kind/version and
// implementation key and owns the generation timelines.
package toc

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedIndex is matched by every construction failure
	ErrMalformedIndex = errors.New("toc: malformed index")

	// ErrUnknownCategory is returned for category names outside the known set
	ErrUnknownCategory = errors.New("toc: unknown category")

	// ErrDuplicateEntry is returned when an id is registered twice in one category
	ErrDuplicateEntry = errors.New("toc: duplicate entry")

	// ErrDuplicateKindVersion is returned when two product components share kind and version
	ErrDuplicateKindVersion = errors.New("toc: duplicate kind/version")

	// ErrEmptyTimeline is returned for a product component without generations
	ErrEmptyTimeline = errors.New("toc: product component has no generations")

	// ErrDuplicateValidFrom is returned when one timeline repeats a valid-from date
	ErrDuplicateValidFrom = errors.New("toc: duplicate generation valid-from date")

	// ErrUnexpectedGenerations is returned when a non product component entry has generations
	ErrUnexpectedGenerations = errors.New("toc: only product components have generations")
)

// MalformedIndexError describes a packaging defect found while building or
// reading the table of contents
type MalformedIndexError struct {
	Category Category
	ObjectID string
	Err      error
}

func (e *MalformedIndexError) Error() string {
	if e.ObjectID == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s %q", e.Err, e.Category, e.ObjectID)
}

func (e *MalformedIndexError) Unwrap() error {
	return e.Err
}

// Is reports every MalformedIndexError as ErrMalformedIndex
func (e *MalformedIndexError) Is(target error) bool {
	return target == ErrMalformedIndex
}

func malformed(cat Category, id string, err error) error {
	return &MalformedIndexError{Category: cat, ObjectID: id, Err: err}
}
