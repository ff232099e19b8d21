package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

var (
	// ErrNotFound is matched by every NotFoundError
	ErrNotFound = errors.New("repository: not found")

	// ErrFactoryFailure is matched by every FactoryError
	ErrFactoryFailure = errors.New("repository: object factory failed")

	// ErrOwnerMismatch is returned when a generation was not created by this
	// repository or any repository it references
	ErrOwnerMismatch = errors.New("repository: generation not owned by repository graph")

	// ErrSelfReference is returned when a repository is asked to reference itself
	ErrSelfReference = errors.New("repository: cannot reference itself")

	// ErrNilObject is wrapped in a FactoryError when a factory returns nothing
	ErrNilObject = errors.New("repository: factory returned nil object")

	// ErrWrongCategory is returned when a lookup is asked for a category it cannot serve
	ErrWrongCategory = errors.New("repository: unsupported category")
)

// NotFoundError reports an object missing from the whole repository graph
type NotFoundError struct {
	Repository string
	Category   toc.Category
	Key        string
	Date       *time.Time // set for generation lookups
}

func (e *NotFoundError) Error() string {
	if e.Date != nil {
		return fmt.Sprintf("repository %s: %s %q has no generation effective at %s",
			e.Repository, e.Category, e.Key, e.Date.Format(time.RFC3339))
	}
	return fmt.Sprintf("repository %s: %s %q not found", e.Repository, e.Category, e.Key)
}

// Is reports every NotFoundError as ErrNotFound
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// FactoryError wraps a failure of the object factory
type FactoryError struct {
	Category toc.Category
	Key      string
	Err      error
}

func (e *FactoryError) Error() string {
	return fmt.Sprintf("repository: create %s %q: %v", e.Category, e.Key, e.Err)
}

func (e *FactoryError) Unwrap() error {
	return e.Err
}

// Is reports every FactoryError as ErrFactoryFailure
func (e *FactoryError) Is(target error) bool {
	return target == ErrFactoryFailure
}
