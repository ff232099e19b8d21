// Package datasource provides the deferred byte streams object factories
// read persisted objects from
package datasource

import (
	"context"
	"errors"
	"io"
)

// ErrResourceNotFound is returned when a resource locator resolves to nothing
var ErrResourceNotFound = errors.New("datasource: resource not found")

// Source opens the persisted form of a resource. The core never parses
// what it returns.
type Source interface {
	Open(ctx context.Context, resource string) (io.ReadCloser, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context, resource string) (io.ReadCloser, error)

// Open calls f
func (f SourceFunc) Open(ctx context.Context, resource string) (io.ReadCloser, error) {
	return f(ctx, resource)
}

// ReadAll opens resource and reads it fully
func ReadAll(ctx context.Context, src Source, resource string) ([]byte, error) {
	rc, err := src.Open(ctx, resource)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
