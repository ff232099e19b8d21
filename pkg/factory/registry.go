// Package factory turns table of contents entries into runtime objects by
// dispatching on the entry's implementation key
package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/faktorips/faktorips.base-sub009/pkg/datasource"
	"github.com/faktorips/faktorips.base-sub009/pkg/repository"
	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

var (
	// ErrNoConstructor is returned for implementation keys nobody registered
	ErrNoConstructor = errors.New("factory: no constructor for implementation key")

	// ErrDuplicateConstructor is returned when a key is registered twice
	ErrDuplicateConstructor = errors.New("factory: constructor already registered")

	// ErrWrongType is returned when a constructor builds the wrong shape of object
	ErrWrongType = errors.New("factory: constructed object has the wrong type")
)

// Input is what a constructor gets to build one object
type Input struct {
	Entry      *toc.Entry
	Generation *toc.GenerationEntry // set only when building a generation

	open func(ctx context.Context) (io.ReadCloser, error)
}

// Open opens the persisted form of the entry
func (in Input) Open(ctx context.Context) (io.ReadCloser, error) {
	if in.open == nil {
		return nil, fmt.Errorf("%w: %s has no resource", datasource.ErrResourceNotFound, in.Entry.ObjectID)
	}
	return in.open(ctx)
}

// Constructor builds one object
type Constructor func(ctx context.Context, in Input) (any, error)

// Registry maps implementation keys to constructors and implements
// repository.ObjectFactory. Register everything before the first lookup.
type Registry struct {
	source   datasource.Source
	fallback Constructor

	mu    sync.RWMutex
	ctors map[string]Constructor
}

var _ repository.ObjectFactory = (*Registry)(nil)

// NewRegistry creates a registry reading resources from source. fallback,
// when not nil, serves keys without a registered constructor.
func NewRegistry(source datasource.Source, fallback Constructor) *Registry {
	return &Registry{
		source:   source,
		fallback: fallback,
		ctors:    make(map[string]Constructor),
	}
}

// Register binds key to ctor
func (r *Registry) Register(key string, ctor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.ctors[key]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateConstructor, key)
	}
	r.ctors[key] = ctor
	return nil
}

// MustRegister is Register panicking on duplicates, for static setup
func (r *Registry) MustRegister(key string, ctor Constructor) {
	if err := r.Register(key, ctor); err != nil {
		panic(err)
	}
}

func (r *Registry) lookup(key string) (Constructor, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[key]
	r.mu.RUnlock()
	if ok {
		return ctor, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoConstructor, key)
}

func (r *Registry) input(e *toc.Entry, ge *toc.GenerationEntry) Input {
	in := Input{Entry: e, Generation: ge}
	if e.Resource != "" && r.source != nil {
		resource := e.Resource
		in.open = func(ctx context.Context) (io.ReadCloser, error) {
			return r.source.Open(ctx, resource)
		}
	}
	return in
}

func (r *Registry) build(ctx context.Context, key string, in Input) (any, error) {
	ctor, err := r.lookup(key)
	if err != nil {
		return nil, err
	}
	return ctor(ctx, in)
}

// NewProductComponent builds the product component described by e
func (r *Registry) NewProductComponent(ctx context.Context, e *toc.Entry) (repository.ProductComponent, error) {
	obj, err := r.build(ctx, e.ImplementationKey, r.input(e, nil))
	if err != nil {
		return nil, err
	}
	pc, ok := obj.(repository.ProductComponent)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a product component", ErrWrongType, obj)
	}
	return pc, nil
}

// NewGeneration builds a generation using the parent's generation
// implementation key
func (r *Registry) NewGeneration(ctx context.Context, ge *toc.GenerationEntry) (repository.Generation, error) {
	obj, err := r.build(ctx, ge.Parent.GenerationImplementationKey, r.input(ge.Parent, ge))
	if err != nil {
		return nil, err
	}
	gen, ok := obj.(repository.Generation)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a generation", ErrWrongType, obj)
	}
	return gen, nil
}

func (r *Registry) newObject(ctx context.Context, e *toc.Entry) (repository.Object, error) {
	return r.build(ctx, e.ImplementationKey, r.input(e, nil))
}

// NewTable builds a table
func (r *Registry) NewTable(ctx context.Context, e *toc.Entry) (repository.Object, error) {
	return r.newObject(ctx, e)
}

// NewEnumContent builds an enum content
func (r *Registry) NewEnumContent(ctx context.Context, e *toc.Entry) (repository.Object, error) {
	return r.newObject(ctx, e)
}

// NewTestCase builds a test case
func (r *Registry) NewTestCase(ctx context.Context, e *toc.Entry) (repository.Object, error) {
	return r.newObject(ctx, e)
}

// NewModelType builds a model type
func (r *Registry) NewModelType(ctx context.Context, e *toc.Entry) (repository.Object, error) {
	return r.newObject(ctx, e)
}

// NewEnumAdapter builds an enum adapter
func (r *Registry) NewEnumAdapter(ctx context.Context, e *toc.Entry) (repository.Object, error) {
	return r.newObject(ctx, e)
}
