// ABOUTME: Repository combining a table of contents, per-category caches and an object factory
// ABOUTME: Objects are materialized at most once per repository instance

package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/faktorips/faktorips.base-sub009/internal/logger"
	"github.com/faktorips/faktorips.base-sub009/internal/metrics"
	"github.com/faktorips/faktorips.base-sub009/pkg/memo"
	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

var tracer = otel.Tracer("github.com/faktorips/faktorips.base-sub009/pkg/repository")

// objectCategories are the categories served by the generic object caches
var objectCategories = []toc.Category{toc.Table, toc.EnumContent, toc.TestCase, toc.ModelType, toc.EnumAdapter}

// Option configures a Repository
type Option func(*Repository)

// WithLogger sets the logger; defaults to the global logger
func WithLogger(l *logger.Logger) Option {
	return func(r *Repository) {
		r.baseLogger = l
	}
}

// WithMetrics records cache and lookup metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Repository) {
		r.metrics = m
	}
}

// WithTracer overrides the tracer used for materialization spans
func WithTracer(t trace.Tracer) Option {
	return func(r *Repository) {
		r.tracer = t
	}
}

// WithPreloadWorkers sets the pool size used by Preload
func WithPreloadWorkers(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.preloadWorkers = n
		}
	}
}

// Repository serves runtime objects from one table of contents and falls
// back to the repositories it references. All lookups are safe for
// concurrent use once setup has finished.
type Repository struct {
	InstanceID uuid.UUID

	name    string
	toc     *toc.TableOfContents
	factory ObjectFactory

	baseLogger     *logger.Logger
	logger         *logger.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	preloadWorkers int

	products    *memo.Cache[string, ProductComponent]
	generations *memo.Cache[GenerationKey, Generation]
	objects     map[toc.Category]*memo.Cache[string, Object]

	refMu          sync.RWMutex
	direct         []*Repository
	closure        []*Repository // nil until first requested
	closureVersion uint64
	search         []*Repository // self first, depth-first over references
	searchVersion  uint64
}

// New creates a repository. Setup (adding references) must finish before
// the repository is shared between goroutines.
func New(name string, contents *toc.TableOfContents, factory ObjectFactory, opts ...Option) *Repository {
	r := &Repository{
		InstanceID:     uuid.New(),
		name:           name,
		toc:            contents,
		factory:        factory,
		tracer:         tracer,
		preloadWorkers: 8,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.baseLogger == nil {
		r.baseLogger = logger.GetGlobalLogger()
	}
	r.logger = r.baseLogger.RepositoryLogger(name, r.InstanceID.String())

	r.products = memo.New(r.createProductComponent,
		memo.WithObserver[string](r.observer(toc.ProductComponent.String())))
	r.generations = memo.New(r.createGeneration,
		memo.WithObserver[GenerationKey](r.observer(generationLabel)))

	r.objects = make(map[toc.Category]*memo.Cache[string, Object], len(objectCategories))
	for _, cat := range objectCategories {
		create := func(ctx context.Context, id string) (Object, bool, error) {
			return r.createObject(ctx, cat, id)
		}
		r.objects[cat] = memo.New(create, memo.WithObserver[string](r.observer(cat.String())))
	}

	counts := make(map[string]int, len(toc.Categories))
	for _, cat := range toc.Categories {
		counts[cat.String()] = contents.Count(cat)
	}
	r.metrics.SetTocEntries(name, counts)

	r.logger.Debug("repository created").
		Int("product_components", contents.Count(toc.ProductComponent)).
		Int("generations", contents.GenerationTotal()).
		Int("tables", contents.Count(toc.Table)).
		Send()
	return r
}

// Name returns the repository name used in diagnostics
func (r *Repository) Name() string {
	return r.name
}

// TableOfContents returns the repository's own table of contents
func (r *Repository) TableOfContents() *toc.TableOfContents {
	return r.toc
}

// generationLabel labels generation metrics, which share the product
// component category in the table of contents
const generationLabel = "Generation"

type cacheObserver struct {
	repository string
	category   string
	metrics    *metrics.Metrics
}

func (o cacheObserver) OnHit(string)  { o.metrics.RecordCacheRequest(o.repository, o.category, true) }
func (o cacheObserver) OnMiss(string) { o.metrics.RecordCacheRequest(o.repository, o.category, false) }

func (o cacheObserver) OnCompute(_ string, elapsed time.Duration, found bool, err error) {
	o.metrics.RecordMaterialization(o.repository, o.category, elapsed, found, err)
}

func (r *Repository) observer(category string) memo.Observer {
	return cacheObserver{repository: r.name, category: category, metrics: r.metrics}
}

// materialize runs one factory call inside a span and turns failures into
// FactoryErrors
func materialize[V any](ctx context.Context, r *Repository, cat toc.Category, key string, create func(context.Context) (V, error)) (V, bool, error) {
	ctx, span := r.tracer.Start(ctx, "repository.materialize", trace.WithAttributes(
		attribute.String("repository", r.name),
		attribute.String("category", cat.String()),
		attribute.String("key", key),
	))
	defer span.End()

	start := time.Now()
	v, err := callFactory(ctx, create)
	if err == nil && isNil(v) {
		err = ErrNilObject
	}
	r.logger.LogMaterialize(cat.String(), key, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var zero V
		return zero, false, &FactoryError{Category: cat, Key: key, Err: err}
	}
	return v, true, nil
}

// callFactory runs create, reporting a panic as an error
func callFactory[V any](ctx context.Context, create func(context.Context) (V, error)) (v V, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero V
			v, err = zero, fmt.Errorf("%w: %v", memo.ErrPanicked, p)
		}
	}()
	return create(ctx)
}

func (r *Repository) createProductComponent(ctx context.Context, id string) (ProductComponent, bool, error) {
	e := r.toc.FindProductComponent(id)
	if e == nil {
		return nil, false, nil
	}
	return materialize(ctx, r, toc.ProductComponent, id, func(ctx context.Context) (ProductComponent, error) {
		return r.factory.NewProductComponent(ctx, e)
	})
}

func (r *Repository) createGeneration(ctx context.Context, key GenerationKey) (Generation, bool, error) {
	e := r.toc.FindProductComponent(key.ID)
	if e == nil {
		return nil, false, nil
	}
	ge := e.Timeline.Find(key.ValidFrom)
	if ge == nil {
		return nil, false, nil
	}
	return materialize(ctx, r, toc.ProductComponent, key.String(), func(ctx context.Context) (Generation, error) {
		return r.factory.NewGeneration(ctx, ge)
	})
}

func (r *Repository) createObject(ctx context.Context, cat toc.Category, id string) (Object, bool, error) {
	e := r.toc.FindByID(cat, id)
	if e == nil {
		return nil, false, nil
	}

	var create func(context.Context, *toc.Entry) (Object, error)
	switch cat {
	case toc.Table:
		create = r.factory.NewTable
	case toc.EnumContent:
		create = r.factory.NewEnumContent
	case toc.TestCase:
		create = r.factory.NewTestCase
	case toc.ModelType:
		create = r.factory.NewModelType
	case toc.EnumAdapter:
		create = r.factory.NewEnumAdapter
	default:
		return nil, false, ErrWrongCategory
	}
	return materialize(ctx, r, cat, id, func(ctx context.Context) (Object, error) {
		return create(ctx, e)
	})
}
