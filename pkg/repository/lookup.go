// ABOUTME: Public lookups that search this repository and then its references
// ABOUTME: Absence is (nil, nil); only the GetExisting variants report NotFound

package repository

import (
	"context"
	"time"

	"github.com/faktorips/faktorips.base-sub009/internal/metrics"
	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

type localLookup[V any] func(ctx context.Context, repo *Repository) (V, bool, error)

// lookup tries local on r, then on every referenced repository in search
// order. The first hit or the first error ends the search.
func lookup[V any](ctx context.Context, r *Repository, label string, local localLookup[V]) (V, bool, error) {
	for i, repo := range r.searchOrder() {
		v, ok, err := local(ctx, repo)
		if err != nil {
			return v, false, err
		}
		if ok {
			outcome := metrics.OutcomeLocal
			if i > 0 {
				outcome = metrics.OutcomeReferenced
			}
			r.metrics.RecordLookup(r.name, label, outcome)
			return v, true, nil
		}
	}
	r.metrics.RecordLookup(r.name, label, metrics.OutcomeMiss)
	var zero V
	return zero, false, nil
}

func localProduct(id string) localLookup[ProductComponent] {
	return func(ctx context.Context, repo *Repository) (ProductComponent, bool, error) {
		return repo.GetLocalProductComponent(ctx, id)
	}
}

func localObject(cat toc.Category, id string) localLookup[Object] {
	return func(ctx context.Context, repo *Repository) (Object, bool, error) {
		return repo.GetLocal(ctx, cat, id)
	}
}

// GetLocalProductComponent looks id up in this repository only
func (r *Repository) GetLocalProductComponent(ctx context.Context, id string) (ProductComponent, bool, error) {
	if r.toc.FindProductComponent(id) == nil {
		return nil, false, nil
	}
	return r.products.Get(ctx, id)
}

// GetLocal looks id of cat up in this repository only
func (r *Repository) GetLocal(ctx context.Context, cat toc.Category, id string) (Object, bool, error) {
	if cat == toc.ProductComponent {
		return r.GetLocalProductComponent(ctx, id)
	}
	cache, ok := r.objects[cat]
	if !ok {
		return nil, false, ErrWrongCategory
	}
	if r.toc.FindByID(cat, id) == nil {
		return nil, false, nil
	}
	return cache.Get(ctx, id)
}

// Get returns the object with id in cat from this repository or a
// referenced one. It returns (nil, nil) when nothing has it.
func (r *Repository) Get(ctx context.Context, cat toc.Category, id string) (Object, error) {
	if !cat.Valid() {
		return nil, ErrWrongCategory
	}
	v, _, err := lookup(ctx, r, cat.String(), localObject(cat, id))
	return v, err
}

// GetProductComponent returns the product component with id, or nil
func (r *Repository) GetProductComponent(ctx context.Context, id string) (ProductComponent, error) {
	v, _, err := lookup(ctx, r, toc.ProductComponent.String(), localProduct(id))
	return v, err
}

// GetProductComponentByKindVersion returns the product component of kind at
// version, or nil
func (r *Repository) GetProductComponentByKindVersion(ctx context.Context, kind, version string) (ProductComponent, error) {
	v, _, err := lookup(ctx, r, toc.ProductComponent.String(),
		func(ctx context.Context, repo *Repository) (ProductComponent, bool, error) {
			e := repo.toc.FindByKindVersion(kind, version)
			if e == nil {
				return nil, false, nil
			}
			return repo.products.Get(ctx, e.ObjectID)
		})
	return v, err
}

// GetTable returns the table with the qualified name id, or nil
func (r *Repository) GetTable(ctx context.Context, id string) (Object, error) {
	return r.Get(ctx, toc.Table, id)
}

// GetTableByImplementationKey returns the first table registered for key, or nil
func (r *Repository) GetTableByImplementationKey(ctx context.Context, key string) (Object, error) {
	v, _, err := lookup(ctx, r, toc.Table.String(),
		func(ctx context.Context, repo *Repository) (Object, bool, error) {
			e := repo.toc.FindTableByImplementationKey(key)
			if e == nil {
				return nil, false, nil
			}
			return repo.objects[toc.Table].Get(ctx, e.ObjectID)
		})
	return v, err
}

// GetEnumContent returns the enum content of enumType, or nil
func (r *Repository) GetEnumContent(ctx context.Context, enumType string) (Object, error) {
	v, _, err := lookup(ctx, r, toc.EnumContent.String(),
		func(ctx context.Context, repo *Repository) (Object, bool, error) {
			e := repo.toc.FindEnumContentByName(enumType)
			if e == nil {
				return nil, false, nil
			}
			return repo.objects[toc.EnumContent].Get(ctx, e.ObjectID)
		})
	return v, err
}

// GetTestCase returns the test case named name, or nil
func (r *Repository) GetTestCase(ctx context.Context, name string) (Object, error) {
	return r.Get(ctx, toc.TestCase, name)
}

// GetModelType returns the model type named name, or nil
func (r *Repository) GetModelType(ctx context.Context, name string) (Object, error) {
	return r.Get(ctx, toc.ModelType, name)
}

// GetExisting is Get returning a NotFoundError instead of nil
func (r *Repository) GetExisting(ctx context.Context, cat toc.Category, id string) (Object, error) {
	v, err := r.Get(ctx, cat, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, r.notFound(cat, id, nil)
	}
	return v, nil
}

// GetExistingProductComponent is GetProductComponent returning a NotFoundError instead of nil
func (r *Repository) GetExistingProductComponent(ctx context.Context, id string) (ProductComponent, error) {
	v, err := r.GetProductComponent(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, r.notFound(toc.ProductComponent, id, nil)
	}
	return v, nil
}

// GetExistingProductComponentByKindVersion reports a NotFoundError instead of nil
func (r *Repository) GetExistingProductComponentByKindVersion(ctx context.Context, kind, version string) (ProductComponent, error) {
	v, err := r.GetProductComponentByKindVersion(ctx, kind, version)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, r.notFound(toc.ProductComponent, kind+"/"+version, nil)
	}
	return v, nil
}

// GetExistingTable reports a NotFoundError instead of nil
func (r *Repository) GetExistingTable(ctx context.Context, id string) (Object, error) {
	return r.GetExisting(ctx, toc.Table, id)
}

// GetExistingEnumContent reports a NotFoundError instead of nil
func (r *Repository) GetExistingEnumContent(ctx context.Context, enumType string) (Object, error) {
	v, err := r.GetEnumContent(ctx, enumType)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, r.notFound(toc.EnumContent, enumType, nil)
	}
	return v, nil
}

// GetExistingTestCase reports a NotFoundError instead of nil
func (r *Repository) GetExistingTestCase(ctx context.Context, name string) (Object, error) {
	return r.GetExisting(ctx, toc.TestCase, name)
}

// GetExistingModelType reports a NotFoundError instead of nil
func (r *Repository) GetExistingModelType(ctx context.Context, name string) (Object, error) {
	return r.GetExisting(ctx, toc.ModelType, name)
}

func (r *Repository) notFound(cat toc.Category, key string, date *time.Time) error {
	return &NotFoundError{Repository: r.name, Category: cat, Key: key, Date: date}
}
