// ABOUTME: Bulk queries over this repository and every repository it references
// ABOUTME: Results are the concatenated local results, this repository first

package repository

import (
	"context"

	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

// collect materializes entries of every repository in the graph selected by
// pick, this repository first and then the closure in breadth-first order
func collect[V any](ctx context.Context, r *Repository, pick func(*Repository) []*toc.Entry, get func(context.Context, *Repository, *toc.Entry) (V, bool, error)) ([]V, error) {
	var out []V
	for _, repo := range r.withClosure() {
		for _, e := range pick(repo) {
			v, ok, err := get(ctx, repo, e)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func getProduct(ctx context.Context, repo *Repository, e *toc.Entry) (ProductComponent, bool, error) {
	return repo.products.Get(ctx, e.ObjectID)
}

func getObject(ctx context.Context, repo *Repository, e *toc.Entry) (Object, bool, error) {
	return repo.GetLocal(ctx, e.Category, e.ObjectID)
}

// GetAllLocal materializes every entry of cat in this repository only
func (r *Repository) GetAllLocal(ctx context.Context, cat toc.Category) ([]Object, error) {
	if !cat.Valid() {
		return nil, ErrWrongCategory
	}
	var out []Object
	for _, e := range r.toc.Entries(cat) {
		v, ok, err := r.GetLocal(ctx, cat, e.ObjectID)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// GetAll materializes every entry of cat in the whole graph
func (r *Repository) GetAll(ctx context.Context, cat toc.Category) ([]Object, error) {
	if !cat.Valid() {
		return nil, ErrWrongCategory
	}
	return collect(ctx, r, func(repo *Repository) []*toc.Entry {
		return repo.toc.Entries(cat)
	}, getObject)
}

// GetAllIDs returns the ids of cat in the whole graph. An id present in
// several repositories is listed once per repository.
func (r *Repository) GetAllIDs(cat toc.Category) []string {
	var ids []string
	for _, repo := range r.withClosure() {
		ids = append(ids, repo.toc.IDs(cat)...)
	}
	return ids
}

// GetAllProductComponentIDs returns every product component id in the graph
func (r *Repository) GetAllProductComponentIDs() []string {
	return r.GetAllIDs(toc.ProductComponent)
}

// GetAllProductComponents materializes every product component in the graph
func (r *Repository) GetAllProductComponents(ctx context.Context) ([]ProductComponent, error) {
	return collect(ctx, r, func(repo *Repository) []*toc.Entry {
		return repo.toc.Entries(toc.ProductComponent)
	}, getProduct)
}

// GetAllProductComponentsOfKind materializes every version of kind in the graph
func (r *Repository) GetAllProductComponentsOfKind(ctx context.Context, kind string) ([]ProductComponent, error) {
	return collect(ctx, r, func(repo *Repository) []*toc.Entry {
		return repo.toc.FindAllByKind(kind)
	}, getProduct)
}

// GetAllTables materializes every table in the graph
func (r *Repository) GetAllTables(ctx context.Context) ([]Object, error) {
	return r.GetAll(ctx, toc.Table)
}

// GetAllTestCases materializes every test case whose name starts with prefix
func (r *Repository) GetAllTestCases(ctx context.Context, prefix string) ([]Object, error) {
	return collect(ctx, r, func(repo *Repository) []*toc.Entry {
		return repo.toc.FindTestCases(prefix)
	}, getObject)
}

// GetAllEnumAdapters materializes the adapters for enumType; an empty
// enumType selects every adapter
func (r *Repository) GetAllEnumAdapters(ctx context.Context, enumType string) ([]Object, error) {
	return collect(ctx, r, func(repo *Repository) []*toc.Entry {
		return repo.toc.FindEnumAdapters(enumType)
	}, getObject)
}

// GetAllModelTypes materializes every model type in the graph
func (r *Repository) GetAllModelTypes(ctx context.Context) ([]Object, error) {
	return r.GetAll(ctx, toc.ModelType)
}

// GetAllEnumTypes returns the enum types with content in the graph, sorted
// per repository
func (r *Repository) GetAllEnumTypes() []string {
	var types []string
	for _, repo := range r.withClosure() {
		for _, e := range repo.toc.Entries(toc.EnumContent) {
			types = append(types, e.EnumType)
		}
	}
	return types
}
