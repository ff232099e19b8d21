// ABOUTME: Generation lookups and timeline navigation across the repository graph
// ABOUTME: Navigation always happens in the repository that created the generation

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

// getLocalGeneration materializes ge in this repository's generation cache
func (r *Repository) getLocalGeneration(ctx context.Context, ge *toc.GenerationEntry) (Generation, bool, error) {
	if ge == nil {
		return nil, false, nil
	}
	return r.generations.Get(ctx, NewGenerationKey(ge.ObjectID(), ge.ValidFrom))
}

// GetLocalGenerationAt resolves the generation of id effective at date in
// this repository only
func (r *Repository) GetLocalGenerationAt(ctx context.Context, id string, date time.Time) (Generation, bool, error) {
	ge, err := r.toc.EntryEffectiveAt(id, date)
	if err != nil {
		return nil, false, err
	}
	return r.getLocalGeneration(ctx, ge)
}

// GetGenerationAt returns the generation of product component id effective
// at date, or nil when no repository in the graph has one
func (r *Repository) GetGenerationAt(ctx context.Context, id string, date time.Time) (Generation, error) {
	v, _, err := lookup(ctx, r, generationLabel,
		func(ctx context.Context, repo *Repository) (Generation, bool, error) {
			return repo.GetLocalGenerationAt(ctx, id, date)
		})
	return v, err
}

// GetExistingGenerationAt reports a NotFoundError carrying date instead of nil
func (r *Repository) GetExistingGenerationAt(ctx context.Context, id string, date time.Time) (Generation, error) {
	v, err := r.GetGenerationAt(ctx, id, date)
	if err != nil {
		return nil, err
	}
	if v == nil {
		d := date
		return nil, r.notFound(toc.ProductComponent, id, &d)
	}
	return v, nil
}

// owns reports whether gen is the object this repository created
func (r *Repository) owns(gen Generation) bool {
	cached, ok := r.generations.Peek(NewGenerationKey(gen.ProductComponentID(), gen.ValidFrom()))
	return ok && sameObject(cached, gen)
}

// owner finds the repository in the graph that created gen
func (r *Repository) owner(gen Generation) (*Repository, error) {
	if gen == nil {
		return nil, fmt.Errorf("%w: nil generation", ErrOwnerMismatch)
	}
	for _, repo := range r.withClosure() {
		if repo.owns(gen) {
			return repo, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrOwnerMismatch,
		NewGenerationKey(gen.ProductComponentID(), gen.ValidFrom()))
}

// entryFor returns the timeline entry behind gen in its owning repository
func (r *Repository) entryFor(gen Generation) (*toc.GenerationEntry, error) {
	e := r.toc.FindProductComponent(gen.ProductComponentID())
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrOwnerMismatch, gen.ProductComponentID())
	}
	ge := e.Timeline.Find(gen.ValidFrom())
	if ge == nil {
		return nil, fmt.Errorf("%w: %s", ErrOwnerMismatch,
			NewGenerationKey(gen.ProductComponentID(), gen.ValidFrom()))
	}
	return ge, nil
}

func (r *Repository) navigate(ctx context.Context, gen Generation, step func(*toc.TableOfContents, *toc.GenerationEntry) *toc.GenerationEntry) (Generation, error) {
	owner, err := r.owner(gen)
	if err != nil {
		return nil, err
	}
	ge, err := owner.entryFor(gen)
	if err != nil {
		return nil, err
	}
	v, _, err := owner.getLocalGeneration(ctx, step(owner.toc, ge))
	return v, err
}

// GetNextGeneration returns the generation following gen, or nil when gen
// is the latest. gen must come from this repository or one it references.
func (r *Repository) GetNextGeneration(ctx context.Context, gen Generation) (Generation, error) {
	return r.navigate(ctx, gen, (*toc.TableOfContents).NextGenerationAfter)
}

// GetPreviousGeneration returns the generation preceding gen, or nil when
// gen is the first
func (r *Repository) GetPreviousGeneration(ctx context.Context, gen Generation) (Generation, error) {
	return r.navigate(ctx, gen, (*toc.TableOfContents).PreviousGenerationBefore)
}

// GetLatestGeneration returns the newest generation of id, or nil when no
// repository in the graph knows id
func (r *Repository) GetLatestGeneration(ctx context.Context, id string) (Generation, error) {
	v, _, err := lookup(ctx, r, generationLabel,
		func(ctx context.Context, repo *Repository) (Generation, bool, error) {
			ge, err := repo.toc.LatestGeneration(id)
			if err != nil {
				return nil, false, err
			}
			return repo.getLocalGeneration(ctx, ge)
		})
	return v, err
}

// GetGenerationCount returns the number of generations of id in the first
// repository of the graph that knows id; 0 when none does
func (r *Repository) GetGenerationCount(id string) (int, error) {
	for _, repo := range r.searchOrder() {
		if repo.toc.FindProductComponent(id) == nil {
			continue
		}
		if _, err := repo.toc.LatestGeneration(id); err != nil {
			return 0, err
		}
		return repo.toc.GenerationCount(id), nil
	}
	return 0, nil
}
