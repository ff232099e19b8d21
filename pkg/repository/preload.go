// ABOUTME: Concurrent warm-up of the local caches on an ants worker pool
// ABOUTME: Every local entry of the requested categories is materialized once

package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

// PreloadStats summarizes one Preload run
type PreloadStats struct {
	Objects     int
	Generations int
	Failed      int
	Duration    time.Duration
}

// Preload materializes every local entry of cats, or of every category when
// cats is empty. Product components include all their generations. Failures
// are collected and returned together; successful objects stay cached.
func (r *Repository) Preload(ctx context.Context, cats ...toc.Category) (PreloadStats, error) {
	if len(cats) == 0 {
		cats = toc.Categories
	}
	start := time.Now()

	pool, err := ants.NewPool(r.preloadWorkers)
	if err != nil {
		return PreloadStats{}, fmt.Errorf("repository: preload pool: %w", err)
	}
	defer pool.Release()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		errs  []error
		stats PreloadStats
	)
	record := func(generation bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			stats.Failed++
			errs = append(errs, err)
		case generation:
			stats.Generations++
		default:
			stats.Objects++
		}
	}
	submit := func(task func() (bool, error)) {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			record(task())
		})
		if err != nil {
			wg.Done()
			record(false, err)
		}
	}

	for _, cat := range cats {
		if !cat.Valid() {
			record(false, fmt.Errorf("%w: %v", ErrWrongCategory, cat))
			continue
		}
		for _, e := range r.toc.Entries(cat) {
			if ctx.Err() != nil {
				break
			}
			id := e.ObjectID
			submit(func() (bool, error) {
				_, _, err := r.GetLocal(ctx, cat, id)
				return false, err
			})
			if cat != toc.ProductComponent {
				continue
			}
			for _, ge := range e.Timeline.Entries() {
				submit(func() (bool, error) {
					_, _, err := r.getLocalGeneration(ctx, ge)
					return true, err
				})
			}
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	stats.Duration = time.Since(start)

	r.logger.Info("preload finished").
		Int("objects", stats.Objects).
		Int("generations", stats.Generations).
		Int("failed", stats.Failed).
		Dur("duration_ms", stats.Duration).
		Send()
	return stats, errors.Join(errs...)
}
