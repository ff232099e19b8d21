// ABOUTME: Repository graph of direct and transitive references
// ABOUTME: The closure and search order are memoized until any reference in the process is added

package repository

import (
	"slices"
	"sync/atomic"
)

// graphVersion changes whenever any repository gains a reference. Memoized
// closures and search orders are only valid for the version they were
// computed at, so ancestors notice references added further down.
var graphVersion atomic.Uint64

// AddDirectlyReferencedRepository appends ref to the references searched
// after this repository. It is meant for setup only.
func (r *Repository) AddDirectlyReferencedRepository(ref *Repository) error {
	if ref == nil {
		return nil
	}
	if ref == r {
		return ErrSelfReference
	}

	r.refMu.Lock()
	defer r.refMu.Unlock()
	r.direct = append(r.direct, ref)
	r.closure = nil
	r.search = nil
	graphVersion.Add(1)

	r.logger.Debug("reference added").
		Str("referenced", ref.name).
		Str("referenced_instance", ref.InstanceID.String()).
		Send()
	return nil
}

// DirectlyReferencedRepositories returns the direct references in
// registration order
func (r *Repository) DirectlyReferencedRepositories() []*Repository {
	r.refMu.RLock()
	defer r.refMu.RUnlock()
	return slices.Clone(r.direct)
}

// AllReferencedRepositories returns every repository reachable through
// references, breadth first, each once and never r itself
func (r *Repository) AllReferencedRepositories() []*Repository {
	version := graphVersion.Load()
	r.refMu.RLock()
	closure, cachedAt := r.closure, r.closureVersion
	r.refMu.RUnlock()
	if closure != nil && cachedAt == version {
		return slices.Clone(closure)
	}

	closure = r.computeClosure()

	r.refMu.Lock()
	r.closure, r.closureVersion = closure, version
	r.refMu.Unlock()
	return slices.Clone(closure)
}

func (r *Repository) computeClosure() []*Repository {
	seen := map[*Repository]bool{r: true}
	closure := []*Repository{}
	queue := r.DirectlyReferencedRepositories()

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		closure = append(closure, next)
		queue = append(queue, next.DirectlyReferencedRepositories()...)
	}
	return closure
}

// searchOrder returns r followed by every reachable repository in the order
// public lookups visit them: each direct reference in registration order,
// fully, before the next. Repositories reached twice are visited once.
func (r *Repository) searchOrder() []*Repository {
	version := graphVersion.Load()
	r.refMu.RLock()
	order, cachedAt := r.search, r.searchVersion
	r.refMu.RUnlock()
	if order != nil && cachedAt == version {
		return order
	}

	order = nil
	seen := map[*Repository]bool{}
	var visit func(*Repository)
	visit = func(repo *Repository) {
		if seen[repo] {
			return
		}
		seen[repo] = true
		order = append(order, repo)
		for _, ref := range repo.DirectlyReferencedRepositories() {
			visit(ref)
		}
	}
	visit(r)

	r.refMu.Lock()
	r.search, r.searchVersion = order, version
	r.refMu.Unlock()
	return order
}

// withClosure returns r followed by its transitive closure
func (r *Repository) withClosure() []*Repository {
	return append([]*Repository{r}, r.AllReferencedRepositories()...)
}
