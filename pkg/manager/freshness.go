// ABOUTME: Staleness checks deciding when a manager must rebuild
// ABOUTME: Manifest digests and file modification times are supported

package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faktorips/faktorips.base-sub009/pkg/repository"
	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

// FreshnessChecker decides whether a built repository still reflects its
// source. Implementations must be safe for concurrent use.
type FreshnessChecker interface {
	UpToDate(ctx context.Context, repo *repository.Repository) (bool, error)
	// BeforeBuild is called under the manager lock right before a build starts
	BeforeBuild(ctx context.Context) error
	// Built is called under the manager lock right after repo was built
	Built(ctx context.Context, repo *repository.Repository) error
}

// AlwaysFresh never asks for a rebuild of its own
type AlwaysFresh struct{}

func (AlwaysFresh) UpToDate(context.Context, *repository.Repository) (bool, error) { return true, nil }
func (AlwaysFresh) BeforeBuild(context.Context) error                              { return nil }
func (AlwaysFresh) Built(context.Context, *repository.Repository) error            { return nil }

// ManifestChecker compares the blake2b digest of a manifest file with the
// fingerprint of the repository's table of contents
type ManifestChecker struct {
	Path string
}

// UpToDate digests the manifest and compares
func (c ManifestChecker) UpToDate(_ context.Context, repo *repository.Repository) (bool, error) {
	digest, err := toc.DigestFile(c.Path)
	if err != nil {
		return false, fmt.Errorf("manager: digest %s: %w", c.Path, err)
	}
	return digest == repo.TableOfContents().Fingerprint(), nil
}

// BeforeBuild does nothing; the fingerprint is taken from the bytes the build reads
func (c ManifestChecker) BeforeBuild(context.Context) error {
	return nil
}

// Built does nothing; the fingerprint travels with the table of contents
func (c ManifestChecker) Built(context.Context, *repository.Repository) error {
	return nil
}

// ModTimeChecker reports staleness when any watched file changed its
// modification time since the last build started
type ModTimeChecker struct {
	paths []string

	mu      sync.RWMutex
	mtimes  map[string]time.Time
	pending map[string]time.Time // taken before the running build
}

// NewModTimeChecker watches paths
func NewModTimeChecker(paths ...string) *ModTimeChecker {
	return &ModTimeChecker{paths: paths, mtimes: map[string]time.Time{}}
}

func (c *ModTimeChecker) snapshot() (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(c.paths))
	for _, p := range c.paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("manager: stat %s: %w", p, err)
		}
		out[p] = info.ModTime()
	}
	return out, nil
}

// UpToDate compares current modification times with the recorded ones
func (c *ModTimeChecker) UpToDate(context.Context, *repository.Repository) (bool, error) {
	now, err := c.snapshot()
	if err != nil {
		return false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for p, t := range now {
		if recorded, ok := c.mtimes[p]; !ok || !recorded.Equal(t) {
			return false, nil
		}
	}
	return true, nil
}

// BeforeBuild snapshots modification times before the build reads the files,
// so an edit made while building is still seen as a change
func (c *ModTimeChecker) BeforeBuild(context.Context) error {
	now, err := c.snapshot()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.pending = now
	c.mu.Unlock()
	return nil
}

// Built commits the snapshot taken by BeforeBuild
func (c *ModTimeChecker) Built(context.Context, *repository.Repository) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return errors.New("manager: modification times built without a snapshot")
	}
	c.mtimes, c.pending = c.pending, nil
	return nil
}
