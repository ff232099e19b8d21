// Package manager keeps the current repository of one repository source and
// rebuilds it when its content or any referenced manager's repository changes
package manager

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faktorips/faktorips.base-sub009/internal/logger"
	"github.com/faktorips/faktorips.base-sub009/internal/metrics"
	"github.com/faktorips/faktorips.base-sub009/pkg/repository"
)

var (
	// ErrManagerCycle is returned when a reference would make managers depend on themselves
	ErrManagerCycle = errors.New("manager: reference cycle")

	// ErrNilRepository is returned when a build function returns no repository
	ErrNilRepository = errors.New("manager: build returned nil repository")
)

// BuildFunc constructs a fresh repository without any references
type BuildFunc func(ctx context.Context) (*repository.Repository, error)

// Option configures a Manager
type Option func(*Manager)

// WithChecker sets how staleness is detected; defaults to AlwaysFresh
func WithChecker(c FreshnessChecker) Option {
	return func(m *Manager) {
		m.checker = c
	}
}

// WithLogger sets the logger; defaults to the global logger
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMetrics records rebuilds
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// state is what a manager publishes after each build
type state struct {
	repo     *repository.Repository
	upstream []*repository.Repository // current repositories of refs at build time
}

// Manager hands out the current repository. Reads of an up-to-date
// repository never take the manager's lock.
type Manager struct {
	name    string
	build   BuildFunc
	checker FreshnessChecker
	logger  *logger.Logger
	metrics *metrics.Metrics

	refMu sync.RWMutex
	refs  []*Manager

	mu      sync.Mutex // serializes rebuilds
	current atomic.Pointer[state]
}

// New creates a manager. Nothing is built until the first CurrentRepository.
func New(name string, build BuildFunc, opts ...Option) *Manager {
	m := &Manager{
		name:    name,
		build:   build,
		checker: AlwaysFresh{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.GetGlobalLogger()
	}
	m.logger = m.logger.ManagerLogger(name)
	return m
}

// Name returns the manager name
func (m *Manager) Name() string {
	return m.name
}

func (m *Manager) references() []*Manager {
	m.refMu.RLock()
	defer m.refMu.RUnlock()
	return slices.Clone(m.refs)
}

// reaches reports whether target is m or reachable from m
func (m *Manager) reaches(target *Manager) bool {
	seen := map[*Manager]bool{}
	stack := []*Manager{m}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == target {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, cur.references()...)
	}
	return false
}

// AddReferencedManager makes repositories built by m reference the current
// repository of ref. Setup only.
func (m *Manager) AddReferencedManager(ref *Manager) error {
	if ref == nil {
		return nil
	}
	if ref.reaches(m) {
		return fmt.Errorf("%w: %s -> %s", ErrManagerCycle, m.name, ref.name)
	}
	m.refMu.Lock()
	m.refs = append(m.refs, ref)
	m.refMu.Unlock()
	return nil
}

// isCurrent reports whether st can still be served
func (m *Manager) isCurrent(ctx context.Context, st *state) (bool, error) {
	fresh, err := m.checker.UpToDate(ctx, st.repo)
	if err != nil || !fresh {
		return false, err
	}

	refs := m.references()
	if len(refs) != len(st.upstream) {
		return false, nil
	}
	for i, ref := range refs {
		repo, err := ref.CurrentRepository(ctx)
		if err != nil {
			return false, err
		}
		if repo != st.upstream[i] {
			return false, nil
		}
	}
	return true, nil
}

// CurrentRepository returns the repository to use now, rebuilding it first
// when it is stale or a referenced manager has moved on
func (m *Manager) CurrentRepository(ctx context.Context) (*repository.Repository, error) {
	if st := m.current.Load(); st != nil {
		ok, err := m.isCurrent(ctx, st)
		if err != nil {
			return nil, err
		}
		if ok {
			return st.repo, nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// another caller may have rebuilt while we waited
	if st := m.current.Load(); st != nil {
		ok, err := m.isCurrent(ctx, st)
		if err != nil {
			return nil, err
		}
		if ok {
			return st.repo, nil
		}
	}

	st, err := m.rebuild(ctx)
	m.metrics.RecordRebuild(m.name, err)
	if err != nil {
		return nil, err
	}
	m.current.Store(st)
	return st.repo, nil
}

func (m *Manager) rebuild(ctx context.Context) (*state, error) {
	start := time.Now()
	refs := m.references()

	upstream := make([]*repository.Repository, 0, len(refs))
	for _, ref := range refs {
		repo, err := ref.CurrentRepository(ctx)
		if err != nil {
			m.logger.LogRebuild("", len(refs), time.Since(start), err)
			return nil, fmt.Errorf("manager %s: referenced manager %s: %w", m.name, ref.name, err)
		}
		upstream = append(upstream, repo)
	}

	if err := m.checker.BeforeBuild(ctx); err != nil {
		m.logger.LogRebuild("", len(upstream), time.Since(start), err)
		return nil, fmt.Errorf("manager %s: prepare build: %w", m.name, err)
	}
	repo, err := m.build(ctx)
	if err == nil && repo == nil {
		err = ErrNilRepository
	}
	if err != nil {
		m.logger.LogRebuild("", len(upstream), time.Since(start), err)
		return nil, fmt.Errorf("manager %s: build: %w", m.name, err)
	}

	for _, u := range upstream {
		if err := repo.AddDirectlyReferencedRepository(u); err != nil {
			return nil, fmt.Errorf("manager %s: wire %s: %w", m.name, u.Name(), err)
		}
	}
	if err := m.checker.Built(ctx, repo); err != nil {
		return nil, fmt.Errorf("manager %s: record build: %w", m.name, err)
	}

	m.logger.LogRebuild(repo.InstanceID.String(), len(upstream), time.Since(start), nil)
	return &state{repo: repo, upstream: upstream}, nil
}

// Invalidate drops the published repository so the next call rebuilds
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.current.Store(nil)
	m.mu.Unlock()
}

// Peek returns the published repository without checking freshness, or nil
func (m *Manager) Peek() *repository.Repository {
	if st := m.current.Load(); st != nil {
		return st.repo
	}
	return nil
}
