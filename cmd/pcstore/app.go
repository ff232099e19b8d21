// ABOUTME: Wires configuration into data sources, factories and repository managers
// ABOUTME: One manager per configured repository, referencing others by name

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/faktorips/faktorips.base-sub009/internal/config"
	"github.com/faktorips/faktorips.base-sub009/internal/logger"
	"github.com/faktorips/faktorips.base-sub009/internal/metrics"
	"github.com/faktorips/faktorips.base-sub009/pkg/datasource"
	"github.com/faktorips/faktorips.base-sub009/pkg/factory"
	"github.com/faktorips/faktorips.base-sub009/pkg/manager"
	"github.com/faktorips/faktorips.base-sub009/pkg/repository"
	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

type app struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	managers map[string]*manager.Manager
	ordered  []*manager.Manager
	closers  []io.Closer
}

func openSource(rc config.RepositoryConfig, log *logger.Logger) (datasource.Source, io.Closer, error) {
	switch rc.Backend {
	case config.BackendBadger:
		src, err := datasource.OpenBadger(rc.DataDir, false, log)
		if err != nil {
			return nil, nil, err
		}
		return src, src, nil
	case config.BackendDir:
		src, err := datasource.OpenDir(rc.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return src, src, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", rc.Backend)
	}
}

func newApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &app{
		cfg:      cfg,
		log:      log,
		registry: reg,
		metrics:  metrics.NewMetrics(reg),
		managers: make(map[string]*manager.Manager, len(cfg.Repositories)),
	}

	for _, rc := range cfg.Repositories {
		src, closer, err := openSource(rc, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("repository %s: open %s source: %w", rc.Name, rc.Backend, err)
		}
		a.closers = append(a.closers, closer)

		m := manager.New(rc.Name, a.buildFunc(rc, factory.NewRegistry(src, factory.YAMLDocument)),
			manager.WithChecker(manager.ManifestChecker{Path: rc.Manifest}),
			manager.WithLogger(log),
			manager.WithMetrics(a.metrics),
		)
		a.managers[rc.Name] = m
		a.ordered = append(a.ordered, m)
	}

	for _, rc := range cfg.Repositories {
		for _, ref := range rc.References {
			if err := a.managers[rc.Name].AddReferencedManager(a.managers[ref]); err != nil {
				a.Close()
				return nil, err
			}
		}
	}
	return a, nil
}

func (a *app) buildFunc(rc config.RepositoryConfig, objects repository.ObjectFactory) manager.BuildFunc {
	return func(ctx context.Context) (*repository.Repository, error) {
		contents, err := toc.LoadManifestFile(rc.Manifest)
		if err != nil {
			return nil, err
		}
		return repository.New(rc.Name, contents, objects,
			repository.WithLogger(a.log),
			repository.WithMetrics(a.metrics),
			repository.WithPreloadWorkers(a.cfg.Preload.Workers),
		), nil
	}
}

// repository returns the current repository of the named manager
func (a *app) repository(ctx context.Context, name string) (*repository.Repository, error) {
	m, ok := a.managers[name]
	if !ok {
		return nil, fmt.Errorf("unknown repository %q", name)
	}
	return m.CurrentRepository(ctx)
}

// preload warms every repository and logs the outcome
func (a *app) preload(ctx context.Context) error {
	var errs []error
	for _, m := range a.ordered {
		repo, err := m.CurrentRepository(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		stats, err := repo.Preload(ctx)
		a.log.Info("Preloaded repository").
			Str("repository", repo.Name()).
			Int("objects", stats.Objects).
			Int("generations", stats.Generations).
			Int("failed", stats.Failed).
			Dur("duration", stats.Duration).
			Send()
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
