// Observability HTTP server: metrics, health, repository readiness and profiling
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/faktorips/faktorips.base-sub009/internal/logger"
	"github.com/faktorips/faktorips.base-sub009/pkg/manager"
	"github.com/faktorips/faktorips.base-sub009/pkg/toc"
)

// readyTimeout bounds how long /ready waits for a rebuild
const readyTimeout = 5 * time.Second

// RepositoryStatus is what /ready reports for one manager
type RepositoryStatus struct {
	Name       string         `json:"name"`
	Ready      bool           `json:"ready"`
	InstanceID string         `json:"instance_id,omitempty"`
	Entries    map[string]int `json:"entries,omitempty"`
	References []string       `json:"references,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// ObservabilityServer provides HTTP endpoints for metrics and profiling
type ObservabilityServer struct {
	server   *http.Server
	managers []*manager.Manager
	log      *logger.Logger
}

// NewObservabilityServer creates the HTTP server. Metrics are served from
// gatherer; readiness asks every manager for its current repository.
func NewObservabilityServer(addr string, gatherer prometheus.Gatherer, managers []*manager.Manager, log *logger.Logger) *ObservabilityServer {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	o := &ObservabilityServer{managers: managers, log: log}

	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"pcstore"}`))
	})

	mux.HandleFunc("/ready", o.handleReady)

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/debug/pprof/allocs", pprof.Handler("allocs"))
	mux.Handle("/debug/pprof/mutex", pprof.Handler("mutex"))

	o.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return o
}

// Handler exposes the routes, mostly for tests
func (o *ObservabilityServer) Handler() http.Handler {
	return o.server.Handler
}

// Status reports readiness of every managed repository
func (o *ObservabilityServer) Status(ctx context.Context) ([]RepositoryStatus, bool) {
	statuses := make([]RepositoryStatus, 0, len(o.managers))
	allReady := true

	for _, m := range o.managers {
		st := RepositoryStatus{Name: m.Name()}
		repo, err := m.CurrentRepository(ctx)
		if err != nil {
			st.Error = err.Error()
			allReady = false
			statuses = append(statuses, st)
			continue
		}

		st.Ready = true
		st.InstanceID = repo.InstanceID.String()
		st.Entries = make(map[string]int, len(toc.Categories))
		for _, cat := range toc.Categories {
			st.Entries[cat.String()] = repo.TableOfContents().Count(cat)
		}
		for _, ref := range repo.DirectlyReferencedRepositories() {
			st.References = append(st.References, ref.Name())
		}
		statuses = append(statuses, st)
	}
	return statuses, allReady
}

func (o *ObservabilityServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	statuses, ok := o.Status(ctx)
	body := struct {
		Status       string             `json:"status"`
		Repositories []RepositoryStatus `json:"repositories"`
	}{Status: "ready", Repositories: statuses}

	code := http.StatusOK
	if !ok {
		body.Status = "not_ready"
		code = http.StatusServiceUnavailable
		o.log.Warn("Readiness check failed").Int("repositories", len(statuses)).Send()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		o.log.Error("Failed to write readiness response").Err(err).Send()
	}
}

// Start serves until Shutdown is called
func (o *ObservabilityServer) Start() error {
	ln, err := net.Listen("tcp", o.server.Addr)
	if err != nil {
		return fmt.Errorf("observability server: listen %s: %w", o.server.Addr, err)
	}
	return o.Serve(ln)
}

// Serve serves on an existing listener
func (o *ObservabilityServer) Serve(ln net.Listener) error {
	o.log.LogServerStart(ln.Addr().String(), len(o.managers))

	o.log.Info("Endpoints:").
		Str("metrics", fmt.Sprintf("http://%s/metrics", ln.Addr())).
		Str("ready", fmt.Sprintf("http://%s/ready", ln.Addr())).
		Str("pprof", fmt.Sprintf("http://%s/debug/pprof/", ln.Addr())).
		Send()

	if err := o.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("observability server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the observability server
func (o *ObservabilityServer) Shutdown(ctx context.Context) error {
	o.log.LogServerShutdown()
	return o.server.Shutdown(ctx)
}
