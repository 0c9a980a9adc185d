package app

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/giantswarm/dogkop/internal/reconciler"
	"github.com/giantswarm/dogkop/pkg/logging"
)

const serverShutdownTimeout = 5 * time.Second

// StatusProvider exposes the reconcile manager to the operations server.
// *reconciler.Manager implements it.
type StatusProvider interface {
	IsRunning() bool
	GetStatus(name, namespace string) (*reconciler.ReconcileStatus, bool)
	GetAllStatuses() []reconciler.ReconcileStatus
	GetQueueLength() int
	GetPendingRetries() int
	TriggerReconcile(name, namespace string)
}

var _ StatusProvider = (*reconciler.Manager)(nil)

// StatusOverview is the response of GET /status.
type StatusOverview struct {
	Running        bool                         `json:"running"`
	QueueLength    int                          `json:"queueLength"`
	PendingRetries int                          `json:"pendingRetries"`
	Monitors       []reconciler.ReconcileStatus `json:"monitors"`
}

// Server serves metrics, health probes and reconcile status.
type Server struct {
	*http.Server
	manager StatusProvider
}

// NewServer constructs the operations server listening on addr.
func NewServer(addr string, manager StatusProvider, gatherer prometheus.Gatherer) *Server {
	s := &Server{manager: manager}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.HandleFunc("/readyz", s.readyHandler)
	r.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)
	r.HandleFunc("/status/{namespace}/{name}", s.monitorStatusHandler).Methods(http.MethodGet)
	r.HandleFunc("/reconcile/{namespace}/{name}", s.triggerHandler).Methods(http.MethodPost)

	s.Server = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("OpsServer", "Listening on http://%s", listener.Addr())
		errCh <- s.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) readyHandler(w http.ResponseWriter, _ *http.Request) {
	if !s.manager.IsRunning() {
		http.Error(w, "reconcile manager not running", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusOverview{
		Running:        s.manager.IsRunning(),
		QueueLength:    s.manager.GetQueueLength(),
		PendingRetries: s.manager.GetPendingRetries(),
		Monitors:       s.manager.GetAllStatuses(),
	})
}

func (s *Server) monitorStatusHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	status, ok := s.manager.GetStatus(vars["name"], vars["namespace"])
	if !ok {
		http.Error(w, "monitor not tracked", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) triggerHandler(w http.ResponseWriter, r *http.Request) {
	if !s.manager.IsRunning() {
		http.Error(w, "reconcile manager not running", http.StatusServiceUnavailable)
		return
	}
	vars := mux.Vars(r)
	s.manager.TriggerReconcile(vars["name"], vars["namespace"])
	logging.Info("OpsServer", "Manual reconcile queued for %s/%s", vars["namespace"], vars["name"])
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("OpsServer", "Failed to encode response: %v", err)
	}
}
