package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"github.com/giantswarm/dogkop/internal/datadog"
)

// HTTPServer serves a DatadogAPI over the Datadog monitor REST routes.
type HTTPServer struct {
	api    *DatadogAPI
	apiKey string
	appKey string

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	running    bool
}

// NewHTTPServer returns a server backed by api. Non-empty keys are required on every
// request; mismatches are answered with 403.
func NewHTTPServer(api *DatadogAPI, apiKey, appKey string) *HTTPServer {
	return &HTTPServer{api: api, apiKey: apiKey, appKey: appKey}
}

// Handler returns the router without starting a listener.
func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.authenticate)

	r.HandleFunc("/api/v1/monitor", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/monitor/search", s.handleSearch).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/monitor/{id:[0-9]+}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/monitor/{id:[0-9]+}", s.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/monitor/{id:[0-9]+}", s.handleDelete).Methods(http.MethodDelete)
	return r
}

// Start listens on a free local port and returns the base URL.
func (s *HTTPServer) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.url(), nil
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to find available port: %w", err)
	}

	s.listener = listener
	s.httpServer = &http.Server{Handler: s.Handler()}

	go func() {
		_ = s.httpServer.Serve(listener)
	}()

	s.running = true
	return s.url(), nil
}

// Stop shuts the server down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	return s.httpServer.Shutdown(ctx)
}

func (s *HTTPServer) url() string {
	return "http://" + s.listener.Addr().String()
}

func (s *HTTPServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (s.apiKey != "" && r.Header.Get("DD-API-KEY") != s.apiKey) ||
			(s.appKey != "" && r.Header.Get("DD-APPLICATION-KEY") != s.appKey) {
			writeJSON(w, http.StatusForbidden, map[string]interface{}{"errors": []string{"Forbidden"}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	config, ok := decodeConfig(w, r)
	if !ok {
		return
	}
	m, err := s.api.CreateMonitor(r.Context(), config)
	writeMonitor(w, m, err)
}

func (s *HTTPServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	config, ok := decodeConfig(w, r)
	if !ok {
		return
	}
	m, err := s.api.UpdateMonitor(r.Context(), pathID(r), config)
	writeMonitor(w, m, err)
}

func (s *HTTPServer) handleGet(w http.ResponseWriter, r *http.Request) {
	m, err := s.api.GetMonitor(r.Context(), pathID(r))
	writeMonitor(w, m, err)
}

func (s *HTTPServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if err := s.api.DeleteMonitor(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted_monitor_id": id})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	monitors, err := s.api.SearchMonitors(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeError(w, err)
		return
	}

	docs := make([]map[string]interface{}, 0, len(monitors))
	for _, m := range monitors {
		docs = append(docs, m.Raw)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"monitors": docs,
		"metadata": map[string]interface{}{"total_count": len(docs), "page": 0, "per_page": 30},
	})
}

func decodeConfig(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	var config map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": []string{"Invalid JSON: " + err.Error()}})
		return nil, false
	}
	return config, true
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func writeMonitor(w http.ResponseWriter, m datadog.Monitor, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Raw)
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *datadog.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.StatusCode, map[string]interface{}{"errors": apiErr.Errors})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"errors": []string{err.Error()}})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
