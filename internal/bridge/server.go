// SPDX-License-Identifier: MIT

// Package bridge exposes the runtime over HTTP: lifecycle, state reads,
// command dispatch and an ordered event stream. It is the only place where
// lifecycle misuse surfaces as status codes instead of panics.
package bridge

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/streambridge/core/internal/log"
	"github.com/streambridge/core/internal/metrics"
	"github.com/streambridge/core/internal/runtime"
)

// Options tunes the server; zero values give sane defaults.
type Options struct {
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int
	// SubscriberBuffer is the per-subscriber event channel depth.
	SubscriberBuffer int
}

// Server serves the bridge API over one runtime manager.
type Server struct {
	manager *runtime.Manager
	hub     *hub
	opts    Options
	logger  zerolog.Logger

	// initMu serializes initialize requests so the manager's
	// initialize-once contract surfaces as 409, never as a panic.
	initMu sync.Mutex
}

// NewServer wraps the manager. The manager may be in any lifecycle state;
// initialization happens through the API.
func NewServer(manager *runtime.Manager, opts Options) *Server {
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = 64
	}
	return &Server{
		manager: manager,
		hub:     newHub(),
		opts:    opts,
		logger:  log.WithComponent("bridge"),
	}
}

// Router builds the chi router with the canonical middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(rateLimit(s.opts.RateLimit))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runtime/initialize", s.handleInitialize)
		r.Get("/state", s.handleGetState)
		r.Post("/dispatch", s.handleDispatch)
		r.Get("/events", s.handleEvents)
	})
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"error": detail})
}

// handleInitialize boots the runtime. A repeat call answers 409 with the
// current state; a boot failure answers 500 and leaves the handle Failed.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if state := s.manager.State(); state != runtime.StateUninitialized {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("runtime already initialized (state %s)", state))
		return
	}
	if err := s.manager.Initialize(r.Context(), s.hub.publish); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": s.manager.State().String()})
}

// handleGetState serializes one state slice. Unresolvable fields yield JSON
// null with 200; reading before the runtime is Ready yields 503.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	if state := s.manager.State(); state != runtime.StateReady {
		writeError(w, http.StatusServiceUnavailable,
			fmt.Sprintf("runtime not ready (state %s)", state))
		return
	}
	field := runtime.Field(r.URL.Query().Get("field"))
	if field == "" {
		writeError(w, http.StatusBadRequest, "missing field parameter")
		return
	}
	raw := s.manager.GetState(field)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// dispatchRequest is the wire envelope for POST /dispatch.
type dispatchRequest struct {
	Field  *runtime.Field `json:"field,omitempty"`
	Action runtime.Action `json:"action"`
}

// handleDispatch routes one command into the runtime. Malformed payloads are
// dropped silently: the caller gets 204 either way, only the drop counter
// reveals them.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if state := s.manager.State(); state != runtime.StateReady {
		writeError(w, http.StatusServiceUnavailable,
			fmt.Sprintf("runtime not ready (state %s)", state))
		return
	}

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.IncBoundaryDrop("undecodable_dispatch")
		logger := log.WithComponentFromContext(r.Context(), "bridge")
		logger.Debug().Err(err).Msg("undecodable dispatch payload dropped")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if req.Action.Name == "" {
		metrics.IncBoundaryDrop("missing_action_name")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.manager.Dispatch(req.Action, req.Field)
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents streams runtime events as server-sent events, in emission
// order, until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := s.hub.subscribe(s.opts.SubscriberBuffer)
	defer s.hub.unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, payload)
			flusher.Flush()
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  s.manager.State().String(),
	})
}
