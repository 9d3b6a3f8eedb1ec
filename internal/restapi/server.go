// Package restapi is the thin REST layer over internal/cloud.Service: one
// gorilla/mux router, JSON in and out, and a gorilla/websocket live event
// stream fed by internal/events.Bus. It holds no business logic — every
// handler is a decode/call-Service/encode sandwich, the same shape as the
// teacher's http.Server.
package restapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zeroclaw/fleetctl/internal/cloud"
	"github.com/zeroclaw/fleetctl/internal/events"
	"github.com/zeroclaw/fleetctl/pkg/log"
)

// Server wraps an http.Server configured with every route in the REST
// surface, following the teacher's Start/Shutdown lifecycle shape.
type Server struct {
	httpServer *http.Server
	log        log.Logger
}

// New builds a Server bound to addr, dispatching into svc and streaming
// bus events over /api/v1/ws.
func New(addr string, svc *cloud.Service, bus *events.Bus) *Server {
	h := &handlers{svc: svc, hub: newWSHub(bus), log: log.WithName("restapi")}

	r := mux.NewRouter()
	r.Use(metricsMiddleware)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/devices", h.listDevices).Methods(http.MethodGet)
	api.HandleFunc("/devices", h.provisionDevice).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}", h.getDevice).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}/shadows", h.listShadowNames).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}/shadows/{name}", h.getShadow).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}/shadows/{name}/desired", h.setDesiredShadow).Methods(http.MethodPut)
	api.HandleFunc("/devices/{id}/telemetry", h.listTelemetry).Methods(http.MethodGet)
	api.HandleFunc("/commands", h.listCommands).Methods(http.MethodGet)
	api.HandleFunc("/commands", h.submitCommand).Methods(http.MethodPost)
	api.HandleFunc("/commands/{id}", h.getCommand).Methods(http.MethodGet)
	api.HandleFunc("/ws", h.serveWS).Methods(http.MethodGet)

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: r},
		log:        log.WithName("restapi"),
	}
}

// Start runs the HTTP server (the websocket hub's broadcast loop is
// already running, started by New), returning when ctx is cancelled or
// ListenAndServe fails.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting REST server", "addr", s.httpServer.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
