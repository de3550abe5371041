// Package debughttp adapts the teacher's HTTPserver.go /
// serverEntry.go pair -- which mounted a single /update handler for
// out-of-band peer registration -- into a read-only introspection
// server exposing neighbor state, route state, the current DV, and
// Prometheus metrics. It runs as its own goroutine with its own
// lifecycle, independent of the reactor's stop channel, matching the
// teacher's pattern of starting the HTTP listener in a bare goroutine
// but shut down cleanly via http.Server.Shutdown rather than left to
// die with the process.
package debughttp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dragmakex/dv-routing/logger"
	"github.com/dragmakex/dv-routing/metrics"
	"github.com/dragmakex/dv-routing/neighbor"
	"github.com/dragmakex/dv-routing/route"
)

const shutdownTimeout = 3 * time.Second

// Server is the debug HTTP listener.
type Server struct {
	srv *http.Server
	log logger.DebugLogger
}

// New builds a debug server bound to addr, serving:
//
//	/debug/neighbors  - JSON dump of the neighbor table
//	/debug/routes     - JSON dump of the route table
//	/debug/dv         - the current wire-format distance vector
//	/metrics          - Prometheus exposition format
func New(addr string, neighbors *neighbor.Table, routes *route.Table, reg *metrics.Registry, log logger.DebugLogger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/neighbors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, neighbors.Snapshot())
	})
	mux.HandleFunc("/debug/routes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, routes.Snapshot())
	})
	mux.HandleFunc("/debug/dv", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(routes.Encode()))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg.Registerer(), promhttp.HandlerOpts{}))

	return &Server{
		srv: &http.Server{Addr: addr, Handler: mux},
		log: log,
	}
}

// Start begins serving in a background goroutine. ListenAndServe errors
// other than the expected shutdown error are logged, not fatal -- the
// debug server is diagnostic, never load-bearing for routing itself.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("debughttp: listen error: %v", err)
		}
	}()
}

// Stop gracefully shuts the server down, bounded by shutdownTimeout.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Errorf("debughttp: shutdown error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
