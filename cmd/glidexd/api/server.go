package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/onkernel/glidex/lib/lifecycle"
	glidexmiddleware "github.com/onkernel/glidex/lib/middleware"
)

// Server holds everything the HTTP handlers need. It is a thin shell
// around the Lifecycle Manager; all core logic lives there.
type Server struct {
	mgr *lifecycle.Manager
	log *slog.Logger
}

func NewServer(mgr *lifecycle.Manager, log *slog.Logger) *Server {
	return &Server{mgr: mgr, log: log}
}

// NewRouter builds the chi router and middleware stack: request id, real
// ip, panic recovery, otel tracing, access logging, HTTP metrics, and a
// 60s per-request timeout, matching the teacher's cmd/api/main.go stack.
func NewRouter(s *Server, httpMetrics *glidexmiddleware.HTTPMetrics) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(otelchi.Middleware("glidexd"))
	r.Use(glidexmiddleware.InjectLogger(s.log))
	r.Use(glidexmiddleware.AccessLogger(s.log))
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/vms", func(r chi.Router) {
		r.Get("/", s.handleListVMs)
		r.Post("/", s.handleCreateVM)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetVM)
			r.Delete("/", s.handleDeleteVM)
			r.Post("/start", s.handleStartVM)
			r.Post("/stop", s.handleStopVM)
			r.Post("/pause", s.handlePauseVM)
			r.Get("/console", s.handleConsoleInfo)
		})
	})

	return r
}
