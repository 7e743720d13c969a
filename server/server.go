// Package server exposes diagrams and reconnection commands over HTTP.
package server

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/meikuraledutech/diagram"
	"github.com/meikuraledutech/diagram/metrics"
	"github.com/meikuraledutech/diagram/rule"
)

// Config wires a Server. Store is required; everything else is optional.
type Config struct {
	Store    diagram.Store
	RuleSets map[string]*rule.Set
	Rules    rule.Manager
	Logger   *zap.Logger
	Metrics  *metrics.Metrics

	// Gatherer backs GET /metrics. The route is not mounted when nil.
	Gatherer prometheus.Gatherer

	// HistoryLimit caps undo depth per diagram. Zero keeps all.
	HistoryLimit int
}

// Server holds the HTTP app and the per-diagram command sessions.
type Server struct {
	cfg      Config
	log      *zap.Logger
	rules    rule.Manager
	sessions *sessions
	app      *fiber.App
}

// New builds a Server and registers its routes.
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rules := cfg.Rules
	if rules != nil && cfg.Metrics != nil {
		rules = cfg.Metrics.InstrumentManager(rules)
	}
	s := &Server{
		cfg:   cfg,
		log:   log,
		rules: rules,
		app:   fiber.New(),
	}
	s.sessions = newSessions(s.openSession)
	s.routes()
	return s
}

// App returns the fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until the app is shut down.
func (s *Server) Listen(addr string) error {
	s.log.Info("listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops the app.
func (s *Server) Shutdown() error { return s.app.Shutdown() }

func (s *Server) routes() {
	app := s.app

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", s.createSchema)
	app.Delete("/schema", s.dropSchema)

	// ── Diagrams ──────────────────────────────────────────────────────
	app.Post("/diagrams", s.createDiagram)
	app.Get("/diagrams/:id", s.getDiagram)
	app.Delete("/diagrams/:id", s.deleteDiagram)

	// ── Commands ──────────────────────────────────────────────────────
	app.Post("/diagrams/:id/edges/:edge/source", s.setSource)
	app.Post("/diagrams/:id/edges/:edge/target", s.setTarget)
	app.Post("/diagrams/:id/undo", s.undo)

	if s.cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))
	}
}
