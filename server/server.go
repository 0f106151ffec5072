// Package server exposes the agent over HTTP and WebSocket using Fiber.
package server

import (
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/helmsman-ai/helmsman/engine"
	"github.com/helmsman-ai/helmsman/guardrails"
	"github.com/helmsman-ai/helmsman/memory"
	"github.com/helmsman-ai/helmsman/rag"
	"github.com/helmsman-ai/helmsman/tools"
)

// Deps are the wired components the server serves.
type Deps struct {
	Orchestrator *engine.Orchestrator
	Retriever    *rag.RAG
	Registry     *tools.Registry
	Guards       *guardrails.Guardrails
	RateLimiter  *guardrails.RateLimiter
	Memory       *memory.Hybrid
}

// Server owns the Fiber app and its handlers.
type Server struct {
	app  *fiber.App
	deps Deps
}

// New builds the app with middleware, metrics, and all routes registered.
func New(deps Deps) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Helmsman v1.0",
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		BodyLimit:    10 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	prometheus := fiberprometheus.New("helmsman")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	s := &Server{app: app, deps: deps}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Post("/chat", s.handleChat)
	s.app.Post("/documents", s.handleIngestDocument)
	s.app.Get("/documents", s.handleListDocuments)
	s.app.Get("/documents/:id", s.handleGetDocument)
	s.app.Post("/documents/search", s.handleSearchDocuments)
	s.app.Get("/tenants/:id/config", s.handleGetTenantConfig)
	s.app.Post("/tenants/:id/config", s.handleUpdateTenantConfig)
	s.app.Get("/tools", s.handleListTools)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws/chat", websocket.New(s.handleChatSocket))
}

// App exposes the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving on the given port.
func (s *Server) Listen(port string) error {
	return s.app.Listen(":" + port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error { return s.app.Shutdown() }
