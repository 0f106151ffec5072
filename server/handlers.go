package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/helmsman-ai/helmsman/engine"
	"github.com/helmsman-ai/helmsman/guardrails"
)

type chatRequest struct {
	Message   string           `json:"message"`
	SessionID string           `json:"session_id"`
	TenantID  string           `json:"tenant_id"`
	History   []engine.Message `json:"conversation_history"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "message is required",
		})
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.TenantID == "" {
		req.TenantID = "default"
	}

	if s.deps.RateLimiter != nil && !s.deps.RateLimiter.Allow(req.TenantID) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "rate limit exceeded",
		})
	}

	filtered := s.deps.Guards.ProcessInput(req.Message, req.TenantID)
	if filtered.Result == guardrails.Blocked {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":      "message blocked by content filter",
			"violations": filtered.Violations,
		})
	}

	result := s.runOrchestration(c.UserContext(), engine.Input{
		SessionID: req.SessionID,
		TenantID:  req.TenantID,
		Message:   filtered.Content,
		History:   req.History,
	})

	if s.deps.Retriever != nil && result.Status == "success" {
		s.deps.Retriever.AddConversationTurn(req.SessionID, filtered.Content, result.Response)
	}
	return c.JSON(result)
}

type ingestRequest struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) handleIngestDocument(c *fiber.Ctx) error {
	var req ingestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Title == "" || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title and content are required",
		})
	}

	docID := s.deps.Retriever.IngestDocument(c.UserContext(), req.Title, req.Content, req.Metadata)
	documentIngestsTotal.Inc()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"document_id": docID,
		"title":       req.Title,
	})
}

func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	docs := s.deps.Retriever.ListDocuments()

	summaries := make([]fiber.Map, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, fiber.Map{
			"id":     doc.ID,
			"title":  doc.Title,
			"chunks": len(doc.Chunks),
		})
	}
	return c.JSON(fiber.Map{
		"documents": summaries,
		"total":     len(summaries),
	})
}

func (s *Server) handleGetDocument(c *fiber.Ctx) error {
	doc, ok := s.deps.Retriever.GetDocument(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "document not found",
		})
	}
	return c.JSON(doc)
}

type documentSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// handleSearchDocuments runs a scored retrieval over the knowledge base and
// pairs it with the document summaries whose title or content match.
func (s *Server) handleSearchDocuments(c *fiber.Ctx) error {
	var req documentSearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query is required",
		})
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	results := s.deps.Retriever.Retrieve(c.UserContext(), req.Query, "", limit)
	passages := make([]fiber.Map, 0, len(results))
	for _, r := range results {
		passages = append(passages, fiber.Map{
			"content":         r.Content,
			"source":          r.Source,
			"relevance_score": r.Score,
			"metadata":        r.Metadata,
		})
	}

	docs := s.deps.Retriever.SearchDocuments(req.Query, limit)
	matches := make([]fiber.Map, 0, len(docs))
	for _, doc := range docs {
		matches = append(matches, fiber.Map{
			"id":     doc.ID,
			"title":  doc.Title,
			"chunks": len(doc.Chunks),
		})
	}

	return c.JSON(fiber.Map{
		"query":     req.Query,
		"results":   passages,
		"documents": matches,
	})
}

// Guardrails configuration is process-wide; the tenant id in the path is
// echoed back so clients can treat the surface as per-tenant.
func (s *Server) handleGetTenantConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"tenant_id": c.Params("id"),
		"config":    s.deps.Guards.ActiveConfig(),
	})
}

func (s *Server) handleUpdateTenantConfig(c *fiber.Ctx) error {
	var cfg guardrails.Config
	if err := c.BodyParser(&cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	s.deps.Guards.UpdateConfig(cfg)
	return c.JSON(fiber.Map{
		"status":    "updated",
		"tenant_id": c.Params("id"),
	})
}

func (s *Server) handleListTools(c *fiber.Ctx) error {
	tenantID := c.Query("tenant_id", "default")
	infos := s.deps.Registry.Available(tenantID)
	return c.JSON(fiber.Map{
		"tools": infos,
		"total": len(infos),
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	health := fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if s.deps.Memory != nil {
		stats := s.deps.Memory.Stats()
		health["memory"] = fiber.Map{
			"short_term_items": stats.ShortTermItems,
			"long_term_items":  stats.LongTermItems,
		}
	}
	if s.deps.Guards != nil {
		health["guardrails"] = s.deps.Guards.Stats()
	}
	return c.JSON(health)
}

func (s *Server) runOrchestration(ctx context.Context, input engine.Input) *engine.Result {
	started := time.Now()
	result := s.deps.Orchestrator.Run(ctx, input)
	orchestrationDuration.Observe(time.Since(started).Seconds())
	orchestrationsTotal.WithLabelValues(result.Status).Inc()
	for _, step := range result.Steps {
		stepsTotal.WithLabelValues(string(step.Phase), string(step.Status)).Inc()
	}
	tokensUsedTotal.Add(float64(result.TokensUsed))
	return result
}
