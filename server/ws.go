package server

import (
	"context"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/helmsman-ai/helmsman/engine"
	"github.com/helmsman-ai/helmsman/guardrails"
)

type wsChatMessage struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	TenantID  string `json:"tenant_id"`
}

// handleChatSocket runs one orchestration per inbound message, emits one
// event per executed step and then the final response. The session id
// sticks for the life of the connection once assigned.
func (s *Server) handleChatSocket(conn *websocket.Conn) {
	defer conn.Close()
	sessionID := uuid.NewString()

	for {
		var msg wsChatMessage
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("[SERVER] websocket read ended: %v", err)
			return
		}
		if msg.Message == "" {
			conn.WriteJSON(map[string]any{"type": "error", "error": "message is required"})
			continue
		}
		if msg.SessionID != "" {
			sessionID = msg.SessionID
		}
		tenantID := msg.TenantID
		if tenantID == "" {
			tenantID = "default"
		}

		if s.deps.RateLimiter != nil && !s.deps.RateLimiter.Allow(tenantID) {
			conn.WriteJSON(map[string]any{"type": "error", "error": "rate limit exceeded"})
			continue
		}

		filtered := s.deps.Guards.ProcessInput(msg.Message, tenantID)
		if filtered.Result == guardrails.Blocked {
			conn.WriteJSON(map[string]any{
				"type":       "error",
				"error":      "message blocked by content filter",
				"violations": filtered.Violations,
			})
			continue
		}

		result := s.runOrchestration(context.Background(), engine.Input{
			SessionID: sessionID,
			TenantID:  tenantID,
			Message:   filtered.Content,
		})

		if s.deps.Retriever != nil && result.Status == "success" {
			s.deps.Retriever.AddConversationTurn(sessionID, filtered.Content, result.Response)
		}

		for _, step := range result.Steps {
			if err := conn.WriteJSON(map[string]any{"type": "step", "step": step}); err != nil {
				log.Printf("[SERVER] websocket write failed: %v", err)
				return
			}
		}
		if err := conn.WriteJSON(map[string]any{"type": "response", "result": result}); err != nil {
			log.Printf("[SERVER] websocket write failed: %v", err)
			return
		}
	}
}
