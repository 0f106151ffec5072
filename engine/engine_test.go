package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/helmsman-ai/helmsman/engine"
	"github.com/helmsman-ai/helmsman/guardrails"
	"github.com/helmsman-ai/helmsman/llm"
	"github.com/helmsman-ai/helmsman/memory"
	"github.com/helmsman-ai/helmsman/rag"
	"github.com/helmsman-ai/helmsman/tools"
	"github.com/helmsman-ai/helmsman/tools/websearch"
)

// slowClient blocks until the context is done.
type slowClient struct{}

func (slowClient) Name() string { return "slow" }

func (slowClient) Generate(ctx context.Context, _ llm.Request) (*llm.Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Minute):
		return &llm.Response{Content: "too late"}, nil
	}
}

func newTestStack(t *testing.T) (*tools.Registry, *rag.RAG) {
	t.Helper()
	mem := memory.NewHybrid(memory.NewShortTerm(0, 0), memory.NewLongTerm(context.Background(), nil))
	retriever := rag.New(mem)
	g := guardrails.New(guardrails.DefaultConfig())
	registry := tools.NewRegistry(g)
	registry.RegisterWebSearch(websearch.NewMock())
	registry.RegisterDocumentSearch(retriever)
	return registry, retriever
}

func TestRun_FullLoopWithRetrievalAndTools(t *testing.T) {
	registry, retriever := newTestStack(t)

	client := llm.NewMock(
		`{"needs_retrieval": true, "required_tools": ["web_search"], "plan_summary": "search then answer"}`,
		`{"is_complete": true, "confidence": 0.95, "missing_info": []}`,
		"Here is what I found about AI agents.",
	)

	o := engine.New(client, engine.WithTools(registry), engine.WithRetriever(retriever))
	result := o.Run(context.Background(), engine.Input{
		SessionID: "s1",
		TenantID:  "t1",
		Message:   "tell me about an ai agent",
	})

	if result.Status != "success" {
		t.Fatalf("expected success, got %s (%s)", result.Status, result.Error)
	}
	if result.Response != "Here is what I found about AI agents." {
		t.Fatalf("unexpected response: %q", result.Response)
	}

	wantPhases := []engine.Phase{
		engine.PhasePlan, engine.PhaseRetrieve, engine.PhaseAct,
		engine.PhaseVerify, engine.PhaseRespond,
	}
	if len(result.Steps) != len(wantPhases) {
		t.Fatalf("expected %d steps, got %d", len(wantPhases), len(result.Steps))
	}
	for i, step := range result.Steps {
		if step.Phase != wantPhases[i] {
			t.Fatalf("step %d: expected phase %s, got %s", i, wantPhases[i], step.Phase)
		}
		if step.Status != engine.StatusCompleted {
			t.Fatalf("step %d (%s): expected completed, got %s", i, step.Phase, step.Status)
		}
		if step.ID != i+1 {
			t.Fatalf("step %d: expected id %d, got %d", i, i+1, step.ID)
		}
	}

	actOutput := result.Steps[2].Output
	if actOutput["search_results"] == nil {
		t.Fatal("act step did not capture search results")
	}

	if result.TokensUsed == 0 {
		t.Fatal("expected token usage from respond step")
	}
}

func TestRun_MalformedPlanSkipsRetrievalAndTools(t *testing.T) {
	registry, retriever := newTestStack(t)

	client := llm.NewMock(
		"sorry, I cannot produce JSON today",
		`{"is_complete": true, "confidence": 0.9, "missing_info": []}`,
		"Direct answer.",
	)

	o := engine.New(client, engine.WithTools(registry), engine.WithRetriever(retriever))
	result := o.Run(context.Background(), engine.Input{SessionID: "s1", Message: "hello"})

	if result.Status != "success" {
		t.Fatalf("expected success, got %s (%s)", result.Status, result.Error)
	}
	if len(result.Steps) != 4 {
		t.Fatalf("expected plan/act/verify/respond, got %d steps", len(result.Steps))
	}
	for _, step := range result.Steps {
		if step.Phase == engine.PhaseRetrieve {
			t.Fatal("fallback plan must not trigger retrieval")
		}
	}

	planOutput := result.Steps[0].Output
	if planOutput["needs_retrieval"] != false {
		t.Fatalf("fallback plan should not need retrieval: %v", planOutput)
	}
	if reqTools, ok := planOutput["required_tools"].([]string); !ok || len(reqTools) != 0 {
		t.Fatalf("fallback plan should require no tools: %v", planOutput["required_tools"])
	}
}

func TestRun_StepBudgetTruncatesLoop(t *testing.T) {
	client := llm.NewMock(
		`{"needs_retrieval": true, "required_tools": [], "plan_summary": "retrieve then answer"}`,
		`{"is_complete": true, "confidence": 0.9, "missing_info": []}`,
	)
	_, retriever := newTestStack(t)

	o := engine.New(client, engine.WithRetriever(retriever), engine.WithMaxSteps(3))
	result := o.Run(context.Background(), engine.Input{SessionID: "s1", Message: "hello"})

	if result.Status != "success" {
		t.Fatalf("truncated run still succeeds, got %s (%s)", result.Status, result.Error)
	}
	if len(result.Steps) != 3 {
		t.Fatalf("expected exactly 3 steps under budget 3, got %d", len(result.Steps))
	}
	// Respond never ran, so the canned apology stands in.
	if !strings.Contains(result.Response, "couldn't generate a response") {
		t.Fatalf("expected apology fallback, got %q", result.Response)
	}
}

func TestRun_LLMFailureProducesErrorResult(t *testing.T) {
	client := llm.NewMock().Fail(errors.New("provider exploded"))

	o := engine.New(client)
	result := o.Run(context.Background(), engine.Input{SessionID: "s1", Message: "hello"})

	if result.Status != "error" {
		t.Fatalf("expected error status, got %s", result.Status)
	}
	if result.TokensUsed != 0 {
		t.Fatalf("error result must report zero tokens, got %d", result.TokensUsed)
	}
	if !strings.Contains(result.Response, "provider exploded") {
		t.Fatalf("error response should surface the cause: %q", result.Response)
	}
	if len(result.Steps) != 1 || result.Steps[0].Status != engine.StatusFailed {
		t.Fatalf("expected a single failed plan step, got %+v", result.Steps)
	}
}

func TestRun_StepTimeoutFailsStep(t *testing.T) {
	o := engine.New(slowClient{}, engine.WithStepTimeout(20*time.Millisecond))
	result := o.Run(context.Background(), engine.Input{SessionID: "s1", Message: "hello"})

	if result.Status != "error" {
		t.Fatalf("expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "step timed out") {
		t.Fatalf("expected timeout error kind, got %q", result.Error)
	}
	if result.Steps[0].Status != engine.StatusFailed {
		t.Fatalf("expected failed step, got %s", result.Steps[0].Status)
	}
}

func TestRun_SessionIDCarriesThrough(t *testing.T) {
	client := llm.NewMock(
		`{"needs_retrieval": false, "required_tools": [], "plan_summary": "answer"}`,
		`{"is_complete": true, "confidence": 1, "missing_info": []}`,
		"done",
	)
	o := engine.New(client)
	result := o.Run(context.Background(), engine.Input{SessionID: "session-42", Message: "hi"})

	if result.SessionID != "session-42" {
		t.Fatalf("session id lost: %q", result.SessionID)
	}
}
