package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/helmsman-ai/helmsman/llm"
)

func TestMulti_NoProvidersReturnsMockResponse(t *testing.T) {
	m := llm.NewMulti()

	resp, err := m.Generate(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("keyless chain should not error: %v", err)
	}
	if resp.Provider != "mock" || resp.TokensUsed != 10 {
		t.Fatalf("unexpected keyless response: %+v", resp)
	}
}

func TestMulti_FallsBackOnFailure(t *testing.T) {
	broken := llm.NewMock().Fail(errors.New("rate limited"))
	working := llm.NewMock("recovered answer")

	m := llm.NewMulti(broken, working)
	resp, err := m.Generate(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("fallback should succeed: %v", err)
	}
	if resp.Content != "recovered answer" {
		t.Fatalf("expected fallback content, got %q", resp.Content)
	}
}

func TestMulti_AllFailed(t *testing.T) {
	m := llm.NewMulti(
		llm.NewMock().Fail(errors.New("down")),
		llm.NewMock().Fail(errors.New("also down")),
	)

	_, err := m.Generate(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hello"}},
	})
	if !errors.Is(err, llm.ErrAllProvidersFailed) {
		t.Fatalf("expected ErrAllProvidersFailed, got %v", err)
	}
}

func TestMock_ReplaysScriptedResponses(t *testing.T) {
	m := llm.NewMock("first", "second")
	ctx := context.Background()

	for i, want := range []string{"first", "second", "second"} {
		resp, err := m.Generate(ctx, llm.Request{})
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if resp.Content != want {
			t.Fatalf("call %d: got %q, want %q", i, resp.Content, want)
		}
	}
	if calls := m.Calls(); len(calls) != 3 {
		t.Fatalf("expected 3 recorded calls, got %d", len(calls))
	}
}
