// Package engine runs the agent's orchestration loop. Each run walks up to
// five phases (plan, retrieve, act, verify, respond) under a shared step
// budget; phases past the budget are silently dropped and the run responds
// with whatever it has.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/helmsman-ai/helmsman/llm"
	"github.com/helmsman-ai/helmsman/rag"
	"github.com/helmsman-ai/helmsman/tools"
)

// DefaultMaxSteps bounds how many phases a single run may execute.
const DefaultMaxSteps = 10

// ErrStepTimeout marks a phase that exceeded its per-call deadline.
var ErrStepTimeout = errors.New("step timed out")

// Orchestrator drives runs against an LLM, a tool registry, and a
// retrieval system. The registry and retriever are optional; phases that
// need them degrade when they are absent.
type Orchestrator struct {
	llm         llm.Client
	registry    *tools.Registry
	retriever   *rag.RAG
	maxSteps    int
	maxTokens   int
	temperature float64
	stepTimeout time.Duration
	runTimeout  time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTools attaches a tool registry used by the act phase.
func WithTools(registry *tools.Registry) Option {
	return func(o *Orchestrator) { o.registry = registry }
}

// WithRetriever attaches the retrieval system used by the retrieve phase.
func WithRetriever(retriever *rag.RAG) Option {
	return func(o *Orchestrator) { o.retriever = retriever }
}

// WithMaxSteps overrides the per-run step budget.
func WithMaxSteps(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

// WithGeneration sets the token cap and sampling temperature passed to the
// LLM on every phase call.
func WithGeneration(maxTokens int, temperature float64) Option {
	return func(o *Orchestrator) {
		o.maxTokens = maxTokens
		o.temperature = temperature
	}
}

// WithStepTimeout bounds each LLM or tool call within a run.
func WithStepTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.stepTimeout = d }
}

// WithRunTimeout bounds the whole run.
func WithRunTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.runTimeout = d }
}

// New creates an orchestrator over the given LLM client.
func New(client llm.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		llm:      client,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the orchestration loop for one user message.
func (o *Orchestrator) Run(ctx context.Context, input Input) *Result {
	if o.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.runTimeout)
		defer cancel()
	}

	log.Printf("[ENGINE] starting orchestration for session %s", input.SessionID)

	state := &runState{
		input:    input,
		maxSteps: o.maxSteps,
	}

	if err := o.runPhases(ctx, state); err != nil {
		log.Printf("[ENGINE] orchestration failed for session %s: %v", input.SessionID, err)
		return &Result{
			Response:   fmt.Sprintf("I encountered an error while processing your request: %s", err),
			Steps:      state.steps,
			TokensUsed: 0,
			Status:     "error",
			Error:      err.Error(),
			SessionID:  input.SessionID,
		}
	}
	return o.buildResult(state)
}

func (o *Orchestrator) runPhases(ctx context.Context, state *runState) error {
	if err := o.executeStep(ctx, state, PhasePlan, "Analyze user request and create execution plan", o.planStep); err != nil {
		return err
	}

	if state.plan != nil && state.plan.NeedsRetrieval {
		if err := o.executeStep(ctx, state, PhaseRetrieve, "Retrieve relevant information", o.retrieveStep); err != nil {
			return err
		}
	}

	if err := o.executeStep(ctx, state, PhaseAct, "Execute planned actions", o.actStep); err != nil {
		return err
	}
	if err := o.executeStep(ctx, state, PhaseVerify, "Verify results and check for completeness", o.verifyStep); err != nil {
		return err
	}
	return o.executeStep(ctx, state, PhaseRespond, "Generate final response", o.respondStep)
}

type phaseFunc func(ctx context.Context, state *runState, step *Step) error

// executeStep runs one phase under the step budget. A run at its budget
// drops the phase without recording anything.
func (o *Orchestrator) executeStep(ctx context.Context, state *runState, phase Phase, description string, fn phaseFunc) error {
	if state.currentStep >= state.maxSteps {
		log.Printf("[ENGINE] max steps (%d) reached, halting orchestration", state.maxSteps)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	state.currentStep++
	step := &Step{
		ID:          state.currentStep,
		Phase:       phase,
		Description: description,
		Status:      StatusRunning,
	}
	state.steps = append(state.steps, step)

	started := time.Now()
	err := fn(ctx, state, step)
	step.Elapsed = time.Since(started).Seconds()

	if err != nil {
		step.Status = StatusFailed
		step.Error = err.Error()
		log.Printf("[ENGINE] step %d (%s) failed: %v", step.ID, phase, err)
		return err
	}

	step.Status = StatusCompleted
	log.Printf("[ENGINE] step %d (%s) completed", step.ID, phase)
	return nil
}

// generate calls the LLM under the per-step deadline. A deadline hit comes
// back wrapped in ErrStepTimeout.
func (o *Orchestrator) generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if req.MaxTokens == 0 {
		req.MaxTokens = o.maxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = o.temperature
	}
	if o.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.stepTimeout)
		defer cancel()
	}

	resp, err := o.llm.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrStepTimeout, err)
		}
		return nil, err
	}
	return resp, nil
}

func (o *Orchestrator) planStep(ctx context.Context, state *runState, step *Step) error {
	var toolNames []string
	if o.registry != nil {
		for _, info := range o.registry.Available(state.input.TenantID) {
			toolNames = append(toolNames, info.Name)
		}
	}

	prompt := fmt.Sprintf(`Analyze the user's request and create a plan to address it.

User message: %s
Available tools: %s

Determine:
1. What information is needed?
2. What actions should be taken?
3. What tools are required?

Respond with a JSON object containing:
- "needs_retrieval": boolean
- "required_tools": list of tool names
- "plan_summary": string description of the plan`,
		state.input.Message, strings.Join(toolNames, ", "))

	resp, err := o.generate(ctx, llm.Request{
		Messages: []llm.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return err
	}

	plan := parsePlan(resp.Content)
	state.plan = &plan
	step.Output = map[string]any{
		"needs_retrieval": plan.NeedsRetrieval,
		"required_tools":  plan.RequiredTools,
		"plan_summary":    plan.PlanSummary,
	}
	return nil
}

// retrieveStep never fails the run: retrieval errors land in the step
// output and the loop moves on.
func (o *Orchestrator) retrieveStep(ctx context.Context, state *runState, step *Step) error {
	if o.retriever == nil {
		step.Output = map[string]any{
			"retrieved_info": "No retrieval system available",
			"sources":        []string{},
		}
		return nil
	}

	results, sessionContext := o.retriever.RetrieveWithContext(ctx, state.input.Message, state.input.SessionID, 3)

	retrieved := make([]map[string]any, 0, len(results))
	sourceSet := make(map[string]bool)
	for _, res := range results {
		retrieved = append(retrieved, map[string]any{
			"content":         res.Content,
			"source":          res.Source,
			"relevance_score": res.Score,
			"metadata":        res.Metadata,
		})
		sourceSet[res.Source] = true
	}
	sources := make([]string, 0, len(sourceSet))
	for s := range sourceSet {
		sources = append(sources, s)
	}

	step.Output = map[string]any{
		"retrieved_info":        retrieved,
		"sources":               sources,
		"session_context_items": len(sessionContext),
	}

	// Feed the most recent completed exchange back into session memory.
	var lastUser, lastAssistant string
	for i := len(state.input.History) - 1; i >= 0; i-- {
		msg := state.input.History[i]
		if msg.Role == "user" && lastUser == "" {
			lastUser = msg.Content
		} else if msg.Role == "assistant" && lastAssistant == "" {
			lastAssistant = msg.Content
		}
		if lastUser != "" && lastAssistant != "" {
			break
		}
	}
	if lastUser != "" && lastAssistant != "" {
		o.retriever.AddConversationTurn(state.input.SessionID, lastUser, lastAssistant)
	}
	return nil
}

func (o *Orchestrator) actStep(ctx context.Context, state *runState, step *Step) error {
	if state.plan == nil {
		step.Output = map[string]any{"action_taken": "No plan available, proceeding with direct response"}
		return nil
	}

	var actionsTaken []string
	output := map[string]any{}

	if o.registry == nil {
		for _, tool := range state.plan.RequiredTools {
			actionsTaken = append(actionsTaken, fmt.Sprintf("Tool %s not available (no tools registry)", tool))
		}
	} else {
		for _, toolName := range state.plan.RequiredTools {
			if err := ctx.Err(); err != nil {
				return err
			}

			params := map[string]any{"query": state.input.Message}
			if toolName == "web_search" {
				params["max_results"] = 3
			}

			result := o.executeTool(ctx, toolName, params, state.input.TenantID)
			if result["success"] == true {
				switch toolName {
				case "web_search":
					actionsTaken = append(actionsTaken,
						fmt.Sprintf("Executed %s: found %v results", toolName, result["total_results"]))
					output["search_results"] = result["results"]
				case "document_search":
					actionsTaken = append(actionsTaken,
						fmt.Sprintf("Executed %s: found %v results", toolName, result["total_results"]))
					output["document_results"] = result["results"]
				default:
					actionsTaken = append(actionsTaken, fmt.Sprintf("Executed %s successfully", toolName))
				}
			} else {
				errMsg := "Unknown error"
				if e, ok := result["error"].(string); ok && e != "" {
					errMsg = e
				}
				actionsTaken = append(actionsTaken, fmt.Sprintf("Failed to execute %s: %s", toolName, errMsg))
			}
		}
	}

	output["actions_taken"] = actionsTaken
	output["tools_used"] = state.plan.RequiredTools
	step.Output = output
	return nil
}

// executeTool bounds one tool call with the step deadline.
func (o *Orchestrator) executeTool(ctx context.Context, name string, params map[string]any, tenantID string) map[string]any {
	if o.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.stepTimeout)
		defer cancel()
	}
	return o.registry.Execute(ctx, name, params, tenantID)
}

func (o *Orchestrator) verifyStep(ctx context.Context, state *runState, step *Step) error {
	var descriptions []string
	for _, s := range state.steps[:len(state.steps)-1] {
		descriptions = append(descriptions, s.Description)
	}

	prompt := fmt.Sprintf(`Review the execution steps and determine if the user's request has been adequately addressed.

User request: %s
Steps taken: %s

Respond with a JSON object:
- "is_complete": boolean
- "confidence": number (0-1)
- "missing_info": list of any missing information`,
		state.input.Message, strings.Join(descriptions, "; "))

	resp, err := o.generate(ctx, llm.Request{
		Messages: []llm.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return err
	}

	verification := parseVerify(resp.Content)
	step.Output = map[string]any{
		"is_complete":  verification.IsComplete,
		"confidence":   verification.Confidence,
		"missing_info": verification.MissingInfo,
	}
	return nil
}

func (o *Orchestrator) respondStep(ctx context.Context, state *runState, step *Step) error {
	var summary []string
	for _, s := range state.steps[:len(state.steps)-1] {
		if s.Output != nil {
			summary = append(summary, fmt.Sprintf("%s: %v", s.Phase, s.Output))
		}
	}

	prompt := fmt.Sprintf(`Generate a helpful response to the user based on the execution context.

User message: %s
Execution summary: %s

Provide a clear, helpful response that addresses the user's request.`,
		state.input.Message, strings.Join(summary, "\n"))

	messages := make([]llm.Message, 0, len(state.input.History)+1)
	for _, msg := range state.input.History {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: prompt})

	resp, err := o.generate(ctx, llm.Request{Messages: messages})
	if err != nil {
		return err
	}

	state.finalResponse = resp.Content
	step.Output = map[string]any{
		"final_response": resp.Content,
		"tokens_used":    resp.TokensUsed,
	}
	return nil
}

func (o *Orchestrator) buildResult(state *runState) *Result {
	totalTokens := 0
	for _, step := range state.steps {
		if step.Output == nil {
			continue
		}
		switch v := step.Output["tokens_used"].(type) {
		case int:
			totalTokens += v
		case float64:
			totalTokens += int(v)
		}
	}

	response := state.finalResponse
	if response == "" {
		response = "I apologize, but I couldn't generate a response."
	}

	return &Result{
		Response:   response,
		Steps:      state.steps,
		TokensUsed: totalTokens,
		Status:     "success",
		SessionID:  state.input.SessionID,
	}
}
