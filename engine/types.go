package engine

// Phase identifies one stage of the orchestration loop.
type Phase string

const (
	PhasePlan     Phase = "plan"
	PhaseRetrieve Phase = "retrieve"
	PhaseAct      Phase = "act"
	PhaseVerify   Phase = "verify"
	PhaseRespond  Phase = "respond"
)

// StepStatus tracks a step through its lifecycle.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
	StatusSkipped   StepStatus = "skipped"
)

// Step records one executed phase.
type Step struct {
	ID          int            `json:"step_id"`
	Phase       Phase          `json:"action_type"`
	Description string         `json:"description"`
	Status      StepStatus     `json:"status"`
	Output      map[string]any `json:"output_data,omitempty"`
	Error       string         `json:"error_message,omitempty"`
	Elapsed     float64        `json:"execution_time,omitempty"`
}

// Input starts one orchestration run.
type Input struct {
	SessionID string
	TenantID  string
	Message   string
	History   []Message
}

// Message is one prior conversation turn supplied with the input.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is the outcome of a run. Status is "success" or "error"; Error is
// set only for the latter.
type Result struct {
	Response   string  `json:"response"`
	Steps      []*Step `json:"steps"`
	TokensUsed int     `json:"tokens_used"`
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
	SessionID  string  `json:"session_id"`
}

// runState carries the evolving state of a single run.
type runState struct {
	input         Input
	maxSteps      int
	currentStep   int
	steps         []*Step
	plan          *PlanDecision
	finalResponse string
}
