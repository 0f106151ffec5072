package engine

import "encoding/json"

// PlanDecision is the structured outcome of the plan phase.
type PlanDecision struct {
	NeedsRetrieval bool     `json:"needs_retrieval"`
	RequiredTools  []string `json:"required_tools"`
	PlanSummary    string   `json:"plan_summary"`
}

// parsePlan decodes the model's planning output. Malformed JSON falls back
// to a conservative plan: answer directly, no retrieval, no tools.
func parsePlan(content string) PlanDecision {
	var plan PlanDecision
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		return PlanDecision{
			NeedsRetrieval: false,
			RequiredTools:  []string{},
			PlanSummary:    "Generate a helpful response to the user's question",
		}
	}
	if plan.RequiredTools == nil {
		plan.RequiredTools = []string{}
	}
	return plan
}

// VerifyResult is the structured outcome of the verify phase.
type VerifyResult struct {
	IsComplete  bool     `json:"is_complete"`
	Confidence  float64  `json:"confidence"`
	MissingInfo []string `json:"missing_info"`
}

// parseVerify decodes the model's verification output. Malformed JSON falls
// back to complete with confidence 0.8.
func parseVerify(content string) VerifyResult {
	var v VerifyResult
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return VerifyResult{
			IsComplete:  true,
			Confidence:  0.8,
			MissingInfo: []string{},
		}
	}
	if v.MissingInfo == nil {
		v.MissingInfo = []string{}
	}
	return v
}
