// Package guardrails filters content flowing in and out of the agent:
// PII redaction, keyword-based toxicity blocking, tenant tool allowlists,
// and per-tenant rate limiting.
package guardrails

import (
	"log"
	"strings"
	"sync"
)

// FilterResult classifies what happened to a piece of content.
type FilterResult string

const (
	Allowed  FilterResult = "allowed"
	Blocked  FilterResult = "blocked"
	Modified FilterResult = "modified"
)

// Result carries the filtered content and what was done to it. Content is
// empty when blocked.
type Result struct {
	Result     FilterResult   `json:"result"`
	Content    string         `json:"content"`
	Violations []string       `json:"violations"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata"`
}

// Config controls which filters run and how strict they are.
type Config struct {
	PIIRedaction      bool     `json:"pii_redaction"`
	ToxicityFilter    bool     `json:"toxicity_filter"`
	ToxicityThreshold float64  `json:"toxicity_threshold"`
	BlockedKeywords   []string `json:"blocked_keywords"`
	AllowedTools      []string `json:"allowed_tools"`
}

// DefaultConfig enables PII redaction and toxicity filtering with the
// default threshold and no keyword or tool restrictions.
func DefaultConfig() Config {
	return Config{
		PIIRedaction:      true,
		ToxicityFilter:    true,
		ToxicityThreshold: DefaultToxicityThreshold,
	}
}

// Guardrails combines the filters behind input and output processing.
type Guardrails struct {
	mu  sync.RWMutex
	cfg Config
}

// New creates a guardrails pipeline with the given config.
func New(cfg Config) *Guardrails {
	if cfg.ToxicityThreshold <= 0 {
		cfg.ToxicityThreshold = DefaultToxicityThreshold
	}
	return &Guardrails{cfg: cfg}
}

// ProcessInput runs the full filter chain on user-supplied text: PII
// redaction, then toxicity, then blocked keywords. Blocking empties the
// returned content.
func (g *Guardrails) ProcessInput(text, tenantID string) Result {
	g.mu.RLock()
	cfg := g.cfg
	g.mu.RUnlock()

	if tenantID == "" {
		tenantID = "default"
	}

	processed := text
	result := Allowed
	confidence := 1.0
	var violations []string

	if cfg.PIIRedaction {
		redacted, piiViolations := RedactPII(processed)
		if len(piiViolations) > 0 {
			violations = append(violations, piiViolations...)
			processed = redacted
			result = Modified
			log.Printf("[GUARDRAILS] redacted %d PII spans for tenant %s", len(piiViolations), tenantID)
		}
	}

	if cfg.ToxicityFilter {
		toxic, score, toxicViolations := CheckToxicity(processed, cfg.ToxicityThreshold)
		if toxic {
			violations = append(violations, toxicViolations...)
			result = Blocked
			confidence = score
			log.Printf("[GUARDRAILS] blocked toxic content for tenant %s: score=%.2f", tenantID, score)
		}
	}

	lower := strings.ToLower(processed)
	for _, kw := range cfg.BlockedKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			violations = append(violations, "blocked_keyword: "+kw)
			result = Blocked
			log.Printf("[GUARDRAILS] blocked keyword %q for tenant %s", kw, tenantID)
		}
	}

	content := processed
	if result == Blocked {
		content = ""
	}
	return Result{
		Result:     result,
		Content:    content,
		Violations: violations,
		Confidence: confidence,
		Metadata: map[string]any{
			"original_length":  len(text),
			"processed_length": len(processed),
			"tenant_id":        tenantID,
		},
	}
}

// ProcessOutput runs the lighter output chain: PII redaction only. Model
// output is never blocked, only modified.
func (g *Guardrails) ProcessOutput(text, tenantID string) Result {
	g.mu.RLock()
	cfg := g.cfg
	g.mu.RUnlock()

	if tenantID == "" {
		tenantID = "default"
	}

	processed := text
	result := Allowed
	var violations []string

	if cfg.PIIRedaction {
		redacted, piiViolations := RedactPII(processed)
		if len(piiViolations) > 0 {
			violations = append(violations, piiViolations...)
			processed = redacted
			result = Modified
			log.Printf("[GUARDRAILS] redacted %d PII spans in output for tenant %s", len(piiViolations), tenantID)
		}
	}

	return Result{
		Result:     result,
		Content:    processed,
		Violations: violations,
		Confidence: 1.0,
		Metadata: map[string]any{
			"original_length":  len(text),
			"processed_length": len(processed),
			"tenant_id":        tenantID,
		},
	}
}

// CheckToolAccess reports whether the tenant may invoke the tool. An empty
// allowlist permits every tool.
func (g *Guardrails) CheckToolAccess(toolName, tenantID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.cfg.AllowedTools) == 0 {
		return true
	}
	for _, allowed := range g.cfg.AllowedTools {
		if allowed == toolName {
			return true
		}
	}
	return false
}

// ActiveConfig returns a copy of the current configuration.
func (g *Guardrails) ActiveConfig() Config {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cfg
}

// UpdateConfig replaces the active configuration.
func (g *Guardrails) UpdateConfig(cfg Config) {
	if cfg.ToxicityThreshold <= 0 {
		cfg.ToxicityThreshold = DefaultToxicityThreshold
	}
	g.mu.Lock()
	g.cfg = cfg
	g.mu.Unlock()
	log.Printf("[GUARDRAILS] configuration updated")
}

// Stats reports which filters are active.
func (g *Guardrails) Stats() map[string]any {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return map[string]any{
		"pii_redaction":      g.cfg.PIIRedaction,
		"toxicity_filter":    g.cfg.ToxicityFilter,
		"toxicity_threshold": g.cfg.ToxicityThreshold,
		"blocked_keywords":   len(g.cfg.BlockedKeywords),
		"allowed_tools":      len(g.cfg.AllowedTools),
	}
}
