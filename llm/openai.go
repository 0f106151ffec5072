package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAICompatible generates completions against any endpoint speaking the
// OpenAI chat-completions protocol (OpenAI, Groq, Ollama, vLLM).
type OpenAICompatible struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAICompatible creates a client for the endpoint at baseURL. The name
// identifies the provider in responses and logs.
func NewOpenAICompatible(name, baseURL, apiKey, model string) *OpenAICompatible {
	return &OpenAICompatible{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (o *OpenAICompatible) Name() string { return o.name }

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate posts a chat completion. The system prompt travels as the leading
// system-role message. Token usage comes from the response when reported,
// otherwise from a word-count estimate.
func (o *OpenAICompatible) Generate(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	messages := req.Messages
	if req.System != "" {
		messages = append([]Message{{Role: "system", Content: req.System}}, messages...)
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", o.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s API returned %d: %s", o.name, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", o.name, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", o.name)
	}

	content := completion.Choices[0].Message.Content
	tokens := completion.Usage.TotalTokens
	if tokens == 0 {
		tokens = EstimateTokens(content)
	}

	return &Response{
		Content:    content,
		Provider:   o.name,
		Model:      model,
		TokensUsed: tokens,
	}, nil
}
