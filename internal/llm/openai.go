package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/examlens/examlens/internal/observability"
)

const maxErrorBodyBytes = 512

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// Referer and Title are forwarded as HTTP-Referer / X-Title, which
	// OpenRouter uses for app attribution. Empty values are not sent.
	Referer string
	Title   string
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string
	referer string
	title   string
	client  *http.Client
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIClient{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   model,
		referer: strings.TrimSpace(cfg.Referer),
		title:   strings.TrimSpace(cfg.Title),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Completion, error) {
	started := time.Now()
	completion, err := c.complete(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "unavailable"
	}
	observability.ObserveLLMCall(callSiteLabel(req.CallSite), outcome, time.Since(started))
	return completion, err
}

func (c *OpenAIClient) complete(ctx context.Context, req Request) (Completion, error) {
	unavailable := func(status int, err error) error {
		return &UnavailableError{CallSite: req.CallSite, StatusCode: status, Err: err}
	}

	payload := chatCompletionRequest{
		Model:       c.model,
		Messages:    buildMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Completion{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		httpReq.Header.Set("X-Title", c.title)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Completion{}, unavailable(0, fmt.Errorf("request chat completion: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, unavailable(resp.StatusCode, fmt.Errorf("read chat response body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Completion{}, unavailable(resp.StatusCode, fmt.Errorf("chat completion failed body=%s", truncate(string(rawRespBody), maxErrorBodyBytes)))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return Completion{}, unavailable(resp.StatusCode, fmt.Errorf("decode chat completion response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return Completion{}, unavailable(resp.StatusCode, errors.New("empty chat completion choices"))
	}
	model := parsed.Model
	if model == "" {
		model = c.model
	}
	return Completion{
		Text:         parsed.Choices[0].Message.Content,
		Model:        model,
		FinishReason: parsed.Choices[0].FinishReason,
		Usage:        parsed.Usage,
	}, nil
}

func buildMessages(req Request) []Message {
	messages := make([]Message, 0, len(req.Turns)+1)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: req.System})
	}
	return append(messages, req.Turns...)
}

func callSiteLabel(site string) string {
	if site == "" {
		return "unknown"
	}
	return site
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}

// Unconfigured is used when no provider credentials are set. Every call
// fails as unavailable so the service can still start and report readiness.
type Unconfigured struct {
	Reason string
}

func (u Unconfigured) Complete(_ context.Context, req Request) (Completion, error) {
	reason := u.Reason
	if reason == "" {
		reason = "language model is not configured"
	}
	return Completion{}, &UnavailableError{CallSite: req.CallSite, Err: errors.New(reason)}
}
