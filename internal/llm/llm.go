// Package llm is the language-model boundary: one prompt-in, text-out
// primitive shared by every call site in the pipeline. It builds no prompts.
package llm

import (
	"context"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	// CallSite names the caller for logs and metrics ("synthesize", "plan", "narrate").
	CallSite    string
	System      string
	Turns       []Message
	Temperature float64
	MaxTokens   int
	Stop        []string
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Completion struct {
	Text         string
	Model        string
	FinishReason string
	Usage        Usage
}

type Completer interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

type CompleterFunc func(ctx context.Context, req Request) (Completion, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (Completion, error) {
	return f(ctx, req)
}

// UnavailableError reports that the provider could not produce a completion:
// transport failure, timeout, non-2xx status or an undecodable envelope.
type UnavailableError struct {
	CallSite   string
	StatusCode int
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("language model unavailable (%s, status=%d): %v", e.CallSite, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("language model unavailable (%s): %v", e.CallSite, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// MalformedOutputError reports a completion that does not have the shape a
// stage expects. Raw keeps the model text for diagnostics.
type MalformedOutputError struct {
	Stage string
	Raw   string
	Err   error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output in %s: %v", e.Stage, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }
