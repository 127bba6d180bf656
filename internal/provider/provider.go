// Package provider talks to OpenAI-compatible chat-completion endpoints.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/klubi/claw/internal/tools"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of a conversation.
type Message struct {
	Role    string
	Content string
	// ToolCalls is set on assistant messages that request tools.
	ToolCalls []ToolCall
	// ToolCallID correlates a tool message with the call it answers.
	ToolCallID string
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON object
}

// Request is one completion request.
type Request struct {
	Model       string
	Messages    []Message
	Tools       []tools.Definition
	MaxTokens   int
	Temperature float64
}

// Provider produces the next assistant message for a conversation.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Message, error)
}

// Config is the immutable connection configuration of a provider client.
type Config struct {
	// Provider selects the endpoint from the built-in table.
	Provider string
	APIKey   string
	// BaseURL overrides the endpoint table when set.
	BaseURL string
	// Timeout bounds a single request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout bounds a single completion request.
const DefaultTimeout = 120 * time.Second

// ErrMalformedResponse is returned when the endpoint answers without a
// usable choice.
var ErrMalformedResponse = errors.New("malformed response")

// Error wraps any failure of a completion request.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
