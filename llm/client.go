// Package llm adapts chat-completion providers to the small contract the
// assistant needs: a free-text or tool-calling chat, and a structured chat
// whose reply is decoded into a Go value.
package llm

import (
	"context"
	"encoding/json"
	"errors"

	"tess-backend/models"
)

var (
	ErrNotConfigured = errors.New("llm client not configured")
	ErrEmptyResponse = errors.New("llm returned an empty response")
	ErrBlocked       = errors.New("llm blocked the prompt")
)

// ToolCall is one function-call request issued by the model
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition describes a callable tool to the model
type ToolDefinition struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters"`
}

// ChatRequest is a provider-neutral chat request
type ChatRequest struct {
	System      string
	Messages    []models.Message
	Tools       []ToolDefinition
	Temperature *float32
}

// Response is a provider-neutral chat reply
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// HasToolCalls reports whether the model asked for tool execution
func (r *Response) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// Client is the boundary to the language model
type Client interface {
	// Chat sends the conversation, optionally with tool schemas
	Chat(ctx context.Context, req ChatRequest) (*Response, error)

	// ChatStructured asks for a reply matching shape and decodes it into out
	ChatStructured(ctx context.Context, req ChatRequest, shape *Schema, out any) error
}

// Temperature returns a pointer for ChatRequest.Temperature
func Temperature(t float32) *float32 {
	return &t
}

// continuationPrompt is sent when a conversation ends on an assistant turn
// and the provider requires a trailing user message.
const continuationPrompt = "Formuleer nu uw antwoord aan de gebruiker."
