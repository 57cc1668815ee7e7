// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"tess-backend/llm"
)

var ErrNoReply = errors.New("llmtest: no scripted reply left")

// Reply is one scripted answer to Chat
type Reply struct {
	Response *llm.Response
	Err      error
}

// StructuredReply is one scripted answer to ChatStructured
type StructuredReply struct {
	JSON string
	Err  error
}

// Client replays scripted replies in order and records every request.
// ChatFunc, when set, takes precedence over the Chat script.
type Client struct {
	mu              sync.Mutex
	chat            []Reply
	structured      []StructuredReply
	ChatFunc        func(ctx context.Context, req llm.ChatRequest) (*llm.Response, error)
	Requests        []llm.ChatRequest
	StructuredCalls []llm.ChatRequest
}

// New returns a client that answers Chat with the given replies
func New(replies ...Reply) *Client {
	return &Client{chat: replies}
}

// OnStructured queues replies for ChatStructured
func (c *Client) OnStructured(replies ...StructuredReply) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.structured = append(c.structured, replies...)
	return c
}

// Chat implements llm.Client
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.Response, error) {
	c.mu.Lock()
	c.Requests = append(c.Requests, req)
	fn := c.ChatFunc
	if fn != nil {
		c.mu.Unlock()
		return fn(ctx, req)
	}
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(c.chat) == 0 {
		return nil, ErrNoReply
	}
	next := c.chat[0]
	c.chat = c.chat[1:]
	return next.Response, next.Err
}

// ChatStructured implements llm.Client
func (c *Client) ChatStructured(ctx context.Context, req llm.ChatRequest, shape *llm.Schema, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StructuredCalls = append(c.StructuredCalls, req)

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(c.structured) == 0 {
		return ErrNoReply
	}
	next := c.structured[0]
	c.structured = c.structured[1:]
	if next.Err != nil {
		return next.Err
	}
	return json.Unmarshal([]byte(next.JSON), out)
}

// ChatCount returns the number of Chat calls seen so far
func (c *Client) ChatCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Requests)
}

// Text is a plain text reply
func Text(s string) Reply {
	return Reply{Response: &llm.Response{Text: s}}
}

// Calls is a reply carrying tool calls
func Calls(calls ...llm.ToolCall) Reply {
	return Reply{Response: &llm.Response{ToolCalls: calls}}
}

// Fail is an error reply
func Fail(err error) Reply {
	return Reply{Err: err}
}

// Call builds a tool call with raw JSON arguments
func Call(name, args string) llm.ToolCall {
	return llm.ToolCall{ID: "call_" + name, Name: name, Arguments: json.RawMessage(args)}
}
