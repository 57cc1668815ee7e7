package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tess-backend/models"

	"github.com/google/generative-ai-go/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient implements Client on top of the Gemini SDK
type GeminiClient struct {
	client      *genai.Client
	modelName   string
	temperature float32
}

// GeminiOption is a functional option for GeminiClient
type GeminiOption func(*GeminiClient)

// WithGeminiModel sets the model name
func WithGeminiModel(name string) GeminiOption {
	return func(c *GeminiClient) {
		if name != "" {
			c.modelName = name
		}
	}
}

// WithGeminiTemperature sets the default sampling temperature
func WithGeminiTemperature(t float32) GeminiOption {
	return func(c *GeminiClient) {
		c.temperature = t
	}
}

// NewGeminiClient wraps an initialized genai client
func NewGeminiClient(client *genai.Client, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		client:      client,
		modelName:   defaultGeminiModel,
		temperature: 0.2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *GeminiClient) model(req ChatRequest) *genai.GenerativeModel {
	m := c.client.GenerativeModel(c.modelName)

	temp := c.temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	m.SetTemperature(temp)

	if req.System != "" {
		m.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGeminiSchema(t.Parameters),
			})
		}
		m.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	return m
}

// Chat implements Client
func (c *GeminiClient) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	if c.client == nil {
		return nil, ErrNotConfigured
	}

	cs := c.model(req).StartChat()
	history, last := toGeminiHistory(req.Messages)
	cs.History = history

	resp, err := cs.SendMessage(ctx, last...)
	if err != nil {
		return nil, fmt.Errorf("failed to call gemini: %w", err)
	}

	return fromGeminiResponse(resp)
}

// ChatStructured implements Client using a JSON response schema
func (c *GeminiClient) ChatStructured(ctx context.Context, req ChatRequest, shape *Schema, out any) error {
	if c.client == nil {
		return ErrNotConfigured
	}

	req.Tools = nil
	m := c.model(req)
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = toGeminiSchema(shape)

	cs := m.StartChat()
	history, last := toGeminiHistory(req.Messages)
	cs.History = history

	resp, err := cs.SendMessage(ctx, last...)
	if err != nil {
		return fmt.Errorf("failed to call gemini: %w", err)
	}

	parsed, err := fromGeminiResponse(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(parsed.Text), out); err != nil {
		return fmt.Errorf("failed to decode structured reply: %w", err)
	}
	return nil
}

// toGeminiHistory converts the transcript into chat history plus the parts
// of the final user turn. Consecutive messages of one role are merged since
// Gemini expects alternating turns.
func toGeminiHistory(messages []models.Message) ([]*genai.Content, []genai.Part) {
	var history []*genai.Content
	for _, m := range messages {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		if n := len(history); n > 0 && history[n-1].Role == role {
			history[n-1].Parts = append(history[n-1].Parts, genai.Text(m.Content))
			continue
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}

	if n := len(history); n > 0 && history[n-1].Role == "user" {
		return history[:n-1], history[n-1].Parts
	}
	return history, []genai.Part{genai.Text(continuationPrompt)}
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) (*Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil {
			return nil, fmt.Errorf("%w: %v", ErrBlocked, resp.PromptFeedback.BlockReason)
		}
		return nil, ErrEmptyResponse
	}

	cand := resp.Candidates[0]
	if cand.Content == nil {
		return nil, fmt.Errorf("%w: finish reason %v", ErrEmptyResponse, cand.FinishReason)
	}

	out := &Response{}
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, geminiToolCall(len(out.ToolCalls), p))
		case *genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, geminiToolCall(len(out.ToolCalls), *p))
		}
	}
	out.Text = text.String()

	if out.Text == "" && len(out.ToolCalls) == 0 {
		return nil, ErrEmptyResponse
	}
	return out, nil
}

func geminiToolCall(i int, fc genai.FunctionCall) ToolCall {
	args, err := json.Marshal(fc.Args)
	if err != nil || fc.Args == nil {
		args = []byte("{}")
	}
	return ToolCall{
		ID:        fmt.Sprintf("call_%d", i),
		Name:      fc.Name,
		Arguments: args,
	}
}

func toGeminiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
		Items:       toGeminiSchema(s.Items),
	}

	switch s.Type {
	case TypeObject:
		out.Type = genai.TypeObject
	case TypeArray:
		out.Type = genai.TypeArray
	case TypeInteger:
		out.Type = genai.TypeInteger
	case TypeNumber:
		out.Type = genai.TypeNumber
	case TypeBoolean:
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}

	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGeminiSchema(prop)
		}
	}

	return out
}
