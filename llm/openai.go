package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"tess-backend/models"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIClient implements Client for OpenAI-compatible chat completion APIs
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIOption is a functional option for OpenAIClient
type OpenAIOption func(*OpenAIClient)

// WithOpenAIModel sets the model name
func WithOpenAIModel(name string) OpenAIOption {
	return func(c *OpenAIClient) {
		if name != "" {
			c.model = name
		}
	}
}

// WithOpenAITemperature sets the default sampling temperature
func WithOpenAITemperature(t float32) OpenAIOption {
	return func(c *OpenAIClient) {
		c.temperature = t
	}
}

// NewOpenAIClient wraps a go-openai client
func NewOpenAIClient(client *openai.Client, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		client:      client,
		model:       defaultOpenAIModel,
		temperature: 0.2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OpenAIClient) request(req ChatRequest) openai.ChatCompletionRequest {
	temp := c.temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}

	r := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(req.System, req.Messages),
		Temperature: temp,
	}

	for _, t := range req.Tools {
		params := toJSONSchema(t.Parameters)
		r.Tools = append(r.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  &params,
			},
		})
	}

	return r
}

// Chat implements Client
func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	if c.client == nil {
		return nil, ErrNotConfigured
	}

	resp, err := c.client.CreateChatCompletion(ctx, c.request(req))
	if err != nil {
		return nil, fmt.Errorf("failed to call openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	msg := resp.Choices[0].Message
	out := &Response{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	if out.Text == "" && len(out.ToolCalls) == 0 {
		return nil, ErrEmptyResponse
	}
	return out, nil
}

// ChatStructured implements Client using a strict JSON schema response format
func (c *OpenAIClient) ChatStructured(ctx context.Context, req ChatRequest, shape *Schema, out any) error {
	if c.client == nil {
		return ErrNotConfigured
	}

	req.Tools = nil
	r := c.request(req)
	schema := toJSONSchema(shape)
	r.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   "structured_reply",
			Schema: &schema,
			Strict: true,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, r)
	if err != nil {
		return fmt.Errorf("failed to call openai: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return ErrEmptyResponse
	}

	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("failed to decode structured reply: %w", err)
	}
	return nil
}

func toOpenAIMessages(system string, messages []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func toJSONSchema(s *Schema) jsonschema.Definition {
	if s == nil {
		return jsonschema.Definition{Type: jsonschema.Object, Properties: map[string]jsonschema.Definition{}}
	}

	def := jsonschema.Definition{
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
	}

	switch s.Type {
	case TypeObject:
		def.Type = jsonschema.Object
		def.AdditionalProperties = false
		def.Properties = make(map[string]jsonschema.Definition, len(s.Properties))
		for name, prop := range s.Properties {
			def.Properties[name] = toJSONSchema(prop)
		}
	case TypeArray:
		def.Type = jsonschema.Array
		if s.Items != nil {
			items := toJSONSchema(s.Items)
			def.Items = &items
		}
	case TypeInteger:
		def.Type = jsonschema.Integer
	case TypeNumber:
		def.Type = jsonschema.Number
	case TypeBoolean:
		def.Type = jsonschema.Boolean
	default:
		def.Type = jsonschema.String
	}

	return def
}
