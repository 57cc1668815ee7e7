package llm

import (
	"testing"

	"tess-backend/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToGeminiHistory(t *testing.T) {
	tests := []struct {
		name        string
		messages    []models.Message
		wantHistory int
		wantLast    []genai.Part
	}{
		{
			name:        "single user message",
			messages:    []models.Message{{Role: models.RoleUser, Content: "vraag"}},
			wantHistory: 0,
			wantLast:    []genai.Part{genai.Text("vraag")},
		},
		{
			name: "ends on assistant observation",
			messages: []models.Message{
				{Role: models.RoleUser, Content: "vraag"},
				{Role: models.RoleAssistant, Content: "Ik vond de volgende bronnen:"},
			},
			wantHistory: 2,
			wantLast:    []genai.Part{genai.Text(continuationPrompt)},
		},
		{
			name: "consecutive user messages are merged",
			messages: []models.Message{
				{Role: models.RoleUser, Content: "vraag"},
				{Role: models.RoleAssistant, Content: "bronnen?"},
				{Role: models.RoleUser, Content: "ja"},
				{Role: models.RoleUser, Content: "graag"},
			},
			wantHistory: 2,
			wantLast:    []genai.Part{genai.Text("ja"), genai.Text("graag")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, last := toGeminiHistory(tt.messages)
			assert.Len(t, history, tt.wantHistory)
			assert.Equal(t, tt.wantLast, last)
			for i := 1; i < len(history); i++ {
				assert.NotEqual(t, history[i-1].Role, history[i].Role)
			}
		})
	}
}

func TestFromGeminiResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: "model",
				Parts: []genai.Part{
					genai.FunctionCall{Name: "get_legislation", Args: map[string]any{"query": "btw"}},
					genai.FunctionCall{Name: "get_case_law", Args: map[string]any{"query": "btw"}},
				},
			},
		}},
	}

	out, err := fromGeminiResponse(resp)
	require.NoError(t, err)
	require.Len(t, out.ToolCalls, 2)
	assert.Equal(t, "get_legislation", out.ToolCalls[0].Name)
	assert.Equal(t, "call_1", out.ToolCalls[1].ID)
	assert.JSONEq(t, `{"query":"btw"}`, string(out.ToolCalls[1].Arguments))
}

func TestFromGeminiResponse_Empty(t *testing.T) {
	_, err := fromGeminiResponse(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestToGeminiSchema(t *testing.T) {
	s := toGeminiSchema(TitlesSchema)

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"titles"}, s.Required)
	require.Contains(t, s.Properties, "titles")
	assert.Equal(t, genai.TypeArray, s.Properties["titles"].Type)
	assert.Equal(t, genai.TypeString, s.Properties["titles"].Items.Type)
}
