package tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tess-backend/llm"
	"tess-backend/models"
	"tess-backend/prompts"
)

// AnswerArgs are the arguments of generate_tax_answer
type AnswerArgs struct {
	Query string `json:"query" validate:"max=4000"`
}

// NewAnswerTool generates the final answer from the selected sources
func NewAnswerTool(client llm.Client) Tool {
	return Typed(GenerateTaxAnswer,
		"Generate an answer to a tax query using the selected dossier sources (legislation and case law).",
		llm.Object(map[string]*llm.Schema{
			"query": llm.String("Original tax query from the user. Include any context that could be relevant or helpful for answering correctly."),
		}, "query"),
		func(ctx context.Context, snapshot *models.Dossier, args AnswerArgs) (models.ToolOutcome, error) {
			question := resolveQuestion(args.Query, snapshot)
			if question == "" {
				return models.ToolOutcome{}, errors.New("no question to answer")
			}

			prompt, err := prompts.Fill(prompts.Answer, map[string]string{
				"query":       question,
				"legislation": formatSources(snapshot.SelectedLegislation()),
				"case_law":    formatSources(snapshot.SelectedCaseLaw()),
			})
			if err != nil {
				return models.ToolOutcome{}, err
			}

			resp, err := client.Chat(ctx, llm.ChatRequest{
				Messages:    []models.Message{{Role: models.RoleUser, Content: prompt}},
				Temperature: llm.Temperature(0),
			})
			if err != nil {
				return models.ToolOutcome{}, fmt.Errorf("failed to generate answer: %w", err)
			}

			answer := strings.TrimSpace(resp.Text)
			if answer == "" {
				return models.ToolOutcome{}, llm.ErrEmptyResponse
			}
			return models.FinalAnswerOutcome(answer), nil
		})
}

// formatSources renders sources as numbered title/content blocks for the answer prompt
func formatSources[S models.Source](list []S) string {
	if len(list) == 0 {
		return prompts.NoSources + "\n"
	}

	var b strings.Builder
	for i, s := range list {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(":\n")
		b.WriteString(s.SourceTitle())
		b.WriteString("\n")
		b.WriteString(s.SourceContent())
		b.WriteString("\n\n")
	}
	return b.String()
}
