package tools

import (
	"context"
	"fmt"
	"strings"

	"tess-backend/llm"
	"tess-backend/models"
	"tess-backend/prompts"
)

// InstructionArgs are the arguments of the selection tools
type InstructionArgs struct {
	Instruction string `json:"instruction" validate:"notblank,max=4000"`
}

// NewRemoveSourcesTool unselects the sources an instruction refers to
func NewRemoveSourcesTool(client llm.Client) Tool {
	return Typed(RemoveSources,
		"Given a user message specifying which sources have to be removed, remove those sources from the selection.",
		llm.Object(map[string]*llm.Schema{
			"instruction": llm.String("A natural language instruction that explains which documents should be removed, e.g. 'verwijder artikel 13 en ECLI:NL:HR:2020:123 uit de selectie'."),
		}, "instruction"),
		func(ctx context.Context, snapshot *models.Dossier, args InstructionArgs) (models.ToolOutcome, error) {
			titles, err := pickTitles(ctx, client, prompts.Remove, args.Instruction, snapshot.SelectedTitles())
			if err != nil {
				return models.ToolOutcome{}, err
			}
			return models.PatchOutcome(models.Patch{UnselectTitles: titles}), nil
		})
}

// NewRestoreSourcesTool selects previously unselected sources again
func NewRestoreSourcesTool(client llm.Client) Tool {
	return Typed(RestoreSources,
		"Given a user message specifying which previously removed sources are relevant after all, add those sources back to the selection.",
		llm.Object(map[string]*llm.Schema{
			"instruction": llm.String("A natural language instruction that explains which documents should be restored, e.g. 'zet artikel 13 weer terug'."),
		}, "instruction"),
		func(ctx context.Context, snapshot *models.Dossier, args InstructionArgs) (models.ToolOutcome, error) {
			titles, err := pickTitles(ctx, client, prompts.Restore, args.Instruction, snapshot.UnselectedTitles())
			if err != nil {
				return models.ToolOutcome{}, err
			}
			return models.PatchOutcome(models.Patch{SelectTitles: titles}), nil
		})
}

// pickTitles asks the model which candidates the instruction refers to and
// keeps only answers that name a candidate.
func pickTitles(ctx context.Context, client llm.Client, template, instruction string, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	prompt, err := prompts.Fill(template, map[string]string{
		"query":      strings.TrimSpace(instruction),
		"candidates": strings.Join(candidates, "\n"),
	})
	if err != nil {
		return nil, err
	}

	var reply llm.Titles
	err = client.ChatStructured(ctx, llm.ChatRequest{
		Messages:    []models.Message{{Role: models.RoleUser, Content: prompt}},
		Temperature: llm.Temperature(0),
	}, llm.TitlesSchema, &reply)
	if err != nil {
		return nil, fmt.Errorf("failed to select titles: %w", err)
	}

	return matchCandidates(reply.Titles, candidates), nil
}

// matchCandidates maps model answers onto candidate titles, ignoring case
// and surrounding whitespace. Unknown titles are dropped.
func matchCandidates(answers, candidates []string) []string {
	byKey := make(map[string]string, len(candidates))
	for _, c := range candidates {
		byKey[strings.ToLower(strings.TrimSpace(c))] = c
	}

	seen := make(map[string]struct{})
	var out []string
	for _, a := range answers {
		title, ok := byKey[strings.ToLower(strings.TrimSpace(a))]
		if !ok {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		out = append(out, title)
	}
	return out
}
