package service

import (
	"errors"
	"testing"

	"tess-backend/models"
	"tess-backend/prompts"
	"tess-backend/tools"

	"github.com/stretchr/testify/assert"
)

func patchResult(p models.Patch) tools.Result {
	return tools.Result{Outcome: models.PatchOutcome(p)}
}

func TestObservation(t *testing.T) {
	tests := []struct {
		name    string
		results []tools.Result
		want    string
		changed bool
	}{
		{
			name: "retrieval lists titles once and asks for confirmation",
			results: []tools.Result{
				patchResult(models.Patch{
					AddLegislation: []models.Legislation{{Title: vatTitle, Content: vatContent}},
					SelectTitles:   []string{vatTitle},
				}),
				patchResult(models.Patch{
					AddCaseLaw:   []models.CaseLaw{{Title: hrTitle, Content: "tandpasta"}, {Title: " " + vatTitle}},
					SelectTitles: []string{hrTitle},
				}),
			},
			want:    prompts.RetrievedHeader + "\n1. " + vatTitle + "\n2. " + hrTitle + "\n\n" + prompts.ConfirmationQuestion,
			changed: true,
		},
		{
			name:    "unselection",
			results: []tools.Result{patchResult(models.Patch{UnselectTitles: []string{hrTitle}})},
			want:    prompts.UnselectedHeader + "\n1. " + hrTitle + "\n\n" + prompts.ConfirmationQuestion,
			changed: true,
		},
		{
			name:    "selection without retrieval",
			results: []tools.Result{patchResult(models.Patch{SelectTitles: []string{hrTitle}})},
			want:    prompts.SelectedHeader + "\n1. " + hrTitle + "\n\n" + prompts.ConfirmationQuestion,
			changed: true,
		},
		{
			name:    "empty patch",
			results: []tools.Result{patchResult(models.Patch{})},
			want:    prompts.NoChanges,
		},
		{
			name: "diagnostics follow the summary",
			results: []tools.Result{
				{Err: &tools.UnknownToolError{Name: "get_weather"}},
				patchResult(models.Patch{UnselectTitles: []string{hrTitle}}),
				{Err: &tools.ArgumentValidationError{Tool: tools.GetCaseLaw, Err: errors.New("bad")}},
				{Err: &tools.ToolExecutionError{Tool: "a", Err: errors.New("secret detail")}},
				{Err: &tools.ToolExecutionError{Tool: "b", Err: errors.New("secret detail")}},
			},
			want: prompts.UnselectedHeader + "\n1. " + hrTitle + "\n\n" + prompts.ConfirmationQuestion +
				"\n\n" + prompts.UnknownTool("get_weather") +
				"\n\n" + prompts.InvalidArguments(tools.GetCaseLaw) +
				"\n\n" + prompts.ToolFailed,
			changed: true,
		},
		{
			name:    "final answers are not observed",
			results: []tools.Result{{Outcome: models.FinalAnswerOutcome("antwoord")}},
			want:    prompts.NoChanges,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Observation(tt.results)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
			assert.NotContains(t, got, vatContent)
			assert.NotContains(t, got, "secret detail")
		})
	}
}
