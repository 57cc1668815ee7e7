package tools

import (
	"context"
	"fmt"
	"strings"

	"tess-backend/llm"
	"tess-backend/models"
	"tess-backend/sources"
)

// QueryArgs are the arguments of the retrieval tools
type QueryArgs struct {
	Query string `json:"query" validate:"notblank,max=4000"`
}

func queryParams(description string) *llm.Schema {
	return llm.Object(map[string]*llm.Schema{
		"query": llm.String(description),
	}, "query")
}

// NewLegislationTool searches legislation and adds the hits to the dossier
func NewLegislationTool(retriever sources.Retriever, limit int) Tool {
	return Typed(GetLegislation,
		"Retrieve relevant Dutch tax legislation for a query.",
		queryParams("Tax question or topic to search legislation for. Include any context that helps decide which legislation to return."),
		func(ctx context.Context, _ *models.Dossier, args QueryArgs) (models.ToolOutcome, error) {
			docs, err := retriever.Search(ctx, models.KindLegislation, args.Query, limit)
			if err != nil {
				return models.ToolOutcome{}, fmt.Errorf("failed to search legislation: %w", err)
			}

			var p models.Patch
			for _, d := range docs {
				p.AddLegislation = append(p.AddLegislation, d.AsLegislation())
			}
			p.SelectTitles = titlesOf(docs)
			return models.PatchOutcome(p), nil
		})
}

// NewCaseLawTool searches case law and adds the hits to the dossier
func NewCaseLawTool(retriever sources.Retriever, limit int) Tool {
	return Typed(GetCaseLaw,
		"Retrieve relevant Dutch tax case law for a query.",
		queryParams("Tax question or topic to search case law for. Include any context that helps decide which rulings to return."),
		func(ctx context.Context, _ *models.Dossier, args QueryArgs) (models.ToolOutcome, error) {
			docs, err := retriever.Search(ctx, models.KindCaseLaw, args.Query, limit)
			if err != nil {
				return models.ToolOutcome{}, fmt.Errorf("failed to search case law: %w", err)
			}

			var p models.Patch
			for _, d := range docs {
				p.AddCaseLaw = append(p.AddCaseLaw, d.AsCaseLaw())
			}
			p.SelectTitles = titlesOf(docs)
			return models.PatchOutcome(p), nil
		})
}

func titlesOf(docs []models.SourceDocument) []string {
	var titles []string
	for _, d := range docs {
		if t := strings.TrimSpace(d.Title); t != "" {
			titles = append(titles, t)
		}
	}
	return titles
}
