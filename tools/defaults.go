package tools

import (
	"tess-backend/llm"
	"tess-backend/sources"
)

// Defaults returns the standard tool set
func Defaults(retriever sources.Retriever, client llm.Client, searchLimit int) []Tool {
	return []Tool{
		NewLegislationTool(retriever, searchLimit),
		NewCaseLawTool(retriever, searchLimit),
		NewRemoveSourcesTool(client),
		NewRestoreSourcesTool(client),
		NewAnswerTool(client),
	}
}
