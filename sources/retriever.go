// Package sources provides the retrieval backends behind the
// get_legislation and get_case_law tools.
package sources

import (
	"context"
	"errors"

	"tess-backend/models"
)

// DefaultLimit caps the number of documents a single search returns
const DefaultLimit = 5

var ErrUnknownKind = errors.New("unknown source kind")

// Retriever finds source documents of one kind for a free-text query
type Retriever interface {
	Search(ctx context.Context, kind models.SourceKind, query string, limit int) ([]models.SourceDocument, error)
}

func validKind(kind models.SourceKind) bool {
	return kind == models.KindLegislation || kind == models.KindCaseLaw
}
