package repository

import (
	"context"
	"fmt"
	"strings"

	"tess-backend/models"
	"tess-backend/sources"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SourceSchemaSQL creates the tax_sources table with a Dutch full text index
const SourceSchemaSQL = `
CREATE TABLE IF NOT EXISTS tax_sources (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    kind VARCHAR(20) NOT NULL CHECK (kind IN ('legislation', 'case_law')),
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    search_vector TSVECTOR GENERATED ALWAYS AS (
        setweight(to_tsvector('dutch', coalesce(title, '')), 'A') ||
        setweight(to_tsvector('dutch', coalesce(content, '')), 'B')
    ) STORED,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (kind, title)
);

CREATE INDEX IF NOT EXISTS idx_tax_sources_search ON tax_sources USING GIN (search_vector);`

// SourceRepository handles database operations for tax sources
type SourceRepository struct {
	db *pgxpool.Pool
}

// NewSourceRepository creates a new source repository
func NewSourceRepository(db *pgxpool.Pool) *SourceRepository {
	return &SourceRepository{db: db}
}

// Upsert inserts documents, replacing the content of existing titles
func (r *SourceRepository) Upsert(ctx context.Context, docs []models.SourceDocument) (int, error) {
	query := `
		INSERT INTO tax_sources (kind, title, content)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind, title) DO UPDATE SET content = EXCLUDED.content`

	batch := &pgx.Batch{}
	for _, d := range docs {
		batch.Queue(query, string(d.Kind), strings.TrimSpace(d.Title), d.Content)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := range docs {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("failed to upsert source %q: %w", docs[i].Title, err)
		}
	}
	return len(docs), nil
}

// tsQuery ORs the search terms so that any matching term ranks a document
func tsQuery(query string) string {
	return strings.Join(sources.Terms(query), " | ")
}

// Search performs a ranked full text search within one source kind
func (r *SourceRepository) Search(ctx context.Context, kind models.SourceKind, query string, limit int) ([]models.SourceDocument, error) {
	if kind != models.KindLegislation && kind != models.KindCaseLaw {
		return nil, fmt.Errorf("%w: %s", sources.ErrUnknownKind, kind)
	}
	if limit <= 0 {
		limit = sources.DefaultLimit
	}

	terms := tsQuery(query)
	if terms == "" {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT title, content
		FROM tax_sources
		WHERE kind = $1
			AND search_vector @@ to_tsquery('dutch', $2)
		ORDER BY ts_rank(search_vector, to_tsquery('dutch', $2)) DESC, title
		LIMIT $3`, string(kind), terms, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax sources: %w", err)
	}
	defer rows.Close()

	var docs []models.SourceDocument
	for rows.Next() {
		doc := models.SourceDocument{Kind: kind}
		if err := rows.Scan(&doc.Title, &doc.Content); err != nil {
			return nil, fmt.Errorf("failed to scan tax source: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tax sources: %w", err)
	}

	return docs, nil
}
