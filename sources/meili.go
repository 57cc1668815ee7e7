package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"tess-backend/models"

	"github.com/google/uuid"
	meili "github.com/meilisearch/meilisearch-go"
)

const meiliIndex = "tax_sources"

// meiliDocument is the indexed form of a source
type meiliDocument struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// MeiliRetriever implements Retriever on a Meilisearch index
type MeiliRetriever struct {
	client meili.ServiceManager
	index  string
}

// NewMeiliRetriever connects to Meilisearch and configures the index.
// An unreachable server is logged, searches will then fail until it is up.
func NewMeiliRetriever(url, apiKey string) *MeiliRetriever {
	m := newMeiliRetriever(meili.New(url, meili.WithAPIKey(apiKey)))

	if _, err := m.client.Health(); err != nil {
		slog.Warn("meilisearch unavailable", "url", url, "error", err)
		return m
	}
	m.configureIndex()
	return m
}

func newMeiliRetriever(client meili.ServiceManager) *MeiliRetriever {
	return &MeiliRetriever{client: client, index: meiliIndex}
}

func (m *MeiliRetriever) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        m.index,
		PrimaryKey: "id",
	}); err != nil {
		slog.Info("create meilisearch index (may already exist)", "index", m.index, "error", err)
	}

	index := m.client.Index(m.index)
	filterable := []interface{}{"kind"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		slog.Warn("update filterable attributes", "index", m.index, "error", err)
	}
	searchable := []string{"title", "content"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		slog.Warn("update searchable attributes", "index", m.index, "error", err)
	}
}

// IndexDocuments adds or replaces documents in the index
func (m *MeiliRetriever) IndexDocuments(docs []models.SourceDocument) error {
	records := make([]meiliDocument, 0, len(docs))
	for _, d := range docs {
		records = append(records, meiliDocument{
			ID:      DocumentID(d),
			Kind:    string(d.Kind),
			Title:   d.Title,
			Content: d.Content,
		})
	}
	if _, err := m.client.Index(m.index).AddDocuments(records, nil); err != nil {
		return fmt.Errorf("failed to index sources: %w", err)
	}
	return nil
}

// Search implements Retriever
func (m *MeiliRetriever) Search(ctx context.Context, kind models.SourceKind, query string, limit int) ([]models.SourceDocument, error) {
	if !validKind(kind) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{{
			IndexUID: m.index,
			Query:    query,
			Limit:    int64(limit),
			Filter:   []string{fmt.Sprintf("kind = %q", string(kind))},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	var out []models.SourceDocument
	for _, sr := range resp.Results {
		for _, hit := range sr.Hits {
			out = append(out, models.SourceDocument{
				Kind:    kind,
				Title:   decodeString(hit, "title"),
				Content: decodeString(hit, "content"),
			})
		}
	}
	return out, nil
}

// DocumentID derives a stable index id from kind and title
func DocumentID(d models.SourceDocument) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(string(d.Kind)+"|"+d.Title)).String()
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
