package sources

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"tess-backend/models"

	"gopkg.in/yaml.v3"
)

// CatalogFile is the YAML layout of a source catalog
type CatalogFile struct {
	Legislation []models.Legislation `yaml:"legislation"`
	CaseLaw     []models.CaseLaw     `yaml:"case_law"`
}

// Catalog is an in-memory keyword retriever
type Catalog struct {
	docs []models.SourceDocument
}

// NewCatalog builds a catalog from documents
func NewCatalog(docs []models.SourceDocument) *Catalog {
	return &Catalog{docs: append([]models.SourceDocument(nil), docs...)}
}

// LoadCatalogFile reads a YAML catalog from disk
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	var docs []models.SourceDocument
	for _, l := range file.Legislation {
		docs = append(docs, models.SourceDocument{Kind: models.KindLegislation, Title: l.Title, Content: l.Content})
	}
	for _, c := range file.CaseLaw {
		docs = append(docs, models.SourceDocument{Kind: models.KindCaseLaw, Title: c.Title, Content: c.Content})
	}
	return NewCatalog(docs), nil
}

// Documents returns the catalog content
func (c *Catalog) Documents() []models.SourceDocument {
	return append([]models.SourceDocument(nil), c.docs...)
}

// Search implements Retriever. Documents are ranked by the number of distinct
// query terms they contain; title hits count double.
func (c *Catalog) Search(ctx context.Context, kind models.SourceKind, query string, limit int) ([]models.SourceDocument, error) {
	if !validKind(kind) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	terms := Terms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	type scored struct {
		doc   models.SourceDocument
		score int
	}
	var hits []scored
	for _, doc := range c.docs {
		if doc.Kind != kind {
			continue
		}
		title := termSet(doc.Title)
		content := termSet(doc.Content)
		score := 0
		for _, t := range terms {
			if _, ok := title[t]; ok {
				score += 2
			} else if _, ok := content[t]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{doc: doc, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]models.SourceDocument, 0, min(limit, len(hits)))
	for i := 0; i < len(hits) && i < limit; i++ {
		out = append(out, hits[i].doc)
	}
	return out, nil
}

var stopwords = map[string]struct{}{
	"de": {}, "het": {}, "een": {}, "en": {}, "van": {}, "op": {}, "in": {}, "is": {},
	"wat": {}, "wie": {}, "hoe": {}, "welk": {}, "welke": {}, "voor": {}, "met": {},
	"aan": {}, "bij": {}, "dat": {}, "die": {}, "dit": {}, "er": {}, "te": {}, "om": {},
	"wordt": {}, "worden": {}, "zijn": {}, "mijn": {}, "ik": {}, "je": {}, "u": {},
	"the": {}, "what": {}, "of": {}, "on": {}, "for": {}, "and": {},
}

// Terms splits text into lowercase search terms without stopwords
func Terms(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func termSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Terms(text) {
		set[t] = struct{}{}
	}
	return set
}
