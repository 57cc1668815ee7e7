package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// SourceKind distinguishes the two source lists of a dossier
type SourceKind string

const (
	KindLegislation SourceKind = "legislation"
	KindCaseLaw     SourceKind = "case_law"
)

// Legislation represents a retrieved statute article
type Legislation struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
}

// CaseLaw represents a retrieved court decision
type CaseLaw struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
}

// Source is the common shape of Legislation and CaseLaw
type Source interface {
	SourceTitle() string
	SourceContent() string
}

func (l Legislation) SourceTitle() string   { return l.Title }
func (l Legislation) SourceContent() string { return l.Content }
func (c CaseLaw) SourceTitle() string       { return c.Title }
func (c CaseLaw) SourceContent() string     { return c.Content }

// SourceDocument is a retrievable source as stored in a search backend
type SourceDocument struct {
	Kind    SourceKind `json:"kind" yaml:"kind"`
	Title   string     `json:"title" yaml:"title"`
	Content string     `json:"content" yaml:"content"`
}

// AsLegislation converts the document into a Legislation value
func (d SourceDocument) AsLegislation() Legislation {
	return Legislation{Title: d.Title, Content: d.Content}
}

// AsCaseLaw converts the document into a CaseLaw value
func (d SourceDocument) AsCaseLaw() CaseLaw {
	return CaseLaw{Title: d.Title, Content: d.Content}
}

// normalizeTitle is the key used for title comparisons
func normalizeTitle(title string) string {
	return strings.TrimSpace(title)
}

// LegislationList is the JSONB representation of a dossier's legislation
type LegislationList []Legislation

// Value implements driver.Valuer for JSONB
func (l LegislationList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]Legislation{})
	}
	return json.Marshal([]Legislation(l))
}

// Scan implements sql.Scanner for JSONB
func (l *LegislationList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// CaseLawList is the JSONB representation of a dossier's case law
type CaseLawList []CaseLaw

// Value implements driver.Valuer for JSONB
func (c CaseLawList) Value() (driver.Value, error) {
	if c == nil {
		return json.Marshal([]CaseLaw{})
	}
	return json.Marshal([]CaseLaw(c))
}

// Scan implements sql.Scanner for JSONB
func (c *CaseLawList) Scan(value interface{}) error {
	return scanJSON(value, c)
}

// scanJSON decodes a JSONB column that the driver hands over as bytes or text
func scanJSON(value interface{}, dst interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, dst)
}
