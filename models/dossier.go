package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"
)

// Role identifies the author of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the curated conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the ordered transcript of a dossier
type Conversation []Message

// Value implements driver.Valuer for JSONB
func (c Conversation) Value() (driver.Value, error) {
	if c == nil {
		return json.Marshal([]Message{})
	}
	return json.Marshal([]Message(c))
}

// Scan implements sql.Scanner for JSONB
func (c *Conversation) Scan(value interface{}) error {
	return scanJSON(value, c)
}

// TitleSet is an insertion-ordered set of source titles
type TitleSet []string

// Contains reports whether title is in the set
func (s TitleSet) Contains(title string) bool {
	title = normalizeTitle(title)
	for _, t := range s {
		if t == title {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer for JSONB
func (s TitleSet) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal([]string(s))
}

// Scan implements sql.Scanner for JSONB
func (s *TitleSet) Scan(value interface{}) error {
	return scanJSON(value, s)
}

func (s TitleSet) with(title string) TitleSet {
	title = normalizeTitle(title)
	if title == "" || s.Contains(title) {
		return s
	}
	return append(s, title)
}

func (s TitleSet) without(remove map[string]struct{}) TitleSet {
	kept := make(TitleSet, 0, len(s))
	for _, t := range s {
		if _, drop := remove[t]; !drop {
			kept = append(kept, t)
		}
	}
	return kept
}

// Dossier is the per-conversation aggregate of sources, selection and transcript
type Dossier struct {
	DossierID    string          `json:"dossier_id"`
	Legislation  LegislationList `json:"legislation"`
	CaseLaw      CaseLawList     `json:"case_law"`
	SelectedIDs  TitleSet        `json:"selected_ids"`
	Conversation Conversation    `json:"conversation"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewDossier creates an empty dossier
func NewDossier(id string, now time.Time) *Dossier {
	d := &Dossier{
		DossierID: id,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	d.Normalize()
	return d
}

// Normalize replaces nil collections so that the JSON form always carries arrays
func (d *Dossier) Normalize() {
	if d.Legislation == nil {
		d.Legislation = LegislationList{}
	}
	if d.CaseLaw == nil {
		d.CaseLaw = CaseLawList{}
	}
	if d.SelectedIDs == nil {
		d.SelectedIDs = TitleSet{}
	}
	if d.Conversation == nil {
		d.Conversation = Conversation{}
	}
}

// Clone returns a deep copy that shares no slices with d
func (d *Dossier) Clone() *Dossier {
	if d == nil {
		return nil
	}
	c := *d
	c.Legislation = append(LegislationList{}, d.Legislation...)
	c.CaseLaw = append(CaseLawList{}, d.CaseLaw...)
	c.SelectedIDs = append(TitleSet{}, d.SelectedIDs...)
	c.Conversation = append(Conversation{}, d.Conversation...)
	return &c
}

// Titles returns every source title, legislation first
func (d *Dossier) Titles() []string {
	titles := make([]string, 0, len(d.Legislation)+len(d.CaseLaw))
	for _, l := range d.Legislation {
		titles = append(titles, l.Title)
	}
	for _, c := range d.CaseLaw {
		titles = append(titles, c.Title)
	}
	return titles
}

// HasTitle reports whether a source with this title is present in either list
func (d *Dossier) HasTitle(title string) bool {
	title = normalizeTitle(title)
	for _, t := range d.Titles() {
		if normalizeTitle(t) == title {
			return true
		}
	}
	return false
}

func (d *Dossier) hasLegislation(title string) bool {
	for _, l := range d.Legislation {
		if normalizeTitle(l.Title) == title {
			return true
		}
	}
	return false
}

func (d *Dossier) hasCaseLaw(title string) bool {
	for _, c := range d.CaseLaw {
		if normalizeTitle(c.Title) == title {
			return true
		}
	}
	return false
}

// IsSelected reports whether title is part of the current selection
func (d *Dossier) IsSelected(title string) bool {
	return d.SelectedIDs.Contains(title)
}

// SelectedTitles returns selected titles in source order
func (d *Dossier) SelectedTitles() []string {
	var titles []string
	for _, t := range d.Titles() {
		if d.IsSelected(t) {
			titles = append(titles, t)
		}
	}
	return titles
}

// UnselectedTitles returns titles that were retrieved but are not selected
func (d *Dossier) UnselectedTitles() []string {
	var titles []string
	for _, t := range d.Titles() {
		if !d.IsSelected(t) {
			titles = append(titles, t)
		}
	}
	return titles
}

// SelectedLegislation returns the selected legislation entries
func (d *Dossier) SelectedLegislation() []Legislation {
	var out []Legislation
	for _, l := range d.Legislation {
		if d.IsSelected(l.Title) {
			out = append(out, l)
		}
	}
	return out
}

// SelectedCaseLaw returns the selected case law entries
func (d *Dossier) SelectedCaseLaw() []CaseLaw {
	var out []CaseLaw
	for _, c := range d.CaseLaw {
		if d.IsSelected(c.Title) {
			out = append(out, c)
		}
	}
	return out
}

// AppendMessage adds a message to the transcript, ignoring blank content
func (d *Dossier) AppendMessage(role Role, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}
	d.Conversation = append(d.Conversation, Message{Role: role, Content: content})
}

// UserMessages returns the user contents in transcript order
func (d *Dossier) UserMessages() []string {
	var out []string
	for _, m := range d.Conversation {
		if m.Role == RoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}

// Touch records a modification time
func (d *Dossier) Touch(now time.Time) {
	d.UpdatedAt = now.UTC()
}
