package models

// Patch is a declarative change to a dossier. It is the only way tools
// change dossier state.
type Patch struct {
	AddLegislation []Legislation `json:"add_legislation,omitempty"`
	AddCaseLaw     []CaseLaw     `json:"add_case_law,omitempty"`
	SelectTitles   []string      `json:"select_titles,omitempty"`
	UnselectTitles []string      `json:"unselect_titles,omitempty"`
}

// IsEmpty reports whether applying the patch can change anything
func (p Patch) IsEmpty() bool {
	return len(p.AddLegislation) == 0 && len(p.AddCaseLaw) == 0 &&
		len(p.SelectTitles) == 0 && len(p.UnselectTitles) == 0
}

// AddedTitles returns the titles the patch tries to add, legislation first
func (p Patch) AddedTitles() []string {
	var titles []string
	for _, l := range p.AddLegislation {
		if t := normalizeTitle(l.Title); t != "" {
			titles = append(titles, t)
		}
	}
	for _, c := range p.AddCaseLaw {
		if t := normalizeTitle(c.Title); t != "" {
			titles = append(titles, t)
		}
	}
	return titles
}

// Apply returns a new dossier with the patch applied; d is left untouched.
//
// Order: additions (deduplicated by trimmed title, first write wins, each
// appended entry selected), then select_titles for titles that are present,
// then unselect_titles. An unselect in the same patch therefore wins.
func (p Patch) Apply(d *Dossier) *Dossier {
	out := d.Clone()

	for _, l := range p.AddLegislation {
		title := normalizeTitle(l.Title)
		if title == "" || out.hasLegislation(title) {
			continue
		}
		l.Title = title
		out.Legislation = append(out.Legislation, l)
		out.SelectedIDs = out.SelectedIDs.with(title)
	}

	for _, c := range p.AddCaseLaw {
		title := normalizeTitle(c.Title)
		if title == "" || out.hasCaseLaw(title) {
			continue
		}
		c.Title = title
		out.CaseLaw = append(out.CaseLaw, c)
		out.SelectedIDs = out.SelectedIDs.with(title)
	}

	for _, t := range p.SelectTitles {
		if out.HasTitle(t) {
			out.SelectedIDs = out.SelectedIDs.with(t)
		}
	}

	if len(p.UnselectTitles) > 0 {
		remove := make(map[string]struct{}, len(p.UnselectTitles))
		for _, t := range p.UnselectTitles {
			remove[normalizeTitle(t)] = struct{}{}
		}
		out.SelectedIDs = out.SelectedIDs.without(remove)
	}

	return out
}

// ApplyAll applies patches in order, each one seeing the result of the previous
func ApplyAll(d *Dossier, patches []Patch) *Dossier {
	out := d
	for _, p := range patches {
		out = p.Apply(out)
	}
	if out == d {
		out = d.Clone()
	}
	return out
}
