package service

import (
	"errors"
	"strconv"
	"strings"

	"tess-backend/prompts"
	"tess-backend/tools"
)

// Observation renders tool results as one assistant message. Only titles
// and fixed phrases appear in it, never source content. Final answers are
// not part of the observation. The returned bool is false when nothing was
// worth reporting, in which case the text is prompts.NoChanges.
func Observation(results []tools.Result) (string, bool) {
	var retrieved, unselected, selected titleList
	var diagnostics []string
	apologized := false

	for _, res := range results {
		if res.Err != nil {
			var (
				unknown *tools.UnknownToolError
				argErr  *tools.ArgumentValidationError
			)
			switch {
			case errors.As(res.Err, &unknown):
				diagnostics = append(diagnostics, prompts.UnknownTool(unknown.Name))
			case errors.As(res.Err, &argErr):
				diagnostics = append(diagnostics, prompts.InvalidArguments(argErr.Tool))
			case !apologized:
				diagnostics = append(diagnostics, prompts.ToolFailed)
				apologized = true
			}
			continue
		}
		if res.Outcome.IsFinalAnswer() {
			continue
		}

		p := res.Outcome.Patch
		retrieved.add(p.AddedTitles()...)
		unselected.add(p.UnselectTitles...)
		selected.add(p.SelectTitles...)
	}

	var sections []string
	if len(retrieved) > 0 {
		sections = append(sections, numbered(prompts.RetrievedHeader, retrieved))
	}
	if len(unselected) > 0 {
		sections = append(sections, numbered(prompts.UnselectedHeader, unselected))
	}
	if len(selected) > 0 && len(retrieved) == 0 {
		sections = append(sections, numbered(prompts.SelectedHeader, selected))
	}
	if len(sections) > 0 {
		sections = append(sections, prompts.ConfirmationQuestion)
	}
	sections = append(sections, diagnostics...)

	if len(sections) == 0 {
		return prompts.NoChanges, false
	}
	return strings.Join(sections, "\n\n"), true
}

// titleList is an ordered list of distinct, trimmed titles
type titleList []string

func (l *titleList) add(titles ...string) {
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		dup := false
		for _, existing := range *l {
			if existing == t {
				dup = true
				break
			}
		}
		if !dup {
			*l = append(*l, t)
		}
	}
}

func numbered(header string, titles []string) string {
	var b strings.Builder
	b.WriteString(header)
	for i, t := range titles {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(t)
	}
	return b.String()
}
