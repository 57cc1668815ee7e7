package models

// OutcomeKind tags a ToolOutcome
type OutcomeKind string

const (
	OutcomePatch       OutcomeKind = "patch"
	OutcomeFinalAnswer OutcomeKind = "final_answer"
)

// ToolOutcome is either a Patch or a final answer text, never both
type ToolOutcome struct {
	Kind   OutcomeKind
	Patch  Patch
	Answer string
}

// PatchOutcome wraps a patch
func PatchOutcome(p Patch) ToolOutcome {
	return ToolOutcome{Kind: OutcomePatch, Patch: p}
}

// FinalAnswerOutcome wraps an answer text
func FinalAnswerOutcome(text string) ToolOutcome {
	return ToolOutcome{Kind: OutcomeFinalAnswer, Answer: text}
}

// IsFinalAnswer reports whether the outcome ends the turn
func (o ToolOutcome) IsFinalAnswer() bool {
	return o.Kind == OutcomeFinalAnswer
}
