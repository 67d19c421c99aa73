package analysis

import (
	"strings"

	"maestro/pkg/question"
	"maestro/pkg/soul"
)

// EnrichedContext is the full, immutable scoring input: the brief, the
// extracted profile when one exists, the analysis of any existing markup, and
// everything the interview collected. It is assembled once per decision pass
// and only read afterwards, so scorers may share it across goroutines.
type EnrichedContext struct {
	Brief string

	Soul    *soul.ProjectSoul
	Context *ContextAnalysis

	Answers    map[string]*question.Answer
	Normalized map[string]any

	QuestionsAsked int
	MaxQuestions   int

	// Raw artifacts carried by the session, consumed by parameter adapters.
	PreviousHTML string
	PageHTML     string
	ImagePath    string
	PageTemplate string
	SectionType  string
	Instructions string

	ContentLanguage string
}

// HasSoul reports whether extraction produced a profile.
func (c *EnrichedContext) HasSoul() bool {
	return c.Soul != nil
}

// HasBrief reports whether the user supplied any brief text.
func (c *EnrichedContext) HasBrief() bool {
	return strings.TrimSpace(c.Brief) != ""
}

// AnswerCount is the number of validated answers collected.
func (c *EnrichedContext) AnswerCount() int {
	return len(c.Answers)
}

// CriticalGaps counts unresolved critical gaps in the profile.
func (c *EnrichedContext) CriticalGaps() int {
	if c.Soul == nil {
		return 0
	}
	return c.Soul.Gaps.CriticalCount()
}

// SoulConfidence is the profile's overall confidence, zero without one.
func (c *EnrichedContext) SoulConfidence() float64 {
	if c.Soul == nil {
		return 0
	}
	return c.Soul.Confidence.Overall()
}

// ContextCompleteness is the markup analysis completeness, zero without one.
func (c *EnrichedContext) ContextCompleteness() float64 {
	if c.Context == nil {
		return 0
	}
	return c.Context.Completeness
}
