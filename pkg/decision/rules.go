package decision

import (
	"strings"

	"github.com/montanaflynn/stats"

	"maestro/pkg/analysis"
	"maestro/pkg/proto"
)

// requiredParams declares, per mode, the parameter names the downstream
// pipeline needs. The adapters resolve these; context-completeness scoring
// asks how many are resolvable right now.
//
//nolint:gochecknoglobals // static table, never mutated
var requiredParams = map[proto.ExecutionMode][]string{
	proto.ModeDesignFrontend: {
		"component_type", "design_spec", "project_context", "content_language",
	},
	proto.ModeDesignPage: {
		"component_type", "design_spec", "project_context", "content_language",
	},
	proto.ModeDesignSection: {
		"section_type", "context", "previous_html", "design_tokens",
		"content_structure", "theme", "project_context", "content_language",
	},
	proto.ModeRefineFrontend: {
		"previous_html", "modifications", "project_context",
	},
	proto.ModeReplaceSectionInPage: {
		"page_html", "section_type", "modifications", "preserve_design_tokens",
		"theme", "content_language",
	},
	proto.ModeDesignFromReference: {
		"image_path", "component_type", "instructions", "context",
		"project_context", "content_language",
	},
}

// RequiredParams returns the parameter names a mode needs.
func RequiredParams(mode proto.ExecutionMode) []string {
	return requiredParams[mode]
}

// resolvable reports whether a parameter can be produced from the context
// without asking more questions. Parameters with sensible synthesized
// defaults (language, theme, flags) always resolve.
func resolvable(param string, ctx *analysis.EnrichedContext) bool {
	switch param {
	case "previous_html":
		return ctx.PreviousHTML != ""
	case "page_html":
		return ctx.PageHTML != ""
	case "image_path":
		return ctx.ImagePath != ""
	case "section_type":
		return ctx.SectionType != ""
	case "modifications", "instructions":
		return ctx.Instructions != "" || ctx.HasBrief()
	case "component_type":
		return ctx.HasBrief() || ctx.HasSoul()
	case "design_spec", "content_structure", "context":
		return ctx.HasBrief() || ctx.HasSoul() || ctx.AnswerCount() > 0
	case "project_context":
		return ctx.HasSoul() || ctx.AnswerCount() > 0 || ctx.HasBrief()
	case "design_tokens":
		return ctx.Context != nil && len(ctx.Context.Tokens.Colors) > 0
	case "theme", "preserve_design_tokens", "content_language":
		return true
	default:
		return false
	}
}

// rule binds a mode to its match predicate and scorer. Predicates may match
// more than one mode; every match gets scored.
type rule struct {
	mode    proto.ExecutionMode
	matches func(*analysis.EnrichedContext) bool
	score   func(*analysis.EnrichedContext) Scores
}

// modeRules returns the fixed rule list in priority order.
func modeRules() []rule {
	return []rule{
		{
			mode: proto.ModeDesignFrontend,
			matches: func(ctx *analysis.EnrichedContext) bool {
				return ctx.HasBrief() || ctx.HasSoul() || ctx.AnswerCount() > 0
			},
			score: func(ctx *analysis.EnrichedContext) Scores {
				return scoreFor(proto.ModeDesignFrontend, ctx)
			},
		},
		{
			mode: proto.ModeDesignSection,
			matches: func(ctx *analysis.EnrichedContext) bool {
				return ctx.SectionType != "" && ctx.PreviousHTML != ""
			},
			score: func(ctx *analysis.EnrichedContext) Scores {
				return scoreFor(proto.ModeDesignSection, ctx)
			},
		},
		{
			mode: proto.ModeDesignPage,
			matches: func(ctx *analysis.EnrichedContext) bool {
				return ctx.PageTemplate != ""
			},
			score: func(ctx *analysis.EnrichedContext) Scores {
				return scoreFor(proto.ModeDesignPage, ctx)
			},
		},
		{
			mode: proto.ModeRefineFrontend,
			matches: func(ctx *analysis.EnrichedContext) bool {
				return ctx.PreviousHTML != ""
			},
			score: func(ctx *analysis.EnrichedContext) Scores {
				return scoreFor(proto.ModeRefineFrontend, ctx)
			},
		},
		{
			mode: proto.ModeReplaceSectionInPage,
			matches: func(ctx *analysis.EnrichedContext) bool {
				return ctx.PageHTML != "" && ctx.SectionType != ""
			},
			score: func(ctx *analysis.EnrichedContext) Scores {
				return scoreFor(proto.ModeReplaceSectionInPage, ctx)
			},
		},
		{
			mode: proto.ModeDesignFromReference,
			matches: func(ctx *analysis.EnrichedContext) bool {
				return ctx.ImagePath != ""
			},
			score: func(ctx *analysis.EnrichedContext) Scores {
				return scoreFor(proto.ModeDesignFromReference, ctx)
			},
		},
	}
}

// scoreFor computes the six dimensions for one candidate mode. Only
// context-completeness varies by mode; the other dimensions read global
// session signal.
func scoreFor(mode proto.ExecutionMode, ctx *analysis.EnrichedContext) Scores {
	return Scores{
		Clarity:             clarityScore(ctx),
		Specificity:         specificityScore(ctx),
		ContextCompleteness: completenessScore(mode, ctx),
		SignalStrength:      signalScore(ctx),
		Consistency:         consistencyScore(ctx),
		Risk:                riskScore(ctx),
	}
}

// clarityScore reflects how much the user told us in prose: brief length up
// to 40 words counts, the profile's overall confidence tops it up.
func clarityScore(ctx *analysis.EnrichedContext) float64 {
	words := len(strings.Fields(ctx.Brief))
	score := clip(float64(words) / 40.0)
	if ctx.HasSoul() {
		score = clip(score*0.6 + ctx.SoulConfidence()*0.4)
	}
	return score
}

// specificityScore reflects how many concrete answers the interview
// collected relative to what it asked.
func specificityScore(ctx *analysis.EnrichedContext) float64 {
	if ctx.QuestionsAsked == 0 {
		if ctx.AnswerCount() > 0 {
			return 1
		}
		return 0
	}
	return clip(float64(ctx.AnswerCount()) / float64(ctx.QuestionsAsked))
}

// completenessScore is the fraction of the mode's required parameters
// resolvable without further questions.
func completenessScore(mode proto.ExecutionMode, ctx *analysis.EnrichedContext) float64 {
	params := requiredParams[mode]
	if len(params) == 0 {
		return 0
	}
	n := 0
	for _, p := range params {
		if resolvable(p, ctx) {
			n++
		}
	}
	return float64(n) / float64(len(params))
}

// signalScore blends the profile confidence with markup analysis coverage.
func signalScore(ctx *analysis.EnrichedContext) float64 {
	if !ctx.HasSoul() && ctx.Context == nil {
		return 0
	}
	return clip(ctx.SoulConfidence()*0.7 + ctx.ContextCompleteness()*0.3)
}

// consistencyScore is the mean of agreement checks between the independent
// signal sources. With a single source there is nothing to contradict, so
// the score is neutral.
func consistencyScore(ctx *analysis.EnrichedContext) float64 {
	var checks stats.Float64Data

	if ctx.HasSoul() && len(ctx.Normalized) > 0 {
		checks = append(checks, agreement(ctx.Soul.Metadata.ProjectType != "", ctx.AnswerCount() > 0))
	}
	if ctx.HasSoul() && ctx.Context != nil && ctx.Context.HasMarkup {
		soulHasColor := ctx.Soul.Visual.Palette.Primary != ""
		markupHasColor := len(ctx.Context.Tokens.Colors) > 0
		checks = append(checks, agreement(soulHasColor, markupHasColor))
	}
	if len(checks) == 0 {
		return 0.5
	}

	mean, err := stats.Mean(checks)
	if err != nil {
		return 0.5
	}
	return clip(mean)
}

func agreement(a, b bool) float64 {
	if a == b {
		return 1
	}
	return 0.5
}

// riskScore is the inverse of unresolved critical gaps: each one costs a
// quarter of the dimension.
func riskScore(ctx *analysis.EnrichedContext) float64 {
	return clip(1.0 - 0.25*float64(ctx.CriticalGaps()))
}
