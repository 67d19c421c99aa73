package soul

import (
	"fmt"

	"maestro/pkg/proto"
	"maestro/pkg/question"
)

// fieldCheck is one expected profile field with its criticality and
// confidence floor. A gap is emitted when the field is unfilled or its
// section confidence sits below the floor.
type fieldCheck struct {
	section     Section
	field       string
	criticality proto.GapSeverity
	floor       float64
	filled      func(*ProjectSoul) bool
}

// expectedFields is the fixed gap detection table.
//
//nolint:gochecknoglobals // static table, never mutated
var expectedFields = []fieldCheck{
	{SectionMetadata, "project_type", proto.SeverityCritical, 0.5,
		func(s *ProjectSoul) bool { return s.Metadata.ProjectType != "" }},
	{SectionMetadata, "goal", proto.SeverityHigh, 0.5,
		func(s *ProjectSoul) bool { return s.Metadata.Goal != "" }},
	{SectionMetadata, "industry", proto.SeverityLow, 0.4,
		func(s *ProjectSoul) bool { return s.Metadata.Industry != "" }},
	{SectionAudience, "description", proto.SeverityHigh, 0.5,
		func(s *ProjectSoul) bool { return s.Audience.Description != "" }},
	{SectionAudience, "demographic", proto.SeverityMedium, 0.4,
		func(s *ProjectSoul) bool {
			return s.Audience.Demographic.AgeRange != "" || s.Audience.Demographic.Profession != ""
		}},
	{SectionPersonality, "dominant_trait", proto.SeverityMedium, 0.4,
		func(s *ProjectSoul) bool {
			return s.Personality.Scores[s.Personality.DominantTrait] > 0
		}},
	{SectionVisual, "primary_color", proto.SeverityMedium, 0.4,
		func(s *ProjectSoul) bool { return s.Visual.Palette.Primary != "" }},
	{SectionVisual, "style_keywords", proto.SeverityMedium, 0.4,
		func(s *ProjectSoul) bool { return len(s.Visual.StyleKeywords) > 0 }},
	{SectionEmotional, "emotions", proto.SeverityLow, 0.3,
		func(s *ProjectSoul) bool { return len(s.Emotional.Mappings) > 0 }},
}

// gapQuestionCategories maps a gap's section to the interview category that
// can close it.
//
//nolint:gochecknoglobals // static table, never mutated
var gapQuestionCategories = map[Section]question.Category{
	SectionMetadata:    question.CategoryProject,
	SectionPersonality: question.CategoryStyle,
	SectionAudience:    question.CategoryAudience,
	SectionVisual:      question.CategoryColor,
	SectionEmotional:   question.CategoryStyle,
}

// GapDetector finds missing or low-confidence profile fields.
type GapDetector struct{}

// NewGapDetector creates a detector.
func NewGapDetector() *GapDetector {
	return &GapDetector{}
}

// Detect walks the expected-field table. Severity comes from the field's
// criticality, softened one step when the field is present but its section
// confidence is merely below the floor.
func (d *GapDetector) Detect(draft *ProjectSoul, confidence ConfidenceScores) GapAnalysis {
	var analysis GapAnalysis
	for i := range expectedFields {
		check := &expectedFields[i]
		filled := check.filled(draft)
		sectionConfidence := confidence[check.section]

		if filled && sectionConfidence >= check.floor {
			continue
		}

		severity := check.criticality
		if filled {
			severity = soften(severity)
		}
		analysis.Gaps = append(analysis.Gaps, GapInfo{
			Category:    check.section,
			Field:       check.field,
			Severity:    severity,
			Description: gapDescription(check, filled, sectionConfidence),
		})
	}
	return analysis
}

// QuestionCategories returns the interview categories that can close the
// given gaps, most severe first, without duplicates.
func (d *GapDetector) QuestionCategories(gaps []GapInfo) []question.Category {
	ordered := make([]GapInfo, len(gaps))
	copy(ordered, gaps)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].Severity.Rank() < ordered[j-1].Severity.Rank(); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	seen := make(map[question.Category]bool)
	var categories []question.Category
	for i := range ordered {
		cat, ok := gapQuestionCategories[ordered[i].Category]
		if !ok || seen[cat] {
			continue
		}
		seen[cat] = true
		categories = append(categories, cat)
	}
	return categories
}

// soften steps a severity one rank down. Critical stays critical only for
// truly missing fields; a filled-but-uncertain field is high at worst.
func soften(s proto.GapSeverity) proto.GapSeverity {
	switch s {
	case proto.SeverityCritical:
		return proto.SeverityHigh
	case proto.SeverityHigh:
		return proto.SeverityMedium
	default:
		return proto.SeverityLow
	}
}

func gapDescription(check *fieldCheck, filled bool, confidence float64) string {
	if !filled {
		return fmt.Sprintf("%s.%s is missing from the brief", check.section, check.field)
	}
	return fmt.Sprintf("%s.%s has low confidence (%.2f < %.2f)",
		check.section, check.field, confidence, check.floor)
}
