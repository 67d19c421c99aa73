// Package soul extracts a structured project profile from a free-text brief:
// entity extraction, brand personality scoring, per-section confidence, and
// gap detection.
package soul

import (
	"time"

	"maestro/pkg/proto"
)

// Archetype is one of the five Aaker brand personality dimensions.
type Archetype string

const (
	ArchetypeSincerity      Archetype = "sincerity"
	ArchetypeExcitement     Archetype = "excitement"
	ArchetypeCompetence     Archetype = "competence"
	ArchetypeSophistication Archetype = "sophistication"
	ArchetypeRuggedness     Archetype = "ruggedness"
)

// archetypePriority breaks score ties: the earlier dimension wins.
//
//nolint:gochecknoglobals // static ordering, never mutated
var archetypePriority = []Archetype{
	ArchetypeSincerity,
	ArchetypeExcitement,
	ArchetypeCompetence,
	ArchetypeSophistication,
	ArchetypeRuggedness,
}

// Section names one scored area of the soul profile.
type Section string

const (
	SectionMetadata    Section = "metadata"
	SectionPersonality Section = "personality"
	SectionAudience    Section = "audience"
	SectionVisual      Section = "visual"
	SectionEmotional   Section = "emotional"
)

// AllSections lists the scored sections in profile order.
func AllSections() []Section {
	return []Section{
		SectionMetadata,
		SectionPersonality,
		SectionAudience,
		SectionVisual,
		SectionEmotional,
	}
}

// ProjectMetadata identifies what is being built and why.
type ProjectMetadata struct {
	Name        string `json:"name,omitempty"`
	ProjectType string `json:"project_type,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Goal        string `json:"goal,omitempty"`
	Language    string `json:"language,omitempty"`
}

// BrandPersonality holds the five Aaker dimension scores and the dominant
// trait.
type BrandPersonality struct {
	Scores        map[Archetype]float64 `json:"scores"`
	DominantTrait Archetype             `json:"dominant_trait"`
}

// Demographic describes who the audience is.
type Demographic struct {
	AgeRange   string `json:"age_range,omitempty"`
	Profession string `json:"profession,omitempty"`
}

// Psychographic describes what the audience values.
type Psychographic struct {
	Values []string `json:"values,omitempty"`
	Traits []string `json:"traits,omitempty"`
}

// TargetAudience aggregates the audience profile.
type TargetAudience struct {
	Description   string        `json:"description,omitempty"`
	Demographic   Demographic   `json:"demographic"`
	Psychographic Psychographic `json:"psychographic"`
}

// ColorPalette holds the extracted color direction.
type ColorPalette struct {
	Primary string   `json:"primary,omitempty"`
	Accents []string `json:"accents,omitempty"`
	Mood    string   `json:"mood,omitempty"`
}

// TypographyStyle holds the extracted typographic direction.
type TypographyStyle struct {
	Style     string  `json:"style,omitempty"`
	Formality float64 `json:"formality,omitempty"`
}

// VisualLanguage aggregates the visual direction.
type VisualLanguage struct {
	Palette       ColorPalette    `json:"palette"`
	Typography    TypographyStyle `json:"typography"`
	StyleKeywords []string        `json:"style_keywords,omitempty"`
}

// EmotionMapping is one feeling the design should evoke, with intensity 0-1.
type EmotionMapping struct {
	Emotion   string  `json:"emotion"`
	Intensity float64 `json:"intensity"`
}

// EmotionalFramework is the set of emotions the design targets.
type EmotionalFramework struct {
	Mappings []EmotionMapping `json:"mappings,omitempty"`
}

// ProjectConstraints carries hard requirements extracted from the brief.
type ProjectConstraints struct {
	Sections []string `json:"sections,omitempty"`
	Notes    []string `json:"notes,omitempty"`
}

// GapInfo is one detected missing or low-confidence piece of information.
type GapInfo struct {
	Category    Section           `json:"category"`
	Field       string            `json:"field"`
	Severity    proto.GapSeverity `json:"severity"`
	Description string            `json:"description"`
}

// GapAnalysis is the full set of detected gaps.
type GapAnalysis struct {
	Gaps []GapInfo `json:"gaps,omitempty"`
}

// CriticalCount returns how many gaps are critical.
func (g *GapAnalysis) CriticalCount() int {
	n := 0
	for i := range g.Gaps {
		if g.Gaps[i].Severity == proto.SeverityCritical {
			n++
		}
	}
	return n
}

// AtLeast returns the gaps at or above the given severity.
func (g *GapAnalysis) AtLeast(threshold proto.GapSeverity) []GapInfo {
	var out []GapInfo
	for i := range g.Gaps {
		if g.Gaps[i].Severity.AtLeast(threshold) {
			out = append(out, g.Gaps[i])
		}
	}
	return out
}

// ConfidenceScores maps each section to a confidence in [0,1].
type ConfidenceScores map[Section]float64

// Overall returns the mean section confidence.
func (c ConfidenceScores) Overall() float64 {
	if len(c) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range c {
		sum += v
	}
	return sum / float64(len(c))
}

// ProjectSoul is the immutable profile extracted from one brief.
type ProjectSoul struct {
	Metadata    ProjectMetadata    `json:"metadata"`
	Personality BrandPersonality   `json:"personality"`
	Audience    TargetAudience     `json:"audience"`
	Visual      VisualLanguage     `json:"visual"`
	Emotional   EmotionalFramework `json:"emotional"`
	Constraints ProjectConstraints `json:"constraints"`
	Gaps        GapAnalysis        `json:"gaps"`
	Confidence  ConfidenceScores   `json:"confidence"`
	BriefHash   string             `json:"brief_hash"`
	ExtractedAt time.Time          `json:"extracted_at"`
}
