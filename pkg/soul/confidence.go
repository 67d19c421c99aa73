package soul

// ConfidenceCalculator scores each profile section by how many of its
// expected sub-fields were filled, clipped to [0,1].
type ConfidenceCalculator struct{}

// NewConfidenceCalculator creates a calculator.
func NewConfidenceCalculator() *ConfidenceCalculator {
	return &ConfidenceCalculator{}
}

// Calculate computes the per-section confidence of a draft profile.
func (c *ConfidenceCalculator) Calculate(draft *ProjectSoul) ConfidenceScores {
	scores := make(ConfidenceScores, 5)
	scores[SectionMetadata] = ratio(
		draft.Metadata.ProjectType != "",
		draft.Metadata.Goal != "",
		draft.Metadata.Industry != "",
		draft.Metadata.Name != "",
	)
	scores[SectionPersonality] = personalityConfidence(&draft.Personality)
	scores[SectionAudience] = ratio(
		draft.Audience.Description != "",
		draft.Audience.Demographic.AgeRange != "" || draft.Audience.Demographic.Profession != "",
		len(draft.Audience.Psychographic.Values) > 0 || len(draft.Audience.Psychographic.Traits) > 0,
	)
	scores[SectionVisual] = ratio(
		draft.Visual.Palette.Primary != "",
		draft.Visual.Palette.Mood != "",
		len(draft.Visual.StyleKeywords) > 0,
		draft.Visual.Typography.Style != "",
	)
	scores[SectionEmotional] = emotionalConfidence(&draft.Emotional)
	return scores
}

// ratio is the filled-over-expected fraction for a fixed set of checks.
func ratio(filled ...bool) float64 {
	if len(filled) == 0 {
		return 0
	}
	n := 0
	for _, ok := range filled {
		if ok {
			n++
		}
	}
	return clip(float64(n) / float64(len(filled)))
}

// personalityConfidence reflects how decisive the dimension scoring was: a
// profile with no keyword signal scores zero even though a dominant trait is
// always picked.
func personalityConfidence(p *BrandPersonality) float64 {
	if len(p.Scores) == 0 {
		return 0
	}
	best := 0.0
	sum := 0.0
	for _, v := range p.Scores {
		sum += v
		if v > best {
			best = v
		}
	}
	if best == 0 {
		return 0
	}
	// A single strong dimension is decisive; evenly spread scores are not.
	spread := sum / float64(len(p.Scores))
	return clip(best - spread/2)
}

// emotionalConfidence scales with coverage up to three mapped emotions.
func emotionalConfidence(e *EmotionalFramework) float64 {
	return clip(float64(len(e.Mappings)) / 3.0)
}

func clip(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
