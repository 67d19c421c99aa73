package soul

import "strings"

// Keyword affinities per Aaker dimension. A keyword may contribute to more
// than one dimension.
//
//nolint:gochecknoglobals // static lookup table
var archetypeKeywords = map[Archetype][]string{
	ArchetypeSincerity: {
		"honest", "friendly", "warm", "wholesome", "genuine", "authentic",
		"trust", "caring", "family", "community", "down-to-earth", "cheerful",
	},
	ArchetypeExcitement: {
		"bold", "daring", "playful", "energetic", "vibrant", "exciting",
		"imaginative", "trendy", "young", "spirited", "urgent", "dynamic",
	},
	ArchetypeCompetence: {
		"reliable", "professional", "technical", "efficient", "secure",
		"intelligent", "corporate", "successful", "precise", "confident",
		"dashboard", "saas", "enterprise",
	},
	ArchetypeSophistication: {
		"elegant", "luxurious", "luxury", "premium", "refined", "glamorous",
		"charming", "exclusive", "classic", "minimal", "minimalist",
	},
	ArchetypeRuggedness: {
		"rugged", "outdoor", "tough", "strong", "handmade", "raw",
		"adventure", "organic", "industrial", "earthy",
	},
}

// AakerAnalyzer scores the five brand personality dimensions from extracted
// entities.
type AakerAnalyzer struct{}

// NewAakerAnalyzer creates an analyzer.
func NewAakerAnalyzer() *AakerAnalyzer {
	return &AakerAnalyzer{}
}

// Analyze scores each dimension by keyword affinity over the entity signal
// and normalizes to [0,1]. The dominant trait is the maximum score; ties are
// broken by the fixed dimension ordering, never by map iteration.
func (a *AakerAnalyzer) Analyze(entities *Entities) BrandPersonality {
	signal := collectSignal(entities)

	scores := make(map[Archetype]float64, len(archetypePriority))
	maxHits := 0
	hits := make(map[Archetype]int, len(archetypePriority))
	for _, arch := range archetypePriority {
		n := 0
		for _, keyword := range archetypeKeywords[arch] {
			if _, ok := signal[keyword]; ok {
				n++
			}
		}
		hits[arch] = n
		if n > maxHits {
			maxHits = n
		}
	}

	// Normalize against the strongest dimension so one clear signal still
	// yields a full-strength dominant trait.
	for _, arch := range archetypePriority {
		if maxHits == 0 {
			scores[arch] = 0
			continue
		}
		scores[arch] = float64(hits[arch]) / float64(maxHits)
	}

	dominant := archetypePriority[0]
	best := -1.0
	for _, arch := range archetypePriority {
		if scores[arch] > best {
			best = scores[arch]
			dominant = arch
		}
	}

	return BrandPersonality{Scores: scores, DominantTrait: dominant}
}

// collectSignal flattens the entity fields into a lowercase keyword set.
func collectSignal(entities *Entities) map[string]struct{} {
	signal := make(map[string]struct{})
	add := func(values ...string) {
		for _, v := range values {
			for _, word := range strings.Fields(strings.ToLower(v)) {
				signal[strings.Trim(word, ".,;:!?")] = struct{}{}
			}
		}
	}

	add(entities.ToneKeywords...)
	add(entities.StyleKeywords...)
	add(entities.Emotions...)
	add(entities.AudienceTraits...)
	add(entities.ProjectType, entities.Industry, entities.Goal, entities.Audience)
	return signal
}
