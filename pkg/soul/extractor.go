package soul

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"maestro/pkg/agent/llm"
	"maestro/pkg/config"
	"maestro/pkg/logx"
	"maestro/pkg/templates"
	"maestro/pkg/utils"
)

// ErrExtractionFailed marks a failed or timed-out extraction; the caller
// falls back to the static interview.
var ErrExtractionFailed = errors.New("soul extraction failed")

// soulCacheSize bounds how many extracted profiles stay cached.
const soulCacheSize = 128

// Extractor runs the extraction pipeline: entity extraction, personality
// analysis, confidence scoring, and gap detection. Results are cached by
// normalized brief hash; cache hits skip all stages.
type Extractor struct {
	cfg        config.Config
	nlp        *NLPExtractor
	aaker      *AakerAnalyzer
	confidence *ConfidenceCalculator
	gaps       *GapDetector
	cache      *expirable.LRU[string, *ProjectSoul]
	logger     *logx.Logger
}

// NewExtractor wires the pipeline. client may be nil for keyword-only
// extraction.
func NewExtractor(cfg config.Config, client llm.Client) (*Extractor, error) {
	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load extraction templates: %w", err)
	}
	tokens, err := utils.NewTokenCounter()
	if err != nil {
		// Token counting degrades to character estimates.
		tokens = nil
	}

	return &Extractor{
		cfg:        cfg,
		nlp:        NewNLPExtractor(client, renderer, tokens, cfg.ContentLanguage),
		aaker:      NewAakerAnalyzer(),
		confidence: NewConfidenceCalculator(),
		gaps:       NewGapDetector(),
		cache:      expirable.NewLRU[string, *ProjectSoul](soulCacheSize, nil, cfg.SoulCacheTTL),
		logger:     logx.NewLogger("soul"),
	}, nil
}

// GapDetector exposes the detector for gap-driven question ordering.
func (x *Extractor) GapDetector() *GapDetector {
	return x.gaps
}

// Extract produces the profile for a brief under the configured hard
// timeout. The result is entirely present or entirely absent: a timeout or
// stage failure publishes nothing and returns an error wrapping
// ErrExtractionFailed. The bool reports whether the profile came from the
// cache.
func (x *Extractor) Extract(ctx context.Context, brief string) (*ProjectSoul, bool, error) {
	key := briefKey(brief)
	if cached, ok := x.cache.Get(key); ok {
		x.logger.Debug("cache hit for brief %s", key[:12])
		return cached, true, nil
	}

	ctx, cancel := context.WithTimeout(ctx, x.cfg.ExtractionTimeout)
	defer cancel()

	type outcome struct {
		soul *ProjectSoul
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		soul, err := x.runPipeline(ctx, brief, key)
		done <- outcome{soul: soul, err: err}
	}()

	select {
	case <-ctx.Done():
		x.logger.Warn("extraction timed out after %s", x.cfg.ExtractionTimeout)
		return nil, false, fmt.Errorf("%w: %v", ErrExtractionFailed, ctx.Err())
	case out := <-done:
		if out.err != nil {
			x.logger.Warn("extraction failed: %v", out.err)
			return nil, false, fmt.Errorf("%w: %v", ErrExtractionFailed, out.err)
		}
		x.cache.Add(key, out.soul)
		return out.soul, false, nil
	}
}

// runPipeline executes the stages in fixed order: each depends on the
// previous stage's output.
func (x *Extractor) runPipeline(ctx context.Context, brief, key string) (*ProjectSoul, error) {
	entities, err := x.nlp.Extract(ctx, brief, nil)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	draft := x.assemble(entities)
	draft.Confidence = x.confidence.Calculate(draft)
	draft.Gaps = x.gaps.Detect(draft, draft.Confidence)
	draft.BriefHash = key
	draft.ExtractedAt = time.Now().UTC()

	x.logger.Info("extracted soul: trait=%s overall_confidence=%.2f gaps=%d",
		draft.Personality.DominantTrait, draft.Confidence.Overall(), len(draft.Gaps.Gaps))
	return draft, nil
}

// assemble builds the profile sections from raw entities.
func (x *Extractor) assemble(entities *Entities) *ProjectSoul {
	soul := &ProjectSoul{
		Metadata: ProjectMetadata{
			Name:        entities.ProjectName,
			ProjectType: entities.ProjectType,
			Industry:    entities.Industry,
			Goal:        entities.Goal,
			Language:    x.cfg.ContentLanguage,
		},
		Personality: x.aaker.Analyze(entities),
		Audience: TargetAudience{
			Description:   entities.Audience,
			Psychographic: Psychographic{Traits: entities.AudienceTraits},
		},
		Constraints: ProjectConstraints{
			Sections: entities.Sections,
			Notes:    entities.Constraints,
		},
	}

	if len(entities.Colors) > 0 {
		soul.Visual.Palette.Primary = entities.Colors[0]
		soul.Visual.Palette.Accents = entities.Colors[1:]
	}
	soul.Visual.StyleKeywords = entities.StyleKeywords
	if len(entities.ToneKeywords) > 0 {
		soul.Visual.Typography.Style = entities.ToneKeywords[0]
		soul.Visual.Typography.Formality = toneFormality(entities.ToneKeywords)
	}

	for i, emotion := range entities.Emotions {
		intensity := 1.0 - 0.2*float64(i)
		if intensity < 0.2 {
			intensity = 0.2
		}
		soul.Emotional.Mappings = append(soul.Emotional.Mappings, EmotionMapping{
			Emotion:   emotion,
			Intensity: intensity,
		})
	}

	return soul
}

// toneFormality places the tone on a 0 (casual) to 1 (formal) scale.
func toneFormality(tones []string) float64 {
	formality := 0.5
	for _, tone := range tones {
		switch strings.ToLower(tone) {
		case "formal", "professional", "corporate", "serious":
			formality += 0.2
		case "casual", "playful", "friendly", "relaxed":
			formality -= 0.2
		}
	}
	return clip(formality)
}

// briefKey hashes the normalized brief text.
func briefKey(brief string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(brief)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", sum)
}
