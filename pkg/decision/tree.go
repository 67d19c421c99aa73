package decision

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"maestro/pkg/analysis"
	"maestro/pkg/config"
	"maestro/pkg/logx"
	"maestro/pkg/proto"
)

// ErrNeedMoreInput signals that no candidate mode met the confidence
// threshold. Not a failure: the caller either asks another question or
// forces a degraded decision via DecideForced.
var ErrNeedMoreInput = errors.New("no mode met the confidence threshold")

// ErrNoCandidates signals that no mode rule matched the context at all.
var ErrNoCandidates = errors.New("no execution mode matches the context")

// Alternative is a candidate mode that was scored but not selected.
type Alternative struct {
	Mode       proto.ExecutionMode `json:"mode"`
	Confidence float64             `json:"confidence"`
}

// Decision is the selected execution mode with its resolved parameters,
// scores, ranked alternatives and reasoning. Immutable once produced.
type Decision struct {
	ID           string              `json:"id"`
	Mode         proto.ExecutionMode `json:"mode"`
	Parameters   map[string]any      `json:"parameters"`
	Scores       Scores              `json:"scores"`
	Confidence   float64             `json:"confidence"`
	Alternatives []Alternative       `json:"alternatives,omitempty"`
	Reasoning    string              `json:"reasoning"`
	Degraded     bool                `json:"degraded,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// candidate pairs a matched mode with its scores during selection.
type candidate struct {
	mode   proto.ExecutionMode
	scores Scores
}

// Tree scores every matching mode rule and selects deterministically.
type Tree struct {
	cfg    config.Config
	rules  []rule
	logger *logx.Logger
}

// NewTree creates the decision tree.
func NewTree(cfg config.Config) *Tree {
	return &Tree{
		cfg:    cfg,
		rules:  modeRules(),
		logger: logx.NewLogger("decision"),
	}
}

// Decide scores all matching modes and returns the winner, or
// ErrNeedMoreInput when nothing reaches the configured minimum confidence.
// ErrNoCandidates means the context carries no usable signal at all.
func (t *Tree) Decide(ctx context.Context, enriched *analysis.EnrichedContext) (*Decision, error) {
	candidates, err := t.scoreCandidates(ctx, enriched)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	best := candidates[0]
	confidence := best.scores.Aggregate()
	if confidence < t.cfg.MinConfidence {
		t.logger.Info("best candidate %s at %.2f below threshold %.2f",
			best.mode, confidence, t.cfg.MinConfidence)
		return nil, fmt.Errorf("%w: best %s at %.2f < %.2f",
			ErrNeedMoreInput, best.mode, confidence, t.cfg.MinConfidence)
	}

	return t.build(best, candidates, enriched, false), nil
}

// DecideForced returns the highest-scoring candidate regardless of the
// threshold, marked degraded. Used when the question budget is spent and the
// caller must proceed with whatever it has.
func (t *Tree) DecideForced(ctx context.Context, enriched *analysis.EnrichedContext) (*Decision, error) {
	candidates, err := t.scoreCandidates(ctx, enriched)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	best := candidates[0]
	degraded := best.scores.Aggregate() < t.cfg.MinConfidence
	return t.build(best, candidates, enriched, degraded), nil
}

// scoreCandidates runs every matching rule's scorer in parallel over the
// immutable context and returns the candidates sorted by aggregate
// confidence, ties broken by fixed mode priority. The ordering never depends
// on goroutine completion order.
func (t *Tree) scoreCandidates(ctx context.Context, enriched *analysis.EnrichedContext) ([]candidate, error) {
	var matched []rule
	for _, r := range t.rules {
		if r.matches(enriched) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}

	candidates := make([]candidate, len(matched))
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	for i, r := range matched {
		g.Go(func() error {
			scores := r.score(enriched)
			mu.Lock()
			candidates[i] = candidate{mode: r.mode, scores: scores}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ai, aj := candidates[i].scores.Aggregate(), candidates[j].scores.Aggregate()
		if ai != aj {
			return ai > aj
		}
		return proto.ModePriority(candidates[i].mode) < proto.ModePriority(candidates[j].mode)
	})
	return candidates, nil
}

// build assembles the final decision from the sorted candidates.
func (t *Tree) build(best candidate, candidates []candidate, enriched *analysis.EnrichedContext, degraded bool) *Decision {
	alternatives := make([]Alternative, 0, len(candidates)-1)
	for _, c := range candidates[1:] {
		alternatives = append(alternatives, Alternative{
			Mode:       c.mode,
			Confidence: c.scores.Aggregate(),
		})
	}

	decision := &Decision{
		ID:           uuid.New().String(),
		Mode:         best.mode,
		Parameters:   t.buildParameters(best.mode, enriched),
		Scores:       best.scores,
		Confidence:   best.scores.Aggregate(),
		Alternatives: alternatives,
		Reasoning:    reasoning(best, len(candidates), degraded),
		Degraded:     degraded,
		CreatedAt:    time.Now().UTC(),
	}

	t.logger.Info("decided mode=%s confidence=%.2f degraded=%t alternatives=%d",
		decision.Mode, decision.Confidence, degraded, len(alternatives))
	return decision
}

// buildParameters resolves the mode's declared parameters from the context.
// Structurally required artifacts that are absent stay absent here; the
// executor adapters turn that into a hard error.
func (t *Tree) buildParameters(mode proto.ExecutionMode, enriched *analysis.EnrichedContext) map[string]any {
	params := make(map[string]any)
	for _, name := range requiredParams[mode] {
		if value, ok := t.resolveParam(name, mode, enriched); ok {
			params[name] = value
		}
	}
	return params
}

func (t *Tree) resolveParam(name string, mode proto.ExecutionMode, enriched *analysis.EnrichedContext) (any, bool) {
	switch name {
	case "previous_html":
		return enriched.PreviousHTML, enriched.PreviousHTML != ""
	case "page_html":
		return enriched.PageHTML, enriched.PageHTML != ""
	case "image_path":
		return enriched.ImagePath, enriched.ImagePath != ""
	case "section_type":
		return enriched.SectionType, enriched.SectionType != ""
	case "modifications", "instructions":
		if enriched.Instructions != "" {
			return enriched.Instructions, true
		}
		return enriched.Brief, enriched.HasBrief()
	case "component_type":
		if mode == proto.ModeDesignPage {
			return "page:" + enriched.PageTemplate, enriched.PageTemplate != ""
		}
		return componentType(enriched), true
	case "design_spec":
		return map[string]any{
			"context":           enriched.Brief,
			"content_structure": contentStructure(enriched),
		}, true
	case "context":
		return enriched.Brief, true
	case "content_structure":
		return contentStructure(enriched), true
	case "project_context":
		return projectContext(enriched), true
	case "design_tokens":
		if enriched.Context == nil {
			return nil, false
		}
		return enriched.Context.Tokens, true
	case "theme":
		if enriched.Context != nil && enriched.Context.Theme != analysis.ThemeUnknown {
			return enriched.Context.Theme, true
		}
		return analysis.ThemeLight, true
	case "preserve_design_tokens":
		return true, true
	case "content_language":
		if enriched.ContentLanguage != "" {
			return enriched.ContentLanguage, true
		}
		return t.cfg.ContentLanguage, true
	default:
		return nil, false
	}
}

// componentType names the artifact being designed, from the profile when
// available.
func componentType(enriched *analysis.EnrichedContext) string {
	if enriched.HasSoul() && enriched.Soul.Metadata.ProjectType != "" {
		return enriched.Soul.Metadata.ProjectType
	}
	return "frontend"
}

// contentStructure lists the sections the result should contain.
func contentStructure(enriched *analysis.EnrichedContext) []string {
	if enriched.HasSoul() && len(enriched.Soul.Constraints.Sections) > 0 {
		return enriched.Soul.Constraints.Sections
	}
	if enriched.Context != nil && len(enriched.Context.Sections) > 0 {
		return enriched.Context.Sections
	}
	return nil
}

// projectContext flattens the collected signal into the free-form context
// block the downstream pipeline expects.
func projectContext(enriched *analysis.EnrichedContext) map[string]any {
	out := map[string]any{}
	if enriched.HasBrief() {
		out["brief"] = enriched.Brief
	}
	if enriched.HasSoul() {
		out["project_type"] = enriched.Soul.Metadata.ProjectType
		out["goal"] = enriched.Soul.Metadata.Goal
		out["dominant_trait"] = string(enriched.Soul.Personality.DominantTrait)
		if enriched.Soul.Visual.Palette.Primary != "" {
			out["primary_color"] = enriched.Soul.Visual.Palette.Primary
		}
	}
	if len(enriched.Normalized) > 0 {
		out["answers"] = enriched.Normalized
	}
	return out
}

// reasoning renders the human-readable selection rationale.
func reasoning(best candidate, total int, degraded bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Selected %s with confidence %.2f out of %d candidate mode(s). ",
		best.mode, best.scores.Aggregate(), total)
	fmt.Fprintf(&b, "Dimension scores: %s.", best.scores)
	if degraded {
		b.WriteString(" Question budget exhausted; forced below the confidence threshold.")
	}
	return b.String()
}
