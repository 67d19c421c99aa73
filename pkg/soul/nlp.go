package soul

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"maestro/pkg/agent/llm"
	"maestro/pkg/logx"
	"maestro/pkg/templates"
	"maestro/pkg/utils"
)

// Entities is the raw signal set pulled from a brief, before analysis. The
// JSON shape matches what the extraction prompt asks the model for.
type Entities struct {
	ProjectName    string   `json:"project_name,omitempty"`
	ProjectType    string   `json:"project_type,omitempty"`
	Industry       string   `json:"industry,omitempty"`
	Goal           string   `json:"goal,omitempty"`
	Audience       string   `json:"audience,omitempty"`
	AudienceTraits []string `json:"audience_traits,omitempty"`
	ToneKeywords   []string `json:"tone_keywords,omitempty"`
	StyleKeywords  []string `json:"style_keywords,omitempty"`
	Colors         []string `json:"colors,omitempty"`
	Emotions       []string `json:"emotions,omitempty"`
	Constraints    []string `json:"constraints,omitempty"`
	Sections       []string `json:"sections,omitempty"`
}

// briefTokenLimit bounds how much of a brief goes into the extraction prompt.
const briefTokenLimit = 1500

var (
	hexColorPattern = regexp.MustCompile(`#(?:[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`)

	// jsonObjectPattern pulls the first JSON object out of a reply that
	// wraps it in prose or a code fence.
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

// Keyword tables for the heuristic pass. Matching is on lowercased text.
//
//nolint:gochecknoglobals // static lookup tables
var (
	// Ordered: the first matching keyword decides the project type, so more
	// specific phrases come before generic ones.
	projectTypeKeywords = []struct {
		keyword     string
		projectType string
	}{
		{"landing page", "landing_page"},
		{"landing-page", "landing_page"},
		{"portfolio", "portfolio"},
		{"online store", "ecommerce"},
		{"ecommerce", "ecommerce"},
		{"e-commerce", "ecommerce"},
		{"web app", "web_app"},
		{"webapp", "web_app"},
		{"dashboard", "web_app"},
		{"saas", "web_app"},
		{"blog", "blog"},
		{"shop", "ecommerce"},
	}

	colorNameKeywords = []string{
		"red", "orange", "yellow", "green", "teal", "blue", "navy",
		"purple", "violet", "pink", "black", "white", "gray", "grey",
		"gold", "silver", "brown", "beige", "cream",
	}

	emotionKeywords = []string{
		"trust", "calm", "excitement", "joy", "confidence", "comfort",
		"curiosity", "urgency", "warmth", "luxury", "safety", "energy",
	}

	sectionKeywords = []string{
		"hero", "features", "pricing", "testimonials", "faq", "contact",
		"about", "gallery", "team", "footer",
	}

	styleKeywordList = []string{
		"minimal", "minimalist", "clean", "bold", "playful", "elegant",
		"modern", "classic", "retro", "technical", "organic", "corporate",
		"friendly", "professional", "luxurious", "rugged", "handmade",
	}
)

// NLPExtractor pulls Entities from a brief. A cheap keyword pass always runs;
// when a model client is present its structured reply takes precedence, with
// the keyword results filling any fields it left empty.
type NLPExtractor struct {
	client   llm.Client
	renderer *templates.Renderer
	tokens   *utils.TokenCounter
	language string
	logger   *logx.Logger
}

// NewNLPExtractor creates an extractor. client may be nil for keyword-only
// extraction; tokens may be nil to fall back to character estimates.
func NewNLPExtractor(client llm.Client, renderer *templates.Renderer, tokens *utils.TokenCounter, language string) *NLPExtractor {
	return &NLPExtractor{
		client:   client,
		renderer: renderer,
		tokens:   tokens,
		language: language,
		logger:   logx.NewLogger("nlp"),
	}
}

// Extract runs both passes and merges their results. prior entities, when
// present, seed the prompt and fill fields neither pass produced.
func (e *NLPExtractor) Extract(ctx context.Context, brief string, prior *Entities) (*Entities, error) {
	heuristic := extractKeywords(brief)

	if e.client == nil {
		merged := mergeEntities(heuristic, prior)
		return merged, nil
	}

	modeled, err := e.extractWithModel(ctx, brief, prior)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("model extraction produced type=%q colors=%d emotions=%d",
		modeled.ProjectType, len(modeled.Colors), len(modeled.Emotions))

	merged := mergeEntities(modeled, heuristic)
	merged = mergeEntities(merged, prior)
	return merged, nil
}

// extractWithModel renders the extraction prompts, calls the model, and
// decodes its JSON reply, repairing it when malformed.
func (e *NLPExtractor) extractWithModel(ctx context.Context, brief string, prior *Entities) (*Entities, error) {
	data := &templates.TemplateData{
		Brief:           e.tokens.TruncateToTokenLimit(brief, briefTokenLimit),
		ContentLanguage: e.language,
		PriorEntities:   priorToMap(prior),
	}

	system, err := e.renderer.Render(templates.ExtractionSystemTemplate, data)
	if err != nil {
		return nil, err
	}
	user, err := e.renderer.Render(templates.ExtractionTemplate, data)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Complete(ctx, llm.NewCompletionRequest(
		llm.NewSystemMessage(system),
		llm.NewUserMessage(user),
	))
	if err != nil {
		return nil, fmt.Errorf("extraction completion failed: %w", err)
	}

	entities, err := decodeEntities(resp.Content)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// decodeEntities parses the model reply as an Entities JSON object. Replies
// wrapped in prose or fences are unwrapped first; malformed JSON goes through
// repair before giving up.
func decodeEntities(reply string) (*Entities, error) {
	raw := jsonObjectPattern.FindString(reply)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in extraction reply")
	}

	var entities Entities
	if err := json.Unmarshal([]byte(raw), &entities); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil, fmt.Errorf("extraction reply is not valid JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &entities); err != nil {
			return nil, fmt.Errorf("repaired extraction reply still invalid: %w", err)
		}
	}
	return &entities, nil
}

// extractKeywords is the regex and keyword pass. It never fails; an
// uninformative brief just yields sparse entities.
func extractKeywords(brief string) *Entities {
	lower := strings.ToLower(brief)
	entities := &Entities{}

	for _, entry := range projectTypeKeywords {
		if strings.Contains(lower, entry.keyword) {
			entities.ProjectType = entry.projectType
			break
		}
	}

	entities.Colors = append(entities.Colors, hexColorPattern.FindAllString(brief, -1)...)
	for _, name := range colorNameKeywords {
		if containsWord(lower, name) {
			entities.Colors = append(entities.Colors, name)
		}
	}

	for _, emotion := range emotionKeywords {
		if containsWord(lower, emotion) {
			entities.Emotions = append(entities.Emotions, emotion)
		}
	}
	for _, section := range sectionKeywords {
		if containsWord(lower, section) {
			entities.Sections = append(entities.Sections, section)
		}
	}
	for _, style := range styleKeywordList {
		if containsWord(lower, style) {
			entities.StyleKeywords = append(entities.StyleKeywords, style)
		}
	}

	return entities
}

// containsWord matches whole words only, so "red" does not fire on "tired".
func containsWord(haystack, word string) bool {
	idx := 0
	for {
		pos := strings.Index(haystack[idx:], word)
		if pos == -1 {
			return false
		}
		start := idx + pos
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(haystack[start-1])
		afterOK := end == len(haystack) || !isWordChar(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// mergeEntities fills empty fields of primary from fallback. Primary values
// always win; list fields are taken whole, not unioned.
func mergeEntities(primary, fallback *Entities) *Entities {
	if primary == nil {
		primary = &Entities{}
	}
	if fallback == nil {
		return primary
	}

	merged := *primary
	if merged.ProjectName == "" {
		merged.ProjectName = fallback.ProjectName
	}
	if merged.ProjectType == "" {
		merged.ProjectType = fallback.ProjectType
	}
	if merged.Industry == "" {
		merged.Industry = fallback.Industry
	}
	if merged.Goal == "" {
		merged.Goal = fallback.Goal
	}
	if merged.Audience == "" {
		merged.Audience = fallback.Audience
	}
	if len(merged.AudienceTraits) == 0 {
		merged.AudienceTraits = fallback.AudienceTraits
	}
	if len(merged.ToneKeywords) == 0 {
		merged.ToneKeywords = fallback.ToneKeywords
	}
	if len(merged.StyleKeywords) == 0 {
		merged.StyleKeywords = fallback.StyleKeywords
	}
	if len(merged.Colors) == 0 {
		merged.Colors = fallback.Colors
	}
	if len(merged.Emotions) == 0 {
		merged.Emotions = fallback.Emotions
	}
	if len(merged.Constraints) == 0 {
		merged.Constraints = fallback.Constraints
	}
	if len(merged.Sections) == 0 {
		merged.Sections = fallback.Sections
	}
	return &merged
}

func priorToMap(prior *Entities) map[string]string {
	if prior == nil {
		return nil
	}
	out := make(map[string]string)
	if prior.ProjectType != "" {
		out["project_type"] = prior.ProjectType
	}
	if prior.Industry != "" {
		out["industry"] = prior.Industry
	}
	if prior.Goal != "" {
		out["goal"] = prior.Goal
	}
	if prior.Audience != "" {
		out["audience"] = prior.Audience
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
