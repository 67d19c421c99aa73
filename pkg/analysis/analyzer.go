// Package analysis parses existing design artifacts into structured context
// for decision scoring. It never calls the network: everything here is regex
// and keyword work over markup the caller already holds.
package analysis

import (
	"regexp"
	"strings"

	"maestro/pkg/logx"
)

// Theme classification of existing markup.
const (
	ThemeLight   = "light"
	ThemeDark    = "dark"
	ThemeUnknown = "unknown"
)

// DesignTokens are the reusable design values found in existing markup.
type DesignTokens struct {
	Colors       []string `json:"colors,omitempty"`
	FontFamilies []string `json:"font_families,omitempty"`
	CustomProps  []string `json:"custom_props,omitempty"`
}

// ContextAnalysis is the structured description of what already exists. It is
// one of the scoring inputs: a decision about refining markup needs to know
// the markup's sections, tokens and theme.
type ContextAnalysis struct {
	HasMarkup    bool         `json:"has_markup"`
	Sections     []string     `json:"sections,omitempty"`
	Tokens       DesignTokens `json:"tokens"`
	Theme        string       `json:"theme"`
	Completeness float64      `json:"completeness"`
}

// HasSection reports whether a section type was detected in the markup.
func (a *ContextAnalysis) HasSection(sectionType string) bool {
	for _, s := range a.Sections {
		if s == sectionType {
			return true
		}
	}
	return false
}

// ContextInput carries whatever existing artifacts the session holds.
type ContextInput struct {
	PreviousHTML string
	PageHTML     string
}

var (
	hexColorRe   = regexp.MustCompile(`#(?:[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`)
	fontFamilyRe = regexp.MustCompile(`(?i)font-family\s*:\s*([^;}"']+)`)
	customPropRe = regexp.MustCompile(`--[A-Za-z][A-Za-z0-9-]*`)
	darkClassRe  = regexp.MustCompile(`(?i)class\s*=\s*"[^"]*\bdark\b`)
)

// sectionMarkers maps markup fingerprints to section types. Matching is on
// tags, ids and class names, lowercased.
//
//nolint:gochecknoglobals // static lookup table
var sectionMarkers = []struct {
	marker  string
	section string
}{
	{"hero", "hero"},
	{"<nav", "nav"},
	{"navbar", "nav"},
	{"feature", "features"},
	{"pricing", "pricing"},
	{"testimonial", "testimonials"},
	{"faq", "faq"},
	{"contact", "contact"},
	{"about", "about"},
	{"gallery", "gallery"},
	{"team", "team"},
	{"<footer", "footer"},
}

// Analyzer parses existing markup into a ContextAnalysis.
type Analyzer struct {
	logger *logx.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{logger: logx.NewLogger("analysis")}
}

// Analyze inspects whatever markup the input carries. An empty input yields a
// valid analysis with HasMarkup false and zero completeness, never an error.
func (a *Analyzer) Analyze(input ContextInput) *ContextAnalysis {
	markup := input.PageHTML
	if markup == "" {
		markup = input.PreviousHTML
	}

	analysis := &ContextAnalysis{Theme: ThemeUnknown}
	if strings.TrimSpace(markup) == "" {
		return analysis
	}
	analysis.HasMarkup = true

	lower := strings.ToLower(markup)
	for _, m := range sectionMarkers {
		if strings.Contains(lower, m.marker) && !analysis.HasSection(m.section) {
			analysis.Sections = append(analysis.Sections, m.section)
		}
	}

	analysis.Tokens = extractTokens(markup)
	analysis.Theme = detectTheme(markup, analysis.Tokens.Colors)
	analysis.Completeness = completeness(analysis)

	a.logger.Debug("analyzed markup: sections=%d colors=%d theme=%s completeness=%.2f",
		len(analysis.Sections), len(analysis.Tokens.Colors), analysis.Theme, analysis.Completeness)
	return analysis
}

// extractTokens pulls colors, font stacks and CSS custom properties out of
// the markup, deduplicated in first-seen order.
func extractTokens(markup string) DesignTokens {
	var tokens DesignTokens

	seen := make(map[string]bool)
	for _, color := range hexColorRe.FindAllString(markup, -1) {
		normalized := strings.ToUpper(color)
		if !seen[normalized] {
			seen[normalized] = true
			tokens.Colors = append(tokens.Colors, normalized)
		}
	}

	seen = make(map[string]bool)
	for _, match := range fontFamilyRe.FindAllStringSubmatch(markup, -1) {
		family := strings.TrimSpace(match[1])
		if family != "" && !seen[family] {
			seen[family] = true
			tokens.FontFamilies = append(tokens.FontFamilies, family)
		}
	}

	seen = make(map[string]bool)
	for _, prop := range customPropRe.FindAllString(markup, -1) {
		if !seen[prop] {
			seen[prop] = true
			tokens.CustomProps = append(tokens.CustomProps, prop)
		}
	}

	return tokens
}

// detectTheme classifies the markup as light or dark: an explicit dark class
// wins, otherwise the luminance of the first background-ish color decides.
func detectTheme(markup string, colors []string) string {
	if darkClassRe.MatchString(markup) {
		return ThemeDark
	}
	if len(colors) == 0 {
		return ThemeUnknown
	}
	if luminance(colors[0]) < 0.5 {
		return ThemeDark
	}
	return ThemeLight
}

// luminance is the normalized perceived brightness of a hex color.
func luminance(hex string) float64 {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0.5
	}
	r := float64(hexByte(hex[0], hex[1]))
	g := float64(hexByte(hex[2], hex[3]))
	b := float64(hexByte(hex[4], hex[5]))
	return (0.299*r + 0.587*g + 0.114*b) / 255.0
}

func hexByte(hi, lo byte) int {
	return hexNibble(hi)<<4 | hexNibble(lo)
}

func hexNibble(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return 0
	}
}

// completeness is the fraction of structural signals the markup exposed.
func completeness(a *ContextAnalysis) float64 {
	signals := []bool{
		a.HasMarkup,
		len(a.Sections) > 0,
		len(a.Tokens.Colors) > 0,
		len(a.Tokens.FontFamilies) > 0,
		a.Theme != ThemeUnknown,
	}
	n := 0
	for _, ok := range signals {
		if ok {
			n++
		}
	}
	return float64(n) / float64(len(signals))
}
