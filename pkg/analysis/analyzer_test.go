package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><style>
:root { --brand-primary: #1A2B3C; --spacing-md: 16px; }
body { font-family: Inter, sans-serif; background: #FFFFFF; }
h1 { color: #1a2b3c; }
</style></head>
<body>
<nav class="navbar">...</nav>
<section id="hero">...</section>
<section class="pricing-table">...</section>
<footer>...</footer>
</body>
</html>`

func TestAnalyzeEmptyInput(t *testing.T) {
	analysis := NewAnalyzer().Analyze(ContextInput{})

	assert.False(t, analysis.HasMarkup)
	assert.Empty(t, analysis.Sections)
	assert.Equal(t, ThemeUnknown, analysis.Theme)
	assert.Zero(t, analysis.Completeness)
}

func TestAnalyzeFullPage(t *testing.T) {
	analysis := NewAnalyzer().Analyze(ContextInput{PageHTML: samplePage})

	require.True(t, analysis.HasMarkup)
	assert.True(t, analysis.HasSection("hero"))
	assert.True(t, analysis.HasSection("nav"))
	assert.True(t, analysis.HasSection("pricing"))
	assert.True(t, analysis.HasSection("footer"))
	assert.False(t, analysis.HasSection("faq"))

	// Case variants of the same color collapse to one token.
	assert.Equal(t, []string{"#1A2B3C", "#FFFFFF"}, analysis.Tokens.Colors)
	assert.Contains(t, analysis.Tokens.FontFamilies, "Inter, sans-serif")
	assert.Contains(t, analysis.Tokens.CustomProps, "--brand-primary")
	assert.Contains(t, analysis.Tokens.CustomProps, "--spacing-md")

	assert.Equal(t, 1.0, analysis.Completeness)
}

func TestAnalyzePrefersPageHTML(t *testing.T) {
	analysis := NewAnalyzer().Analyze(ContextInput{
		PageHTML:     `<section id="hero"></section>`,
		PreviousHTML: `<footer></footer>`,
	})

	assert.True(t, analysis.HasSection("hero"))
	assert.False(t, analysis.HasSection("footer"))
}

func TestDetectTheme(t *testing.T) {
	assert.Equal(t, ThemeDark, detectTheme(`<body class="app dark">`, nil))
	assert.Equal(t, ThemeDark, detectTheme("", []string{"#111111"}))
	assert.Equal(t, ThemeLight, detectTheme("", []string{"#FAFAFA"}))
	assert.Equal(t, ThemeUnknown, detectTheme("<div>", nil))
}

func TestLuminance(t *testing.T) {
	assert.InDelta(t, 0.0, luminance("#000000"), 0.001)
	assert.InDelta(t, 1.0, luminance("#FFFFFF"), 0.001)
	assert.InDelta(t, 1.0, luminance("#FFF"), 0.001)
	assert.Greater(t, luminance("#00FF00"), luminance("#0000FF"), "green reads brighter than blue")
}

func TestEnrichedContextAccessors(t *testing.T) {
	empty := &EnrichedContext{}
	assert.False(t, empty.HasSoul())
	assert.False(t, empty.HasBrief())
	assert.Zero(t, empty.AnswerCount())
	assert.Zero(t, empty.CriticalGaps())
	assert.Zero(t, empty.SoulConfidence())
	assert.Zero(t, empty.ContextCompleteness())

	withBrief := &EnrichedContext{Brief: "  a brief  "}
	assert.True(t, withBrief.HasBrief())
}
