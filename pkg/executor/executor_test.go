package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maestro/pkg/config"
	"maestro/pkg/decision"
	"maestro/pkg/proto"
	"maestro/pkg/soul"
)

// recordingGenerator captures what it was asked to generate.
type recordingGenerator struct {
	requests []Request
	output   string
	err      error
}

func (g *recordingGenerator) Generate(_ context.Context, req Request) (string, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return "", g.err
	}
	return g.output, nil
}

func frontendDecision() *decision.Decision {
	return &decision.Decision{
		ID:   "d1",
		Mode: proto.ModeDesignFrontend,
		Parameters: map[string]any{
			"component_type": "landing_page",
			"design_spec": map[string]any{
				"context":           "a bakery site",
				"content_structure": []string{"hero", "menu"},
			},
			"project_context":  map[string]any{"goal": "sell bread"},
			"content_language": "en",
		},
	}
}

func TestExecuteDesignFrontend(t *testing.T) {
	gen := &recordingGenerator{output: "<html>...</html>"}
	ex := New(gen)

	result, err := ex.Execute(context.Background(), frontendDecision())
	require.NoError(t, err)
	assert.Equal(t, "<html>...</html>", result.Output)
	assert.Equal(t, proto.ModeDesignFrontend, result.Mode)

	require.Len(t, gen.requests, 1)
	params, ok := gen.requests[0].Params.(DesignFrontendParams)
	require.True(t, ok)
	assert.Equal(t, "landing_page", params.ComponentType)
	assert.Equal(t, "a bakery site", params.DesignSpec.Context)
	assert.Equal(t, []string{"hero", "menu"}, params.DesignSpec.ContentStructure)
	assert.Equal(t, "en", params.ContentLanguage)
}

func TestRefineWithoutPreviousHTML(t *testing.T) {
	gen := &recordingGenerator{}
	ex := New(gen)

	d := &decision.Decision{
		ID:   "d2",
		Mode: proto.ModeRefineFrontend,
		Parameters: map[string]any{
			"modifications": "make the header sticky",
		},
	}

	_, err := ex.Execute(context.Background(), d)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingContext)
	assert.Contains(t, err.Error(), "previous_html")
	assert.Empty(t, gen.requests, "generator must not be called")
}

func TestReplaceSectionWithoutPageHTML(t *testing.T) {
	ex := New(&recordingGenerator{})

	d := &decision.Decision{
		Mode:       proto.ModeReplaceSectionInPage,
		Parameters: map[string]any{"section_type": "hero"},
	}
	_, err := ex.Execute(context.Background(), d)
	assert.ErrorIs(t, err, ErrMissingContext)
	assert.Contains(t, err.Error(), "page_html")
}

func TestDesignFromReferenceWithoutImage(t *testing.T) {
	ex := New(&recordingGenerator{})

	d := &decision.Decision{
		Mode:       proto.ModeDesignFromReference,
		Parameters: map[string]any{"instructions": "match this layout"},
	}
	_, err := ex.Execute(context.Background(), d)
	assert.ErrorIs(t, err, ErrMissingContext)
	assert.Contains(t, err.Error(), "image_path")
}

func TestRefineEmptyStringIsStillMissing(t *testing.T) {
	ex := New(&recordingGenerator{})

	d := &decision.Decision{
		Mode:       proto.ModeRefineFrontend,
		Parameters: map[string]any{"previous_html": ""},
	}
	_, err := ex.Execute(context.Background(), d)
	assert.ErrorIs(t, err, ErrMissingContext)
}

func TestReplaceSectionAdapts(t *testing.T) {
	gen := &recordingGenerator{output: "<section>new</section>"}
	ex := New(gen)

	d := &decision.Decision{
		Mode: proto.ModeReplaceSectionInPage,
		Parameters: map[string]any{
			"page_html":              "<html><section>old</section></html>",
			"section_type":           "hero",
			"modifications":          "brighter palette",
			"preserve_design_tokens": true,
			"theme":                  "light",
			"content_language":       "en",
		},
	}
	_, err := ex.Execute(context.Background(), d)
	require.NoError(t, err)

	params, ok := gen.requests[0].Params.(ReplaceSectionParams)
	require.True(t, ok)
	assert.Equal(t, "hero", params.SectionType)
	assert.True(t, params.PreserveDesignTokens)
}

func TestGeneratorFailurePropagates(t *testing.T) {
	gen := &recordingGenerator{err: errors.New("pipeline exploded")}
	ex := New(gen)

	_, err := ex.Execute(context.Background(), frontendDecision())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline exploded")
}

func TestUnknownMode(t *testing.T) {
	ex := New(&recordingGenerator{})

	_, err := ex.Execute(context.Background(), &decision.Decision{Mode: "paint_a_mural"})
	assert.Error(t, err)
}

func TestFallbackGraceful(t *testing.T) {
	cfg := config.Default()
	cfg.GracefulFallback = true
	fb := NewFallback(cfg)

	extractionErr := fmt.Errorf("%w: model timed out", soul.ErrExtractionFailed)
	assert.NoError(t, fb.OnExtractionError(extractionErr))
	assert.NoError(t, fb.OnExtractionError(nil))
}

func TestFallbackDisabledIsFatal(t *testing.T) {
	cfg := config.Default()
	cfg.GracefulFallback = false
	fb := NewFallback(cfg)

	extractionErr := fmt.Errorf("%w: model timed out", soul.ErrExtractionFailed)
	err := fb.OnExtractionError(extractionErr)
	assert.ErrorIs(t, err, ErrFallbackDisabled)
}

func TestFallbackPassesThroughOtherErrors(t *testing.T) {
	fb := NewFallback(config.Default())

	other := errors.New("disk on fire")
	assert.Same(t, other, fb.OnExtractionError(other))
}
