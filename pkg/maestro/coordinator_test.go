package maestro

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maestro/pkg/agent"
	"maestro/pkg/agent/llm"
	"maestro/pkg/config"
	"maestro/pkg/executor"
	"maestro/pkg/metrics"
	"maestro/pkg/proto"
	"maestro/pkg/question"
	"maestro/pkg/session"
)

const entityJSON = `{
	"project_type": "landing_page",
	"goal": "sell handmade coffee gear",
	"audience": "home brewing enthusiasts",
	"tone_keywords": ["warm", "honest"],
	"style_keywords": ["handmade", "organic"],
	"colors": ["#6F4E37"],
	"emotions": ["warmth", "trust"],
	"sections": ["hero", "features", "pricing"]
}`

const richBrief = "A warm landing page for a small workshop selling handmade " +
	"coffee gear to home brewing enthusiasts, with a hero, a feature grid and " +
	"a pricing table, in earthy browns."

// stubGenerator returns fixed output.
type stubGenerator struct {
	calls int
	err   error
}

func (g *stubGenerator) Generate(_ context.Context, _ executor.Request) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return "<html>generated</html>", nil
}

func newCoordinator(t *testing.T, cfg config.Config, client llm.Client) (*Coordinator, *stubGenerator) {
	t.Helper()
	gen := &stubGenerator{}
	c, err := New(cfg, Deps{Client: client, Generator: gen})
	require.NoError(t, err)
	return c, gen
}

// answerFor builds a passing answer for any bank question.
func answerFor(q *question.Question) *question.Answer {
	ans := &question.Answer{QuestionID: q.ID}
	switch q.Type {
	case question.TypeSingleChoice:
		ans.SelectedOptions = []string{q.Options[0].ID}
	case question.TypeMultiChoice:
		ans.SelectedOptions = []string{q.Options[0].ID}
	case question.TypeSlider:
		ans.FreeText = "5"
	case question.TypeColor:
		ans.FreeText = "#336699"
	case question.TypeFreeText:
		ans.FreeText = "something concrete and descriptive"
	}
	return ans
}

func driveInterview(t *testing.T, c *Coordinator, id string) {
	t.Helper()
	for {
		q, ok, err := c.NextQuestion(id)
		require.NoError(t, err)
		if !ok {
			return
		}
		result, err := c.SubmitAnswer(id, answerFor(q))
		require.NoError(t, err)
		require.True(t, result.IsValid, "answer for %s: %s", q.ID, result.Error)
	}
}

func TestFullSessionFlow(t *testing.T) {
	cfg := config.Default()
	cfg.ExtractionTimeout = 2 * time.Second
	client := agent.NewMockClientWithContent(entityJSON)
	c, gen := newCoordinator(t, cfg, client)

	id, err := c.StartSession()
	require.NoError(t, err)

	require.NoError(t, c.SubmitBrief(context.Background(), id, richBrief))

	s, err := c.Sessions().Get(id)
	require.NoError(t, err)
	require.NotNil(t, s.Soul(), "extraction should have produced a profile")
	assert.Equal(t, proto.PhaseInterviewing, s.Engine().Phase())

	driveInterview(t, c, id)

	d, err := c.Decide(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, proto.ModeDesignFrontend, d.Mode)
	assert.Equal(t, proto.PhaseComplete, s.Engine().Phase())

	result, err := c.Execute(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "<html>generated</html>", result.Output)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, proto.SessionComplete, s.Status())
}

func TestExtractionFailureFallsBackToStaticFlow(t *testing.T) {
	cfg := config.Default()
	cfg.GracefulFallback = true
	client := agent.NewMockClientWithContent("not json at all")
	c, _ := newCoordinator(t, cfg, client)

	id, err := c.StartSession()
	require.NoError(t, err)
	require.NoError(t, c.SubmitBrief(context.Background(), id, richBrief))

	s, err := c.Sessions().Get(id)
	require.NoError(t, err)
	assert.Nil(t, s.Soul())
	assert.Equal(t, proto.PhaseInterviewing, s.Engine().Phase())
}

func TestExtractionFailureFatalWhenFallbackDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.GracefulFallback = false
	client := agent.NewMockClientWithContent("not json at all")
	c, _ := newCoordinator(t, cfg, client)

	id, err := c.StartSession()
	require.NoError(t, err)
	s, err := c.Sessions().Get(id)
	require.NoError(t, err)

	err = c.SubmitBrief(context.Background(), id, richBrief)
	require.Error(t, err)
	assert.ErrorIs(t, err, executor.ErrFallbackDisabled)

	assert.Equal(t, proto.SessionFailed, s.Status())
	assert.Equal(t, proto.PhaseFailed, s.Engine().Phase())

	// The lazy sweep reclaims the failed session on the next lookup.
	_, err = c.Sessions().Get(id)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSoulFlowDisabledSkipsExtraction(t *testing.T) {
	cfg := config.Default()
	cfg.SoulFlowEnabled = false
	client := agent.NewMockClient(nil, nil) // would error if called
	c, _ := newCoordinator(t, cfg, client)

	id, err := c.StartSession()
	require.NoError(t, err)
	require.NoError(t, c.SubmitBrief(context.Background(), id, richBrief))

	assert.Equal(t, 0, client.Calls())
	s, err := c.Sessions().Get(id)
	require.NoError(t, err)
	assert.Equal(t, proto.PhaseInterviewing, s.Engine().Phase())
}

func TestInvalidAnswerDoesNotAdvance(t *testing.T) {
	cfg := config.Default()
	cfg.SoulFlowEnabled = false
	c, _ := newCoordinator(t, cfg, agent.NewMockClient(nil, nil))

	id, err := c.StartSession()
	require.NoError(t, err)
	require.NoError(t, c.SubmitBrief(context.Background(), id, richBrief))

	q, ok, err := c.NextQuestion(id)
	require.NoError(t, err)
	require.True(t, ok)

	result, err := c.SubmitAnswer(id, &question.Answer{QuestionID: q.ID})
	require.NoError(t, err)
	assert.False(t, result.IsValid)

	again, ok, err := c.NextQuestion(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, q.ID, again.ID, "same question re-asked after invalid answer")
}

func TestRefineFlowUsesArtifacts(t *testing.T) {
	cfg := config.Default()
	cfg.ExtractionTimeout = 2 * time.Second
	client := agent.NewMockClientWithContent(entityJSON)
	c, gen := newCoordinator(t, cfg, client)

	id, err := c.StartSession()
	require.NoError(t, err)
	require.NoError(t, c.SubmitBrief(context.Background(), id, richBrief))
	require.NoError(t, c.SetArtifacts(id, session.Artifacts{
		PreviousHTML: `<html><section id="hero" style="color:#6F4E37">old</section></html>`,
		Instructions: "tighten the hero copy",
	}))

	driveInterview(t, c, id)

	d, err := c.Decide(context.Background(), id)
	require.NoError(t, err)

	// refine_frontend is a scored candidate whenever previous markup exists.
	found := d.Mode == proto.ModeRefineFrontend
	for _, alt := range d.Alternatives {
		if alt.Mode == proto.ModeRefineFrontend {
			found = true
		}
	}
	assert.True(t, found)

	_, err = c.Execute(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
}

func TestExecuteWithoutDecision(t *testing.T) {
	c, _ := newCoordinator(t, config.Default(), agent.NewMockClientWithContent(entityJSON))

	id, err := c.StartSession()
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), id)
	assert.Error(t, err)
}

func TestUnknownSessionOperations(t *testing.T) {
	c, _ := newCoordinator(t, config.Default(), agent.NewMockClientWithContent(entityJSON))

	require.ErrorIs(t, c.SubmitBrief(context.Background(), "nope", "brief"), session.ErrNotFound)
	_, _, err := c.NextQuestion("nope")
	require.ErrorIs(t, err, session.ErrNotFound)
	_, err = c.Decide(context.Background(), "nope")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestAbandonRemovesSession(t *testing.T) {
	c, _ := newCoordinator(t, config.Default(), agent.NewMockClientWithContent(entityJSON))

	id, err := c.StartSession()
	require.NoError(t, err)
	require.NoError(t, c.Abandon(id))

	_, err = c.Sessions().Get(id)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestProgressSnapshot(t *testing.T) {
	cfg := config.Default()
	cfg.SoulFlowEnabled = false
	c, _ := newCoordinator(t, cfg, agent.NewMockClient(nil, nil))

	id, err := c.StartSession()
	require.NoError(t, err)

	p, err := c.Progress(id)
	require.NoError(t, err)
	assert.Equal(t, proto.PhaseGatheringBrief, p.Phase)

	require.NoError(t, c.SubmitBrief(context.Background(), id, richBrief))
	p, err = c.Progress(id)
	require.NoError(t, err)
	assert.Equal(t, proto.PhaseInterviewing, p.Phase)
	assert.Greater(t, p.Percent, 0.0)
}

func TestRejectedDecisionIsNotStoredOrExecuted(t *testing.T) {
	cfg := config.Default()
	cfg.SoulFlowEnabled = false
	cfg.AutoApplyDefaults = false
	cfg.MaxQuestions = 1
	c, gen := newCoordinator(t, cfg, agent.NewMockClient(nil, nil))

	id, err := c.StartSession()
	require.NoError(t, err)
	s, err := c.Sessions().Get(id)
	require.NoError(t, err)
	require.NoError(t, c.SubmitBrief(context.Background(), id, "make it nice"))

	// One answered question exhausts the budget with required questions
	// still open, so the machine must reject the decision.
	q, ok, err := c.NextQuestion(id)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = c.SubmitAnswer(id, answerFor(q))
	require.NoError(t, err)

	_, err = c.Decide(context.Background(), id)
	require.Error(t, err)
	assert.Nil(t, s.Decision())
	assert.Equal(t, proto.PhaseDeciding, s.Engine().Phase())

	_, err = c.Execute(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, 0, gen.calls)
	assert.NotEqual(t, proto.SessionComplete, s.Status())
}

func TestExtractionMetricsDistinguishCacheHits(t *testing.T) {
	cfg := config.Default()
	cfg.ExtractionTimeout = 2 * time.Second
	rec := metrics.NewRecorder(prometheus.NewRegistry())
	c, err := New(cfg, Deps{
		Client:    agent.NewMockClientWithContent(entityJSON),
		Generator: &stubGenerator{},
		Recorder:  rec,
	})
	require.NoError(t, err)

	for range 2 {
		id, startErr := c.StartSession()
		require.NoError(t, startErr)
		require.NoError(t, c.SubmitBrief(context.Background(), id, richBrief))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.SessionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.Extractions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.Extractions.WithLabelValues("cached")))
}

func TestNeedMoreInputReentersInterview(t *testing.T) {
	cfg := config.Default()
	cfg.SoulFlowEnabled = false
	cfg.AutoApplyDefaults = true
	cfg.MinConfidence = 0.99 // unreachable: every decision pass wants more
	cfg.MaxQuestions = 3
	c, _ := newCoordinator(t, cfg, agent.NewMockClient(nil, nil))

	id, err := c.StartSession()
	require.NoError(t, err)
	require.NoError(t, c.SubmitBrief(context.Background(), id, "make it nice"))

	s, err := c.Sessions().Get(id)
	require.NoError(t, err)

	for range cfg.MaxQuestions {
		q, ok, nqErr := c.NextQuestion(id)
		require.NoError(t, nqErr)
		require.True(t, ok)
		_, saErr := c.SubmitAnswer(id, answerFor(q))
		require.NoError(t, saErr)
	}
	// Budget spent: the machine forced its way to analysis.
	require.Equal(t, proto.PhaseAnalyzingContext, s.Engine().Phase())

	// Threshold unreachable and no budget left: forced degraded decision.
	d, err := c.Decide(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.True(t, d.Degraded)
	assert.Less(t, d.Confidence, cfg.MinConfidence)

	assert.False(t, errors.Is(err, ErrNeedMoreInput))
}
