package interview

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maestro/pkg/config"
	"maestro/pkg/proto"
	"maestro/pkg/question"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.SoulFlowEnabled = false
	cfg.MaxQuestions = 4
	return cfg
}

func testBank(t *testing.T) *question.Bank {
	t.Helper()
	bank, err := question.LoadBank()
	require.NoError(t, err)
	return bank
}

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
	default:
		ans.FreeText = "something concrete enough to be useful"
	}
	return ans
}

func TestEngineStartsGatheringBrief(t *testing.T) {
	e := NewEngine(testConfig(), testBank(t))
	assert.Equal(t, proto.PhaseGatheringBrief, e.Phase())
}

func TestEngineRejectsEmptyBrief(t *testing.T) {
	e := NewEngine(testConfig(), testBank(t))
	err := e.SubmitBrief("   ")
	assert.Error(t, err)
	assert.Equal(t, proto.PhaseGatheringBrief, e.Phase())
}

func TestEngineBriefRoutesBySoulFlow(t *testing.T) {
	cfg := testConfig()
	e := NewEngine(cfg, testBank(t))
	require.NoError(t, e.SubmitBrief("a landing page"))
	assert.Equal(t, proto.PhaseInterviewing, e.Phase())

	cfg.SoulFlowEnabled = true
	e = NewEngine(cfg, testBank(t))
	require.NoError(t, e.SubmitBrief("a landing page"))
	assert.Equal(t, proto.PhaseExtractingSoul, e.Phase())

	require.NoError(t, e.MarkSoulExtracted())
	assert.Equal(t, proto.PhaseInterviewing, e.Phase())
}

func TestEngineExtractionFallback(t *testing.T) {
	cfg := testConfig()
	cfg.SoulFlowEnabled = true
	e := NewEngine(cfg, testBank(t))
	require.NoError(t, e.SubmitBrief("a landing page"))
	require.NoError(t, e.MarkExtractionFailed())
	assert.Equal(t, proto.PhaseInterviewing, e.Phase())
}

func TestEngineQuestionBudget(t *testing.T) {
	cfg := testConfig()
	e := NewEngine(cfg, testBank(t))
	require.NoError(t, e.SubmitBrief("a landing page"))

	asked := 0
	for {
		q, ok := e.NextQuestion()
		if !ok {
			break
		}
		asked++
		res, err := e.SubmitAnswer(answerFor(q))
		require.NoError(t, err)
		require.True(t, res.IsValid, "question %s: %s", q.ID, res.Error)
	}

	assert.Equal(t, cfg.MaxQuestions, asked)
	assert.LessOrEqual(t, e.QuestionsAsked(), cfg.MaxQuestions)
	// Spending the budget forces the machine onward.
	assert.Equal(t, proto.PhaseAnalyzingContext, e.Phase())
}

func TestEngineInvalidAnswerDoesNotAdvance(t *testing.T) {
	e := NewEngine(testConfig(), testBank(t))
	require.NoError(t, e.SubmitBrief("a landing page"))

	q, ok := e.NextQuestion()
	require.True(t, ok)
	askedBefore := e.QuestionsAsked()

	res, err := e.SubmitAnswer(&question.Answer{
		QuestionID:      q.ID,
		SelectedOptions: []string{"definitely_not_an_option"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Empty(t, e.Answers())

	// The same question is re-asked and the budget is not charged twice.
	again, ok := e.NextQuestion()
	require.True(t, ok)
	assert.Equal(t, q.ID, again.ID)
	assert.Equal(t, askedBefore, e.QuestionsAsked())
}

func TestEngineUnknownQuestion(t *testing.T) {
	e := NewEngine(testConfig(), testBank(t))
	require.NoError(t, e.SubmitBrief("a landing page"))

	_, err := e.SubmitAnswer(&question.Answer{QuestionID: "nope"})
	assert.Error(t, err)
}

func TestEnginePriorityCategoriesComeFirst(t *testing.T) {
	e := NewEngine(testConfig(), testBank(t))
	require.NoError(t, e.SubmitBrief("a landing page"))
	e.SetPriorityCategories([]question.Category{question.CategoryColor})

	q, ok := e.NextQuestion()
	require.True(t, ok)
	assert.Equal(t, question.CategoryColor, q.Category)
}

func TestEngineFinishRequiresRequiredAnswers(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQuestions = 20
	e := NewEngine(cfg, testBank(t))
	require.NoError(t, e.SubmitBrief("a landing page"))

	err := e.FinishInterview()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	for !e.RequiredAnswered() {
		q, ok := e.NextQuestion()
		require.True(t, ok)
		res, err := e.SubmitAnswer(answerFor(q))
		require.NoError(t, err)
		require.True(t, res.IsValid)
	}
	require.NoError(t, e.FinishInterview())
	assert.Equal(t, proto.PhaseAnalyzingContext, e.Phase())
}

func TestEngineDecisionLoop(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQuestions = 20
	e := NewEngine(cfg, testBank(t))
	require.NoError(t, e.SubmitBrief("a landing page"))

	for !e.RequiredAnswered() {
		q, ok := e.NextQuestion()
		require.True(t, ok)
		res, err := e.SubmitAnswer(answerFor(q))
		require.NoError(t, err)
		require.True(t, res.IsValid)
	}
	require.NoError(t, e.FinishInterview())
	require.NoError(t, e.MarkContextAnalyzed())
	assert.Equal(t, proto.PhaseDeciding, e.Phase())

	// Low confidence sends the flow back for one more question.
	require.NoError(t, e.RequestMoreInput())
	assert.Equal(t, proto.PhaseInterviewing, e.Phase())

	q, ok := e.NextQuestion()
	require.True(t, ok)
	res, err := e.SubmitAnswer(answerFor(q))
	require.NoError(t, err)
	require.True(t, res.IsValid)

	require.NoError(t, e.FinishInterview())
	require.NoError(t, e.MarkContextAnalyzed())
	require.NoError(t, e.RecordDecision())
	assert.Equal(t, proto.PhaseComplete, e.Phase())
}

func TestEngineNormalizedAnswers(t *testing.T) {
	e := NewEngine(testConfig(), testBank(t))
	require.NoError(t, e.SubmitBrief("a landing page"))

	res, err := e.SubmitAnswer(&question.Answer{QuestionID: "brand_color", FreeText: "f00"})
	require.NoError(t, err)
	require.True(t, res.IsValid)
	assert.Equal(t, "#FF0000", e.NormalizedAnswers()["brand_color"])
	assert.Equal(t, []string{"brand_color"}, e.AskOrder())
}

func TestTrackerSnapshot(t *testing.T) {
	cfg := testConfig()
	e := NewEngine(cfg, testBank(t))
	tracker := NewTracker(e)

	snap := tracker.Snapshot()
	assert.Equal(t, proto.PhaseGatheringBrief, snap.Phase)
	assert.Equal(t, percentBrief, snap.Percent)

	require.NoError(t, e.SubmitBrief("a landing page"))
	q, ok := e.NextQuestion()
	require.True(t, ok)
	res, err := e.SubmitAnswer(answerFor(q))
	require.NoError(t, err)
	require.True(t, res.IsValid)

	snap = tracker.Snapshot()
	assert.Equal(t, proto.PhaseInterviewing, snap.Phase)
	assert.Equal(t, 1, snap.QuestionsAsked)
	assert.Equal(t, cfg.MaxQuestions, snap.MaxQuestions)
	assert.Equal(t, 1, snap.AnsweredTotal)
	assert.Greater(t, snap.Percent, percentInterviewing)
	assert.Less(t, snap.Percent, percentAnalyzing)
}
