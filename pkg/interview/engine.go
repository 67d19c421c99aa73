package interview

import (
	"fmt"
	"strings"
	"sync"

	"maestro/pkg/config"
	"maestro/pkg/logx"
	"maestro/pkg/proto"
	"maestro/pkg/question"
)

// Engine drives one session's interview: it issues questions from the bank,
// validates answers, and fires phase transitions on the machine. All mutation
// of interview state goes through the engine.
type Engine struct {
	mu      sync.Mutex
	cfg     config.Config
	bank    *question.Bank
	machine *Machine
	logger  *logx.Logger

	brief          string
	answers        map[string]*question.Answer
	normalized     map[string]any
	askOrder       []string
	issued         map[string]bool
	questionsAsked int

	// Gap-driven category ordering, set after soul extraction. Categories
	// listed here are asked before the default bank walk.
	priority []question.Category

	soulReady    bool
	contextReady bool
	hasDecision  bool
	criticalGaps int
}

// defaultCategoryOrder is the v1 walk over the bank when no gap priorities
// are set.
//
//nolint:gochecknoglobals // static ordering, never mutated
var defaultCategoryOrder = []question.Category{
	question.CategoryProject,
	question.CategoryAudience,
	question.CategoryStyle,
	question.CategoryColor,
	question.CategoryContent,
}

// NewEngine creates an engine for a fresh session. The machine starts in the
// brief-gathering phase.
func NewEngine(cfg config.Config, bank *question.Bank) *Engine {
	e := &Engine{
		cfg:        cfg,
		bank:       bank,
		machine:    NewMachine(),
		logger:     logx.NewLogger("interview-engine"),
		answers:    make(map[string]*question.Answer),
		normalized: make(map[string]any),
		issued:     make(map[string]bool),
	}
	e.machine.Fire(proto.TriggerStart, &Snapshot{})
	return e
}

// Phase returns the current interview phase.
func (e *Engine) Phase() proto.Phase {
	return e.machine.Current()
}

// Machine exposes the underlying phase machine for observers.
func (e *Engine) Machine() *Machine {
	return e.machine
}

// Brief returns the submitted brief text.
func (e *Engine) Brief() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.brief
}

// SubmitBrief records the brief and advances out of the gathering phase. With
// the soul flow enabled the next phase is extraction; otherwise the static
// interview starts immediately.
func (e *Engine) SubmitBrief(brief string) error {
	brief = strings.TrimSpace(brief)
	if brief == "" {
		return fmt.Errorf("brief must not be empty")
	}

	e.mu.Lock()
	e.brief = brief
	snap := e.snapshotLocked()
	e.mu.Unlock()

	return e.fire(proto.TriggerBriefSubmitted, snap)
}

// MarkSoulExtracted advances from extraction to interviewing after a
// successful soul extraction.
func (e *Engine) MarkSoulExtracted() error {
	e.mu.Lock()
	e.soulReady = true
	snap := e.snapshotLocked()
	e.mu.Unlock()
	return e.fire(proto.TriggerSoulExtracted, snap)
}

// MarkExtractionFailed falls back to the static interview after a failed or
// timed-out extraction.
func (e *Engine) MarkExtractionFailed() error {
	e.mu.Lock()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	return e.fire(proto.TriggerExtractionFailed, snap)
}

// SetPriorityCategories orders the given categories ahead of the default bank
// walk. Used to ask gap-driven questions first.
func (e *Engine) SetPriorityCategories(cats []question.Category) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.priority = append([]question.Category{}, cats...)
}

// SetCriticalGaps records the number of unresolved critical gaps, which can
// block completion when configured.
func (e *Engine) SetCriticalGaps(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.criticalGaps = n
}

// NextQuestion returns the next unanswered question, or false when the
// interview should stop asking: every question is answered or the question
// budget is spent. Issuing a question counts against the budget once;
// re-issuing the same question after a failed validation is free.
func (e *Engine) NextQuestion() (*question.Question, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.machine.Current() != proto.PhaseInterviewing {
		return nil, false
	}
	if e.questionsAsked >= e.cfg.MaxQuestions {
		return nil, false
	}

	q := e.pickLocked()
	if q == nil {
		return nil, false
	}
	if !e.issued[q.ID] {
		e.issued[q.ID] = true
		e.questionsAsked++
	}
	return q, true
}

// pickLocked walks priority categories first, then the default order, and
// returns the first unanswered question. Caller holds the lock.
func (e *Engine) pickLocked() *question.Question {
	seen := make(map[question.Category]bool, len(e.priority))
	order := make([]question.Category, 0, len(e.priority)+len(defaultCategoryOrder))
	for _, cat := range e.priority {
		if !seen[cat] {
			seen[cat] = true
			order = append(order, cat)
		}
	}
	for _, cat := range defaultCategoryOrder {
		if !seen[cat] {
			seen[cat] = true
			order = append(order, cat)
		}
	}

	for _, cat := range order {
		for _, q := range e.bank.ByCategory(cat) {
			if _, answered := e.answers[q.ID]; !answered {
				return q
			}
		}
	}
	return nil
}

// SubmitAnswer validates an answer against its question. An invalid answer
// leaves all state untouched so the same question can be re-asked with the
// error message. A valid answer is recorded with its normalized value; when
// it spends the last of the question budget the machine is forced toward the
// analysis phase.
func (e *Engine) SubmitAnswer(ans *question.Answer) (question.ValidationResult, error) {
	q, ok := e.bank.Get(ans.QuestionID)
	if !ok {
		return question.ValidationResult{}, fmt.Errorf("unknown question %q", ans.QuestionID)
	}

	validator, err := question.ValidatorFor(q.Type)
	if err != nil {
		return question.ValidationResult{}, err
	}
	result := validator.Validate(ans, q)
	if !result.IsValid {
		e.logger.Debug("answer rejected for %s: %s", q.ID, result.Error)
		return result, nil
	}

	e.mu.Lock()
	e.answers[q.ID] = ans
	e.normalized[q.ID] = result.NormalizedValue
	if !contains(e.askOrder, q.ID) {
		e.askOrder = append(e.askOrder, q.ID)
	}
	snap := e.snapshotLocked()
	budgetSpent := e.questionsAsked >= e.cfg.MaxQuestions
	e.mu.Unlock()

	if err := e.fire(proto.TriggerAnswerAccepted, snap); err != nil {
		return result, err
	}
	if budgetSpent {
		if err := e.fire(proto.TriggerMaxQuestionsReached, snap); err != nil {
			return result, err
		}
	}
	return result, nil
}

// FinishInterview moves to context analysis before the budget is spent, when
// the caller judges the gathered signal sufficient.
func (e *Engine) FinishInterview() error {
	e.mu.Lock()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	return e.fire(proto.TriggerConfidenceThresholdMet, snap)
}

// MarkContextAnalyzed advances to deciding.
func (e *Engine) MarkContextAnalyzed() error {
	e.mu.Lock()
	e.contextReady = true
	snap := e.snapshotLocked()
	e.mu.Unlock()
	return e.fire(proto.TriggerContextAnalyzed, snap)
}

// RequestMoreInput re-enters the interview from deciding; rejected when the
// question budget is already spent.
func (e *Engine) RequestMoreInput() error {
	e.mu.Lock()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	return e.fire(proto.TriggerNeedMoreInput, snap)
}

// RecordDecision marks the decision produced and completes the session.
// A rejected transition leaves the engine with no decision recorded.
func (e *Engine) RecordDecision() error {
	e.mu.Lock()
	e.hasDecision = true
	snap := e.snapshotLocked()
	e.mu.Unlock()
	if err := e.fire(proto.TriggerDecisionMade, snap); err != nil {
		e.mu.Lock()
		e.hasDecision = false
		e.mu.Unlock()
		return err
	}
	return nil
}

// Abandon moves the session to its abandoned terminal phase.
func (e *Engine) Abandon() error {
	return e.fire(proto.TriggerAbandon, &Snapshot{})
}

// Fail moves the session to its failed terminal phase.
func (e *Engine) Fail() error {
	return e.fire(proto.TriggerFail, &Snapshot{})
}

// Answers returns a copy of the recorded answers keyed by question ID.
func (e *Engine) Answers() map[string]*question.Answer {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]*question.Answer, len(e.answers))
	for id, ans := range e.answers {
		out[id] = ans
	}
	return out
}

// NormalizedAnswers returns a copy of the normalized answer values keyed by
// question ID.
func (e *Engine) NormalizedAnswers() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]any, len(e.normalized))
	for id, v := range e.normalized {
		out[id] = v
	}
	return out
}

// AskOrder returns question IDs in the order their answers were accepted.
func (e *Engine) AskOrder() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string{}, e.askOrder...)
}

// QuestionsAsked returns how much of the question budget is spent.
func (e *Engine) QuestionsAsked() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.questionsAsked
}

// RequiredAnswered reports whether every required question in the bank has an
// accepted answer.
func (e *Engine) RequiredAnswered() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requiredAnsweredLocked()
}

func (e *Engine) requiredAnsweredLocked() bool {
	for _, q := range e.bank.All() {
		if !q.Required {
			continue
		}
		if _, ok := e.answers[q.ID]; !ok {
			return false
		}
	}
	return true
}

// snapshotLocked builds the precondition view of current state. Caller holds
// the lock.
func (e *Engine) snapshotLocked() *Snapshot {
	return &Snapshot{
		Brief:              e.brief,
		SoulFlowEnabled:    e.cfg.SoulFlowEnabled,
		HasSoul:            e.soulReady,
		HasContextAnalysis: e.contextReady,
		HasDecision:        e.hasDecision,
		QuestionsAsked:     e.questionsAsked,
		MaxQuestions:       e.cfg.MaxQuestions,
		RequiredAnswered:   e.requiredAnsweredLocked(),
		AutoApplyDefaults:  e.cfg.AutoApplyDefaults,
		CriticalGaps:       e.criticalGaps,
		BlockOnCritical:    e.cfg.BlockOnCritical,
	}
}

func (e *Engine) fire(trigger proto.Trigger, snap *Snapshot) error {
	attempt := e.machine.Fire(trigger, snap)
	if attempt.Result == ResultRejected {
		return fmt.Errorf("%w: %s from %s: %s", ErrInvalidTransition, trigger, attempt.From, attempt.Reason)
	}
	return nil
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
