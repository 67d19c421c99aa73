// Package maestro wires the interview engine, soul extraction, context
// analysis, decision tree and executor into one session-scoped flow. It is
// the surface a host embeds; the components stay independently testable
// underneath it.
package maestro

import (
	"context"
	"errors"
	"fmt"
	"time"

	"maestro/pkg/agent/llm"
	"maestro/pkg/analysis"
	"maestro/pkg/config"
	"maestro/pkg/decision"
	"maestro/pkg/executor"
	"maestro/pkg/interview"
	"maestro/pkg/logx"
	"maestro/pkg/metrics"
	"maestro/pkg/persistence"
	"maestro/pkg/proto"
	"maestro/pkg/question"
	"maestro/pkg/session"
	"maestro/pkg/soul"
)

// ErrNeedMoreInput re-exports the decision sentinel: the caller should ask
// the next question and come back.
var ErrNeedMoreInput = decision.ErrNeedMoreInput

// Deps are the external collaborators a Coordinator needs. Client may be nil
// for keyword-only extraction; Store and Recorder may be nil to disable
// persistence and metrics.
type Deps struct {
	Client    llm.Client
	Generator executor.Generator
	Store     *persistence.Store
	Recorder  *metrics.Recorder
}

// Coordinator drives sessions end to end.
type Coordinator struct {
	cfg       config.Config
	sessions  *session.Manager
	extractor *soul.Extractor
	analyzer  *analysis.Analyzer
	tree      *decision.Tree
	executor  *executor.Executor
	fallback  *executor.Fallback
	store     *persistence.Store
	recorder  *metrics.Recorder
	logger    *logx.Logger
}

// New builds a coordinator from configuration and collaborators.
func New(cfg config.Config, deps Deps) (*Coordinator, error) {
	bank, err := question.LoadBank()
	if err != nil {
		return nil, err
	}
	extractor, err := soul.NewExtractor(cfg, deps.Client)
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(cfg, bank)
	if deps.Recorder != nil {
		recorder := deps.Recorder
		sessions.OnExpired(func(n int) { recorder.SessionsExpired.Add(float64(n)) })
	}
	return &Coordinator{
		cfg:       cfg,
		sessions:  sessions,
		extractor: extractor,
		analyzer:  analysis.NewAnalyzer(),
		tree:      decision.NewTree(cfg),
		executor:  executor.New(deps.Generator),
		fallback:  executor.NewFallback(cfg),
		store:     deps.Store,
		recorder:  deps.Recorder,
		logger:    logx.NewLogger("maestro"),
	}, nil
}

// StartSession creates a session and returns its id.
func (c *Coordinator) StartSession() (string, error) {
	s, err := c.sessions.Create()
	if err != nil {
		if c.recorder != nil && errors.Is(err, session.ErrCapacityExceeded) {
			c.recorder.SessionsRejected.Inc()
		}
		return "", err
	}
	if c.recorder != nil {
		c.recorder.SessionsCreated.Inc()
	}
	c.persist(s)
	return s.ID(), nil
}

// SubmitBrief records the brief and, when the soul flow is enabled, runs
// extraction. An extraction failure degrades to the static interview when
// graceful fallback is on; otherwise it fails the session.
func (c *Coordinator) SubmitBrief(ctx context.Context, id, brief string) error {
	s, err := c.sessions.Get(id)
	if err != nil {
		return err
	}
	if err := s.Engine().SubmitBrief(brief); err != nil {
		return err
	}
	s.SetStatus(proto.SessionAwaitingAnswer)

	if c.fallback.UseSoulFlow() {
		if err := c.extract(ctx, s, brief); err != nil {
			s.SetStatus(proto.SessionFailed)
			if failErr := s.Engine().Fail(); failErr != nil {
				c.logger.Debug("fail transition for %s: %v", id, failErr)
			}
			c.persist(s)
			return err
		}
	}

	c.persist(s)
	return nil
}

// extract runs the pipeline and applies its outcome to the session. A nil
// return means the interview can proceed, with or without a profile.
func (c *Coordinator) extract(ctx context.Context, s *session.Session, brief string) error {
	start := time.Now()
	extracted, cached, err := c.extractor.Extract(ctx, brief)
	if c.recorder != nil {
		c.recorder.ExtractionDuration.Observe(time.Since(start).Seconds())
	}

	if err != nil {
		if c.recorder != nil {
			c.recorder.Extractions.WithLabelValues("failed").Inc()
		}
		if fbErr := c.fallback.OnExtractionError(err); fbErr != nil {
			return fbErr
		}
		if c.recorder != nil {
			c.recorder.Fallbacks.Inc()
		}
		return s.Engine().MarkExtractionFailed()
	}

	if c.recorder != nil {
		outcome := "ok"
		if cached {
			outcome = "cached"
		}
		c.recorder.Extractions.WithLabelValues(outcome).Inc()
	}
	s.SetSoul(extracted)
	if err := s.Engine().MarkSoulExtracted(); err != nil {
		return err
	}

	s.Engine().SetCriticalGaps(extracted.Gaps.CriticalCount())
	s.Engine().SetPriorityCategories(c.gapCategories(extracted))
	return nil
}

// gapCategories orders interview categories by the profile's gaps, keeping
// only gaps at or above the configured severity threshold.
func (c *Coordinator) gapCategories(extracted *soul.ProjectSoul) []question.Category {
	relevant := extracted.Gaps.AtLeast(c.cfg.MinGapSeverity)
	return c.extractor.GapDetector().QuestionCategories(relevant)
}

// NextQuestion returns the next unanswered question, or false when the
// interview has nothing left to ask.
func (c *Coordinator) NextQuestion(id string) (*question.Question, bool, error) {
	s, err := c.sessions.Get(id)
	if err != nil {
		return nil, false, err
	}
	q, ok := s.Engine().NextQuestion()
	return q, ok, nil
}

// SubmitAnswer validates and records an answer. An invalid answer returns
// the validation result without advancing the interview.
func (c *Coordinator) SubmitAnswer(id string, ans *question.Answer) (question.ValidationResult, error) {
	s, err := c.sessions.Get(id)
	if err != nil {
		return question.ValidationResult{}, err
	}
	result, err := s.Engine().SubmitAnswer(ans)
	if err == nil && !result.IsValid && c.recorder != nil {
		c.recorder.ValidationFailures.Inc()
	}
	c.persist(s)
	return result, err
}

// SetArtifacts stores caller-supplied material (existing markup, reference
// images) on the session.
func (c *Coordinator) SetArtifacts(id string, a session.Artifacts) error {
	s, err := c.sessions.Get(id)
	if err != nil {
		return err
	}
	s.SetArtifacts(a)
	return nil
}

// Progress returns the session's progress snapshot.
func (c *Coordinator) Progress(id string) (interview.Progress, error) {
	s, err := c.sessions.Get(id)
	if err != nil {
		return interview.Progress{}, err
	}
	return interview.NewTracker(s.Engine()).Snapshot(), nil
}

// Decide closes the interview, analyzes context and runs the decision tree.
// ErrNeedMoreInput with spare question budget re-enters the interview;
// an exhausted budget forces the best available mode as a degraded decision.
func (c *Coordinator) Decide(ctx context.Context, id string) (*decision.Decision, error) {
	s, err := c.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	engine := s.Engine()

	if engine.Phase() == proto.PhaseInterviewing {
		if err := engine.FinishInterview(); err != nil {
			return nil, err
		}
	}

	enriched := c.enrich(s)
	if engine.Phase() == proto.PhaseAnalyzingContext {
		if err := engine.MarkContextAnalyzed(); err != nil {
			return nil, err
		}
	}
	s.SetStatus(proto.SessionDeciding)

	d, err := c.tree.Decide(ctx, enriched)
	if errors.Is(err, decision.ErrNeedMoreInput) {
		if reErr := engine.RequestMoreInput(); reErr == nil {
			s.SetStatus(proto.SessionAwaitingAnswer)
			c.persist(s)
			return nil, err
		}
		// Budget exhausted: force through with the confidence attached.
		d, err = c.tree.DecideForced(ctx, enriched)
	}
	if err != nil {
		return nil, err
	}

	// The machine arbitrates: required questions or critical gaps can still
	// reject the decision, and a rejected decision must never be stored.
	if err := engine.RecordDecision(); err != nil {
		c.persist(s)
		return nil, err
	}
	s.SetDecision(d)
	if c.recorder != nil {
		degraded := "false"
		if d.Degraded {
			degraded = "true"
		}
		c.recorder.Decisions.WithLabelValues(d.Mode.String(), degraded).Inc()
	}
	c.persist(s)
	return d, nil
}

// Execute runs the recorded decision against the generation pipeline and
// completes the session.
func (c *Coordinator) Execute(ctx context.Context, id string) (*executor.Result, error) {
	s, err := c.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	d := s.Decision()
	if d == nil {
		return nil, errors.New("no decision recorded for session")
	}
	if phase := s.Engine().Phase(); phase != proto.PhaseComplete {
		return nil, fmt.Errorf("cannot execute from phase %s", phase)
	}

	s.SetStatus(proto.SessionExecuting)
	result, err := c.executor.Execute(ctx, d)
	if err != nil {
		s.SetStatus(proto.SessionFailed)
		c.persist(s)
		return nil, err
	}
	s.SetStatus(proto.SessionComplete)
	c.persist(s)
	return result, nil
}

// Abandon terminates the session without a decision.
func (c *Coordinator) Abandon(id string) error {
	s, err := c.sessions.Get(id)
	if err != nil {
		return err
	}
	if err := s.Engine().Abandon(); err != nil {
		return err
	}
	s.SetStatus(proto.SessionFailed)
	c.persist(s)
	c.sessions.Remove(id)
	return nil
}

// Sessions exposes the manager for hosts that drive lifecycle directly.
func (c *Coordinator) Sessions() *session.Manager {
	return c.sessions
}

// enrich assembles the immutable scoring input from the session.
func (c *Coordinator) enrich(s *session.Session) *analysis.EnrichedContext {
	engine := s.Engine()
	artifacts := s.GetArtifacts()

	return &analysis.EnrichedContext{
		Brief: engine.Brief(),
		Soul:  s.Soul(),
		Context: c.analyzer.Analyze(analysis.ContextInput{
			PreviousHTML: artifacts.PreviousHTML,
			PageHTML:     artifacts.PageHTML,
		}),
		Answers:         engine.Answers(),
		Normalized:      engine.NormalizedAnswers(),
		QuestionsAsked:  engine.QuestionsAsked(),
		MaxQuestions:    c.cfg.MaxQuestions,
		PreviousHTML:    artifacts.PreviousHTML,
		PageHTML:        artifacts.PageHTML,
		ImagePath:       artifacts.ImagePath,
		PageTemplate:    artifacts.PageTemplate,
		SectionType:     artifacts.SectionType,
		Instructions:    artifacts.Instructions,
		ContentLanguage: c.cfg.ContentLanguage,
	}
}

// persist writes a best-effort snapshot; persistence failures are logged,
// never surfaced.
func (c *Coordinator) persist(s *session.Session) {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.store.Save(ctx, persistence.SnapshotOf(s)); err != nil {
		c.logger.Warn("failed to persist session %s: %v", s.ID(), err)
	}
}
