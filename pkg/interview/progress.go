package interview

import (
	"maestro/pkg/proto"
	"maestro/pkg/question"
)

// Progress is a read-only snapshot of how far a session has come. Derived
// from the machine phase and answer counts; never mutated.
type Progress struct {
	Phase            proto.Phase               `json:"phase"`
	QuestionsAsked   int                       `json:"questions_asked"`
	MaxQuestions     int                       `json:"max_questions"`
	AnsweredTotal    int                       `json:"answered_total"`
	AnsweredRequired int                       `json:"answered_required"`
	TotalRequired    int                       `json:"total_required"`
	ByCategory       map[question.Category]int `json:"by_category"`
	Percent          float64                   `json:"percent"`
}

// Phase completion anchors for the percent estimate. The interviewing span
// is interpolated by question budget between its anchor and the analysis one.
const (
	percentBrief        = 5.0
	percentExtracting   = 15.0
	percentInterviewing = 20.0
	percentAnalyzing    = 75.0
	percentDeciding     = 90.0
	percentComplete     = 100.0
)

// Tracker derives progress snapshots from an engine. It holds no state of
// its own.
type Tracker struct {
	engine *Engine
}

// NewTracker creates a tracker over the given engine.
func NewTracker(engine *Engine) *Tracker {
	return &Tracker{engine: engine}
}

// Snapshot computes the current progress.
func (t *Tracker) Snapshot() Progress {
	e := t.engine

	p := Progress{
		Phase:          e.Phase(),
		QuestionsAsked: e.QuestionsAsked(),
		MaxQuestions:   e.cfg.MaxQuestions,
		ByCategory:     make(map[question.Category]int),
	}

	answers := e.Answers()
	p.AnsweredTotal = len(answers)
	for _, q := range e.bank.All() {
		if q.Required {
			p.TotalRequired++
		}
		if _, ok := answers[q.ID]; ok {
			p.ByCategory[q.Category]++
			if q.Required {
				p.AnsweredRequired++
			}
		}
	}

	p.Percent = percentFor(p.Phase, p.QuestionsAsked, p.MaxQuestions)
	return p
}

func percentFor(phase proto.Phase, asked, budget int) float64 {
	switch phase {
	case proto.PhaseInit:
		return 0
	case proto.PhaseGatheringBrief:
		return percentBrief
	case proto.PhaseExtractingSoul:
		return percentExtracting
	case proto.PhaseInterviewing:
		if budget <= 0 {
			return percentInterviewing
		}
		frac := float64(asked) / float64(budget)
		if frac > 1 {
			frac = 1
		}
		return percentInterviewing + frac*(percentAnalyzing-percentInterviewing)
	case proto.PhaseAnalyzingContext:
		return percentAnalyzing
	case proto.PhaseDeciding:
		return percentDeciding
	case proto.PhaseComplete:
		return percentComplete
	case proto.PhaseFailed, proto.PhaseAbandoned:
		return percentComplete
	default:
		return 0
	}
}
