// Package interview implements the finite-state interview over the question
// bank: the phase machine, the engine that issues and validates questions,
// and the progress tracker.
package interview

import (
	"errors"
	"sync"
	"time"

	"maestro/pkg/logx"
	"maestro/pkg/proto"
)

// ErrInvalidTransition indicates a trigger was fired from a phase that does
// not admit it, or its precondition failed.
var ErrInvalidTransition = errors.New("invalid phase transition")

// Snapshot is the immutable view of session data that transition
// preconditions evaluate. Callers build it from the current interview state;
// the machine itself never reads mutable session state.
type Snapshot struct {
	Brief              string
	SoulFlowEnabled    bool
	HasSoul            bool
	HasContextAnalysis bool
	HasDecision        bool
	QuestionsAsked     int
	MaxQuestions       int
	RequiredAnswered   bool
	AutoApplyDefaults  bool
	CriticalGaps       int
	BlockOnCritical    bool
}

// TransitionResult is the outcome of a transition attempt.
type TransitionResult string

const (
	ResultAccepted TransitionResult = "accepted"
	ResultRejected TransitionResult = "rejected"
)

// TransitionAttempt records one requested trigger, the precondition
// evaluation, and its outcome.
type TransitionAttempt struct {
	Trigger   proto.Trigger    `json:"trigger"`
	From      proto.Phase      `json:"from"`
	To        proto.Phase      `json:"to,omitempty"`
	Result    TransitionResult `json:"result"`
	Reason    string           `json:"reason,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// guard evaluates a precondition over the snapshot. It returns an empty
// string when the transition may proceed, or the rejection reason.
type guard func(s *Snapshot) string

// rule is one edge of the transition table. A trigger may carry several
// rules; the first whose from-phase matches and whose guard passes wins.
type rule struct {
	from  proto.Phase
	to    proto.Phase
	check guard
}

func noGuard(*Snapshot) string { return "" }

// transitionTable maps each trigger to its guarded edges. The table is fixed;
// the machine is deterministic given a phase, a trigger, and a snapshot.
//
//nolint:gochecknoglobals // static transition table, never mutated
var transitionTable = map[proto.Trigger][]rule{
	proto.TriggerStart: {
		{from: proto.PhaseInit, to: proto.PhaseGatheringBrief, check: noGuard},
	},
	proto.TriggerBriefSubmitted: {
		{from: proto.PhaseGatheringBrief, to: proto.PhaseExtractingSoul, check: func(s *Snapshot) string {
			if s.Brief == "" {
				return "no brief submitted"
			}
			if !s.SoulFlowEnabled {
				return "soul flow disabled"
			}
			return ""
		}},
		{from: proto.PhaseGatheringBrief, to: proto.PhaseInterviewing, check: func(s *Snapshot) string {
			if s.Brief == "" {
				return "no brief submitted"
			}
			return ""
		}},
	},
	proto.TriggerSoulExtracted: {
		{from: proto.PhaseExtractingSoul, to: proto.PhaseInterviewing, check: func(s *Snapshot) string {
			if !s.HasSoul {
				return "no soul extracted yet"
			}
			return ""
		}},
	},
	proto.TriggerExtractionFailed: {
		{from: proto.PhaseExtractingSoul, to: proto.PhaseInterviewing, check: noGuard},
	},
	proto.TriggerAnswerAccepted: {
		{from: proto.PhaseInterviewing, to: proto.PhaseInterviewing, check: func(s *Snapshot) string {
			if s.MaxQuestions > 0 && s.QuestionsAsked > s.MaxQuestions {
				return "question budget exhausted"
			}
			return ""
		}},
	},
	proto.TriggerMaxQuestionsReached: {
		{from: proto.PhaseInterviewing, to: proto.PhaseAnalyzingContext, check: func(s *Snapshot) string {
			if s.QuestionsAsked < s.MaxQuestions {
				return "question budget not exhausted"
			}
			return ""
		}},
	},
	proto.TriggerConfidenceThresholdMet: {
		{from: proto.PhaseInterviewing, to: proto.PhaseAnalyzingContext, check: func(s *Snapshot) string {
			if !s.RequiredAnswered && !s.AutoApplyDefaults {
				return "required questions remain unanswered"
			}
			return ""
		}},
	},
	proto.TriggerContextAnalyzed: {
		{from: proto.PhaseAnalyzingContext, to: proto.PhaseDeciding, check: func(s *Snapshot) string {
			if !s.HasContextAnalysis {
				return "context not analyzed yet"
			}
			return ""
		}},
	},
	proto.TriggerNeedMoreInput: {
		{from: proto.PhaseDeciding, to: proto.PhaseInterviewing, check: func(s *Snapshot) string {
			if s.QuestionsAsked >= s.MaxQuestions {
				return "question budget exhausted"
			}
			return ""
		}},
	},
	proto.TriggerDecisionMade: {
		{from: proto.PhaseDeciding, to: proto.PhaseComplete, check: func(s *Snapshot) string {
			if !s.HasDecision {
				return "no decision produced"
			}
			if !s.RequiredAnswered && !s.AutoApplyDefaults {
				return "required questions remain unanswered"
			}
			if s.BlockOnCritical && s.CriticalGaps > 0 {
				return "critical gaps unresolved"
			}
			return ""
		}},
	},
	proto.TriggerRetry: {
		{from: proto.PhaseAnalyzingContext, to: proto.PhaseInterviewing, check: noGuard},
		{from: proto.PhaseDeciding, to: proto.PhaseInterviewing, check: noGuard},
	},
}

// Machine is the interview phase state machine. Transitions are guarded and
// recorded; illegal transitions never mutate the phase. The machine performs
// no side effects itself.
type Machine struct {
	mu       sync.Mutex
	current  proto.Phase
	attempts []TransitionAttempt
	logger   *logx.Logger
}

// NewMachine creates a machine in the INIT phase.
func NewMachine() *Machine {
	return &Machine{
		current: proto.PhaseInit,
		logger:  logx.NewLogger("interview"),
	}
}

// Current returns the current phase.
func (m *Machine) Current() proto.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Fire attempts a transition. On success the phase advances and the attempt
// is recorded; on rejection the phase is untouched and the returned attempt
// carries the reason.
func (m *Machine) Fire(trigger proto.Trigger, snap *Snapshot) TransitionAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempt := TransitionAttempt{
		Trigger:   trigger,
		From:      m.current,
		Timestamp: time.Now().UTC(),
	}

	// Abandon and Fail are legal from any non-terminal phase.
	switch trigger {
	case proto.TriggerAbandon, proto.TriggerFail:
		if m.current.IsTerminal() {
			attempt.Result = ResultRejected
			attempt.Reason = "phase is terminal"
			m.attempts = append(m.attempts, attempt)
			return attempt
		}
		if trigger == proto.TriggerAbandon {
			attempt.To = proto.PhaseAbandoned
		} else {
			attempt.To = proto.PhaseFailed
		}
		attempt.Result = ResultAccepted
		m.apply(&attempt)
		return attempt
	}

	rules, known := transitionTable[trigger]
	if !known {
		attempt.Result = ResultRejected
		attempt.Reason = "unknown trigger"
		m.attempts = append(m.attempts, attempt)
		return attempt
	}

	var lastReason string
	for i := range rules {
		r := &rules[i]
		if r.from != m.current {
			continue
		}
		if reason := r.check(snap); reason != "" {
			lastReason = reason
			continue
		}
		attempt.To = r.to
		attempt.Result = ResultAccepted
		m.apply(&attempt)
		return attempt
	}

	attempt.Result = ResultRejected
	if lastReason != "" {
		attempt.Reason = lastReason
	} else {
		attempt.Reason = "trigger not valid in phase " + m.current.String()
	}
	m.attempts = append(m.attempts, attempt)
	return attempt
}

// apply commits an accepted attempt. Caller holds the lock.
func (m *Machine) apply(attempt *TransitionAttempt) {
	m.logger.Info("phase transition: %s -> %s (%s)", attempt.From, attempt.To, attempt.Trigger)
	m.current = attempt.To
	m.attempts = append(m.attempts, *attempt)
}

// Attempts returns a copy of the transition attempt history, rejections
// included.
func (m *Machine) Attempts() []TransitionAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TransitionAttempt{}, m.attempts...)
}

// Restore sets the current phase directly, used when rehydrating a persisted
// session. The attempt history starts fresh.
func (m *Machine) Restore(phase proto.Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = phase
}
