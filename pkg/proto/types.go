// Package proto defines the shared enumerations and small value types that
// cross component boundaries: interview phases and triggers, execution modes,
// gap severities, and session statuses.
package proto

// Phase represents a stage of the interview-to-decision lifecycle.
type Phase string

const (
	PhaseInit             Phase = "INIT"
	PhaseGatheringBrief   Phase = "GATHERING_BRIEF"
	PhaseExtractingSoul   Phase = "EXTRACTING_SOUL"
	PhaseInterviewing     Phase = "INTERVIEWING"
	PhaseAnalyzingContext Phase = "ANALYZING_CONTEXT"
	PhaseDeciding         Phase = "DECIDING"
	PhaseComplete         Phase = "COMPLETE"
	PhaseFailed           Phase = "FAILED"
	PhaseAbandoned        Phase = "ABANDONED"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// IsTerminal reports whether the phase admits no further transitions.
func (p Phase) IsTerminal() bool {
	return p == PhaseComplete || p == PhaseFailed || p == PhaseAbandoned
}

// Trigger is a named event that requests a phase transition.
type Trigger string

const (
	TriggerStart                  Trigger = "Start"
	TriggerBriefSubmitted         Trigger = "BriefSubmitted"
	TriggerSoulExtracted          Trigger = "SoulExtracted"
	TriggerExtractionFailed       Trigger = "ExtractionFailed"
	TriggerAnswerAccepted         Trigger = "AnswerAccepted"
	TriggerMaxQuestionsReached    Trigger = "MaxQuestionsReached"
	TriggerConfidenceThresholdMet Trigger = "ConfidenceThresholdMet"
	TriggerContextAnalyzed        Trigger = "ContextAnalyzed"
	TriggerDecisionMade           Trigger = "DecisionMade"
	TriggerNeedMoreInput          Trigger = "NeedMoreInput"
	TriggerRetry                  Trigger = "Retry"
	TriggerAbandon                Trigger = "Abandon"
	TriggerFail                   Trigger = "Fail"
)

// ExecutionMode is one of the fixed design-generation operations the system
// can invoke against the downstream pipeline.
type ExecutionMode string

const (
	ModeDesignFrontend       ExecutionMode = "design_frontend"
	ModeDesignPage           ExecutionMode = "design_page"
	ModeDesignSection        ExecutionMode = "design_section"
	ModeRefineFrontend       ExecutionMode = "refine_frontend"
	ModeReplaceSectionInPage ExecutionMode = "replace_section_in_page"
	ModeDesignFromReference  ExecutionMode = "design_from_reference"
)

// String returns the string representation of the mode.
func (m ExecutionMode) String() string {
	return string(m)
}

// AllModes lists every execution mode in priority order: when two candidate
// modes score identically the earlier entry wins.
func AllModes() []ExecutionMode {
	return []ExecutionMode{
		ModeDesignFrontend,
		ModeDesignSection,
		ModeDesignPage,
		ModeRefineFrontend,
		ModeReplaceSectionInPage,
		ModeDesignFromReference,
	}
}

// ModePriority returns the tie-break rank of a mode; lower ranks win.
// Unknown modes sort last.
func ModePriority(m ExecutionMode) int {
	for i, mode := range AllModes() {
		if mode == m {
			return i
		}
	}
	return len(AllModes())
}

// GapSeverity classifies how badly a missing piece of information hurts the
// reliability of a decision.
type GapSeverity string

const (
	SeverityCritical GapSeverity = "critical"
	SeverityHigh     GapSeverity = "high"
	SeverityMedium   GapSeverity = "medium"
	SeverityLow      GapSeverity = "low"
)

// Rank orders severities from most severe (0) to least. Unknown severities
// rank below low.
func (s GapSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// AtLeast reports whether s is at least as severe as threshold.
func (s GapSeverity) AtLeast(threshold GapSeverity) bool {
	return s.Rank() <= threshold.Rank()
}

// ParseGapSeverity parses a severity string; ok is false for unknown values.
func ParseGapSeverity(raw string) (GapSeverity, bool) {
	switch GapSeverity(raw) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return GapSeverity(raw), true
	default:
		return "", false
	}
}

// SessionStatus tracks where a session is in its lifecycle.
type SessionStatus string

const (
	SessionActive         SessionStatus = "active"
	SessionAwaitingAnswer SessionStatus = "awaiting_answer"
	SessionDeciding       SessionStatus = "deciding"
	SessionExecuting      SessionStatus = "executing"
	SessionComplete       SessionStatus = "complete"
	SessionExpired        SessionStatus = "expired"
	SessionFailed         SessionStatus = "failed"
)

// IsFinished reports whether the session can be reclaimed by the manager.
func (s SessionStatus) IsFinished() bool {
	return s == SessionComplete || s == SessionExpired || s == SessionFailed
}
