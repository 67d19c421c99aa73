// Package session owns the lifecycle of interview sessions: creation, TTL
// expiration, the concurrency cap, and lazy cleanup.
package session

import (
	"sync"
	"time"

	"maestro/pkg/decision"
	"maestro/pkg/interview"
	"maestro/pkg/proto"
	"maestro/pkg/soul"
)

// Session is one user's interview-to-decision lifecycle. The manager owns
// creation and expiry; everything else goes through the session's own mutex.
type Session struct {
	mu sync.Mutex

	id     string
	status proto.SessionStatus

	engine   *interview.Engine
	soul     *soul.ProjectSoul
	decision *decision.Decision

	// Raw artifacts supplied by the caller for refine/replace/reference
	// modes.
	previousHTML string
	pageHTML     string
	imagePath    string
	pageTemplate string
	sectionType  string
	instructions string

	createdAt    time.Time
	lastActivity time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Status returns the current lifecycle status.
func (s *Session) Status() proto.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus moves the session to a new lifecycle status.
func (s *Session) SetStatus(status proto.SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Engine returns the session's interview engine.
func (s *Session) Engine() *interview.Engine {
	return s.engine
}

// Soul returns the extracted profile, nil before extraction.
func (s *Session) Soul() *soul.ProjectSoul {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.soul
}

// SetSoul records the extracted profile.
func (s *Session) SetSoul(extracted *soul.ProjectSoul) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.soul = extracted
}

// Decision returns the recorded decision, nil before one is made.
func (s *Session) Decision() *decision.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decision
}

// SetDecision records the decision.
func (s *Session) SetDecision(d *decision.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decision = d
}

// Artifacts is the set of caller-supplied inputs for modes that operate on
// existing material.
type Artifacts struct {
	PreviousHTML string
	PageHTML     string
	ImagePath    string
	PageTemplate string
	SectionType  string
	Instructions string
}

// SetArtifacts stores the caller-supplied inputs.
func (s *Session) SetArtifacts(a Artifacts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.PreviousHTML != "" {
		s.previousHTML = a.PreviousHTML
	}
	if a.PageHTML != "" {
		s.pageHTML = a.PageHTML
	}
	if a.ImagePath != "" {
		s.imagePath = a.ImagePath
	}
	if a.PageTemplate != "" {
		s.pageTemplate = a.PageTemplate
	}
	if a.SectionType != "" {
		s.sectionType = a.SectionType
	}
	if a.Instructions != "" {
		s.instructions = a.Instructions
	}
}

// GetArtifacts returns a copy of the caller-supplied inputs.
func (s *Session) GetArtifacts() Artifacts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Artifacts{
		PreviousHTML: s.previousHTML,
		PageHTML:     s.pageHTML,
		ImagePath:    s.imagePath,
		PageTemplate: s.pageTemplate,
		SectionType:  s.sectionType,
		Instructions: s.instructions,
	}
}

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastActivity returns the time of the most recent touch.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = now
}

// expired reports whether the session is past its TTL at the given time.
// Sliding TTL measures from the last touch, absolute from creation.
func (s *Session) expired(now time.Time, ttl time.Duration, sliding bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	anchor := s.createdAt
	if sliding {
		anchor = s.lastActivity
	}
	return now.Sub(anchor) > ttl
}
