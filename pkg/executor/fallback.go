package executor

import (
	"errors"
	"fmt"

	"maestro/pkg/config"
	"maestro/pkg/logx"
	"maestro/pkg/soul"
)

// ErrFallbackDisabled means extraction failed and graceful fallback is
// switched off: the session cannot continue.
var ErrFallbackDisabled = errors.New("extraction failed and fallback is disabled")

// Fallback decides how to degrade the soul-based flow to the static
// question-bank flow when extraction fails or the feature is off.
type Fallback struct {
	cfg    config.Config
	logger *logx.Logger
}

// NewFallback creates the handler.
func NewFallback(cfg config.Config) *Fallback {
	return &Fallback{cfg: cfg, logger: logx.NewLogger("fallback")}
}

// OnExtractionError maps an extraction failure to either the static flow
// (nil error, logged) or a fatal session error when fallback is disabled.
// Errors that are not extraction failures pass through unchanged.
func (f *Fallback) OnExtractionError(err error) error {
	if err == nil {
		return nil
	}
	if !errors.Is(err, soul.ErrExtractionFailed) {
		return err
	}
	if !f.cfg.GracefulFallback {
		return fmt.Errorf("%w: %v", ErrFallbackDisabled, err)
	}
	f.logger.Warn("extraction failed, continuing with static interview: %v", err)
	return nil
}

// UseSoulFlow reports whether the soul-based flow should run at all.
func (f *Fallback) UseSoulFlow() bool {
	return f.cfg.SoulFlowEnabled
}
