// Package decision scores candidate execution modes against the enriched
// context and selects the one to run. Scoring is a fixed weighted model over
// six dimensions; mode selection is deterministic with a fixed priority
// tie-break.
package decision

import "fmt"

// Dimension weights for the aggregate confidence. They must sum to 1.0;
// TestWeightsSumToOne pins this.
const (
	WeightClarity             = 0.20
	WeightSpecificity         = 0.15
	WeightContextCompleteness = 0.25
	WeightSignalStrength      = 0.15
	WeightConsistency         = 0.10
	WeightRisk                = 0.15
)

// Scores holds the six confidence dimensions for one candidate mode, each in
// [0,1].
type Scores struct {
	Clarity             float64 `json:"clarity"`
	Specificity         float64 `json:"specificity"`
	ContextCompleteness float64 `json:"context_completeness"`
	SignalStrength      float64 `json:"signal_strength"`
	Consistency         float64 `json:"consistency"`
	Risk                float64 `json:"risk"`
}

// Aggregate is the weighted sum across the six dimensions. Dimensions are
// clipped first so a buggy scorer cannot push the aggregate out of [0,1].
func (s Scores) Aggregate() float64 {
	return clip(WeightClarity*clip(s.Clarity) +
		WeightSpecificity*clip(s.Specificity) +
		WeightContextCompleteness*clip(s.ContextCompleteness) +
		WeightSignalStrength*clip(s.SignalStrength) +
		WeightConsistency*clip(s.Consistency) +
		WeightRisk*clip(s.Risk))
}

// String renders the dimensions for reasoning text and logs.
func (s Scores) String() string {
	return fmt.Sprintf(
		"clarity=%.2f specificity=%.2f context=%.2f signal=%.2f consistency=%.2f risk=%.2f",
		s.Clarity, s.Specificity, s.ContextCompleteness, s.SignalStrength, s.Consistency, s.Risk)
}

func clip(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
