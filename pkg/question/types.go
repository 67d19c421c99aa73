// Package question provides the static question bank and the per-type answer
// validators used by the interview engine.
package question

// Type identifies how a question is answered and which validator applies.
type Type string

const (
	TypeSingleChoice Type = "single_choice"
	TypeMultiChoice  Type = "multi_choice"
	TypeSlider       Type = "slider"
	TypeFreeText     Type = "free_text"
	TypeColor        Type = "color"
)

// Category groups questions by the aspect of the project they probe.
type Category string

const (
	CategoryProject  Category = "project"
	CategoryAudience Category = "audience"
	CategoryStyle    Category = "style"
	CategoryColor    Category = "color"
	CategoryContent  Category = "content"
)

// Option is one selectable choice of a single- or multi-choice question.
type Option struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

// Question is an immutable question definition. Constructed by the bank and
// referenced by ID throughout a session.
type Question struct {
	ID            string   `yaml:"id" json:"id"`
	Category      Category `yaml:"category" json:"category"`
	Type          Type     `yaml:"type" json:"type"`
	Text          string   `yaml:"text" json:"text"`
	Options       []Option `yaml:"options,omitempty" json:"options,omitempty"`
	Required      bool     `yaml:"required" json:"required"`
	SliderMin     *float64 `yaml:"slider_min,omitempty" json:"slider_min,omitempty"`
	SliderMax     *float64 `yaml:"slider_max,omitempty" json:"slider_max,omitempty"`
	MaxSelections int      `yaml:"max_selections,omitempty" json:"max_selections,omitempty"`
}

// HasOption reports whether the question defines an option with the given ID.
func (q *Question) HasOption(optionID string) bool {
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			return true
		}
	}
	return false
}

// Answer is a raw answer to one question. Immutable once validation succeeds.
type Answer struct {
	QuestionID      string   `json:"question_id"`
	SelectedOptions []string `json:"selected_options,omitempty"`
	FreeText        string   `json:"free_text,omitempty"`
}

// ValidationResult is the outcome of validating an answer against its
// question. NormalizedValue carries the canonical form of a valid answer.
type ValidationResult struct {
	IsValid         bool   `json:"is_valid"`
	Error           string `json:"error,omitempty"`
	NormalizedValue any    `json:"normalized_value,omitempty"`
}

func valid(normalized any) ValidationResult {
	return ValidationResult{IsValid: true, NormalizedValue: normalized}
}

func invalid(msg string) ValidationResult {
	return ValidationResult{IsValid: false, Error: msg}
}
