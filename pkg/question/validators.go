package question

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Validator checks a raw answer against a question's constraints and produces
// the canonical form of the value. Validators are stateless with respect to
// sessions; any defaults are constructor-configured.
type Validator interface {
	Validate(ans *Answer, q *Question) ValidationResult
}

// Constructor-configured defaults.
const (
	DefaultMaxSelections = 10
	DefaultMinTextLength = 0
	DefaultMaxTextLength = 10000
)

var colorPattern = regexp.MustCompile(`^#?([0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})$`)

// ValidatorFor returns the validator for a question type with default
// settings. Unknown types yield an error so new types cannot silently pass.
func ValidatorFor(t Type) (Validator, error) {
	switch t {
	case TypeSingleChoice:
		return SingleChoiceValidator{}, nil
	case TypeMultiChoice:
		return NewMultiChoiceValidator(DefaultMaxSelections), nil
	case TypeSlider:
		return SliderValidator{}, nil
	case TypeFreeText:
		return NewFreeTextValidator(DefaultMinTextLength, DefaultMaxTextLength), nil
	case TypeColor:
		return ColorValidator{}, nil
	default:
		return nil, fmt.Errorf("no validator for question type %q", t)
	}
}

// SingleChoiceValidator accepts exactly one option ID from the question's set.
type SingleChoiceValidator struct{}

func (SingleChoiceValidator) Validate(ans *Answer, q *Question) ValidationResult {
	if len(ans.SelectedOptions) == 0 {
		if q.Required {
			return invalid("an option must be selected")
		}
		return valid(nil)
	}
	if len(ans.SelectedOptions) > 1 {
		return invalid(fmt.Sprintf("exactly one option may be selected, got %d", len(ans.SelectedOptions)))
	}
	choice := ans.SelectedOptions[0]
	if !q.HasOption(choice) {
		return invalid(fmt.Sprintf("unknown option %q", choice))
	}
	return valid(choice)
}

// MultiChoiceValidator accepts up to maxSelections option IDs. All invalid IDs
// are reported at once rather than only the first.
type MultiChoiceValidator struct {
	defaultMaxSelections int
}

// NewMultiChoiceValidator creates a multi-choice validator with the given
// default selection cap, used when a question does not override it.
func NewMultiChoiceValidator(defaultMaxSelections int) MultiChoiceValidator {
	return MultiChoiceValidator{defaultMaxSelections: defaultMaxSelections}
}

func (v MultiChoiceValidator) Validate(ans *Answer, q *Question) ValidationResult {
	if len(ans.SelectedOptions) == 0 {
		if q.Required {
			return invalid("at least one option must be selected")
		}
		return valid([]string{})
	}

	limit := v.defaultMaxSelections
	if q.MaxSelections > 0 {
		limit = q.MaxSelections
	}
	if len(ans.SelectedOptions) > limit {
		return invalid(fmt.Sprintf("at most %d options may be selected, got %d", limit, len(ans.SelectedOptions)))
	}

	var unknown []string
	for _, choice := range ans.SelectedOptions {
		if !q.HasOption(choice) {
			unknown = append(unknown, choice)
		}
	}
	if len(unknown) > 0 {
		return invalid(fmt.Sprintf("unknown options: %s", strings.Join(unknown, ", ")))
	}

	normalized := make([]string, len(ans.SelectedOptions))
	copy(normalized, ans.SelectedOptions)
	return valid(normalized)
}

// SliderValidator parses the free-text value as a number (integer first, float
// fallback) and range-checks it against the question's slider bounds.
type SliderValidator struct{}

func (SliderValidator) Validate(ans *Answer, q *Question) ValidationResult {
	raw := strings.TrimSpace(ans.FreeText)
	if raw == "" {
		if q.Required {
			return invalid("a value is required")
		}
		return valid(nil)
	}

	var value float64
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		value = float64(i)
	} else if f, err := strconv.ParseFloat(raw, 64); err == nil {
		value = f
	} else {
		return invalid(fmt.Sprintf("%q is not a number", raw))
	}

	if q.SliderMin != nil && value < *q.SliderMin {
		return invalid(fmt.Sprintf("value %v is below the minimum %v", value, *q.SliderMin))
	}
	if q.SliderMax != nil && value > *q.SliderMax {
		return invalid(fmt.Sprintf("value %v is above the maximum %v", value, *q.SliderMax))
	}
	return valid(value)
}

// FreeTextValidator trims whitespace and enforces length bounds.
type FreeTextValidator struct {
	minLength int
	maxLength int
}

// NewFreeTextValidator creates a free-text validator with the given length
// bounds.
func NewFreeTextValidator(minLength, maxLength int) FreeTextValidator {
	return FreeTextValidator{minLength: minLength, maxLength: maxLength}
}

func (v FreeTextValidator) Validate(ans *Answer, q *Question) ValidationResult {
	text := strings.TrimSpace(ans.FreeText)
	if text == "" {
		if q.Required {
			return invalid("an answer is required")
		}
		return valid("")
	}
	if len(text) < v.minLength {
		return invalid(fmt.Sprintf("answer must be at least %d characters", v.minLength))
	}
	if len(text) > v.maxLength {
		return invalid(fmt.Sprintf("answer must be at most %d characters", v.maxLength))
	}
	return valid(text)
}

// ColorValidator accepts 3- or 6-digit hex colors, with or without a leading
// '#', and normalizes to uppercase 6-digit form with the '#' prefix.
type ColorValidator struct{}

func (ColorValidator) Validate(ans *Answer, q *Question) ValidationResult {
	raw := strings.TrimSpace(ans.FreeText)
	if raw == "" {
		if q.Required {
			return invalid("a color is required")
		}
		return valid(nil)
	}

	m := colorPattern.FindStringSubmatch(raw)
	if m == nil {
		return invalid(fmt.Sprintf("%q is not a hex color", raw))
	}

	hex := strings.ToUpper(m[1])
	if len(hex) == 3 {
		// Expand shorthand by doubling each nibble: f00 -> FF0000.
		var b strings.Builder
		for _, c := range hex {
			b.WriteRune(c)
			b.WriteRune(c)
		}
		hex = b.String()
	}
	return valid("#" + hex)
}
