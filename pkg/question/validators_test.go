package question

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func choiceQuestion(t Type, required bool, optionIDs ...string) *Question {
	q := &Question{ID: "q", Type: t, Required: required}
	for _, id := range optionIDs {
		q.Options = append(q.Options, Option{ID: id, Label: id})
	}
	return q
}

func TestSingleChoiceValidator(t *testing.T) {
	q := choiceQuestion(TypeSingleChoice, true, "a", "b", "c")
	v := SingleChoiceValidator{}

	res := v.Validate(&Answer{SelectedOptions: []string{"b"}}, q)
	assert.True(t, res.IsValid)
	assert.Equal(t, "b", res.NormalizedValue)

	res = v.Validate(&Answer{}, q)
	assert.False(t, res.IsValid)

	res = v.Validate(&Answer{SelectedOptions: []string{"a", "b"}}, q)
	assert.False(t, res.IsValid)

	res = v.Validate(&Answer{SelectedOptions: []string{"z"}}, q)
	assert.False(t, res.IsValid)
	assert.Contains(t, res.Error, "z")
}

func TestSingleChoiceOptionalEmpty(t *testing.T) {
	q := choiceQuestion(TypeSingleChoice, false, "a")
	res := SingleChoiceValidator{}.Validate(&Answer{}, q)
	assert.True(t, res.IsValid)
	assert.Nil(t, res.NormalizedValue)
}

func TestMultiChoiceValidator(t *testing.T) {
	q := choiceQuestion(TypeMultiChoice, true, "a", "b", "c", "d")
	q.MaxSelections = 2
	v := NewMultiChoiceValidator(DefaultMaxSelections)

	res := v.Validate(&Answer{SelectedOptions: []string{"a", "c"}}, q)
	assert.True(t, res.IsValid)
	assert.Equal(t, []string{"a", "c"}, res.NormalizedValue)

	// Over the limit: the message names the limit, not the selected ids.
	res = v.Validate(&Answer{SelectedOptions: []string{"a", "b", "c"}}, q)
	assert.False(t, res.IsValid)
	assert.Contains(t, res.Error, "2")
	assert.NotContains(t, res.Error, `"a"`)
}

func TestMultiChoiceReportsAllInvalidIDs(t *testing.T) {
	q := choiceQuestion(TypeMultiChoice, false, "a", "b")
	res := NewMultiChoiceValidator(DefaultMaxSelections).Validate(
		&Answer{SelectedOptions: []string{"x", "a", "y"}}, q)

	require.False(t, res.IsValid)
	assert.Contains(t, res.Error, "x")
	assert.Contains(t, res.Error, "y")
}

func TestMultiChoiceDefaultLimit(t *testing.T) {
	ids := make([]string, 12)
	for i := range ids {
		ids[i] = fmt.Sprintf("opt%d", i)
	}
	q := choiceQuestion(TypeMultiChoice, false, ids...)

	res := NewMultiChoiceValidator(DefaultMaxSelections).Validate(&Answer{SelectedOptions: ids}, q)
	assert.False(t, res.IsValid)
	assert.Contains(t, res.Error, "10")
}

func TestSliderValidator(t *testing.T) {
	q := &Question{ID: "q", Type: TypeSlider, Required: true,
		SliderMin: floatPtr(1), SliderMax: floatPtr(10)}
	v := SliderValidator{}

	tests := []struct {
		raw     string
		isValid bool
		want    float64
	}{
		{"5", true, 5},
		{"1", true, 1},
		{"10", true, 10},
		{"7.5", true, 7.5},
		{"15", false, 0},
		{"0", false, 0},
		{"five", false, 0},
	}
	for _, tt := range tests {
		res := v.Validate(&Answer{FreeText: tt.raw}, q)
		assert.Equal(t, tt.isValid, res.IsValid, "raw=%q", tt.raw)
		if tt.isValid {
			assert.Equal(t, tt.want, res.NormalizedValue)
		}
	}

	// Out-of-range message names the violated bound.
	res := v.Validate(&Answer{FreeText: "15"}, q)
	assert.Contains(t, res.Error, "10")
}

func TestSliderOptionalEmpty(t *testing.T) {
	q := &Question{ID: "q", Type: TypeSlider, Required: false,
		SliderMin: floatPtr(1), SliderMax: floatPtr(10)}
	res := SliderValidator{}.Validate(&Answer{FreeText: "  "}, q)
	assert.True(t, res.IsValid)
	assert.Nil(t, res.NormalizedValue)
}

func TestFreeTextValidator(t *testing.T) {
	q := &Question{ID: "q", Type: TypeFreeText, Required: true}
	v := NewFreeTextValidator(DefaultMinTextLength, DefaultMaxTextLength)

	res := v.Validate(&Answer{FreeText: "  a modern landing page  "}, q)
	assert.True(t, res.IsValid)
	assert.Equal(t, "a modern landing page", res.NormalizedValue)

	res = v.Validate(&Answer{FreeText: "   "}, q)
	assert.False(t, res.IsValid)
}

func TestFreeTextLengthBounds(t *testing.T) {
	q := &Question{ID: "q", Type: TypeFreeText, Required: true}
	v := NewFreeTextValidator(5, 10)

	assert.False(t, v.Validate(&Answer{FreeText: "abc"}, q).IsValid)
	assert.True(t, v.Validate(&Answer{FreeText: "abcdef"}, q).IsValid)
	assert.False(t, v.Validate(&Answer{FreeText: "abcdefghijk"}, q).IsValid)
}

func TestColorValidator(t *testing.T) {
	q := &Question{ID: "q", Type: TypeColor, Required: true}
	v := ColorValidator{}

	tests := []struct {
		raw     string
		isValid bool
		want    string
	}{
		{"f00", true, "#FF0000"},
		{"#f00", true, "#FF0000"},
		{"00ff00", true, "#00FF00"},
		{"#AbCdEf", true, "#ABCDEF"},
		{"red", false, ""},
		{"#ff00", false, ""},
		{"#ggg", false, ""},
	}
	for _, tt := range tests {
		res := v.Validate(&Answer{FreeText: tt.raw}, q)
		assert.Equal(t, tt.isValid, res.IsValid, "raw=%q", tt.raw)
		if tt.isValid {
			assert.Equal(t, tt.want, res.NormalizedValue)
		}
	}
}

// Re-validating a normalized value must yield the same normalized value.
func TestValidationIsIdempotent(t *testing.T) {
	colorQ := &Question{ID: "c", Type: TypeColor, Required: true}
	res := ColorValidator{}.Validate(&Answer{FreeText: "f00"}, colorQ)
	require.True(t, res.IsValid)
	again := ColorValidator{}.Validate(&Answer{FreeText: res.NormalizedValue.(string)}, colorQ)
	require.True(t, again.IsValid)
	assert.Equal(t, res.NormalizedValue, again.NormalizedValue)

	sliderQ := &Question{ID: "s", Type: TypeSlider, SliderMin: floatPtr(0), SliderMax: floatPtr(100)}
	res = SliderValidator{}.Validate(&Answer{FreeText: "42"}, sliderQ)
	require.True(t, res.IsValid)
	rendered := strconv.FormatFloat(res.NormalizedValue.(float64), 'f', -1, 64)
	again = SliderValidator{}.Validate(&Answer{FreeText: rendered}, sliderQ)
	require.True(t, again.IsValid)
	assert.Equal(t, res.NormalizedValue, again.NormalizedValue)

	textQ := &Question{ID: "t", Type: TypeFreeText, Required: true}
	v := NewFreeTextValidator(DefaultMinTextLength, DefaultMaxTextLength)
	res = v.Validate(&Answer{FreeText: "  hello world  "}, textQ)
	require.True(t, res.IsValid)
	again = v.Validate(&Answer{FreeText: res.NormalizedValue.(string)}, textQ)
	require.True(t, again.IsValid)
	assert.Equal(t, res.NormalizedValue, again.NormalizedValue)
}

func TestValidatorForUnknownType(t *testing.T) {
	_, err := ValidatorFor(Type("ranked_choice"))
	assert.Error(t, err)
}

func TestLoadBank(t *testing.T) {
	bank, err := LoadBank()
	require.NoError(t, err)
	assert.Greater(t, bank.Len(), 5)

	q, ok := bank.Get("project_type")
	require.True(t, ok)
	assert.Equal(t, TypeSingleChoice, q.Type)
	assert.Equal(t, CategoryProject, q.Category)
	assert.True(t, q.Required)

	styleQs := bank.ByCategory(CategoryStyle)
	assert.NotEmpty(t, styleQs)
	for _, sq := range styleQs {
		assert.Equal(t, CategoryStyle, sq.Category)
	}
}

func TestNewBankFromYAMLRejectsBadBanks(t *testing.T) {
	_, err := NewBankFromYAML([]byte("questions: []"))
	assert.Error(t, err)

	dup := []byte(`
questions:
  - id: a
    category: project
    type: free_text
    text: one
  - id: a
    category: project
    type: free_text
    text: two
`)
	_, err = NewBankFromYAML(dup)
	assert.Error(t, err)

	noOptions := []byte(`
questions:
  - id: a
    category: project
    type: single_choice
    text: pick one
`)
	_, err = NewBankFromYAML(noOptions)
	assert.Error(t, err)
}
