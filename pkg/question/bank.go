package question

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var bankYAML []byte

// Bank is the static registry of question definitions, grouped by category.
// It is immutable after loading.
type Bank struct {
	ordered    []*Question
	byID       map[string]*Question
	byCategory map[Category][]*Question
}

type bankFile struct {
	Questions []Question `yaml:"questions"`
}

// LoadBank loads the embedded question bank.
func LoadBank() (*Bank, error) {
	return NewBankFromYAML(bankYAML)
}

// NewBankFromYAML builds a bank from YAML data. Every question must have a
// unique ID, a known type, and options for choice types.
func NewBankFromYAML(data []byte) (*Bank, error) {
	var file bankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse question bank: %w", err)
	}
	if len(file.Questions) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}

	bank := &Bank{
		byID:       make(map[string]*Question, len(file.Questions)),
		byCategory: make(map[Category][]*Question),
	}
	for i := range file.Questions {
		q := &file.Questions[i]
		if q.ID == "" {
			return nil, fmt.Errorf("question at index %d has no id", i)
		}
		if _, dup := bank.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		if _, err := ValidatorFor(q.Type); err != nil {
			return nil, fmt.Errorf("question %q: %w", q.ID, err)
		}
		if (q.Type == TypeSingleChoice || q.Type == TypeMultiChoice) && len(q.Options) == 0 {
			return nil, fmt.Errorf("question %q has type %s but no options", q.ID, q.Type)
		}
		bank.ordered = append(bank.ordered, q)
		bank.byID[q.ID] = q
		bank.byCategory[q.Category] = append(bank.byCategory[q.Category], q)
	}
	return bank, nil
}

// Get returns the question with the given ID.
func (b *Bank) Get(id string) (*Question, bool) {
	q, ok := b.byID[id]
	return q, ok
}

// All returns every question in bank order.
func (b *Bank) All() []*Question {
	out := make([]*Question, len(b.ordered))
	copy(out, b.ordered)
	return out
}

// ByCategory returns the questions of one category in bank order.
func (b *Bank) ByCategory(cat Category) []*Question {
	qs := b.byCategory[cat]
	out := make([]*Question, len(qs))
	copy(out, qs)
	return out
}

// Len returns the number of questions in the bank.
func (b *Bank) Len() int {
	return len(b.ordered)
}
