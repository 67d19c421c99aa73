// Package templates provides the embedded prompt templates for the soul
// extraction boundary.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed *.tpl.md
var templateFS embed.FS

// TemplateData holds the data for prompt rendering.
type TemplateData struct {
	Brief           string            `json:"brief"`
	ContentLanguage string            `json:"content_language,omitempty"`
	PriorEntities   map[string]string `json:"prior_entities,omitempty"`
}

// PromptTemplate names one embedded prompt template.
type PromptTemplate string

const (
	// ExtractionSystemTemplate is the system prompt for entity extraction.
	ExtractionSystemTemplate PromptTemplate = "extraction_system.tpl.md"
	// ExtractionTemplate is the user prompt carrying the brief.
	ExtractionTemplate PromptTemplate = "extraction.tpl.md"
)

// Renderer renders embedded prompt templates.
type Renderer struct {
	templates map[PromptTemplate]*template.Template
}

// NewRenderer parses every embedded template.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[PromptTemplate]*template.Template)}

	names := []PromptTemplate{
		ExtractionSystemTemplate,
		ExtractionTemplate,
	}
	for _, name := range names {
		content, err := templateFS.ReadFile(string(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}
		tmpl, err := template.New(string(name)).Funcs(template.FuncMap{
			"contains": strings.Contains,
		}).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

// Render renders the named template with the given data.
func (r *Renderer) Render(name PromptTemplate, data *TemplateData) (string, error) {
	tmpl, exists := r.templates[name]
	if !exists {
		return "", fmt.Errorf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}
