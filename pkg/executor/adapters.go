// Package executor adapts a decision into a call against the external
// generation pipeline. Parameters are decoded into typed per-mode structs
// exactly once at this boundary; a malformed or incomplete shape fails here,
// never downstream.
package executor

import (
	"errors"
	"fmt"

	"maestro/pkg/analysis"
	"maestro/pkg/decision"
	"maestro/pkg/proto"
)

// ErrMissingContext means a structurally required parameter is absent from
// the session context. Retrying without new input cannot succeed, so this is
// a hard error, never substituted with a default.
var ErrMissingContext = errors.New("missing required context")

// DesignSpec is the nested spec block shared by the design modes.
type DesignSpec struct {
	Context          string   `json:"context"`
	ContentStructure []string `json:"content_structure,omitempty"`
}

// DesignFrontendParams drives a full-artifact design run.
type DesignFrontendParams struct {
	ComponentType   string         `json:"component_type"`
	DesignSpec      DesignSpec     `json:"design_spec"`
	ProjectContext  map[string]any `json:"project_context"`
	ContentLanguage string         `json:"content_language"`
}

// DesignSectionParams drives a single-section design run.
type DesignSectionParams struct {
	SectionType      string                `json:"section_type"`
	Context          string                `json:"context"`
	PreviousHTML     string                `json:"previous_html"`
	DesignTokens     analysis.DesignTokens `json:"design_tokens"`
	ContentStructure []string              `json:"content_structure,omitempty"`
	Theme            string                `json:"theme"`
	ProjectContext   map[string]any        `json:"project_context"`
	ContentLanguage  string                `json:"content_language"`
}

// RefineFrontendParams drives a refinement over an existing artifact.
type RefineFrontendParams struct {
	PreviousHTML   string         `json:"previous_html"`
	Modifications  string         `json:"modifications"`
	ProjectContext map[string]any `json:"project_context"`
}

// ReplaceSectionParams drives replacing one section inside a page.
type ReplaceSectionParams struct {
	PageHTML             string `json:"page_html"`
	SectionType          string `json:"section_type"`
	Modifications        string `json:"modifications"`
	PreserveDesignTokens bool   `json:"preserve_design_tokens"`
	Theme                string `json:"theme"`
	ContentLanguage      string `json:"content_language"`
}

// DesignFromReferenceParams drives a design run against a reference image.
type DesignFromReferenceParams struct {
	ImagePath       string         `json:"image_path"`
	ComponentType   string         `json:"component_type"`
	Instructions    string         `json:"instructions"`
	Context         string         `json:"context"`
	ProjectContext  map[string]any `json:"project_context"`
	ContentLanguage string         `json:"content_language"`
}

// adaptParams decodes the decision's parameter map into the typed struct for
// its mode, enforcing the structural preconditions.
func adaptParams(d *decision.Decision) (any, error) {
	p := d.Parameters
	switch d.Mode {
	case proto.ModeDesignFrontend, proto.ModeDesignPage:
		return DesignFrontendParams{
			ComponentType:   stringParam(p, "component_type"),
			DesignSpec:      specParam(p),
			ProjectContext:  mapParam(p, "project_context"),
			ContentLanguage: stringParam(p, "content_language"),
		}, nil

	case proto.ModeDesignSection:
		previous, err := requireString(p, "previous_html")
		if err != nil {
			return nil, err
		}
		return DesignSectionParams{
			SectionType:      stringParam(p, "section_type"),
			Context:          stringParam(p, "context"),
			PreviousHTML:     previous,
			DesignTokens:     tokensParam(p),
			ContentStructure: stringsParam(p, "content_structure"),
			Theme:            stringParam(p, "theme"),
			ProjectContext:   mapParam(p, "project_context"),
			ContentLanguage:  stringParam(p, "content_language"),
		}, nil

	case proto.ModeRefineFrontend:
		previous, err := requireString(p, "previous_html")
		if err != nil {
			return nil, err
		}
		return RefineFrontendParams{
			PreviousHTML:   previous,
			Modifications:  stringParam(p, "modifications"),
			ProjectContext: mapParam(p, "project_context"),
		}, nil

	case proto.ModeReplaceSectionInPage:
		page, err := requireString(p, "page_html")
		if err != nil {
			return nil, err
		}
		return ReplaceSectionParams{
			PageHTML:             page,
			SectionType:          stringParam(p, "section_type"),
			Modifications:        stringParam(p, "modifications"),
			PreserveDesignTokens: boolParam(p, "preserve_design_tokens"),
			Theme:                stringParam(p, "theme"),
			ContentLanguage:      stringParam(p, "content_language"),
		}, nil

	case proto.ModeDesignFromReference:
		image, err := requireString(p, "image_path")
		if err != nil {
			return nil, err
		}
		return DesignFromReferenceParams{
			ImagePath:       image,
			ComponentType:   stringParam(p, "component_type"),
			Instructions:    stringParam(p, "instructions"),
			Context:         stringParam(p, "context"),
			ProjectContext:  mapParam(p, "project_context"),
			ContentLanguage: stringParam(p, "content_language"),
		}, nil

	default:
		return nil, fmt.Errorf("unknown execution mode %q", d.Mode)
	}
}

// requireString returns the parameter or ErrMissingContext naming the key.
func requireString(params map[string]any, key string) (string, error) {
	if s, ok := params[key].(string); ok && s != "" {
		return s, nil
	}
	return "", fmt.Errorf("%w: %s", ErrMissingContext, key)
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func boolParam(params map[string]any, key string) bool {
	b, _ := params[key].(bool)
	return b
}

func mapParam(params map[string]any, key string) map[string]any {
	m, _ := params[key].(map[string]any)
	return m
}

func stringsParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func specParam(params map[string]any) DesignSpec {
	raw := mapParam(params, "design_spec")
	return DesignSpec{
		Context:          stringParam(raw, "context"),
		ContentStructure: stringsParam(raw, "content_structure"),
	}
}

func tokensParam(params map[string]any) analysis.DesignTokens {
	if tokens, ok := params["design_tokens"].(analysis.DesignTokens); ok {
		return tokens
	}
	return analysis.DesignTokens{}
}
