// Package templates renders the built-in outreach emails.
package templates

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// ErrTemplateNotFound is returned when a template name does not map to a Kind
var ErrTemplateNotFound = errors.New("template not found")

// Kind identifies a built-in template
type Kind int

const (
	ColdGeneral Kind = iota + 1
	ColdJobSpecific
	Followup1
	Followup2
	FollowupFinal
)

var kindNames = map[Kind]string{
	ColdGeneral:     "cold_general",
	ColdJobSpecific: "cold_job_specific",
	Followup1:       "followup_1",
	Followup2:       "followup_2",
	FollowupFinal:   "followup_final",
}

// Kinds lists every template kind in display order
func Kinds() []Kind {
	return []Kind{ColdGeneral, ColdJobSpecific, Followup1, Followup2, FollowupFinal}
}

// String returns the stored template name
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsFollowup reports whether the kind continues an existing thread
func (k Kind) IsFollowup() bool {
	return k == Followup1 || k == Followup2 || k == FollowupFinal
}

// ParseKind maps a template name to its Kind
func ParseKind(name string) (Kind, error) {
	n := strings.TrimSpace(name)
	for k, v := range kindNames {
		if v == n {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}

// FollowupKind selects the template for a follow-up ordinal
func FollowupKind(ordinal int) Kind {
	switch {
	case ordinal <= 1:
		return Followup1
	case ordinal == 2:
		return Followup2
	default:
		return FollowupFinal
	}
}

// Rendered is a subject/body pair ready for sending
type Rendered struct {
	Subject string
	Body    string
}

type source struct {
	subject string
	body    string
}

type compiled struct {
	subject *template.Template
	body    *template.Template
}

// Renderer renders built-in templates with sender defaults merged in
type Renderer struct {
	defaults  map[string]string
	templates map[Kind]compiled
}

// NewRenderer compiles every built-in template. defaults are applied before
// per-call data, so callers can override any key.
func NewRenderer(defaults map[string]string) (*Renderer, error) {
	r := &Renderer{
		defaults:  defaults,
		templates: make(map[Kind]compiled, len(builtin)),
	}

	for kind, src := range builtin {
		subject, err := template.New(kind.String() + ".subject").Option("missingkey=zero").Parse(src.subject)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s subject: %w", kind, err)
		}
		body, err := template.New(kind.String() + ".body").Option("missingkey=zero").Parse(src.body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s body: %w", kind, err)
		}
		r.templates[kind] = compiled{subject: subject, body: body}
	}

	return r, nil
}

// Render executes the template for kind with data
func (r *Renderer) Render(kind Kind, data map[string]string) (Rendered, error) {
	tmpl, ok := r.templates[kind]
	if !ok {
		return Rendered{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, kind)
	}

	merged := make(map[string]string, len(r.defaults)+len(data))
	for k, v := range r.defaults {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, merged); err != nil {
		return Rendered{}, fmt.Errorf("failed to render %s subject: %w", kind, err)
	}
	if err := tmpl.body.Execute(&body, merged); err != nil {
		return Rendered{}, fmt.Errorf("failed to render %s body: %w", kind, err)
	}

	return Rendered{
		Subject: strings.TrimSpace(subject.String()),
		Body:    strings.TrimSpace(body.String()),
	}, nil
}

// PreviewData returns sample values for previewing templates
func PreviewData() map[string]string {
	return map[string]string{
		"first_name":       "John",
		"company_name":     "Example Corp",
		"job_title":        "Software Engineer",
		"specific_detail":  "your AI platform",
		"achievement_1":    "Built scalable systems serving 1M+ users",
		"achievement_2":    "Led a team of 5 engineers",
		"skill_1":          "Go: 5 years of production experience",
		"skill_2":          "System design: Built microservices architecture",
		"skill_3":          "Leadership: Mentored junior engineers",
		"original_subject": "Software Engineer interested in Example Corp",
	}
}
