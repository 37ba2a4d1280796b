// Package prompt renders user prompts from template files.
//
// Templates are plain text with {variable} placeholders, loaded once from a
// directory at startup. Rendering with a missing variable is an error so a
// template edit cannot silently produce a prompt with a literal placeholder
// in it.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Template names used by the prompt endpoints.
const (
	TemplateCodeReview       = "code-review"
	TemplateTicketAnalysis   = "ticket-analysis"
	TemplateBespokeResponses = "bespoke-responses"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z][a-zA-Z0-9_]*)\}`)

// Renderer holds loaded templates keyed by name (file basename without the
// .txt extension).
type Renderer struct {
	templates map[string]string
}

// NewRenderer loads every *.txt file in dir as a template.
func NewRenderer(dir string) (*Renderer, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan template dir %q: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no templates found in %q", dir)
	}

	templates := make(map[string]string, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load template %q: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), ".txt")
		templates[name] = strings.TrimSpace(string(data))
	}

	return &Renderer{templates: templates}, nil
}

// NewRendererFromMap builds a renderer from in-memory templates. Used by
// tests and by the built-in default templates.
func NewRendererFromMap(templates map[string]string) *Renderer {
	copied := make(map[string]string, len(templates))
	for name, text := range templates {
		copied[name] = strings.TrimSpace(text)
	}
	return &Renderer{templates: copied}
}

// Names returns the loaded template names.
func (r *Renderer) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}

// Render substitutes vars into the named template. Unknown template or
// unresolved placeholder is an error.
func (r *Renderer) Render(name string, vars map[string]string) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}

	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := match[1 : len(match)-1]
		value, ok := vars[key]
		if !ok {
			missing = append(missing, key)
			return match
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("template %q: unresolved placeholders: %s",
			name, strings.Join(missing, ", "))
	}
	return out, nil
}

// DefaultTemplates returns the built-in prompt templates, used when no
// template directory is configured.
func DefaultTemplates() map[string]string {
	return map[string]string{
		TemplateCodeReview: `You are a senior software engineer performing a code review.

Language: {language}
Business requirements: {businessRequirements}

Review the following code for correctness, readability, security issues
and alignment with the business requirements. Respond with concrete,
actionable findings.

{code}`,

		TemplateTicketAnalysis: `You are a support ticket triage assistant. Analyze the ticket below and
respond with a single JSON object using exactly these fields:
category (string), priority (LOW|MEDIUM|HIGH|URGENT), sentiment (string),
summary (string), suggestedResolution (string),
estimatedResolutionTime (integer, hours), keyIssues (string).

Ticket:
{ticketText}`,

		TemplateBespokeResponses: `A customer ticket in category "{category}" raised these key issues:
{issues}

Write a JSON array of suggested customer responses. Each element must be an
object with fields: tone (string), response (string).`,
	}
}
