package generation

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// prompt is a parsed template file. The file body renders the user message
// and its "system" block renders the system prompt.
type prompt struct {
	tmpl *template.Template
}

func loadPrompt(name string) (*prompt, error) {
	tmpl, err := template.New(name).Option("missingkey=error").ParseFS(promptFS, "prompts/"+name)
	if err != nil {
		return nil, fmt.Errorf("%w: parse prompt %s: %v", ErrInvalidConfig, name, err)
	}
	if tmpl.Lookup("system") == nil {
		return nil, fmt.Errorf("%w: prompt %s has no system block", ErrInvalidConfig, name)
	}
	return &prompt{tmpl: tmpl}, nil
}

func mustLoadPrompt(name string) *prompt {
	p, err := loadPrompt(name)
	if err != nil {
		panic(err)
	}
	return p
}

// render returns the system prompt and the user message for data.
func (p *prompt) render(data any) (system, user string, err error) {
	var sys, body bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&sys, "system", data); err != nil {
		return "", "", fmt.Errorf("failed to execute system prompt: %w", err)
	}
	if err := p.tmpl.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return sys.String(), body.String(), nil
}

var (
	questionPrompt = mustLoadPrompt("question.tmpl")
	judgePrompt    = mustLoadPrompt("judge.tmpl")
	explainPrompt  = mustLoadPrompt("explain.tmpl")
)
