// Package prompt turns a GenerationContext into the message list sent to
// the narrative service.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/narrator/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

type turnView struct {
	models.GenerationContext
	Additional string
}

// Build renders the system prompt, replays the history and appends the
// current turn as the final user message.
func Build(gctx models.GenerationContext) ([]models.Message, error) {
	system, err := render("system.tmpl", gctx)
	if err != nil {
		return nil, err
	}

	view := turnView{GenerationContext: gctx}
	if len(gctx.Additional) > 0 {
		data, err := yaml.Marshal(gctx.Additional)
		if err != nil {
			return nil, fmt.Errorf("encoding requested data: %w", err)
		}
		view.Additional = strings.TrimSpace(string(data))
	}
	turn, err := render("turn.tmpl", view)
	if err != nil {
		return nil, err
	}

	msgs := make([]models.Message, 0, len(gctx.History)+2)
	msgs = append(msgs, models.Message{Role: models.RoleSystem, Content: system})
	for _, m := range gctx.History {
		if m.Role == models.RoleSystem || strings.TrimSpace(m.Content) == "" {
			continue
		}
		msgs = append(msgs, m)
	}
	msgs = append(msgs, models.Message{Role: models.RoleUser, Content: turn})
	return msgs, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
