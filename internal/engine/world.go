package engine

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/narrator/internal/models"
)

//go:embed prompts/generate_world.txt
var generateWorldPrompt string

var generateWorldTmpl = template.Must(template.New("generate_world").Parse(generateWorldPrompt))

var worldParams = models.GenerationParams{Temperature: 1.0, MaxTokens: 4096}

// GenerateWorld asks svc for a fresh setting. hint may be empty.
func GenerateWorld(ctx context.Context, svc Service, hint string) (*models.GameSession, error) {
	var buf bytes.Buffer
	if err := generateWorldTmpl.Execute(&buf, struct{ Hint string }{Hint: hint}); err != nil {
		return nil, err
	}

	text, err := svc.Generate(ctx, []models.Message{{Role: models.RoleUser, Content: buf.String()}}, worldParams)
	if err != nil {
		return nil, fmt.Errorf("generating world: %w", err)
	}
	return decodeWorld(text)
}

func decodeWorld(text string) (*models.GameSession, error) {
	clean := stripYAMLFence(text)

	var respData struct {
		World           models.World     `yaml:"world"`
		InitialLocation models.Location  `yaml:"initial_location"`
		State           models.GameState `yaml:"state"`
	}
	if err := yaml.Unmarshal([]byte(clean), &respData); err != nil {
		return nil, fmt.Errorf("failed to parse world YAML: %w", err)
	}
	if respData.World.Title == "" {
		return nil, fmt.Errorf("world YAML has no title")
	}

	session := &models.GameSession{
		World:     respData.World,
		State:     respData.State,
		Locations: make(map[string]models.Location),
	}
	if session.State.Mode == "" {
		session.State.Mode = models.ModeNarrative
	}
	if loc := respData.InitialLocation; loc.Name != "" {
		session.Locations[loc.Name] = loc
		if session.State.CurrentLocation == "" {
			session.State.CurrentLocation = loc.Name
		}
	}
	return session, nil
}

func stripYAMLFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```yaml")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
