package models

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSaveDir is used when no save directory is configured.
const DefaultSaveDir = ".saves"

// Save writes the session as world.yaml, state.yaml, history.yaml and
// locations.yaml under dir/name.
func (s *GameSession) Save(dir, name string) error {
	sessionDir := filepath.Join(dir, name)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return err
	}

	files := map[string]any{
		"world.yaml":     s.World,
		"state.yaml":     s.State,
		"history.yaml":   s.History,
		"locations.yaml": s.Locations,
	}
	for file, v := range files {
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(sessionDir, file), data, 0644); err != nil {
			return err
		}
	}
	return nil
}

func LoadSession(dir, name string) (*GameSession, error) {
	sessionDir := filepath.Join(dir, name)
	session := &GameSession{}

	if err := readYAML(filepath.Join(sessionDir, "world.yaml"), &session.World); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(sessionDir, "state.yaml"), &session.State); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(sessionDir, "history.yaml"), &session.History); err != nil {
		return nil, err
	}
	// Older saves have no locations file.
	err := readYAML(filepath.Join(sessionDir, "locations.yaml"), &session.Locations)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if session.Locations == nil {
		session.Locations = make(map[string]Location)
	}
	return session, nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

func ListSessions(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var sessions []string
	for _, entry := range entries {
		if entry.IsDir() {
			// Check if world.yaml exists as a marker for a valid session
			worldPath := filepath.Join(dir, entry.Name(), "world.yaml")
			if _, err := os.Stat(worldPath); err == nil {
				sessions = append(sessions, entry.Name())
			}
		}
	}
	return sessions, nil
}
