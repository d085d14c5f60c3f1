package requests

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownAction is returned for objects whose action is missing or
	// not recognized. Callers drop these silently.
	ErrUnknownAction = errors.New("unknown request action")
	// ErrMalformed is returned when a recognized request lacks a required
	// field or has the wrong shape.
	ErrMalformed = errors.New("malformed request")
)

// ActionOf reads the discriminator from a raw request object without
// decoding the rest of it.
func ActionOf(raw json.RawMessage) (Action, bool) {
	var head struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", false
	}
	a := Action(strings.ToLower(strings.TrimSpace(head.Action)))
	return a, a.Known()
}

// Decode turns one raw request object into its typed variant, applying the
// per-variant defaults.
func Decode(raw json.RawMessage) (Request, error) {
	a, ok := ActionOf(raw)
	if !ok {
		if a == "" {
			return nil, fmt.Errorf("%w: missing action", ErrUnknownAction)
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, a)
	}

	switch a {
	case ActionSkillCheck:
		var w struct {
			SkillCheck
			Modifiers json.RawMessage `json:"modifiers"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, malformed(a, err)
		}
		r := w.SkillCheck
		r.Modifiers = decodeModifiers(w.Modifiers)
		r.Skill = strings.TrimSpace(r.Skill)
		if r.Skill == "" {
			return nil, missing(a, "skill_name")
		}
		if r.Actor == "" {
			r.Actor = DefaultActor
		}
		if r.DifficultyClass <= 0 {
			r.DifficultyClass = DefaultDifficultyClass
		}
		return r, nil

	case ActionStateChange:
		var r StateChange
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, malformed(a, err)
		}
		r.Attribute = strings.TrimSpace(r.Attribute)
		if r.Attribute == "" {
			return nil, missing(a, "attribute")
		}
		if r.Target == "" {
			r.Target = DefaultActor
		}
		switch ct := strings.ToLower(strings.TrimSpace(r.ChangeType)); ct {
		case ChangeAdd, ChangeRemove, ChangeSet:
			r.ChangeType = ct
		default:
			r.ChangeType = DefaultChangeType
		}
		return r, nil

	case ActionModeTransition:
		var r ModeTransition
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, malformed(a, err)
		}
		r.TargetMode = strings.ToUpper(strings.TrimSpace(r.TargetMode))
		if r.TargetMode == "" {
			return nil, missing(a, "target_mode")
		}
		if r.OriginMode == "" {
			r.OriginMode = DefaultOriginMode
		}
		enemies := r.Enemies[:0]
		for _, e := range r.Enemies {
			if strings.TrimSpace(e.Name) != "" {
				enemies = append(enemies, e)
			}
		}
		r.Enemies = enemies
		return r, nil

	case ActionDataRetrieval:
		var r DataQuery
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, malformed(a, err)
		}
		r.DataType = NormalizeDataType(string(r.DataType))
		if r.DataType == "" {
			return nil, missing(a, "data_type")
		}
		return r, nil

	case ActionQuestUpdate:
		var r QuestUpdate
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, malformed(a, err)
		}
		if r.QuestID == "" || r.ObjectiveID == "" || r.NewStatus == "" {
			return nil, missing(a, "quest_id, objective_id and new_status")
		}
		r.Confidence = clamp01(r.Confidence)
		return r, nil

	case ActionQuestStatus:
		var r QuestStatus
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, malformed(a, err)
		}
		if r.QuestID == "" || r.NewStatus == "" {
			return nil, missing(a, "quest_id and new_status")
		}
		r.Confidence = clamp01(r.Confidence)
		return r, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, a)
}

// NormalizeDataType lowercases a data type and maps aliases onto the
// canonical names.
func NormalizeDataType(s string) DataType {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "location", "location-info", "locationinfo":
		return DataLocation
	case "stat", "character", "character_stats":
		return DataStats
	case "quest", "quest_log":
		return DataQuests
	case "items":
		return DataInventory
	}
	return DataType(s)
}

// decodeModifiers accepts either {"name": n} or a bare number, which some
// generations emit.
func decodeModifiers(raw json.RawMessage) map[string]int {
	if len(raw) == 0 {
		return nil
	}
	var named map[string]float64
	if err := json.Unmarshal(raw, &named); err == nil {
		out := make(map[string]int, len(named))
		for k, v := range named {
			out[k] = int(v)
		}
		return out
	}
	var flat float64
	if err := json.Unmarshal(raw, &flat); err == nil && flat != 0 {
		return map[string]int{"base": int(flat)}
	}
	return nil
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func malformed(a Action, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformed, a, err)
}

func missing(a Action, field string) error {
	return fmt.Errorf("%w: %s requires %s", ErrMalformed, a, field)
}
