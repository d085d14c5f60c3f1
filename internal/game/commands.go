package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tatianab/narrator/internal/embedded"
	"github.com/tatianab/narrator/internal/requests"
)

// requestFor recovers the typed request behind cmd. Commands lowered in
// this process carry their Source; commands built from text are parsed
// back from their arguments.
func requestFor(cmd requests.Command) (requests.Request, error) {
	if cmd.Source != nil {
		return cmd.Source, nil
	}
	inv := embedded.Tokenize(cmd.Args)

	switch cmd.Name {
	case requests.CmdSkillCheck:
		r := requests.SkillCheck{
			Skill:   inv.Positional,
			Actor:   inv.Option("actor", requests.DefaultActor),
			Target:  inv.Option("target", ""),
			Context: inv.Option("context", ""),
		}
		r.DifficultyClass = atoiOr(inv.Option("dc", ""), requests.DefaultDifficultyClass)
		for k, v := range inv.Options {
			if name, ok := strings.CutPrefix(k, "mod."); ok {
				if r.Modifiers == nil {
					r.Modifiers = map[string]int{}
				}
				r.Modifiers[name] = atoiOr(v, 0)
			}
		}
		if r.Skill == "" {
			return nil, fmt.Errorf("%s: missing skill", cmd.Name)
		}
		return r, nil

	case requests.CmdStateChange:
		r := requests.StateChange{
			Attribute:  inv.Positional,
			Target:     inv.Option("target", requests.DefaultActor),
			ChangeType: inv.Option("change", requests.DefaultChangeType),
			ItemID:     inv.Option("item", ""),
			Context:    inv.Option("context", ""),
		}
		if v, ok := inv.Options["value"]; ok {
			r.Value = v
		}
		if r.Attribute == "" {
			return nil, fmt.Errorf("%s: missing attribute", cmd.Name)
		}
		return r, nil

	case requests.CmdAddItem, requests.CmdConsumeItem:
		change := requests.ChangeAdd
		if cmd.Name == requests.CmdConsumeItem {
			change = requests.ChangeRemove
		}
		if inv.Positional == "" {
			return nil, fmt.Errorf("%s: missing item", cmd.Name)
		}
		return requests.StateChange{
			Target:     inv.Option("target", requests.DefaultActor),
			Attribute:  "inventory",
			ChangeType: change,
			ItemID:     inv.Positional,
		}, nil

	case requests.CmdModeTransition:
		r := requests.ModeTransition{
			TargetMode: strings.ToUpper(inv.Positional),
			OriginMode: inv.Option("origin", requests.DefaultOriginMode),
			Reason:     inv.Option("reason", ""),
			Surprise:   inv.Option("surprise", "") == "true",
			Enemies:    requests.DecodeSpawnSpecs(inv.Option("enemies", "")),
		}
		if r.TargetMode == "" {
			return nil, fmt.Errorf("%s: missing target mode", cmd.Name)
		}
		return r, nil

	case requests.CmdQuestUpdate:
		r := requests.QuestUpdate{
			QuestID:     inv.Positional,
			ObjectiveID: inv.Option("objective", ""),
			NewStatus:   inv.Option("status", ""),
			Confidence:  atofOr(inv.Option("confidence", ""), 1),
		}
		if r.QuestID == "" || r.ObjectiveID == "" || r.NewStatus == "" {
			return nil, fmt.Errorf("%s: needs quest, objective and status", cmd.Name)
		}
		return r, nil

	case requests.CmdQuestStatus:
		r := requests.QuestStatus{
			QuestID:    inv.Positional,
			NewStatus:  inv.Option("status", ""),
			Confidence: atofOr(inv.Option("confidence", ""), 1),
		}
		if r.QuestID == "" || r.NewStatus == "" {
			return nil, fmt.Errorf("%s: needs quest and status", cmd.Name)
		}
		return r, nil

	case requests.CmdDataQuery:
		return requests.DataQuery{DataType: requests.DataType(inv.Positional)}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, cmd.Name)
}

func atoiOr(s string, def int) int {
	if n, err := strconv.Atoi(strings.TrimPrefix(s, "+")); err == nil {
		return n
	}
	return def
}

func atofOr(s string, def float64) float64 {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

// intValue converts a decoded JSON value or an argument string to an int.
func intValue(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case float64:
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(t), "+"))
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", t)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("missing value")
	}
	return 0, fmt.Errorf("%v is not a number", v)
}
