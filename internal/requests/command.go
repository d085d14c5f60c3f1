package requests

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Command names produced by lowering requests.
const (
	CmdSkillCheck     = "SKILL_CHECK"
	CmdStateChange    = "STATE_CHANGE"
	CmdAddItem        = "ADD_ITEM"
	CmdConsumeItem    = "CONSUME_ITEM"
	CmdModeTransition = "MODE_TRANSITION"
	CmdDataQuery      = "DATA_QUERY"
	CmdQuestUpdate    = "QUEST_UPDATE"
	CmdQuestStatus    = "QUEST_STATUS"
)

// Command is the dispatch-ready form of a request or an embedded token.
// Source is set when the command was lowered from a Request.
type Command struct {
	Name   string  `json:"name"`
	Args   string  `json:"args"`
	Source Request `json:"-"`
}

func (c Command) String() string {
	if c.Args == "" {
		return "{" + c.Name + "}"
	}
	return "{" + c.Name + " " + c.Args + "}"
}

// LowerAll lowers every request in order.
func LowerAll(reqs []Request) []Command {
	var cmds []Command
	for _, r := range reqs {
		cmds = append(cmds, r.Lower()...)
	}
	return cmds
}

func (r SkillCheck) Lower() []Command {
	opts := map[string]string{
		"actor": r.Actor,
		"dc":    strconv.Itoa(r.DifficultyClass),
	}
	if r.Target != "" {
		opts["target"] = r.Target
	}
	if r.Context != "" {
		opts["context"] = r.Context
	}
	for k, v := range r.Modifiers {
		opts["mod."+k] = strconv.Itoa(v)
	}
	return []Command{{Name: CmdSkillCheck, Args: FormatArgs(r.Skill, opts), Source: r}}
}

// inventoryAttributes are the StateChange attributes that address the
// player's items rather than a scalar stat.
var inventoryAttributes = map[string]bool{
	"inventory": true,
	"item":      true,
	"items":     true,
}

func (r StateChange) Lower() []Command {
	opts := map[string]string{"target": r.Target}
	if r.Context != "" {
		opts["context"] = r.Context
	}

	if inventoryAttributes[strings.ToLower(r.Attribute)] {
		item := r.ItemID
		if item == "" {
			item = valueString(r.Value)
		}
		switch r.ChangeType {
		case ChangeAdd:
			return []Command{{Name: CmdAddItem, Args: FormatArgs(item, opts), Source: r}}
		case ChangeRemove:
			return []Command{{Name: CmdConsumeItem, Args: FormatArgs(item, opts), Source: r}}
		}
	}

	opts["change"] = r.ChangeType
	if r.Value != nil {
		opts["value"] = valueString(r.Value)
	}
	if r.ItemID != "" {
		opts["item"] = r.ItemID
	}
	return []Command{{Name: CmdStateChange, Args: FormatArgs(r.Attribute, opts), Source: r}}
}

func (r ModeTransition) Lower() []Command {
	opts := map[string]string{"origin": r.OriginMode}
	if r.Reason != "" {
		opts["reason"] = r.Reason
	}
	if r.Surprise {
		opts["surprise"] = "true"
	}
	if len(r.Enemies) > 0 {
		opts["enemies"] = EncodeSpawnSpecs(r.Enemies)
	}
	return []Command{{Name: CmdModeTransition, Args: FormatArgs(r.TargetMode, opts), Source: r}}
}

func (r DataQuery) Lower() []Command {
	return []Command{{Name: CmdDataQuery, Args: string(r.DataType), Source: r}}
}

func (r QuestUpdate) Lower() []Command {
	opts := map[string]string{
		"objective":  r.ObjectiveID,
		"status":     r.NewStatus,
		"confidence": strconv.FormatFloat(r.Confidence, 'f', 2, 64),
	}
	if len(r.Evidence) > 0 {
		opts["evidence"] = encodeEvidence(r.Evidence)
	}
	return []Command{{Name: CmdQuestUpdate, Args: FormatArgs(r.QuestID, opts), Source: r}}
}

func (r QuestStatus) Lower() []Command {
	opts := map[string]string{
		"status":     r.NewStatus,
		"confidence": strconv.FormatFloat(r.Confidence, 'f', 2, 64),
	}
	if len(r.Evidence) > 0 {
		opts["evidence"] = encodeEvidence(r.Evidence)
	}
	return []Command{{Name: CmdQuestStatus, Args: FormatArgs(r.QuestID, opts), Source: r}}
}

// FormatArgs renders a positional token followed by key:value options in
// the embedded-token argument syntax. Keys are sorted so the output is
// stable; values containing whitespace or quotes are quoted.
func FormatArgs(positional string, opts map[string]string) string {
	var b strings.Builder
	b.WriteString(quoteArg(positional))

	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if opts[k] == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(quoteArg(opts[k]))
	}
	return b.String()
}

func quoteArg(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, " \t\n\"{}") {
		return strconv.Quote(s)
	}
	return s
}

// EncodeSpawnSpecs packs enemy specs into one option value:
// name=kw1,kw2;name2. DecodeSpawnSpecs reverses it.
func EncodeSpawnSpecs(specs []SpawnSpec) string {
	parts := make([]string, 0, len(specs))
	for _, s := range specs {
		p := sanitizeSpec(s.Name)
		if len(s.Keywords) > 0 {
			kws := make([]string, 0, len(s.Keywords))
			for _, k := range s.Keywords {
				kws = append(kws, sanitizeSpec(k))
			}
			p += "=" + strings.Join(kws, ",")
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ";")
}

// DecodeSpawnSpecs parses the value produced by EncodeSpawnSpecs.
func DecodeSpawnSpecs(s string) []SpawnSpec {
	var specs []SpawnSpec
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, kws, _ := strings.Cut(part, "=")
		spec := SpawnSpec{Name: strings.TrimSpace(name)}
		for _, k := range strings.Split(kws, ",") {
			if k = strings.TrimSpace(k); k != "" {
				spec.Keywords = append(spec.Keywords, k)
			}
		}
		specs = append(specs, spec)
	}
	return specs
}

func sanitizeSpec(s string) string {
	return strings.NewReplacer(";", " ", "=", " ", ",", " ").Replace(strings.TrimSpace(s))
}

func encodeEvidence(ev []Evidence) string {
	parts := make([]string, 0, len(ev))
	for _, e := range ev {
		parts = append(parts, e.Type+"="+e.Key)
	}
	return strings.Join(parts, ";")
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}
