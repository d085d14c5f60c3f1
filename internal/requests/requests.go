// Package requests defines the structured requests a narrative pass may
// emit, the commands they lower to, and the parsed generation output.
package requests

// Action is the discriminator carried in every request object.
type Action string

const (
	ActionSkillCheck     Action = "request_skill_check"
	ActionStateChange    Action = "request_state_change"
	ActionModeTransition Action = "request_mode_transition"
	ActionDataRetrieval  Action = "request_data_retrieval"
	ActionQuestUpdate    Action = "request_quest_update"
	ActionQuestStatus    Action = "request_quest_status"
)

// Known reports whether a is one of the recognized actions.
func (a Action) Known() bool {
	switch a {
	case ActionSkillCheck, ActionStateChange, ActionModeTransition,
		ActionDataRetrieval, ActionQuestUpdate, ActionQuestStatus:
		return true
	}
	return false
}

// Defaults applied to partially specified requests.
const (
	DefaultDifficultyClass = 10
	DefaultActor           = "player"
	DefaultChangeType      = ChangeSet
	DefaultOriginMode      = "narrative"
)

// Change types for StateChange.
const (
	ChangeAdd    = "add"
	ChangeRemove = "remove"
	ChangeSet    = "set"
)

// DataType names a read-only query a narrative pass can ask for.
type DataType string

const (
	DataInventory DataType = "inventory"
	DataStats     DataType = "stats"
	DataQuests    DataType = "quests"
	DataLocation  DataType = "location_info"
)

// DataTypes lists the recognized data types in the order their summaries
// are rendered.
var DataTypes = []DataType{DataStats, DataInventory, DataQuests, DataLocation}

// Known reports whether d maps to a query collaborator.
func (d DataType) Known() bool {
	switch d {
	case DataInventory, DataStats, DataQuests, DataLocation:
		return true
	}
	return false
}

// Request is implemented by every request variant. The set is closed.
type Request interface {
	Action() Action
	// Lower converts the request into dispatch-ready commands.
	Lower() []Command
	isRequest()
}

// SkillCheck asks for a skill roll against a difficulty class.
type SkillCheck struct {
	Actor           string         `json:"actor_id"`
	Skill           string         `json:"skill_name"`
	Target          string         `json:"target_actor_id,omitempty"`
	DifficultyClass int            `json:"difficulty_class"`
	Modifiers       map[string]int `json:"modifiers,omitempty"`
	Context         string         `json:"context,omitempty"`
}

// StateChange mutates one attribute of an entity.
type StateChange struct {
	Target     string `json:"target_entity"`
	Attribute  string `json:"attribute"`
	ChangeType string `json:"change_type"`
	Value      any    `json:"value,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	Context    string `json:"context,omitempty"`
}

// SpawnSpec describes an entity to create as part of a mode transition.
type SpawnSpec struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords,omitempty"`
}

// ModeTransition switches the game into another mode, e.g. combat.
type ModeTransition struct {
	TargetMode string      `json:"target_mode"`
	OriginMode string      `json:"origin_mode"`
	Reason     string      `json:"reason,omitempty"`
	Surprise   bool        `json:"surprise,omitempty"`
	Enemies    []SpawnSpec `json:"enemies,omitempty"`
}

// DataQuery asks the pipeline for more game data before narrating.
type DataQuery struct {
	DataType DataType `json:"data_type"`
}

// Evidence backs a quest progress claim.
type Evidence struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// QuestUpdate changes the status of one quest objective.
type QuestUpdate struct {
	QuestID     string     `json:"quest_id"`
	ObjectiveID string     `json:"objective_id"`
	NewStatus   string     `json:"new_status"`
	Confidence  float64    `json:"confidence"`
	Evidence    []Evidence `json:"evidence,omitempty"`
}

// QuestStatus changes the status of a whole quest.
type QuestStatus struct {
	QuestID    string     `json:"quest_id"`
	NewStatus  string     `json:"new_status"`
	Confidence float64    `json:"confidence"`
	Evidence   []Evidence `json:"evidence,omitempty"`
}

func (SkillCheck) Action() Action     { return ActionSkillCheck }
func (StateChange) Action() Action    { return ActionStateChange }
func (ModeTransition) Action() Action { return ActionModeTransition }
func (DataQuery) Action() Action      { return ActionDataRetrieval }
func (QuestUpdate) Action() Action    { return ActionQuestUpdate }
func (QuestStatus) Action() Action    { return ActionQuestStatus }

func (SkillCheck) isRequest()     {}
func (StateChange) isRequest()    {}
func (ModeTransition) isRequest() {}
func (DataQuery) isRequest()      {}
func (QuestUpdate) isRequest()    {}
func (QuestStatus) isRequest()    {}

// GenerationOutput is the typed result of one narrative pass. Narrative is
// always set (possibly empty) and Requests is never nil.
type GenerationOutput struct {
	Narrative   string
	Requests    []Request
	TimePassage string
}

// NewOutput builds an output that satisfies the non-nil invariant.
func NewOutput(narrative string, reqs []Request) GenerationOutput {
	if reqs == nil {
		reqs = []Request{}
	}
	return GenerationOutput{Narrative: narrative, Requests: reqs}
}

// DataQueries returns the known data queries in out, in order.
func (out GenerationOutput) DataQueries() []DataQuery {
	var qs []DataQuery
	for _, r := range out.Requests {
		if q, ok := r.(DataQuery); ok && q.DataType.Known() {
			qs = append(qs, q)
		}
	}
	return qs
}

// WithoutDataQueries returns a copy of out with every DataQuery removed.
func (out GenerationOutput) WithoutDataQueries() GenerationOutput {
	kept := make([]Request, 0, len(out.Requests))
	for _, r := range out.Requests {
		if _, ok := r.(DataQuery); ok {
			continue
		}
		kept = append(kept, r)
	}
	out.Requests = kept
	return out
}
