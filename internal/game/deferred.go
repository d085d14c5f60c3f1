package game

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tatianab/narrator/internal/models"
	"github.com/tatianab/narrator/internal/requests"
)

// Effect is the outcome of one deferred command.
type Effect struct {
	Command requests.Command
	Summary string
	Err     error
}

// SkillRoll is the detail of a resolved skill check.
type SkillRoll struct {
	Skill   string
	Roll    int
	Bonus   int
	Total   int
	DC      int
	Success bool
}

func (r SkillRoll) String() string {
	outcome := "failure"
	if r.Success {
		outcome = "success"
	}
	return fmt.Sprintf("%s check: rolled %d%+d = %d vs DC %d, %s", r.Skill, r.Roll, r.Bonus, r.Total, r.DC, outcome)
}

var currencies = map[string]bool{"gold": true, "silver": true, "copper": true}

// ApplyDeferred applies the commands the pipeline handed back to the
// caller, in order. A failing command does not stop the rest.
func (e *Engine) ApplyDeferred(ctx context.Context, cmds []requests.Command) []Effect {
	effects := make([]Effect, 0, len(cmds))
	for _, cmd := range cmds {
		eff := Effect{Command: cmd}
		if err := ctx.Err(); err != nil {
			eff.Err = err
			effects = append(effects, eff)
			continue
		}
		eff.Summary, eff.Err = e.applyOne(cmd)
		if eff.Err != nil {
			e.log.Warn("deferred command failed", "command", cmd.Name, "error", eff.Err)
		}
		effects = append(effects, eff)
	}
	return effects
}

func (e *Engine) applyOne(cmd requests.Command) (string, error) {
	req, err := requestFor(cmd)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	switch r := req.(type) {
	case requests.SkillCheck:
		return e.skillCheck(r).String(), nil
	case requests.StateChange:
		return e.stateChange(r)
	}
	return "", fmt.Errorf("%w: %s is not deferred", ErrUnsupported, cmd.Name)
}

func (e *Engine) skillCheck(r requests.SkillCheck) SkillRoll {
	c := e.session.State.Character
	bonus := 0
	for name, v := range c.Skills {
		if strings.EqualFold(name, r.Skill) {
			bonus = v
			break
		}
	}
	for _, v := range r.Modifiers {
		bonus += v
	}
	dc := r.DifficultyClass
	if dc <= 0 {
		dc = requests.DefaultDifficultyClass
	}
	roll := e.opts.Roll(20)
	total := roll + bonus
	return SkillRoll{
		Skill:   strings.ToUpper(r.Skill),
		Roll:    roll,
		Bonus:   bonus,
		Total:   total,
		DC:      dc,
		Success: roll == 20 || (roll != 1 && total >= dc),
	}
}

func (e *Engine) stateChange(r requests.StateChange) (string, error) {
	st := &e.session.State
	attr := strings.ToLower(strings.TrimSpace(r.Attribute))
	target := strings.ToLower(r.Target)
	if target != "" && target != requests.DefaultActor {
		key := target + "." + attr
		st.Flags = setFlag(st.Flags, key, fmt.Sprint(r.Value))
		return fmt.Sprintf("%s set to %v", key, r.Value), nil
	}

	switch {
	case attr == "inventory" || attr == "item" || attr == "items":
		item := r.ItemID
		if item == "" && r.Value != nil {
			item = fmt.Sprint(r.Value)
		}
		if item == "" {
			return "", fmt.Errorf("%s: missing item", attr)
		}
		if r.ChangeType == requests.ChangeRemove {
			return e.consumeItem(item, 1)
		}
		return e.addItem(item, 1), nil

	case attr == "health" || attr == "hp":
		c := &st.Character
		n, err := apply(c.Health, r.ChangeType, r.Value)
		if err != nil {
			return "", fmt.Errorf("health: %w", err)
		}
		c.Health = min(max(n, 0), c.MaxHealth)
		return fmt.Sprintf("Health %d/%d", c.Health, c.MaxHealth), nil

	case attr == "location":
		loc := strings.TrimSpace(fmt.Sprint(r.Value))
		if r.Value == nil || loc == "" {
			return "", fmt.Errorf("location: missing value")
		}
		st.CurrentLocation = loc
		if _, ok := e.session.Locations[loc]; !ok {
			if e.session.Locations == nil {
				e.session.Locations = map[string]models.Location{}
			}
			e.session.Locations[loc] = models.Location{Name: loc}
		}
		return "Moved to " + loc, nil

	case currencies[attr]:
		inv := &st.Inventory
		if inv.Currency == nil {
			inv.Currency = map[string]int{}
		}
		n, err := apply(inv.Currency[attr], r.ChangeType, r.Value)
		if err != nil {
			return "", fmt.Errorf("%s: %w", attr, err)
		}
		if n < 0 {
			return "", fmt.Errorf("%w %s: have %d", ErrNotEnough, attr, inv.Currency[attr])
		}
		inv.Currency[attr] = n
		return fmt.Sprintf("%d %s", n, attr), nil
	}

	if cur, ok := st.Character.Attributes[attr]; ok {
		n, err := apply(cur, r.ChangeType, r.Value)
		if err != nil {
			return "", fmt.Errorf("%s: %w", attr, err)
		}
		st.Character.Attributes[attr] = n
		return fmt.Sprintf("%s is now %d", attr, n), nil
	}

	if r.ChangeType != requests.ChangeSet {
		return "", fmt.Errorf("%w: cannot %s unknown attribute %q", ErrUnsupported, r.ChangeType, attr)
	}
	st.Flags = setFlag(st.Flags, attr, fmt.Sprint(r.Value))
	return fmt.Sprintf("%s set to %v", attr, r.Value), nil
}

func apply(cur int, change string, v any) (int, error) {
	n, err := intValue(v)
	if err != nil {
		return 0, err
	}
	switch change {
	case requests.ChangeAdd:
		return cur + n, nil
	case requests.ChangeRemove:
		return cur - n, nil
	case requests.ChangeSet, "":
		return n, nil
	}
	return 0, fmt.Errorf("%w: change type %q", ErrUnsupported, change)
}

func (e *Engine) addItem(name string, qty int) string {
	inv := &e.session.State.Inventory
	name = strings.TrimSpace(name)
	if i := inv.Find(name); i >= 0 {
		inv.Backpack[i].Quantity += qty
		return fmt.Sprintf("%s x%d", inv.Backpack[i].Name, inv.Backpack[i].Quantity)
	}
	inv.Backpack = append(inv.Backpack, models.Item{Name: name, Quantity: qty})
	return fmt.Sprintf("%s x%d", name, qty)
}

func (e *Engine) consumeItem(name string, qty int) (string, error) {
	inv := &e.session.State.Inventory
	i := inv.Find(strings.TrimSpace(name))
	if i < 0 {
		return "", fmt.Errorf("%w: %s", ErrItemNotFound, name)
	}
	it := &inv.Backpack[i]
	if it.Quantity < qty {
		return "", fmt.Errorf("%w %s: have %d", ErrNotEnough, it.Name, it.Quantity)
	}
	it.Quantity -= qty
	if it.Quantity == 0 {
		used := it.Name
		inv.Backpack = append(inv.Backpack[:i], inv.Backpack[i+1:]...)
		return "Used the last " + used, nil
	}
	return fmt.Sprintf("%s x%d left", it.Name, it.Quantity), nil
}

// Flags returns the session flags in key order, formatted key=value.
func (e *Engine) Flags() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.session.State.Flags))
	for k, v := range e.session.State.Flags {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
