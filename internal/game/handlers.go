package game

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tatianab/narrator/internal/embedded"
	"github.com/tatianab/narrator/internal/models"
)

// Handlers returns the embedded commands narrative text may contain:
//
//	{ITEM_CREATE apple}          adds the item, renders "You acquired apple"
//	{ITEM_DISCOVER "old key"}    adds the item to the current location
//	{CURRENCY_GAIN 5 type:gold}  adds currency
func (e *Engine) Handlers() embedded.Table {
	return embedded.Table{
		"ITEM_CREATE":   {Category: "Item Creation", Fn: e.itemCreate},
		"ITEM_DISCOVER": {Category: "Item Discovery", Fn: e.itemDiscover},
		"CURRENCY_GAIN": {Category: "Currency", Fn: e.currencyGain},
	}
}

func itemName(inv embedded.Invocation) string {
	return strings.TrimSpace(inv.Option("name", inv.Positional))
}

func (e *Engine) itemCreate(ctx context.Context, inv embedded.Invocation) (string, error) {
	name := itemName(inv)
	if name == "" {
		return "", fmt.Errorf("missing item name")
	}
	qty, err := strconv.Atoi(inv.Option("qty", "1"))
	if err != nil || qty <= 0 {
		return "", fmt.Errorf("bad quantity %q", inv.Option("qty", ""))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.addItem(name, qty)
	if qty > 1 {
		return fmt.Sprintf("You acquired %d %s", qty, name), nil
	}
	return "You acquired " + name, nil
}

func (e *Engine) itemDiscover(ctx context.Context, inv embedded.Invocation) (string, error) {
	name := itemName(inv)
	if name == "" {
		return "", fmt.Errorf("missing item name")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	loc := e.session.CurrentLocation()
	for _, o := range loc.Objects {
		if strings.EqualFold(o, name) {
			return name, nil
		}
	}
	loc.Objects = append(loc.Objects, name)
	if e.session.Locations == nil {
		e.session.Locations = map[string]models.Location{}
	}
	e.session.Locations[loc.Name] = loc
	return name, nil
}

func (e *Engine) currencyGain(ctx context.Context, inv embedded.Invocation) (string, error) {
	n, err := strconv.Atoi(inv.Positional)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("bad amount %q", inv.Positional)
	}
	kind := strings.ToLower(inv.Option("type", "silver"))
	if !currencies[kind] {
		return "", fmt.Errorf("unknown currency %q", kind)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	c := &e.session.State.Inventory.Currency
	if *c == nil {
		*c = map[string]int{}
	}
	(*c)[kind] += n
	return fmt.Sprintf("%d %s", n, kind), nil
}
