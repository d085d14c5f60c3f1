package resolver

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/tatianab/narrator/internal/models"
	"github.com/tatianab/narrator/internal/requests"
)

//go:embed templates/summary.tmpl
var summaryTemplate string

var summaryTmpl = template.Must(template.New("summary").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(summaryTemplate))

type summaryView struct {
	HasStats     bool
	HasInventory bool
	HasQuests    bool
	HasLocation  bool

	StatsErr     string
	InventoryErr string
	QuestsErr    string
	LocationErr  string

	Stats     models.CharacterSheet
	Inventory models.Inventory
	Quests    []models.Quest
	Location  models.Location
}

// Summarize renders a deterministic text summary of the fetched data, one
// block per data type. It returns "" when nothing was fetched.
func Summarize(f Fetched) (string, error) {
	if len(f) == 0 {
		return "", nil
	}

	var v summaryView
	if raw, ok := f[requests.DataStats]; ok {
		v.HasStats = true
		v.StatsErr = f.Err(requests.DataStats)
		v.Stats, _ = raw.(models.CharacterSheet)
	}
	if raw, ok := f[requests.DataInventory]; ok {
		v.HasInventory = true
		v.InventoryErr = f.Err(requests.DataInventory)
		v.Inventory, _ = raw.(models.Inventory)
	}
	if raw, ok := f[requests.DataQuests]; ok {
		v.HasQuests = true
		v.QuestsErr = f.Err(requests.DataQuests)
		v.Quests, _ = raw.([]models.Quest)
	}
	if raw, ok := f[requests.DataLocation]; ok {
		v.HasLocation = true
		v.LocationErr = f.Err(requests.DataLocation)
		v.Location, _ = raw.(models.Location)
	}

	var buf bytes.Buffer
	if err := summaryTmpl.Execute(&buf, v); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
