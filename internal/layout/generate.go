package layout

import (
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/controlhub-core/internal/controller"
)

// Generate builds a dashboard for a controller: a summary per rule group,
// then a gauge per sensor and a toggle per device in module order, packed
// onto a grid availColumns wide.
func Generate(c *controller.Controller, availColumns int) *Dashboard {
	if availColumns < 1 {
		availColumns = DefaultColumns
	}

	var widgets []Widget
	add := func(kind WidgetKind, title, sourceID string) {
		widgets = append(widgets, Widget{
			ID:       uuid.NewString(),
			Kind:     kind,
			Title:    title,
			SourceID: sourceID,
			X:        -1,
			Y:        -1,
		})
	}

	for _, rg := range c.RuleGroups {
		add(KindRuleSummary, rg.Name, rg.ID)
	}
	for _, m := range c.Modules {
		for _, s := range m.Sensors {
			add(KindGauge, s.Name, s.ID)
		}
		for _, d := range m.Devices {
			add(KindToggle, d.Name, d.ID)
		}
	}

	now := time.Now().UTC()
	return &Dashboard{
		ControllerID: c.ID,
		Columns:      availColumns,
		Widgets:      Pack(widgets, availColumns),
		Generated:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
