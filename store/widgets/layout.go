package widgets

import (
	"sort"

	"github.com/argussoc/console/models"
)

// A full size widget occupies the whole grid row regardless of the
// unit width the renderer uses.
const SpanFullRow = 0

// Column span contract per widget size. The renderer's unit system
// is its own business but it must honor this mapping.
func ColumnSpan(size models.WidgetSize) int {
	switch size {
	case models.SizeSmall:
		return 1
	case models.SizeMedium:
		return 2
	case models.SizeLarge:
		return 3
	case models.SizeFull:
		return SpanFullRow
	}
	return 1
}

// Per-type floor on the refresh cadence - heavy widgets may not poll
// faster than this.
var minRefreshSeconds = map[models.WidgetType]int{
	models.WidgetAlertFeed:        10,
	models.WidgetRiskSummary:      30,
	models.WidgetQuarantineQueue:  30,
	models.WidgetSystemHealth:     5,
	models.WidgetScanThroughput:   5,
	models.WidgetWorkflowStatus:   15,
	models.WidgetAuditTrail:       60,
	models.WidgetTopSenders:       60,
	models.WidgetDetectionTrends:  60,
	models.WidgetConnectionStatus: 5,
}

func clampRefresh(widget_type models.WidgetType, seconds int) int {
	min, pres := minRefreshSeconds[widget_type]
	if !pres {
		min = 30
	}
	if seconds < min {
		return min
	}
	return seconds
}

// The grid render order: active widgets only, positioned ones sorted
// ascending by (row, col), unpositioned ones trailing in their
// original relative order.
func (self *WidgetStore) RenderOrder() []*models.WidgetConfig {
	self.mu.Lock()
	var positioned, unpositioned []*models.WidgetConfig
	for _, widget := range self.widgets {
		if !widget.Active {
			continue
		}
		if widget.Position != nil {
			positioned = append(positioned, widget.Copy())
		} else {
			unpositioned = append(unpositioned, widget.Copy())
		}
	}
	self.mu.Unlock()

	sort.SliceStable(positioned, func(i, j int) bool {
		a, b := positioned[i].Position, positioned[j].Position
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})

	return append(positioned, unpositioned...)
}
