package models

import "time"

// The closed set of dashboard panel kinds the console knows how to
// render. Adding a new kind requires a renderer, a minimum refresh
// interval and (usually) a data source binding in the GUI.
type WidgetType string

const (
	WidgetAlertFeed        WidgetType = "alert_feed"
	WidgetRiskSummary      WidgetType = "risk_summary"
	WidgetQuarantineQueue  WidgetType = "quarantine_queue"
	WidgetSystemHealth     WidgetType = "system_health"
	WidgetScanThroughput   WidgetType = "scan_throughput"
	WidgetWorkflowStatus   WidgetType = "workflow_status"
	WidgetAuditTrail       WidgetType = "audit_trail"
	WidgetTopSenders       WidgetType = "top_senders"
	WidgetDetectionTrends  WidgetType = "detection_trends"
	WidgetConnectionStatus WidgetType = "connection_status"
)

type WidgetSize string

const (
	SizeSmall  WidgetSize = "small"
	SizeMedium WidgetSize = "medium"
	SizeLarge  WidgetSize = "large"
	SizeFull   WidgetSize = "full"
)

// Grid placement. Widgets without a position trail the positioned
// ones in their original order.
type GridPosition struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type WidgetConfig struct {
	Id   string     `json:"id"`
	Type WidgetType `json:"type"`
	Size WidgetSize `json:"size"`

	Position *GridPosition `json:"position,omitempty"`

	// Refresh cadence in seconds, floored at the per-type minimum.
	RefreshSeconds int  `json:"refresh_seconds"`
	Active         bool `json:"active"`

	LastRefreshed time.Time `json:"last_refreshed,omitempty"`
}

func (self *WidgetConfig) Copy() *WidgetConfig {
	result := *self
	if self.Position != nil {
		pos := *self.Position
		result.Position = &pos
	}
	return &result
}
