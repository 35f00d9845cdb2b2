package widgets

import "github.com/argussoc/console/models"

// The layout a fresh install starts with before the analyst
// customizes anything.
func DefaultLayout() []*models.WidgetConfig {
	return []*models.WidgetConfig{
		{
			Id:             "default-alert-feed",
			Type:           models.WidgetAlertFeed,
			Size:           models.SizeLarge,
			Position:       &models.GridPosition{Row: 0, Col: 0},
			RefreshSeconds: 10,
			Active:         true,
		},
		{
			Id:             "default-system-health",
			Type:           models.WidgetSystemHealth,
			Size:           models.SizeSmall,
			Position:       &models.GridPosition{Row: 0, Col: 3},
			RefreshSeconds: 5,
			Active:         true,
		},
		{
			Id:             "default-risk-summary",
			Type:           models.WidgetRiskSummary,
			Size:           models.SizeMedium,
			Position:       &models.GridPosition{Row: 1, Col: 0},
			RefreshSeconds: 30,
			Active:         true,
		},
		{
			Id:             "default-quarantine-queue",
			Type:           models.WidgetQuarantineQueue,
			Size:           models.SizeMedium,
			Position:       &models.GridPosition{Row: 1, Col: 2},
			RefreshSeconds: 30,
			Active:         true,
		},
		{
			Id:             "default-scan-throughput",
			Type:           models.WidgetScanThroughput,
			Size:           models.SizeFull,
			Position:       &models.GridPosition{Row: 2, Col: 0},
			RefreshSeconds: 5,
			Active:         true,
		},
	}
}
