package models

import "time"

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// A wholesale replaced snapshot of system counters and rolling
// rates. There is no history - each push overwrites the last.
type MetricsSnapshot struct {
	ActiveAlerts    int     `json:"active_alerts"`
	QuarantineCount int     `json:"quarantine_count"`
	MessagesScanned int64   `json:"messages_scanned"`
	ScanRate        float64 `json:"scan_rate"`
	ThreatRate      float64 `json:"threat_rate"`

	Health HealthStatus `json:"health"`
}

// A message held pending a release or delete decision.
type QuarantinedMessage struct {
	Id         string    `json:"id"`
	Sender     string    `json:"sender"`
	Recipient  string    `json:"recipient"`
	Subject    string    `json:"subject"`
	Reason     string    `json:"reason"`
	ReceivedAt time.Time `json:"received_at"`
}

// Client side session shape persisted to the writeback. A real
// backend must independently re-validate the permission list.
type Session struct {
	User        string            `json:"user"`
	Token       string            `json:"token"`
	Permissions []string          `json:"permissions"`
	ExpiresAt   time.Time         `json:"expires_at"`
	UIPrefs     map[string]string `json:"ui_prefs,omitempty"`
}
