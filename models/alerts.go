package models

import "time"

// Risk buckets derived from the numeric score produced by the
// detection pipeline.
type RiskLevel string

const (
	RiskCold RiskLevel = "COLD"
	RiskWarm RiskLevel = "WARM"
	RiskHot  RiskLevel = "HOT"
)

// Score thresholds used by the risk engine when it buckets alerts.
func RiskLevelForScore(score float64) RiskLevel {
	switch {
	case score >= 70:
		return RiskHot
	case score >= 40:
		return RiskWarm
	default:
		return RiskCold
	}
}

// Alert investigation lifecycle.
type AlertStatus string

const (
	StatusNew           AlertStatus = "NEW"
	StatusAcknowledged  AlertStatus = "ACKNOWLEDGED"
	StatusInProgress    AlertStatus = "IN_PROGRESS"
	StatusResolved      AlertStatus = "RESOLVED"
	StatusFalsePositive AlertStatus = "FALSE_POSITIVE"
)

func ValidAlertStatus(status AlertStatus) bool {
	switch status {
	case StatusNew, StatusAcknowledged, StatusInProgress,
		StatusResolved, StatusFalsePositive:
		return true
	}
	return false
}

// One action taken against an alert. Audit entries are immutable -
// the server owns the history, the client only ever appends entries
// it receives back.
type AuditEntry struct {
	Id        string    `json:"id"`
	AlertId   string    `json:"alert_id"`
	Action    string    `json:"action"`
	ActedBy   string    `json:"acted_by"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// A single triaged security event. The alert store owns all live
// instances of this record - no other component may hold a mutable
// reference to one.
type AlertRecord struct {
	Id        string      `json:"id"`
	Score     float64     `json:"score"`
	RiskLevel RiskLevel   `json:"risk_level"`
	Status    AlertStatus `json:"status"`

	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`

	// Free text investigation notes.
	Notes string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	History []*AuditEntry `json:"history,omitempty"`
}

// Deep enough copy for handing records across store boundaries.
func (self *AlertRecord) Copy() *AlertRecord {
	result := *self
	result.History = append([]*AuditEntry{}, self.History...)
	return &result
}
