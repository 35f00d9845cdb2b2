package comms

import (
	"time"

	"github.com/go-errors/errors"

	"github.com/argussoc/console/json"
)

// The closed set of event types the server pushes. The router fans
// envelopes out by this tag; unknown tags are logged and dropped.
type EventType string

const (
	EvAlertCreated          EventType = "alert-created"
	EvAlertUpdated          EventType = "alert-updated"
	EvAlertStatusChanged    EventType = "alert-status-changed"
	EvQuarantineAction      EventType = "quarantine-action"
	EvExportCompleted       EventType = "export-completed"
	EvUserAction            EventType = "user-action"
	EvSystemEvent           EventType = "system-event"
	EvConnectionEstablished EventType = "connection-established"
	EvMetricsUpdate         EventType = "metrics-update"
	EvWorkflowExecution     EventType = "workflow-execution"
)

var knownEventTypes = map[EventType]bool{
	EvAlertCreated:          true,
	EvAlertUpdated:          true,
	EvAlertStatusChanged:    true,
	EvQuarantineAction:      true,
	EvExportCompleted:       true,
	EvUserAction:            true,
	EvSystemEvent:           true,
	EvConnectionEstablished: true,
	EvMetricsUpdate:         true,
	EvWorkflowExecution:     true,
}

// Alert scoped events carry the correlating alert id so per-alert
// subscriptions can filter on it.
func (self EventType) IsAlertScoped() bool {
	switch self {
	case EvAlertCreated, EvAlertUpdated, EvAlertStatusChanged:
		return true
	}
	return false
}

// One inbound frame carries exactly one event.
type Envelope struct {
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	AlertId   string          `json:"alertId,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// Outbound frames sent while the connection is open.
type outboundFrame struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

func ParseEnvelope(data []byte) (*Envelope, error) {
	envelope := &Envelope{}
	err := json.Unmarshal(data, envelope)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	if envelope.Type == "" {
		return nil, errors.New("Frame with no event type")
	}

	if !knownEventTypes[envelope.Type] {
		return nil, errors.Errorf("Unknown event type %v", envelope.Type)
	}

	return envelope, nil
}
