// Auxiliary cache for system health and rolling counters. The
// snapshot is replaced wholesale on every push - there is no
// history.
package realtime

import (
	"sync"
	"time"

	"github.com/argussoc/console/comms"
	"github.com/argussoc/console/config"
	"github.com/argussoc/console/json"
	"github.com/argussoc/console/logging"
	"github.com/argussoc/console/models"
	"github.com/argussoc/console/utils"
)

// Fixed display mapping for the three health states.
type HealthDisplay struct {
	Label string
	Color string
	Icon  string
}

var healthDisplayTable = map[models.HealthStatus]HealthDisplay{
	models.HealthHealthy: {
		Label: "Operational",
		Color: "green",
		Icon:  "check-circle",
	},
	models.HealthDegraded: {
		Label: "Degraded",
		Color: "amber",
		Icon:  "alert-triangle",
	},
	models.HealthUnhealthy: {
		Label: "Outage",
		Color: "red",
		Icon:  "x-octagon",
	},
}

type RealtimeStore struct {
	mu sync.Mutex

	config_obj *config.Config
	logger     *logging.LogContext
	clock      utils.Clock

	snapshot    models.MetricsSnapshot
	last_update time.Time

	// Single source of truth for the derived "connected" flag.
	conn_state comms.ConnectionState
}

func NewRealtimeStore(config_obj *config.Config, clock utils.Clock) *RealtimeStore {
	return &RealtimeStore{
		config_obj: config_obj,
		logger:     logging.GetLogger(config_obj, &logging.StoreComponent),
		clock:      clock,
		conn_state: comms.StateDisconnected,
	}
}

func (self *RealtimeStore) UpdateMetrics(snapshot models.MetricsSnapshot) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.snapshot = snapshot
	self.last_update = self.clock.Now()
}

func (self *RealtimeStore) ApplyEvent(envelope *comms.Envelope) {
	snapshot := models.MetricsSnapshot{}
	err := json.Unmarshal(envelope.Payload, &snapshot)
	if err != nil {
		self.logger.Error("RealtimeStore: dropping %v event: %v",
			envelope.Type, err)
		return
	}
	self.UpdateMetrics(snapshot)
}

func (self *RealtimeStore) SetConnectionStatus(state comms.ConnectionState) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.conn_state = state
}

func (self *RealtimeStore) Connected() bool {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.conn_state == comms.StateConnected
}

func (self *RealtimeStore) Snapshot() (models.MetricsSnapshot, time.Time) {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.snapshot, self.last_update
}

func (self *RealtimeStore) HealthDisplay() HealthDisplay {
	self.mu.Lock()
	health := self.snapshot.Health
	self.mu.Unlock()

	display, pres := healthDisplayTable[health]
	if !pres {
		return healthDisplayTable[models.HealthUnhealthy]
	}
	return display
}

// Healthy means the backend reports healthy AND the realtime
// connection is up.
func (self *RealtimeStore) IsSystemHealthy() bool {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.snapshot.Health == models.HealthHealthy &&
		self.conn_state == comms.StateConnected
}
