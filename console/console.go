// The console aggregate owns one instance of every store plus the
// connection manager and event router, constructed at session start
// and torn down on logout. There are no package level singletons -
// everything is passed by injection.
package console

import (
	"context"

	"github.com/Velocidex/ordereddict"

	"github.com/argussoc/console/api"
	"github.com/argussoc/console/comms"
	"github.com/argussoc/console/config"
	"github.com/argussoc/console/logging"
	"github.com/argussoc/console/store/alerts"
	"github.com/argussoc/console/store/auth"
	"github.com/argussoc/console/store/quarantine"
	"github.com/argussoc/console/store/realtime"
	"github.com/argussoc/console/store/widgets"
	"github.com/argussoc/console/store/workflows"
	"github.com/argussoc/console/utils"
	"github.com/argussoc/console/writeback"
)

type Console struct {
	config_obj *config.Config
	logger     *logging.LogContext

	API    api.Client
	Router *comms.EventRouter
	Conn   *comms.ConnectionManager

	Writeback  *writeback.Manager
	Auth       *auth.AuthStore
	Alerts     *alerts.AlertStore
	Widgets    *widgets.WidgetStore
	Workflows  *workflows.WorkflowStore
	Realtime   *realtime.RealtimeStore
	Quarantine *quarantine.QuarantineStore

	cancels []func()
}

// Production wiring: real transport, real clock, HTTP API client.
func NewConsole(config_obj *config.Config) *Console {
	return New(config_obj,
		api.NewHTTPClient(config_obj),
		comms.WSDialer{},
		utils.RealClock{})
}

// Explicit dependency injection, used directly by tests.
func New(config_obj *config.Config,
	client api.Client,
	dialer comms.Dialer,
	clock utils.Clock) *Console {

	router := comms.NewEventRouter(config_obj)
	wb := writeback.NewManager(config_obj)

	self := &Console{
		config_obj: config_obj,
		logger:     logging.GetLogger(config_obj, &logging.GUIComponent),

		API:    client,
		Router: router,
		Conn:   comms.NewConnectionManager(config_obj, router, dialer, clock),

		Writeback:  wb,
		Auth:       auth.NewAuthStore(config_obj, wb, clock),
		Alerts:     alerts.NewAlertStore(config_obj, client),
		Widgets:    widgets.NewWidgetStore(config_obj, clock),
		Workflows:  workflows.NewWorkflowStore(config_obj, client),
		Realtime:   realtime.NewRealtimeStore(config_obj, clock),
		Quarantine: quarantine.NewQuarantineStore(config_obj, client),
	}

	self.wire()
	return self
}

// Bind server pushes to the store that owns each entity kind.
func (self *Console) wire() {
	router := self.Router

	for _, event_type := range []comms.EventType{
		comms.EvAlertCreated,
		comms.EvAlertUpdated,
		comms.EvAlertStatusChanged,
	} {
		self.cancels = append(self.cancels,
			router.On(event_type, self.Alerts.ApplyEvent))
	}

	self.cancels = append(self.cancels,
		router.On(comms.EvQuarantineAction, self.Quarantine.ApplyEvent),
		router.On(comms.EvMetricsUpdate, self.Realtime.ApplyEvent),
		router.On(comms.EvWorkflowExecution, self.Workflows.ApplyEvent),

		router.On(comms.EvConnectionEstablished, func(envelope *comms.Envelope) {
			self.logger.Info("Console: server acknowledged connection")
		}),
		router.On(comms.EvExportCompleted, func(envelope *comms.Envelope) {
			self.logger.Info("Console: export completed")
		}),

		self.Conn.OnStateChange(self.Realtime.SetConnectionStatus),
	)
}

// Restore the persisted session and open the realtime connection.
func (self *Console) Start(ctx context.Context) error {
	err := self.Auth.Load()
	if err != nil {
		return err
	}

	token := self.Auth.Token()
	self.API.SetToken(token)

	if len(self.Widgets.Widgets()) == 0 {
		self.Widgets.SetWidgets(widgets.DefaultLayout())
	}

	return self.Conn.Connect(ctx, token)
}

// Teardown on logout: drop subscriptions and close the transport.
func (self *Console) Stop() {
	// Close the transport first so the final disconnected state
	// still reaches the subscribed stores.
	self.Conn.Disconnect()

	for _, cancel := range self.cancels {
		cancel()
	}
	self.cancels = nil

	err := self.API.Close()
	if err != nil {
		self.logger.Error("Console: closing API client: %v", err)
	}
}

// Report an analyst action upstream. Best effort - failures are
// logged by the connection manager and do not affect local state.
func (self *Console) ReportUserAction(
	ctx context.Context, action string, details *ordereddict.Dict) {

	payload := ordereddict.NewDict().
		Set("action", action).
		Set("user", self.Auth.User())
	if details != nil {
		payload.Set("details", details)
	}

	_ = self.Conn.Send(ctx, comms.EvUserAction, payload)
}
