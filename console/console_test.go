package console

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Velocidex/ordereddict"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/argussoc/console/api"
	"github.com/argussoc/console/comms"
	"github.com/argussoc/console/config"
	"github.com/argussoc/console/json"
	"github.com/argussoc/console/models"
	"github.com/argussoc/console/utils"
	"github.com/argussoc/console/writeback"
)

var closedError = errors.New("connection closed")

type fakeConn struct {
	mu       sync.Mutex
	inbound  chan []byte
	outbound [][]byte
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 10),
	}
}

func (self *fakeConn) ReadMessage() (int, []byte, error) {
	data, ok := <-self.inbound
	if !ok {
		return 0, nil, closedError
	}
	return websocket.TextMessage, data, nil
}

func (self *fakeConn) WriteMessage(message_type int, data []byte) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.closed {
		return closedError
	}
	self.outbound = append(self.outbound, data)
	return nil
}

func (self *fakeConn) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	if !self.closed {
		self.closed = true
		close(self.inbound)
	}
	return nil
}

func (self *fakeConn) Outbound() [][]byte {
	self.mu.Lock()
	defer self.mu.Unlock()

	return append([][]byte{}, self.outbound...)
}

type fakeDialer struct {
	mu   sync.Mutex
	urls []string
	conn *fakeConn
}

func (self *fakeDialer) Dial(ctx context.Context, url string) (
	comms.WebSocketConn, error) {

	self.mu.Lock()
	defer self.mu.Unlock()

	self.urls = append(self.urls, url)
	self.conn = newFakeConn()
	return self.conn, nil
}

type fakeAPI struct {
	api.NullClient

	mu     sync.Mutex
	token  string
	closes int
}

func (self *fakeAPI) SetToken(token string) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.token = token
}

func (self *fakeAPI) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.closes++
	return nil
}

func (self *fakeAPI) Closes() int {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.closes
}

func (self *fakeAPI) Token() string {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.token
}

// Poll for an asynchronously delivered condition.
func waitFor(t require.TestingT, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Fail(t, "condition never became true")
}

type ConsoleTestSuite struct {
	suite.Suite

	config_obj *config.Config
	client     *fakeAPI
	dialer     *fakeDialer
	clock      *utils.RecordingClock
	console    *Console
}

func (self *ConsoleTestSuite) SetupTest() {
	self.config_obj = config.GetDefaultConfig()
	self.config_obj.Client.WritebackPath = filepath.Join(
		self.T().TempDir(), "console.writeback.yaml")

	self.client = &fakeAPI{}
	self.dialer = &fakeDialer{}
	self.clock = &utils.RecordingClock{
		MockNow: time.Unix(1700000000, 0),
	}
	self.console = New(self.config_obj, self.client, self.dialer, self.clock)
}

// Persist a session the way a previous console run would have.
func (self *ConsoleTestSuite) seedSession() {
	manager := writeback.NewManager(self.config_obj)
	err := manager.MutateWriteback(func(wb *writeback.Writeback) error {
		wb.Session = &models.Session{
			User:      "analyst",
			Token:     "tok-123",
			ExpiresAt: self.clock.MockNow.Add(8 * time.Hour),
		}
		return nil
	})
	require.NoError(self.T(), err)
}

func (self *ConsoleTestSuite) push(event_type comms.EventType, payload interface{}) {
	serialized, err := json.Marshal(payload)
	require.NoError(self.T(), err)

	frame, err := json.Marshal(&comms.Envelope{
		Type:    event_type,
		Payload: serialized,
	})
	require.NoError(self.T(), err)

	self.dialer.conn.inbound <- frame
}

func (self *ConsoleTestSuite) TestStartRestoresSessionAndConnects() {
	self.seedSession()

	require.NoError(self.T(), self.console.Start(context.Background()))
	defer self.console.Stop()

	// The restored token reaches both the REST client and the
	// websocket dial URL.
	assert.Equal(self.T(), "tok-123", self.client.Token())
	require.Len(self.T(), self.dialer.urls, 1)
	assert.Contains(self.T(), self.dialer.urls[0], "token=tok-123")

	// A fresh install gets the default dashboard.
	assert.NotEmpty(self.T(), self.console.Widgets.Widgets())

	assert.True(self.T(), self.console.Conn.IsConnected())
	waitFor(self.T(), self.console.Realtime.Connected)
}

func (self *ConsoleTestSuite) TestPushedEventsReachStores() {
	require.NoError(self.T(), self.console.Start(context.Background()))
	defer self.console.Stop()

	self.push(comms.EvAlertCreated, &models.AlertRecord{
		Id:     "A-1",
		Score:  85,
		Status: models.StatusNew,
	})
	waitFor(self.T(), func() bool {
		_, pres := self.console.Alerts.Get("A-1")
		return pres
	})

	self.push(comms.EvMetricsUpdate, &models.MetricsSnapshot{
		ActiveAlerts: 7,
		Health:       models.HealthHealthy,
	})
	waitFor(self.T(), func() bool {
		snapshot, _ := self.console.Realtime.Snapshot()
		return snapshot.ActiveAlerts == 7
	})

	self.push(comms.EvWorkflowExecution, &models.WorkflowExecution{
		Id:          "run-1",
		WorkflowId:  "wf-1",
		TriggeredAt: self.clock.MockNow,
		Status:      models.ExecutionRunning,
	})
	waitFor(self.T(), func() bool {
		return len(self.console.Workflows.History("wf-1", 0)) == 1
	})

	self.push(comms.EvQuarantineAction, map[string]interface{}{
		"action": "quarantined",
		"message": &models.QuarantinedMessage{
			Id:      "q-1",
			Subject: "Invoice",
		},
	})
	waitFor(self.T(), func() bool {
		return len(self.console.Quarantine.Messages()) == 1
	})
}

func (self *ConsoleTestSuite) TestReportUserAction() {
	self.seedSession()
	require.NoError(self.T(), self.console.Start(context.Background()))
	defer self.console.Stop()

	self.console.ReportUserAction(context.Background(),
		"alert_opened", ordereddict.NewDict().Set("alert_id", "A-1"))

	conn := self.dialer.conn
	waitFor(self.T(), func() bool {
		return len(conn.Outbound()) == 1
	})

	frame := string(conn.Outbound()[0])
	assert.Contains(self.T(), frame, `"type":"user-action"`)
	assert.Contains(self.T(), frame, `"action":"alert_opened"`)
	assert.Contains(self.T(), frame, `"user":"analyst"`)
}

func (self *ConsoleTestSuite) TestStopDisconnects() {
	require.NoError(self.T(), self.console.Start(context.Background()))
	waitFor(self.T(), self.console.Realtime.Connected)

	self.console.Stop()

	assert.Equal(self.T(), comms.StateDisconnected, self.console.Conn.State())
	waitFor(self.T(), func() bool {
		return !self.console.Realtime.Connected()
	})

	assert.Equal(self.T(), 1, self.client.Closes())

	// Subscriptions are gone: a second Stop is harmless.
	self.console.Stop()
	assert.Equal(self.T(), 2, self.client.Closes())
}

func TestConsole(t *testing.T) {
	suite.Run(t, &ConsoleTestSuite{})
}
