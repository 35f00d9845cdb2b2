package comms

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-errors/errors"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/argussoc/console/config"
	"github.com/argussoc/console/json"
	"github.com/argussoc/console/logging"
	"github.com/argussoc/console/utils"
)

type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

var (
	// A Connect call while another connection is live or pending is
	// rejected rather than racing two sockets.
	ErrAlreadyConnected = errors.New("Connection already established or pending")

	ErrNotConnected = errors.New("Not connected")
)

type StateListener func(state ConnectionState)

type stateListenerEntry struct {
	id uint64
	cb StateListener
}

// Owns the single live websocket to the server and the reconnect
// state machine:
//
//	disconnected -> connecting -> connected -> (closed)
//	   -> reconnecting(attempt k) -> ... -> disconnected(exhausted)
//
// There is at most one transport handle and one outstanding
// reconnect timer per manager instance. An intentional Disconnect
// suppresses the reconnect loop entirely.
type ConnectionManager struct {
	mu sync.Mutex

	id         uint64
	config_obj *config.Config
	logger     *logging.LogContext
	router     *EventRouter
	dialer     Dialer
	clock      utils.Clock

	// Bounds outbound frame rate.
	limiter *rate.Limiter

	state       ConnectionState
	attempts    int
	conn        WebSocketConn
	cancel      func()
	intentional bool
	token       string

	// Bumped by every Connect. Goroutines belonging to a previous
	// connection carry the generation they were started under and
	// stand down once it no longer matches.
	generation uint64

	next_listener_id uint64
	state_listeners  []*stateListenerEntry
}

func NewConnectionManager(
	config_obj *config.Config,
	router *EventRouter,
	dialer Dialer,
	clock utils.Clock) *ConnectionManager {

	return &ConnectionManager{
		id:         utils.GetId(),
		config_obj: config_obj,
		logger:     logging.GetLogger(config_obj, &logging.CommsComponent),
		router:     router,
		dialer:     dialer,
		clock:      clock,
		limiter: rate.NewLimiter(
			rate.Limit(config_obj.Client.SendRateHz),
			config_obj.Client.SendRateHz),
		state: StateDisconnected,
	}
}

func (self *ConnectionManager) State() ConnectionState {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.state
}

func (self *ConnectionManager) IsConnected() bool {
	return self.State() == StateConnected
}

// Number of reconnect attempts made since the last successful open.
func (self *ConnectionManager) Attempts() int {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.attempts
}

// Register a listener for connection state transitions. Listeners
// fire in registration order, outside the manager lock.
func (self *ConnectionManager) OnStateChange(cb StateListener) func() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.next_listener_id++
	entry := &stateListenerEntry{
		id: self.next_listener_id,
		cb: cb,
	}
	self.state_listeners = append(self.state_listeners, entry)

	id := entry.id
	return func() {
		self.mu.Lock()
		defer self.mu.Unlock()

		for idx, e := range self.state_listeners {
			if e.id == id {
				self.state_listeners = append(
					self.state_listeners[:idx],
					self.state_listeners[idx+1:]...)
				return
			}
		}
	}
}

func (self *ConnectionManager) setState(state ConnectionState) {
	self.mu.Lock()
	if self.state == state {
		self.mu.Unlock()
		return
	}
	self.state = state
	listeners := append([]*stateListenerEntry{}, self.state_listeners...)
	self.mu.Unlock()

	for _, entry := range listeners {
		entry.cb(state)
	}
}

// Like setState but only while the given connection generation is
// still current, so goroutines of a superseded connection can not
// stomp the state of a newer one.
func (self *ConnectionManager) setStateIf(gen uint64, state ConnectionState) {
	self.mu.Lock()
	if self.generation != gen || self.state == state {
		self.mu.Unlock()
		return
	}
	self.state = state
	listeners := append([]*stateListenerEntry{}, self.state_listeners...)
	self.mu.Unlock()

	for _, entry := range listeners {
		entry.cb(state)
	}
}

func (self *ConnectionManager) wsURL() string {
	result := self.config_obj.Client.WSUrl
	if self.token != "" {
		result += "?token=" + url.QueryEscape(self.token)
	}
	return result
}

// Establish the connection, authenticating with the bearer
// token. Returns once the transport is open, or with an error if the
// initial handshake failed. Initial failures are not retried - the
// reconnect loop only arms on an unintentional close of an
// established connection.
func (self *ConnectionManager) Connect(ctx context.Context, token string) error {
	run_ctx, cancel := context.WithCancel(ctx)

	self.mu.Lock()
	if self.state == StateConnecting || self.state == StateConnected {
		self.mu.Unlock()
		cancel()
		return ErrAlreadyConnected
	}

	// Claim the connecting state inside the same critical section
	// as the guard so two parallel Connect calls can not both pass
	// it. Installing the cancel here also lets Disconnect abort a
	// dial that is still in flight.
	self.generation++
	gen := self.generation
	self.intentional = false
	self.token = token
	self.state = StateConnecting
	self.cancel = cancel
	listeners := append([]*stateListenerEntry{}, self.state_listeners...)
	self.mu.Unlock()

	for _, entry := range listeners {
		entry.cb(StateConnecting)
	}

	conn, err := self.dialer.Dial(run_ctx, self.wsURL())
	if err != nil {
		cancel()

		self.mu.Lock()
		if self.generation != gen {
			self.mu.Unlock()
			return errors.Wrap(err, 0)
		}
		intentional := self.intentional
		self.cancel = nil
		self.mu.Unlock()

		if intentional {
			self.setState(StateDisconnected)
		} else {
			self.setState(StateError)
		}
		return errors.Wrap(err, 0)
	}

	self.mu.Lock()
	if self.intentional || self.generation != gen {
		// A Disconnect raced the handshake. The new socket must
		// not resurrect the connection.
		self.mu.Unlock()
		cancel()
		conn.Close()
		self.setStateIf(gen, StateDisconnected)
		return ErrNotConnected
	}
	self.conn = conn
	self.attempts = 0
	self.mu.Unlock()

	self.setState(StateConnected)
	self.logger.Info("ConnectionManager %v: connected to %v",
		self.id, self.config_obj.Client.WSUrl)

	go self.runLoop(run_ctx, conn, gen)
	return nil
}

// Intentional close. Cancels any pending reconnect timer and leaves
// the manager disconnected until Connect is called again.
func (self *ConnectionManager) Disconnect() {
	self.mu.Lock()
	self.intentional = true
	cancel := self.cancel
	conn := self.conn
	self.cancel = nil
	self.conn = nil
	self.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}

	self.setState(StateDisconnected)
	self.logger.Info("ConnectionManager %v: disconnected", self.id)
}

// Transmit a tagged frame. While not connected this logs and
// reports an error without panicking - callers treat sends as best
// effort.
func (self *ConnectionManager) Send(
	ctx context.Context, event_type EventType, payload interface{}) error {

	self.mu.Lock()
	conn := self.conn
	state := self.state
	self.mu.Unlock()

	if state != StateConnected || conn == nil {
		self.logger.Error("Send: not connected, dropping %v frame", event_type)
		return ErrNotConnected
	}

	err := self.limiter.Wait(ctx)
	if err != nil {
		return errors.Wrap(err, 0)
	}

	frame := &outboundFrame{
		Type:      string(event_type),
		Payload:   payload,
		Timestamp: self.clock.Now(),
	}
	serialized, err := json.Marshal(frame)
	if err != nil {
		return errors.Wrap(err, 0)
	}

	err = conn.WriteMessage(websocket.TextMessage, serialized)
	if err != nil {
		self.logger.Error("Send: %v", err)
		return errors.Wrap(err, 0)
	}
	return nil
}

func (self *ConnectionManager) isIntentional() bool {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.intentional
}

func (self *ConnectionManager) runLoop(
	ctx context.Context, conn WebSocketConn, gen uint64) {
	for {
		self.readPump(ctx, conn)

		if self.isIntentional() || ctx.Err() != nil {
			self.setStateIf(gen, StateDisconnected)
			return
		}

		self.logger.Info(
			"ConnectionManager %v: connection lost, starting reconnect", self.id)

		conn = self.reconnect(ctx, gen)
		if conn == nil {
			return
		}
	}
}

// Read frames until the transport fails. Malformed frames are logged
// and dropped without tearing down the connection.
func (self *ConnectionManager) readPump(ctx context.Context, conn WebSocketConn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		envelope, err := ParseEnvelope(data)
		if err != nil {
			self.logger.Error("Dropping malformed frame: %v", err)
			continue
		}

		self.router.Dispatch(envelope)
	}
}

// Attempt to re-establish the connection with exponential backoff:
// attempt k waits base * 2^(k-1). After the attempt cap the manager
// gives up until an explicit Connect call.
func (self *ConnectionManager) reconnect(
	ctx context.Context, gen uint64) WebSocketConn {
	client := self.config_obj.Client

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Duration(client.ReconnectBaseMs) * time.Millisecond
	policy.RandomizationFactor = 0
	policy.Multiplier = 2
	policy.MaxInterval = 24 * time.Hour
	policy.MaxElapsedTime = 0
	policy.Reset()

	for attempt := 1; attempt <= client.ReconnectMaxAttempts; attempt++ {
		self.mu.Lock()
		if self.generation != gen {
			self.mu.Unlock()
			return nil
		}
		self.attempts = attempt
		self.mu.Unlock()

		self.setStateIf(gen, StateConnecting)

		wait := policy.NextBackOff()
		self.logger.Info(
			"ConnectionManager %v: reconnect attempt %v in %v",
			self.id, attempt, wait)

		select {
		case <-ctx.Done():
			self.setStateIf(gen, StateDisconnected)
			return nil

		case <-self.clock.After(wait):
		}

		if self.isIntentional() {
			self.setStateIf(gen, StateDisconnected)
			return nil
		}

		conn, err := self.dialer.Dial(ctx, self.wsURL())
		if err != nil {
			self.logger.Info(
				"ConnectionManager %v: reconnect attempt %v failed: %v",
				self.id, attempt, err)
			continue
		}

		self.mu.Lock()
		if self.generation != gen {
			self.mu.Unlock()
			conn.Close()
			return nil
		}
		self.conn = conn
		self.attempts = 0
		self.mu.Unlock()

		self.setStateIf(gen, StateConnected)
		self.logger.Info("ConnectionManager %v: reconnected", self.id)
		return conn
	}

	self.logger.Error(
		"ConnectionManager %v: reconnect attempts exhausted, giving up", self.id)
	self.setStateIf(gen, StateDisconnected)
	return nil
}
