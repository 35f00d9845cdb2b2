package comms

import (
	"sync"

	"github.com/argussoc/console/config"
	"github.com/argussoc/console/logging"
)

type Handler func(envelope *Envelope)

type handlerEntry struct {
	id      uint64
	handler Handler
}

// Demultiplexes inbound envelopes by event type into registered
// handler lists. Dispatch is synchronous with message receipt and
// handlers for one type fire in registration order.
type EventRouter struct {
	mu sync.Mutex

	logger  *logging.LogContext
	next_id uint64

	handlers map[EventType][]*handlerEntry
}

func NewEventRouter(config_obj *config.Config) *EventRouter {
	return &EventRouter{
		logger:   logging.GetLogger(config_obj, &logging.CommsComponent),
		handlers: make(map[EventType][]*handlerEntry),
	}
}

// Register a handler for an event type. The returned closure removes
// exactly this registration.
func (self *EventRouter) On(event_type EventType, handler Handler) func() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.next_id++
	entry := &handlerEntry{
		id:      self.next_id,
		handler: handler,
	}
	self.handlers[event_type] = append(self.handlers[event_type], entry)

	id := entry.id
	return func() {
		self.remove(event_type, id)
	}
}

// Auto-unsubscribes after the first delivery.
func (self *EventRouter) Once(event_type EventType, handler Handler) func() {
	var once sync.Once
	var cancel func()

	cancel = self.On(event_type, func(envelope *Envelope) {
		once.Do(func() {
			cancel()
			handler(envelope)
		})
	})
	return cancel
}

// Invoke the handler only for alert scoped events correlated to one
// alert id.
func (self *EventRouter) SubscribeToAlert(
	alert_id string, handler Handler) func() {

	filtered := func(envelope *Envelope) {
		if envelope.AlertId == alert_id {
			handler(envelope)
		}
	}

	var cancels []func()
	for event_type := range knownEventTypes {
		if event_type.IsAlertScoped() {
			cancels = append(cancels, self.On(event_type, filtered))
		}
	}

	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

func (self *EventRouter) remove(event_type EventType, id uint64) {
	self.mu.Lock()
	defer self.mu.Unlock()

	entries := self.handlers[event_type]
	for idx, entry := range entries {
		if entry.id == id {
			self.handlers[event_type] = append(
				entries[:idx], entries[idx+1:]...)
			return
		}
	}
}

// Deliver one envelope to all handlers registered for its type. A
// panicking handler is recovered and logged so it can not block
// delivery to the remaining handlers.
func (self *EventRouter) Dispatch(envelope *Envelope) {
	self.mu.Lock()
	entries := append([]*handlerEntry{}, self.handlers[envelope.Type]...)
	self.mu.Unlock()

	for _, entry := range entries {
		self.dispatchOne(entry, envelope)
	}
}

func (self *EventRouter) dispatchOne(entry *handlerEntry, envelope *Envelope) {
	defer func() {
		r := recover()
		if r != nil {
			self.logger.Error("EventRouter: handler for %v panicked: %v",
				envelope.Type, r)
		}
	}()

	entry.handler(envelope)
}
