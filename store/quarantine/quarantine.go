// Cache of messages held in quarantine. Release and delete act
// optimistically - the row disappears immediately and is restored if
// the API call fails.
package quarantine

import (
	"context"
	"sync"

	"github.com/argussoc/console/api"
	"github.com/argussoc/console/comms"
	"github.com/argussoc/console/config"
	"github.com/argussoc/console/json"
	"github.com/argussoc/console/logging"
	"github.com/argussoc/console/models"
	"github.com/argussoc/console/store"
)

type quarantineEvent struct {
	Action  string                     `json:"action"`
	Message *models.QuarantinedMessage `json:"message"`
}

type QuarantineStore struct {
	mu sync.Mutex

	config_obj *config.Config
	logger     *logging.LogContext
	client     api.Client

	items map[string]*models.QuarantinedMessage
	order []string
	total int

	last_error *store.StoreError
}

func NewQuarantineStore(config_obj *config.Config, client api.Client) *QuarantineStore {
	return &QuarantineStore{
		config_obj: config_obj,
		logger:     logging.GetLogger(config_obj, &logging.StoreComponent),
		client:     client,
		items:      make(map[string]*models.QuarantinedMessage),
	}
}

func (self *QuarantineStore) Fetch(ctx context.Context, query api.Query) error {
	items, total, err := self.client.ListQuarantine(ctx, query)
	if err != nil {
		self.setError(err)
		return err
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	self.order = nil
	for _, item := range items {
		self.items[item.Id] = item
		self.order = append(self.order, item.Id)
	}
	self.total = total
	self.last_error = nil
	return nil
}

func (self *QuarantineStore) Release(ctx context.Context, id string) error {
	return self.act(ctx, id, self.client.ReleaseMessage)
}

func (self *QuarantineStore) Delete(ctx context.Context, id string) error {
	return self.act(ctx, id, self.client.DeleteMessage)
}

// Optimistically drop the row, restore it if the call fails.
func (self *QuarantineStore) act(ctx context.Context, id string,
	action func(ctx context.Context, id string) error) error {

	self.mu.Lock()
	item, pres := self.items[id]
	var idx int = -1
	if pres {
		delete(self.items, id)
		for i, item_id := range self.order {
			if item_id == id {
				idx = i
				self.order = append(self.order[:i], self.order[i+1:]...)
				break
			}
		}
	}
	self.mu.Unlock()

	err := action(ctx, id)
	if err != nil {
		if pres {
			self.mu.Lock()
			self.items[id] = item
			if idx >= 0 && idx <= len(self.order) {
				self.order = append(self.order[:idx],
					append([]string{id}, self.order[idx:]...)...)
			} else {
				self.order = append(self.order, id)
			}
			self.mu.Unlock()
		}
		self.setError(err)
		return err
	}
	return nil
}

// Server pushed quarantine actions reconcile the cache.
func (self *QuarantineStore) ApplyEvent(envelope *comms.Envelope) {
	event := &quarantineEvent{}
	err := json.Unmarshal(envelope.Payload, event)
	if err != nil || event.Message == nil || event.Message.Id == "" {
		self.logger.Error("QuarantineStore: dropping %v event: %v",
			envelope.Type, err)
		return
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	switch event.Action {
	case "release", "delete":
		delete(self.items, event.Message.Id)
		for idx, item_id := range self.order {
			if item_id == event.Message.Id {
				self.order = append(
					self.order[:idx], self.order[idx+1:]...)
				break
			}
		}

	default:
		_, pres := self.items[event.Message.Id]
		self.items[event.Message.Id] = event.Message
		if !pres {
			self.order = append(self.order, event.Message.Id)
		}
	}
}

func (self *QuarantineStore) Messages() []*models.QuarantinedMessage {
	self.mu.Lock()
	defer self.mu.Unlock()

	var result []*models.QuarantinedMessage
	for _, id := range self.order {
		item, pres := self.items[id]
		if pres {
			result = append(result, item)
		}
	}
	return result
}

func (self *QuarantineStore) Total() int {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.total
}

func (self *QuarantineStore) LastError() *store.StoreError {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.last_error
}

func (self *QuarantineStore) ClearError() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.last_error = nil
}

func (self *QuarantineStore) setError(err error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.last_error = store.NewStoreError(err)
	self.logger.Error("QuarantineStore: %v", err)
}
