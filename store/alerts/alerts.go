// The alert store is the primary client side cache of triage
// alerts: a map keyed by alert id with derived filtered and sorted
// views computed on demand. Mutations come from three directions -
// explicit fetches, optimistic user actions reconciled against the
// authoritative API response, and server push events - and all of
// them funnel through this store.
package alerts

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

type AlertStore struct {
	mu sync.Mutex

	config_obj *config.Config
	logger     *logging.LogContext
	client     api.Client

	// Live records, exclusively owned. Read paths hand out copies.
	items map[string]*models.AlertRecord

	// Ids of the currently loaded page in server order.
	page_order []string
	total      int

	last_error *store.StoreError
}

func NewAlertStore(config_obj *config.Config, client api.Client) *AlertStore {
	return &AlertStore{
		config_obj: config_obj,
		logger:     logging.GetLogger(config_obj, &logging.StoreComponent),
		client:     client,
		items:      make(map[string]*models.AlertRecord),
	}
}

// Replace the current page's worth of entries and the total count.
// Concurrent fetches are not coalesced: whichever response lands
// last wins, even if it was issued first. Acceptable for a dashboard
// - see the race test.
func (self *AlertStore) Fetch(ctx context.Context, query api.Query) error {
	items, total, err := self.client.ListAlerts(ctx, query)
	if err != nil {
		self.setError(err)
		return err
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	self.page_order = nil
	for _, item := range items {
		self.items[item.Id] = item
		self.page_order = append(self.page_order, item.Id)
	}
	self.total = total
	self.last_error = nil
	return nil
}

// Return the cached record if present, otherwise fetch it
// individually.
func (self *AlertStore) Select(ctx context.Context, id string) (
	*models.AlertRecord, error) {

	self.mu.Lock()
	item, pres := self.items[id]
	if pres {
		item = item.Copy()
	}
	self.mu.Unlock()

	if pres {
		return item, nil
	}

	item, err := self.client.GetAlert(ctx, id)
	if err != nil {
		self.setError(err)
		return nil, err
	}

	self.mu.Lock()
	self.items[item.Id] = item
	result := item.Copy()
	self.mu.Unlock()
	return result, nil
}

// Send a partial update and merge the authoritative response into
// the cache at that key.
func (self *AlertStore) Update(ctx context.Context, id string,
	fields map[string]interface{}) error {

	item, err := self.client.UpdateAlert(ctx, id, fields)
	if err != nil {
		self.setError(err)
		return err
	}

	self.mu.Lock()
	self.items[item.Id] = item
	self.mu.Unlock()
	return nil
}

// Change the investigation status. The analyst rationale travels in
// notes; well formed callers pass a non empty one but that is a UI
// contract, not enforced here. On success the cached record is
// overwritten wholesale with the server's version, which includes
// the grown audit history. The error is returned so the GUI can roll
// back its optimistic rendering.
func (self *AlertStore) ChangeStatus(ctx context.Context, id string,
	status models.AlertStatus, notes string) error {

	item, err := self.client.ChangeStatus(ctx, id, status, notes)
	if err != nil {
		self.setError(err)
		return err
	}

	self.mu.Lock()
	self.items[item.Id] = item
	self.mu.Unlock()
	return nil
}

// Post a note and append the returned audit entry to the cached
// alert's history.
func (self *AlertStore) AddNotes(ctx context.Context, id, text string) error {
	entry, err := self.client.AddNote(ctx, id, text)
	if err != nil {
		self.setError(err)
		return err
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	item, pres := self.items[id]
	if pres {
		item.History = append(item.History, entry)
	}
	return nil
}

// Reconcile a server push into the cache. Create or merge by id.
func (self *AlertStore) ApplyEvent(envelope *comms.Envelope) {
	record := &models.AlertRecord{}
	err := json.Unmarshal(envelope.Payload, record)
	if err != nil || record.Id == "" {
		self.logger.Error("AlertStore: dropping %v event: %v",
			envelope.Type, err)
		return
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	self.items[record.Id] = record
}

// Explicit removal. Alerts are never physically deleted from the
// cache otherwise.
func (self *AlertStore) Remove(id string) {
	self.mu.Lock()
	defer self.mu.Unlock()

	delete(self.items, id)
	for idx, item_id := range self.page_order {
		if item_id == id {
			self.page_order = append(
				self.page_order[:idx], self.page_order[idx+1:]...)
			break
		}
	}
}

// Eviction is store cleared, not per entry.
func (self *AlertStore) Clear() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.items = make(map[string]*models.AlertRecord)
	self.page_order = nil
	self.total = 0
}

func (self *AlertStore) Get(id string) (*models.AlertRecord, bool) {
	self.mu.Lock()
	defer self.mu.Unlock()

	item, pres := self.items[id]
	if !pres {
		return nil, false
	}
	return item.Copy(), true
}

func (self *AlertStore) Total() int {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.total
}

func (self *AlertStore) TotalPages(page_size int) int {
	return store.TotalPages(self.Total(), page_size)
}

func (self *AlertStore) LastError() *store.StoreError {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.last_error
}

func (self *AlertStore) ClearError() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.last_error = nil
}

func (self *AlertStore) setError(err error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.last_error = store.NewStoreError(err)
	self.logger.Error("AlertStore: %v", err)
}
