// Ordered collection of dashboard widget configurations with edit
// mode semantics. Refreshing a widget only stamps its timestamp -
// the underlying data fetch belongs to the widget's own data source.
package widgets

import (
	"sync"
	"time"

	"github.com/argussoc/console/config"
	"github.com/argussoc/console/logging"
	"github.com/argussoc/console/models"
	"github.com/argussoc/console/utils"
)

type WidgetStore struct {
	mu sync.Mutex

	config_obj *config.Config
	logger     *logging.LogContext
	clock      utils.Clock

	widgets   []*models.WidgetConfig
	edit_mode bool
}

func NewWidgetStore(config_obj *config.Config, clock utils.Clock) *WidgetStore {
	return &WidgetStore{
		config_obj: config_obj,
		logger:     logging.GetLogger(config_obj, &logging.StoreComponent),
		clock:      clock,
	}
}

func (self *WidgetStore) AddWidget(widget *models.WidgetConfig) *models.WidgetConfig {
	self.mu.Lock()
	defer self.mu.Unlock()

	widget = widget.Copy()
	if widget.Id == "" {
		widget.Id = utils.NewGUID()
	}
	widget.RefreshSeconds = clampRefresh(widget.Type, widget.RefreshSeconds)

	self.widgets = append(self.widgets, widget)
	return widget.Copy()
}

func (self *WidgetStore) RemoveWidget(id string) {
	self.mu.Lock()
	defer self.mu.Unlock()

	for idx, widget := range self.widgets {
		if widget.Id == id {
			self.widgets = append(
				self.widgets[:idx], self.widgets[idx+1:]...)
			return
		}
	}
}

// Merge an updated record over the stored one by id.
func (self *WidgetStore) UpdateWidget(updated *models.WidgetConfig) {
	self.mu.Lock()
	defer self.mu.Unlock()

	for idx, widget := range self.widgets {
		if widget.Id == updated.Id {
			merged := updated.Copy()
			merged.RefreshSeconds = clampRefresh(
				merged.Type, merged.RefreshSeconds)
			self.widgets[idx] = merged
			return
		}
	}
}

// Wholesale replace, used when loading a saved layout.
func (self *WidgetStore) SetWidgets(widgets []*models.WidgetConfig) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.widgets = nil
	for _, widget := range widgets {
		w := widget.Copy()
		w.RefreshSeconds = clampRefresh(w.Type, w.RefreshSeconds)
		self.widgets = append(self.widgets, w)
	}
}

// Replace with a new ordering after an edit mode drag.
func (self *WidgetStore) ReorderWidgets(widgets []*models.WidgetConfig) {
	self.SetWidgets(widgets)
}

func (self *WidgetStore) SetEditMode(enabled bool) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.edit_mode = enabled
}

func (self *WidgetStore) EditMode() bool {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.edit_mode
}

// Stamp a new last refreshed timestamp on one widget.
func (self *WidgetStore) RefreshWidget(id string) {
	self.mu.Lock()
	defer self.mu.Unlock()

	now := self.clock.Now()
	for _, widget := range self.widgets {
		if widget.Id == id {
			widget.LastRefreshed = now
			return
		}
	}
}

func (self *WidgetStore) RefreshAllWidgets() {
	self.mu.Lock()
	defer self.mu.Unlock()

	now := self.clock.Now()
	for _, widget := range self.widgets {
		widget.LastRefreshed = now
	}
}

// The most recent refresh stamp across all widgets.
func (self *WidgetStore) GetLastRefreshTime() time.Time {
	self.mu.Lock()
	defer self.mu.Unlock()

	var result time.Time
	for _, widget := range self.widgets {
		if widget.LastRefreshed.After(result) {
			result = widget.LastRefreshed
		}
	}
	return result
}

func (self *WidgetStore) Widgets() []*models.WidgetConfig {
	self.mu.Lock()
	defer self.mu.Unlock()

	var result []*models.WidgetConfig
	for _, widget := range self.widgets {
		result = append(result, widget.Copy())
	}
	return result
}

func (self *WidgetStore) Get(id string) (*models.WidgetConfig, bool) {
	self.mu.Lock()
	defer self.mu.Unlock()

	for _, widget := range self.widgets {
		if widget.Id == id {
			return widget.Copy(), true
		}
	}
	return nil, false
}
