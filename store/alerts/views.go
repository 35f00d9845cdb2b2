package alerts

import (
	"sort"
	"strings"

	"github.com/argussoc/console/models"
)

// Which fields a free text search matches against.
type SearchField string

const (
	SearchSender  SearchField = "sender"
	SearchSubject SearchField = "subject"
	SearchAll     SearchField = "all"
)

// Client side filter over the currently loaded entries. Empty
// membership slices mean "no constraint".
type FilterSpec struct {
	RiskLevels []models.RiskLevel
	Statuses   []models.AlertStatus

	Search      string
	SearchField SearchField
}

func (self FilterSpec) matches(item *models.AlertRecord) bool {
	if len(self.RiskLevels) > 0 &&
		!containsRisk(self.RiskLevels, item.RiskLevel) {
		return false
	}

	if len(self.Statuses) > 0 &&
		!containsStatus(self.Statuses, item.Status) {
		return false
	}

	if self.Search != "" && !self.matchesSearch(item) {
		return false
	}

	return true
}

// Case insensitive substring match against the selected field set.
func (self FilterSpec) matchesSearch(item *models.AlertRecord) bool {
	needle := strings.ToLower(self.Search)

	contains := func(haystack string) bool {
		return strings.Contains(strings.ToLower(haystack), needle)
	}

	switch self.SearchField {
	case SearchSender:
		return contains(item.Sender)

	case SearchSubject:
		return contains(item.Subject)

	default:
		return contains(item.Sender) ||
			contains(item.Subject) ||
			contains(item.Recipient) ||
			contains(item.Notes)
	}
}

// A derived view over the cache: filtered, then sorted by last
// update descending. Computed on demand, never stored.
func (self *AlertStore) Filtered(spec FilterSpec) []*models.AlertRecord {
	self.mu.Lock()
	var result []*models.AlertRecord
	for _, item := range self.items {
		if spec.matches(item) {
			result = append(result, item.Copy())
		}
	}
	self.mu.Unlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result
}

// The currently loaded page in server order.
func (self *AlertStore) Page() []*models.AlertRecord {
	self.mu.Lock()
	defer self.mu.Unlock()

	var result []*models.AlertRecord
	for _, id := range self.page_order {
		item, pres := self.items[id]
		if pres {
			result = append(result, item.Copy())
		}
	}
	return result
}

func containsRisk(set []models.RiskLevel, level models.RiskLevel) bool {
	for _, l := range set {
		if l == level {
			return true
		}
	}
	return false
}

func containsStatus(set []models.AlertStatus, status models.AlertStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
