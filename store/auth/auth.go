// Session state: user, bearer token, permission list, expiry and UI
// preferences, persisted through the writeback so a reload restores
// the session. The permission lookup here is a convenience for the
// GUI only - the backend re-validates every call.
package auth

import (
	"sync"
	"time"

	"github.com/argussoc/console/config"
	"github.com/argussoc/console/logging"
	"github.com/argussoc/console/models"
	"github.com/argussoc/console/utils"
	"github.com/argussoc/console/writeback"
)

type AuthStore struct {
	mu sync.Mutex

	config_obj *config.Config
	logger     *logging.LogContext
	clock      utils.Clock
	wb         *writeback.Manager

	session *models.Session
}

func NewAuthStore(config_obj *config.Config,
	wb *writeback.Manager, clock utils.Clock) *AuthStore {
	return &AuthStore{
		config_obj: config_obj,
		logger:     logging.GetLogger(config_obj, &logging.StoreComponent),
		clock:      clock,
		wb:         wb,
	}
}

// Restore the session from the writeback slot. An expired session is
// discarded on load.
func (self *AuthStore) Load() error {
	err := self.wb.Load()
	if err != nil {
		return err
	}

	wb := self.wb.GetWriteback()

	self.mu.Lock()
	defer self.mu.Unlock()

	self.session = wb.Session
	if self.session != nil && !self.session.ExpiresAt.IsZero() &&
		self.session.ExpiresAt.Before(self.clock.Now()) {
		self.logger.Info("AuthStore: stored session expired, discarding")
		self.session = nil
	}
	return nil
}

// Install a new session and persist it.
func (self *AuthStore) SetSession(session *models.Session) error {
	self.mu.Lock()
	self.session = session
	self.mu.Unlock()

	return self.wb.MutateWriteback(func(wb *writeback.Writeback) error {
		wb.Session = session
		return nil
	})
}

func (self *AuthStore) Token() string {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.session == nil {
		return ""
	}
	return self.session.Token
}

func (self *AuthStore) User() string {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.session == nil {
		return ""
	}
	return self.session.User
}

func (self *AuthStore) LoggedIn() bool {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.session == nil || self.session.Token == "" {
		return false
	}
	if !self.session.ExpiresAt.IsZero() &&
		self.session.ExpiresAt.Before(self.clock.Now()) {
		return false
	}
	return true
}

func (self *AuthStore) HasPermission(permission string) bool {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.session == nil {
		return false
	}
	for _, p := range self.session.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func (self *AuthStore) ExpiresAt() time.Time {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.session == nil {
		return time.Time{}
	}
	return self.session.ExpiresAt
}

// UI preferences ride in the same writeback slot.
func (self *AuthStore) SetUIPref(key, value string) error {
	return self.wb.MutateWriteback(func(wb *writeback.Writeback) error {
		if wb.UIPrefs == nil {
			wb.UIPrefs = make(map[string]string)
		}
		if wb.UIPrefs[key] == value {
			return writeback.WritebackNoUpdate
		}
		wb.UIPrefs[key] = value
		return nil
	})
}

func (self *AuthStore) GetUIPref(key string) string {
	wb := self.wb.GetWriteback()
	return wb.UIPrefs[key]
}

// Clear the session in memory and on disk.
func (self *AuthStore) Logout() error {
	self.mu.Lock()
	self.session = nil
	self.mu.Unlock()

	return self.wb.MutateWriteback(func(wb *writeback.Writeback) error {
		if wb.Session == nil {
			return writeback.WritebackNoUpdate
		}
		wb.Session = nil
		return nil
	})
}
