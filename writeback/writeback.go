// The writeback is the only durable client side state - the session
// (user, token, permissions, expiry) and a small set of UI
// preferences. It is stored as a single YAML slot on disk and always
// mutated through the manager so concurrent writers can not corrupt
// the file.
package writeback

import (
	"os"
	"sync"

	"github.com/Velocidex/yaml/v2"
	"github.com/go-errors/errors"

	"github.com/argussoc/console/config"
	"github.com/argussoc/console/models"
)

var (
	// Returned by a mutator to indicate nothing changed - the file
	// will not be rewritten.
	WritebackNoUpdate = errors.New("WritebackNoUpdate")
)

type Writeback struct {
	Session *models.Session   `json:"session,omitempty"`
	UIPrefs map[string]string `json:"ui_prefs,omitempty"`
}

func (self *Writeback) Copy() *Writeback {
	result := &Writeback{
		UIPrefs: make(map[string]string),
	}
	if self.Session != nil {
		session := *self.Session
		session.Permissions = append([]string{}, self.Session.Permissions...)
		result.Session = &session
	}
	for k, v := range self.UIPrefs {
		result.UIPrefs[k] = v
	}
	return result
}

type Manager struct {
	mu sync.Mutex

	config_obj *config.Config
	location   string
	wb         *Writeback
}

func NewManager(config_obj *config.Config) *Manager {
	return &Manager{
		config_obj: config_obj,
		location:   os.ExpandEnv(config_obj.Client.WritebackPath),
		wb:         &Writeback{},
	}
}

func (self *Manager) Location() string {
	return self.location
}

// A missing writeback file is a fresh install, not an error.
func (self *Manager) Load() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.wb = &Writeback{}

	data, err := os.ReadFile(self.location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, 0)
	}

	err = yaml.Unmarshal(data, self.wb)
	if err != nil {
		// A corrupt writeback is reset rather than wedging the
		// console on startup.
		self.wb = &Writeback{}
	}
	return nil
}

func (self *Manager) GetWriteback() *Writeback {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.wb.Copy()
}

func (self *Manager) MutateWriteback(cb func(wb *Writeback) error) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	err := cb(self.wb)
	if err == WritebackNoUpdate {
		return nil
	}
	if err != nil {
		return err
	}

	return self.save()
}

func (self *Manager) save() error {
	serialized, err := yaml.Marshal(self.wb)
	if err != nil {
		return errors.Wrap(err, 0)
	}

	// Write to a temp file in the same directory then rename over
	// the slot so readers never see a partial write.
	tmp := self.location + ".tmp"
	err = os.WriteFile(tmp, serialized, 0600)
	if err != nil {
		return errors.Wrap(err, 0)
	}

	err = os.Rename(tmp, self.location)
	if err != nil {
		return errors.Wrap(err, 0)
	}
	return nil
}
