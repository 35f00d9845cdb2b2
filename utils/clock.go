package utils

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	Sleep(d time.Duration)
}

type RealClock struct{}

func (self RealClock) Now() time.Time {
	return time.Now()
}

func (self RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (self RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// A test clock that records every requested wait and fires it
// immediately. Tests assert on the recorded schedule instead of
// sleeping.
type RecordingClock struct {
	mu sync.Mutex

	MockNow time.Time
	waits   []time.Duration
}

func (self *RecordingClock) Now() time.Time {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.MockNow
}

func (self *RecordingClock) After(d time.Duration) <-chan time.Time {
	self.mu.Lock()
	self.waits = append(self.waits, d)
	self.MockNow = self.MockNow.Add(d)
	now := self.MockNow
	self.mu.Unlock()

	res := make(chan time.Time, 1)
	res <- now
	return res
}

func (self *RecordingClock) Sleep(d time.Duration) {
	<-self.After(d)
}

func (self *RecordingClock) Waits() []time.Duration {
	self.mu.Lock()
	defer self.mu.Unlock()

	return append([]time.Duration{}, self.waits...)
}
