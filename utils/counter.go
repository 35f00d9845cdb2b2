package utils

import (
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	idx uint64
)

// Monotonic instance ids, used to tell connection incarnations apart
// in logs.
func GetId() uint64 {
	return atomic.AddUint64(&idx, 1)
}

// Stable unique ids for user created entities (widgets, notes).
func NewGUID() string {
	return uuid.New().String()
}
