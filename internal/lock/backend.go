package lock

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// Backend is the mutual-exclusion contract. Implementations must be safe
// for concurrent callers from independent processes, not just goroutines:
// two concurrent Acquire calls on one key must never both return true.
type Backend interface {
	// Acquire attempts to take the lock for key with the given TTL.
	// Returns true iff no live lock existed and one was created
	// atomically. Backend unavailability returns false, never panics.
	Acquire(key string, ttl time.Duration) bool

	// Release drops the lock for key if this backend's holder owns it.
	// Returns true if a lock was released.
	Release(key string) bool

	// IsLocked reports whether a live (non-expired) lock exists for key.
	IsLocked(key string) bool

	// Holder returns this backend's holder identity.
	Holder() string
}

// NewHolderID builds a holder identity unique across hosts, processes,
// and restarts.
func NewHolderID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
}

// record is the serialized lock state shared by both backends.
type record struct {
	Key        string    `json:"key"`
	Holder     string    `json:"holder"`
	AcquiredAt time.Time `json:"acquired_at"`
	TTLSeconds int       `json:"ttl_seconds"`
}

// expired reports whether the record's TTL has elapsed at time now.
func (r *record) expired(now time.Time) bool {
	deadline := r.AcquiredAt.Add(time.Duration(r.TTLSeconds) * time.Second)
	return !now.Before(deadline)
}
