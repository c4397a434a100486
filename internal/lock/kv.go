package lock

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/quell-dev/quell/internal/event"
	"github.com/quell-dev/quell/internal/logging"
)

// Store is the minimal key-value contract the KV backend needs. A
// networked implementation (e.g. a SET NX EX wrapper) plugs in here to
// upgrade correctness from single-host to cross-machine without
// touching callers.
type Store interface {
	// SetNX stores value under key with a TTL iff key is absent.
	// Returns true if the value was stored.
	SetNX(key, value string, ttl time.Duration) (bool, error)

	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)

	// Del removes key. Returns true if a value was removed.
	Del(key string) (bool, error)

	// DelIfValue removes key iff its current live value equals value,
	// as one atomic step. Returns true if the value was removed.
	DelIfValue(key, value string) (bool, error)
}

// KVBackend implements Backend on top of a Store. Atomicity and TTL
// expiry are the store's responsibility.
type KVBackend struct {
	store  Store
	holder string
	logger *logging.Logger
	bus    *event.Bus
}

// KVOption configures a KVBackend.
type KVOption func(*KVBackend)

// WithKVBus sets the event bus for acquire/release events.
func WithKVBus(bus *event.Bus) KVOption {
	return func(b *KVBackend) { b.bus = bus }
}

// NewKVBackend creates a KVBackend over the given store.
func NewKVBackend(store Store, logger *logging.Logger, opts ...KVOption) *KVBackend {
	b := &KVBackend{
		store:  store,
		holder: NewHolderID(),
		logger: logger.WithComponent("lock"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Holder returns this backend's holder identity.
func (b *KVBackend) Holder() string { return b.holder }

// Acquire delegates to the store's SetNX. Store errors fail closed.
func (b *KVBackend) Acquire(key string, ttl time.Duration) bool {
	rec := record{
		Key:        key,
		Holder:     b.holder,
		AcquiredAt: time.Now(),
		TTLSeconds: int(ttl / time.Second),
	}
	value, err := json.Marshal(&rec)
	if err != nil {
		return false
	}

	ok, err := b.store.SetNX(key, string(value), ttl)
	if err != nil {
		b.logger.Warn("kv store unavailable, failing closed", "key", key, "error", err)
		return false
	}
	if ok && b.bus != nil {
		b.bus.Publish(event.NewLockAcquiredEvent(key, b.holder, ttl))
	}
	return ok
}

// Release deletes the key if this backend holds it. The delete is
// conditional on the exact value read during the ownership check, so a
// lock that expired and was reacquired in between is left untouched.
func (b *KVBackend) Release(key string) bool {
	value, exists, err := b.store.Get(key)
	if err != nil || !exists {
		return false
	}
	var rec record
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		return false
	}
	if rec.Holder != b.holder {
		b.logger.Warn("refusing to release lock held by another worker",
			"key", key, "holder", rec.Holder)
		return false
	}

	ok, err := b.store.DelIfValue(key, value)
	if err != nil {
		return false
	}
	if ok && b.bus != nil {
		b.bus.Publish(event.NewLockReleasedEvent(key, b.holder))
	}
	return ok
}

// IsLocked reports whether the store has a live value for key.
func (b *KVBackend) IsLocked(key string) bool {
	_, exists, err := b.store.Get(key)
	if err != nil {
		return false
	}
	return exists
}

// MemoryStore is an in-process Store with TTL expiry. It backs the "kv"
// lock backend in tests and single-process deployments; the interface is
// the same one a networked store implements.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	// now is replaceable for TTL expiry tests.
	now func() time.Time
}

type memoryEntry struct {
	value    string
	expireAt time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the store's clock. For tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetNX stores value iff key is absent or its previous value expired.
func (s *MemoryStore) SetNX(key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok && s.now().Before(entry.expireAt) {
		return false, nil
	}
	s.entries[key] = memoryEntry{
		value:    value,
		expireAt: s.now().Add(ttl),
	}
	return true, nil
}

// Get returns the live value for key.
func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !s.now().Before(entry.expireAt) {
		return "", false, nil
	}
	return entry.value, true, nil
}

// Del removes key.
func (s *MemoryStore) Del(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	delete(s.entries, key)
	// A dead entry still counts as absent for callers.
	if !s.now().Before(entry.expireAt) {
		return false, nil
	}
	return true, nil
}

// DelIfValue removes key only if its live value equals value.
func (s *MemoryStore) DelIfValue(key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !s.now().Before(entry.expireAt) || entry.value != value {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}
