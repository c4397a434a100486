package lock

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quell-dev/quell/internal/event"
	"github.com/quell-dev/quell/internal/logging"
)

// FileBackend stores one JSON lock record per key under a lock
// directory. Lock files are created with O_CREATE|O_EXCL, which the
// filesystem guarantees to be atomic; the loser of a race sees EEXIST.
type FileBackend struct {
	dir    string
	holder string
	logger *logging.Logger
	bus    *event.Bus

	// now is replaceable for TTL expiry tests.
	now func() time.Time
}

// FileOption configures a FileBackend.
type FileOption func(*FileBackend)

// WithFileClock overrides the backend's clock.
func WithFileClock(now func() time.Time) FileOption {
	return func(b *FileBackend) { b.now = now }
}

// WithFileBus sets the event bus for acquire/release events.
func WithFileBus(bus *event.Bus) FileOption {
	return func(b *FileBackend) { b.bus = bus }
}

// NewFileBackend creates a FileBackend writing lock records under dir.
func NewFileBackend(dir string, logger *logging.Logger, opts ...FileOption) *FileBackend {
	b := &FileBackend{
		dir:    dir,
		holder: NewHolderID(),
		logger: logger.WithComponent("lock"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Holder returns this backend's holder identity.
func (b *FileBackend) Holder() string { return b.holder }

// Acquire attempts to create the lock record atomically. A stale record
// (TTL elapsed) is removed and the create retried exactly once; losing
// that retry returns false.
func (b *FileBackend) Acquire(key string, ttl time.Duration) bool {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		b.logger.Warn("lock directory unavailable, failing closed", "dir", b.dir, "error", err)
		return false
	}

	if b.tryCreate(key, ttl) {
		return true
	}

	// The record exists. If stale, clear it and retry once.
	rec, ok := b.read(key)
	if !ok {
		// Unreadable record: could be a concurrent release or corruption.
		// Fail closed either way.
		return false
	}
	if !rec.expired(b.now()) {
		return false
	}

	if err := os.Remove(b.path(key)); err != nil && !os.IsNotExist(err) {
		b.logger.Warn("failed to clear stale lock", "key", key, "error", err)
		return false
	}
	return b.tryCreate(key, ttl)
}

// tryCreate writes the lock record with O_EXCL semantics.
func (b *FileBackend) tryCreate(key string, ttl time.Duration) bool {
	f, err := os.OpenFile(b.path(key), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if !os.IsExist(err) {
			b.logger.Warn("lock create failed, failing closed", "key", key, "error", err)
		}
		return false
	}

	rec := record{
		Key:        key,
		Holder:     b.holder,
		AcquiredAt: b.now(),
		TTLSeconds: int(ttl / time.Second),
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(&rec); err != nil {
		_ = f.Close()
		_ = os.Remove(b.path(key))
		b.logger.Warn("lock record write failed", "key", key, "error", err)
		return false
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(b.path(key))
		return false
	}

	if b.bus != nil {
		b.bus.Publish(event.NewLockAcquiredEvent(key, b.holder, ttl))
	}
	return true
}

// Release removes the lock record if this backend holds it and the
// record is still live. An expired own record is treated as absent: it
// may already have been cleared and replaced by another worker, and
// removing it here could destroy that worker's live lock.
func (b *FileBackend) Release(key string) bool {
	rec, ok := b.read(key)
	if !ok {
		return false
	}
	if rec.Holder != b.holder {
		b.logger.Warn("refusing to release lock held by another worker",
			"key", key, "holder", rec.Holder)
		return false
	}
	if rec.expired(b.now()) {
		b.logger.Warn("own lock record expired before release", "key", key)
		return false
	}
	if err := os.Remove(b.path(key)); err != nil {
		return false
	}
	if b.bus != nil {
		b.bus.Publish(event.NewLockReleasedEvent(key, b.holder))
	}
	return true
}

// IsLocked reports whether a live lock record exists for key.
func (b *FileBackend) IsLocked(key string) bool {
	rec, ok := b.read(key)
	if !ok {
		return false
	}
	return !rec.expired(b.now())
}

// read loads and decodes the lock record for key.
func (b *FileBackend) read(key string) (*record, bool) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		return nil, false
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

// path maps a lock key to its record file. Path separators in keys are
// flattened so a key can never escape the lock directory.
func (b *FileBackend) path(key string) string {
	safe := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(key)
	return filepath.Join(b.dir, safe+".lock")
}
