package presence

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	entry   Entry
	expires time.Time
}

// MemoryDirectory is a process-local Registry with per-entry TTL.
type MemoryDirectory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryDirectory(ttl time.Duration) *MemoryDirectory {
	return &MemoryDirectory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (d *MemoryDirectory) WithClock(now func() time.Time) *MemoryDirectory {
	d.now = now
	return d
}

func (d *MemoryDirectory) Lookup(ctx context.Context, uid string) (Entry, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	me, ok := d.entries[uid]
	if !ok || (d.ttl > 0 && !d.now().Before(me.expires)) {
		return Entry{}, false, nil
	}
	return me.entry, true, nil
}

func (d *MemoryDirectory) Register(ctx context.Context, e Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[e.UID] = memoryEntry{entry: e, expires: d.now().Add(d.ttl)}
	return nil
}

func (d *MemoryDirectory) Refresh(ctx context.Context, e Entry) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if me, ok := d.entries[e.UID]; ok && me.entry.Ident != e.Ident && (d.ttl <= 0 || now.Before(me.expires)) {
		return false, nil
	}
	d.entries[e.UID] = memoryEntry{entry: e, expires: now.Add(d.ttl)}
	return true, nil
}

func (d *MemoryDirectory) Unregister(ctx context.Context, uid, ident string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if me, ok := d.entries[uid]; ok && me.entry.Ident == ident {
		delete(d.entries, uid)
	}
	return nil
}
