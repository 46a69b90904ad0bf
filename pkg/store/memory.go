package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
	timer     *time.Timer
	gen       uint64
}

// Memory is the default in-process backend. Values are stored JSON-encoded so
// callers never share mutable state with the store and read back the same
// shapes a serializing backend would return.
//
// Every key has at most one pending expiry timer: Set cancels the previous
// timer before scheduling a new one and Destroy cancels it outright.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]*memoryEntry
	gen      uint64
	closed   bool
	onChange func(size int)
	now      func() time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithOnChange registers fn to be called with the number of live entries
// whenever it changes. fn runs under the store lock and must not call back into the store.
func WithOnChange(fn func(size int)) MemoryOption {
	return func(m *Memory) {
		m.onChange = fn
	}
}

// NewMemory creates an empty in-memory backend.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value stored under key or ErrNotFound.
func (m *Memory) Get(_ context.Context, key string) (any, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		// The timer may not have fired yet; an expired entry is gone either way.
		m.removeLocked(key, e)
		ok = false
	}
	var data []byte
	if ok {
		data = e.data
	}
	m.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Set stores value under key and schedules its removal after ttl.
// A ttl of zero or less stores the value without expiry.
func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Join(ErrEncode, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if prev, ok := m.entries[key]; ok && prev.timer != nil {
		prev.timer.Stop()
	}

	m.gen++
	e := &memoryEntry{data: data, gen: m.gen}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
		gen := e.gen
		e.timer = time.AfterFunc(ttl, func() { m.expire(key, gen) })
	}
	m.entries[key] = e
	m.notifyLocked()
	return nil
}

// Destroy removes key and cancels its expiry. Destroying a missing key is a no-op.
func (m *Memory) Destroy(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		m.removeLocked(key, e)
	}
	return nil
}

// Len reports the number of stored entries, including ones whose timer has not fired yet.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close stops every pending timer and drops all entries. Later writes fail with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(m.entries, key)
	}
	m.closed = true
	m.notifyLocked()
	return nil
}

// expire runs on the timer goroutine. A timer that lost the race with a newer
// Set or a Destroy finds a different generation (or nothing) and does nothing.
func (m *Memory) expire(key string, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok && e.gen == gen {
		delete(m.entries, key)
		m.notifyLocked()
	}
}

func (m *Memory) removeLocked(key string, e *memoryEntry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(m.entries, key)
	m.notifyLocked()
}

func (m *Memory) notifyLocked() {
	if m.onChange != nil {
		m.onChange(len(m.entries))
	}
}
