package rest

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// MemoryKeyValue is a simple in-memory implementation of the nats.KeyValue interface
// for fallback when NATS is not available
type MemoryKeyValue struct {
	name  string
	data  map[string][]byte
	mutex sync.RWMutex
}

// NewMemoryKeyValue creates a new in-memory KeyValue store
func NewMemoryKeyValue(name string) *MemoryKeyValue {
	return &MemoryKeyValue{
		name: name,
		data: make(map[string][]byte),
	}
}

// Get retrieves a value for a key
func (m *MemoryKeyValue) Get(key string) (nats.KeyValueEntry, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if val, ok := m.data[key]; ok {
		return &MemoryKeyValueEntry{
			key:   key,
			value: val,
		}, nil
	}
	return nil, nats.ErrKeyNotFound
}

// GetRevision returns a specific revision value for the key
func (m *MemoryKeyValue) GetRevision(key string, revision uint64) (nats.KeyValueEntry, error) {
	// In-memory implementation doesn't track revisions, so just return the current value
	return m.Get(key)
}

// Put stores a value for a key
func (m *MemoryKeyValue) Put(key string, value []byte) (uint64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.data[key] = value
	return 1, nil // Return a dummy revision
}

// PutString stores a string value for a key
func (m *MemoryKeyValue) PutString(key string, value string) (uint64, error) {
	return m.Put(key, []byte(value))
}

// Keys returns all keys in the store
func (m *MemoryKeyValue) Keys(opts ...nats.WatchOpt) ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	// Initialize with empty slice to avoid returning nil
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}

	slog.Debug("Returning keys", "count", len(keys), "bucket", m.name)
	return keys, nil
}

// ListKeys returns all keys in the store via a channel
func (m *MemoryKeyValue) ListKeys(opts ...nats.WatchOpt) (nats.KeyLister, error) {
	// Not implemented for in-memory store
	return nil, fmt.Errorf("list keys not implemented for in-memory store")
}

// Create creates a new key with the given value
func (m *MemoryKeyValue) Create(key string, value []byte) (uint64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.data[key]; ok {
		return 0, nats.ErrKeyExists
	}

	m.data[key] = value
	return 1, nil // Return a dummy revision
}

// Update updates a key with the given value and revision
func (m *MemoryKeyValue) Update(key string, value []byte, last uint64) (uint64, error) {
	// In-memory implementation doesn't track revisions
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.data[key]; !ok {
		return 0, nats.ErrKeyNotFound
	}

	m.data[key] = value
	return last + 1, nil
}

// Delete deletes a key
func (m *MemoryKeyValue) Delete(key string, opts ...nats.DeleteOpt) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.data[key]; !ok {
		return nats.ErrKeyNotFound
	}

	delete(m.data, key)
	return nil
}

// Purge purges a key
func (m *MemoryKeyValue) Purge(key string, opts ...nats.DeleteOpt) error {
	return m.Delete(key, opts...) // Same as delete for in-memory
}

// Watch watches for changes to keys
func (m *MemoryKeyValue) Watch(keys string, opts ...nats.WatchOpt) (nats.KeyWatcher, error) {
	// Not implemented for in-memory store
	return nil, fmt.Errorf("watch not implemented for in-memory store")
}

// WatchAll watches for changes to all keys
func (m *MemoryKeyValue) WatchAll(opts ...nats.WatchOpt) (nats.KeyWatcher, error) {
	// Not implemented for in-memory store
	return nil, fmt.Errorf("watch all not implemented for in-memory store")
}

// WatchFiltered watches for changes to keys matching the filter
func (m *MemoryKeyValue) WatchFiltered(keys []string, opts ...nats.WatchOpt) (nats.KeyWatcher, error) {
	// Not implemented for in-memory store
	return nil, fmt.Errorf("watch filtered not implemented for in-memory store")
}

// History returns the history for a key
func (m *MemoryKeyValue) History(key string, opts ...nats.WatchOpt) ([]nats.KeyValueEntry, error) {
	// Not implemented for in-memory store
	return nil, fmt.Errorf("history not implemented for in-memory store")
}

// Bucket returns the bucket name
func (m *MemoryKeyValue) Bucket() string {
	return m.name
}

// PurgeDeletes purges deleted keys
func (m *MemoryKeyValue) PurgeDeletes(opts ...nats.PurgeOpt) error {
	// Not implemented for in-memory store
	return nil
}

// Status returns the status of the bucket
func (m *MemoryKeyValue) Status() (nats.KeyValueStatus, error) {
	status := &MemoryKeyValueStatus{
		bucket:       m.name,
		values:       uint64(len(m.data)),
		backingStore: "Memory",
	}
	return status, nil
}

// MemoryKeyValueEntry implements the KeyValueEntry interface for the in-memory store
type MemoryKeyValueEntry struct {
	key   string
	value []byte
}

// Bucket returns the bucket name
func (e *MemoryKeyValueEntry) Bucket() string {
	return ""
}

// Key returns the key
func (e *MemoryKeyValueEntry) Key() string {
	return e.key
}

// Value returns the value
func (e *MemoryKeyValueEntry) Value() []byte {
	return e.value
}

// Revision returns the revision
func (e *MemoryKeyValueEntry) Revision() uint64 {
	return 1
}

// Created returns the creation time
func (e *MemoryKeyValueEntry) Created() time.Time {
	return time.Now()
}

// Delta returns the delta
func (e *MemoryKeyValueEntry) Delta() uint64 {
	return 0
}

// Operation returns the operation
func (e *MemoryKeyValueEntry) Operation() nats.KeyValueOp {
	return nats.KeyValuePut
}

// MemoryKeyValueStatus implements the KeyValueStatus interface
type MemoryKeyValueStatus struct {
	bucket       string
	values       uint64
	backingStore string
}

// Bucket returns the bucket name
func (s *MemoryKeyValueStatus) Bucket() string {
	return s.bucket
}

// Values returns the number of values in the bucket
func (s *MemoryKeyValueStatus) Values() uint64 {
	return s.values
}

// History returns the configured history kept per key
func (s *MemoryKeyValueStatus) History() int64 {
	return 1 // No history in memory implementation
}

// TTL returns how long the bucket keeps values for
func (s *MemoryKeyValueStatus) TTL() time.Duration {
	return 0 // No expiration in memory implementation
}

// BackingStore returns the technology used for storage
func (s *MemoryKeyValueStatus) BackingStore() string {
	return s.backingStore
}

// Bytes returns the size in bytes of the bucket
func (s *MemoryKeyValueStatus) Bytes() uint64 {
	return 0 // Not tracking bytes in memory implementation
}

// IsCompressed returns if the data is compressed
func (s *MemoryKeyValueStatus) IsCompressed() bool {
	return false // No compression in memory implementation
}
