// Package testutil provides in-memory storage for tests across the module.
// Never import this in production code.
package testutil

import (
	"bytes"
	"slices"
	"strings"
	"sync"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/storage"
)

// MemDB is a thread-safe in-memory storage.DB. Iterators yield keys in
// ascending byte order, as LevelDB does, so index listings are stable.
type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{data: make(map[string][]byte)}
}

func (m *MemDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (m *MemDB) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = bytes.Clone(value)
	return nil
}

func (m *MemDB) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

// NewIterator snapshots the matching pairs; later writes are not visible.
func (m *MemDB) NewIterator(prefix []byte) storage.Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0)
	for k := range m.data {
		if strings.HasPrefix(k, string(prefix)) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	it := &memIter{pos: -1}
	for _, k := range keys {
		it.keys = append(it.keys, []byte(k))
		it.vals = append(it.vals, bytes.Clone(m.data[k]))
	}
	return it
}

func (m *MemDB) NewBatch() storage.Batch {
	return &memBatch{db: m, writes: make(map[string][]byte)}
}

func (m *MemDB) Close() error { return nil }

// memBatch keeps the last write per key; a nil value is a delete.
type memBatch struct {
	db     *MemDB
	writes map[string][]byte
}

func (b *memBatch) Set(key, value []byte) {
	v := bytes.Clone(value)
	if v == nil {
		v = []byte{}
	}
	b.writes[string(key)] = v
}

func (b *memBatch) Delete(key []byte) { b.writes[string(key)] = nil }

func (b *memBatch) Reset() { clear(b.writes) }

func (b *memBatch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for k, v := range b.writes {
		if v == nil {
			delete(b.db.data, k)
			continue
		}
		b.db.data[k] = v
	}
	return nil
}

type memIter struct {
	keys, vals [][]byte
	pos        int
}

func (it *memIter) Next() bool    { it.pos++; return it.pos < len(it.keys) }
func (it *memIter) Key() []byte   { return it.keys[it.pos] }
func (it *memIter) Value() []byte { return it.vals[it.pos] }
func (it *memIter) Release()      {}
func (it *memIter) Error() error  { return nil }

// NewMemBlockStore returns the production block store over a fresh MemDB.
func NewMemBlockStore() *storage.LevelBlockStore {
	return storage.NewLevelBlockStore(NewMemDB())
}

// NewStateDB returns a storage.StateDB backed by a fresh MemDB.
func NewStateDB() *storage.StateDB {
	return storage.NewStateDB(NewMemDB())
}
