package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/crypto"
)

// statePrefixes lists every key space covered by the state root. Keys
// outside these prefixes (block store, indexes) share the DB but are not
// world state.
var statePrefixes []string

func statePrefix(p string) string {
	statePrefixes = append(statePrefixes, p)
	return p
}

var (
	prefixAccount  = statePrefix("acct:")
	prefixBankroll = statePrefix("bank:")
	prefixBet      = statePrefix("bet:")
	prefixReceipt  = statePrefix("rcpt:")
)

// StateDB implements core.State over a DB. Writes go to a pending overlay
// (a nil value marks a delete) that Snapshot copies, RevertToSnapshot
// restores and Commit flushes in one batch. Readers outside block
// execution should use Committed instead.
type StateDB struct {
	mu        sync.RWMutex
	db        DB
	pending   map[string][]byte
	snapshots []map[string][]byte
}

func NewStateDB(db DB) *StateDB {
	return &StateDB{db: db, pending: make(map[string][]byte)}
}

func (s *StateDB) get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.pending[key]; ok {
		if v == nil {
			return nil, core.ErrNotFound
		}
		return v, nil
	}
	return s.db.Get([]byte(key))
}

func (s *StateDB) put(key string, val []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = val
}

// load decodes the record at key, read through get, into a fresh T.
func load[T any](get func(string) ([]byte, error), key string) (*T, error) {
	data, err := get(key)
	if err != nil {
		return nil, err
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("decode %q: %w", key, err)
	}
	return v, nil
}

func (s *StateDB) store(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	s.put(key, data)
	return nil
}

// GetAccount never returns ErrNotFound: unknown addresses read as an empty
// account.
func (s *StateDB) GetAccount(address string) (*core.Account, error) {
	acc, err := load[core.Account](s.get, prefixAccount+address)
	if errors.Is(err, core.ErrNotFound) {
		return &core.Account{Address: address}, nil
	}
	return acc, err
}

func (s *StateDB) SetAccount(acc *core.Account) error {
	return s.store(prefixAccount+acc.Address, acc)
}

// DeleteAccount closes a derived vault once it is drained.
func (s *StateDB) DeleteAccount(address string) error {
	s.put(prefixAccount+address, nil)
	return nil
}

func (s *StateDB) GetBankroll(house string) (*core.Bankroll, error) {
	return load[core.Bankroll](s.get, prefixBankroll+house)
}

func (s *StateDB) SetBankroll(b *core.Bankroll) error {
	return s.store(prefixBankroll+b.Owner, b)
}

func (s *StateDB) GetBet(id string) (*core.Bet, error) {
	return load[core.Bet](s.get, prefixBet+id)
}

func (s *StateDB) SetBet(b *core.Bet) error {
	return s.store(prefixBet+b.ID, b)
}

func (s *StateDB) DeleteBet(id string) error {
	s.put(prefixBet+id, nil)
	return nil
}

func (s *StateDB) GetBetReceipt(id string) (*core.BetReceipt, error) {
	return load[core.BetReceipt](s.get, prefixReceipt+id)
}

func (s *StateDB) SetBetReceipt(r *core.BetReceipt) error {
	return s.store(prefixReceipt+r.ID, r)
}

// Snapshot saves the pending overlay and returns its ID. Stored values are
// never mutated in place, so a shallow copy of the map is enough.
func (s *StateDB) Snapshot() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, maps.Clone(s.pending))
	return len(s.snapshots) - 1, nil
}

// RevertToSnapshot restores the overlay saved by Snapshot(id) and discards
// id and every later snapshot.
func (s *StateDB) RevertToSnapshot(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || id >= len(s.snapshots) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}
	s.pending = maps.Clone(s.snapshots[id])
	s.snapshots = s.snapshots[:id]
	return nil
}

// ComputeRoot hashes the complete world state (persisted entries under the
// state prefixes overlaid with pending writes) as sorted, length-prefixed
// key/value pairs. It does not flush anything, so producers call it before
// signing a block.
func (s *StateDB) ComputeRoot() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	world := make(map[string][]byte)
	for _, prefix := range statePrefixes {
		it := s.db.NewIterator([]byte(prefix))
		for it.Next() {
			world[string(it.Key())] = bytes.Clone(it.Value())
		}
		it.Release()
	}
	for k, v := range s.pending {
		if v == nil {
			delete(world, k)
		} else {
			world[k] = v
		}
	}

	var buf bytes.Buffer
	field := func(b []byte) {
		buf.Write(binary.BigEndian.AppendUint32(nil, uint32(len(b))))
		buf.Write(b)
	}
	for _, k := range slices.Sorted(maps.Keys(world)) {
		field([]byte(k))
		field(world[k])
	}
	return crypto.Hash(buf.Bytes())
}

// Commit flushes the pending overlay to the DB in one batch and clears it
// together with all snapshots. Producers call it after the block is stored.
func (s *StateDB) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.db.NewBatch()
	for k, v := range s.pending {
		if v == nil {
			batch.Delete([]byte(k))
		} else {
			batch.Set([]byte(k), v)
		}
	}
	if err := batch.Write(); err != nil {
		return err
	}
	s.pending = make(map[string][]byte)
	s.snapshots = nil
	return nil
}

// Committed returns a read-only view of the last committed state. Writes
// pending in the current block are invisible to it.
func (s *StateDB) Committed() *CommittedState {
	return &CommittedState{db: s.db}
}

// CommittedState serves readers such as the RPC server that must not observe
// a block that is still executing and may yet be reverted.
type CommittedState struct {
	db DB
}

func (c *CommittedState) get(key string) ([]byte, error) {
	return c.db.Get([]byte(key))
}

func (c *CommittedState) GetAccount(address string) (*core.Account, error) {
	acc, err := load[core.Account](c.get, prefixAccount+address)
	if errors.Is(err, core.ErrNotFound) {
		return &core.Account{Address: address}, nil
	}
	return acc, err
}

func (c *CommittedState) GetBankroll(house string) (*core.Bankroll, error) {
	return load[core.Bankroll](c.get, prefixBankroll+house)
}

func (c *CommittedState) GetBet(id string) (*core.Bet, error) {
	return load[core.Bet](c.get, prefixBet+id)
}

func (c *CommittedState) GetBetReceipt(id string) (*core.BetReceipt, error) {
	return load[core.BetReceipt](c.get, prefixReceipt+id)
}
