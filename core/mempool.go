package core

import (
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const (
	maxMempoolSize  = 10_000
	committedWindow = 50_000                 // committed IDs remembered for replay rejection
	maxTxAge        = int64(time.Hour)       // reject txs older than 1 hour
	maxTxFuture     = int64(5 * time.Minute) // reject txs more than 5 min in the future
)

var (
	ErrMempoolFull   = errors.New("mempool full")
	ErrTxKnown       = errors.New("tx already in pool")
	ErrTxCommitted   = errors.New("tx already committed")
	ErrTxExpired     = errors.New("transaction expired")
	ErrTxFromFuture  = errors.New("transaction timestamp too far in the future")
	ErrChainMismatch = errors.New("chain id mismatch")
)

// Mempool is a thread-safe pending-transaction pool.
type Mempool struct {
	mu        sync.RWMutex
	chainID   string
	txs       map[string]*Transaction
	ord       []string // insertion-ordered IDs for deterministic pending iteration
	committed *lru.Cache
}

// NewMempool creates an empty mempool that only accepts txs for chainID.
func NewMempool(chainID string) *Mempool {
	committed, err := lru.New(committedWindow)
	if err != nil {
		panic(err)
	}
	return &Mempool{
		chainID:   chainID,
		txs:       make(map[string]*Transaction),
		committed: committed,
	}
}

// Add validates and inserts a transaction. Returns an error if the pool is
// full, the tx is already pending or recently committed, the signature is
// invalid, or the timestamp is out of the acceptable window (-1 h / +5 min).
func (m *Mempool) Add(tx *Transaction) error {
	if tx.ChainID != m.chainID {
		return fmt.Errorf("%w: got %q want %q", ErrChainMismatch, tx.ChainID, m.chainID)
	}
	if err := tx.Verify(); err != nil {
		return fmt.Errorf("invalid tx signature: %w", err)
	}
	now := time.Now().UnixNano()
	if now-tx.Timestamp > maxTxAge {
		return ErrTxExpired
	}
	if tx.Timestamp-now > maxTxFuture {
		return ErrTxFromFuture
	}
	if m.committed.Contains(tx.ID) {
		return ErrTxCommitted
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.txs) >= maxMempoolSize {
		return ErrMempoolFull
	}
	if _, exists := m.txs[tx.ID]; exists {
		return ErrTxKnown
	}
	m.txs[tx.ID] = tx
	m.ord = append(m.ord, tx.ID)
	return nil
}

// Get returns a transaction by ID.
func (m *Mempool) Get(id string) (*Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[id]
	return tx, ok
}

// Pending returns up to n pending transactions in insertion order.
func (m *Mempool) Pending(n int) []*Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*Transaction, 0, n)
	for _, id := range m.ord {
		if tx, ok := m.txs[id]; ok {
			result = append(result, tx)
			if len(result) >= n {
				break
			}
		}
	}
	return result
}

// Remove deletes transactions by ID.
func (m *Mempool) Remove(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		delete(m.txs, id)
		removed[id] = true
	}
	filtered := m.ord[:0]
	for _, id := range m.ord {
		if !removed[id] {
			filtered = append(filtered, id)
		}
	}
	m.ord = filtered
}

// MarkCommitted removes ids from the pool and remembers them so a client
// resubmitting the same signed tx gets ErrTxCommitted instead of a nonce error.
func (m *Mempool) MarkCommitted(ids []string) {
	for _, id := range ids {
		m.committed.Add(id, struct{}{})
	}
	m.Remove(ids)
}

// Size returns the current number of pending transactions.
func (m *Mempool) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}
