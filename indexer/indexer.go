// Package indexer maintains secondary indexes over committed blocks so
// clients can list a player's or a house's bets without scanning full state.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/events"
	"github.com/fyusuf-a/2026-q1-turbin3/storage"
)

const (
	prefixPlayerBets = "idx:player:bet:"
	prefixHouseBets  = "idx:house:bet:"
)

// Indexer subscribes to chain events and updates secondary lookup tables.
// Entries observed while a block executes are buffered and written in one
// batch when the block commits.
type Indexer struct {
	db  storage.DB
	log *zap.Logger

	mu      sync.Mutex
	pending map[string][]string // key → ids to append
}

// New creates an Indexer backed by db and subscribes to relevant events.
func New(db storage.DB, emitter *events.Emitter, log *zap.Logger) *Indexer {
	if log == nil {
		log = zap.NewNop()
	}
	idx := &Indexer{db: db, log: log.Named("indexer"), pending: make(map[string][]string)}
	emitter.Subscribe(events.EventBetPlaced, idx.onBetPlaced)
	emitter.Subscribe(events.EventBlockCommit, idx.onBlockCommit)
	emitter.Subscribe(events.EventBlockAbort, idx.onBlockAbort)
	return idx
}

// GetBetsByPlayer returns the IDs of every bet the player placed, oldest first.
func (idx *Indexer) GetBetsByPlayer(player string) ([]string, error) {
	return idx.getList(prefixPlayerBets + player)
}

// GetBetsByHouse returns the IDs of every bet placed against the house.
func (idx *Indexer) GetBetsByHouse(house string) ([]string, error) {
	return idx.getList(prefixHouseBets + house)
}

// ---- event handlers ----

func (idx *Indexer) onBetPlaced(ev events.Event) {
	betID, _ := ev.Data["bet_id"].(string)
	player, _ := ev.Data["player"].(string)
	house, _ := ev.Data["house"].(string)
	if betID == "" || player == "" || house == "" {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.pending[prefixPlayerBets+player] = append(idx.pending[prefixPlayerBets+player], betID)
	idx.pending[prefixHouseBets+house] = append(idx.pending[prefixHouseBets+house], betID)
}

func (idx *Indexer) onBlockCommit(ev events.Event) {
	if err := idx.Flush(); err != nil {
		idx.log.Error("flush failed", zap.Int64("height", ev.BlockHeight), zap.Error(err))
	}
}

func (idx *Indexer) onBlockAbort(events.Event) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	clear(idx.pending)
}

// Flush writes all buffered entries.
func (idx *Indexer) Flush() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if len(idx.pending) == 0 {
		return nil
	}
	batch := idx.db.NewBatch()
	for key, ids := range idx.pending {
		existing, err := idx.getList(key)
		if err != nil {
			return err
		}
		data, err := json.Marshal(append(existing, ids...))
		if err != nil {
			return err
		}
		batch.Set([]byte(key), data)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("indexer batch: %w", err)
	}
	idx.pending = make(map[string][]string)
	return nil
}

// ---- list helpers ----

func (idx *Indexer) getList(key string) ([]string, error) {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil // empty list
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return ids, nil
}
