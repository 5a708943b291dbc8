package events

import (
	"sync"

	"go.uber.org/zap"
)

// EventType labels what happened.
type EventType string

const (
	EventBlockCommit   EventType = "block_commit"
	EventBlockAbort    EventType = "block_abort"
	EventTxExecuted    EventType = "tx_executed"
	EventTxFailed      EventType = "tx_failed"
	EventTokenTransfer EventType = "token_transfer"
	EventBankrollInit  EventType = "bankroll_init"
	EventBankrollFund  EventType = "bankroll_fund"
	EventBetPlaced     EventType = "bet_placed"
	EventBetResolved   EventType = "bet_resolved"
	EventBetRefunded   EventType = "bet_refunded"
)

// DiceEvents lists the events emitted by the dice module, in lifecycle order.
var DiceEvents = []EventType{
	EventBankrollInit,
	EventBankrollFund,
	EventBetPlaced,
	EventBetResolved,
	EventBetRefunded,
}

// Event carries a typed payload emitted after a state change.
//
// Events are emitted while the transaction is still executing. A subscriber
// that needs committed state should buffer until EventBlockCommit and drop
// its buffer on EventBlockAbort, which follows a block that failed to store.
type Event struct {
	Type        EventType      `json:"type"`
	TxID        string         `json:"tx_id"`
	BlockHeight int64          `json:"block_height"`
	Data        map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// Emitter is a simple pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	log      *zap.Logger
}

// NewEmitter creates an Emitter with no subscribers. A nil logger disables
// panic reporting.
func NewEmitter(log *zap.Logger) *Emitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{handlers: make(map[EventType][]Handler), log: log.Named("events")}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// SubscribeAll registers h for every type in types.
func (e *Emitter) SubscribeAll(types []EventType, h Handler) {
	for _, t := range types {
		e.Subscribe(t, h)
	}
}

// Emit delivers ev to all subscribers for ev.Type synchronously.
// Each handler is guarded by panic recovery so a misbehaving subscriber
// cannot crash the node or halt block production.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	handlers := e.handlers[ev.Type]
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error("handler panicked", zap.String("event", string(ev.Type)), zap.Any("panic", r))
				}
			}()
			h(ev)
		}()
	}
}
