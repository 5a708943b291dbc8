// Package publisher forwards committed dice events to external sinks.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyusuf-a/2026-q1-turbin3/config"
	"github.com/fyusuf-a/2026-q1-turbin3/events"
)

const (
	queueSize      = 4096
	publishTimeout = 5 * time.Second
)

// Message is the wire form of a forwarded event.
type Message struct {
	events.Event
	TsUnixMs int64 `json:"ts_unix_ms"`
}

// Publisher buffers dice events while a block executes and hands them to the
// sinks once the block commits, so consumers never see events of a block
// that was not stored. Delivery runs on its own goroutine; a full queue
// drops events rather than stalling block production.
type Publisher struct {
	sinks []Sink
	log   *zap.Logger
	queue chan events.Event

	mu      sync.Mutex
	pending []events.Event
}

// New creates a Publisher delivering to sinks.
func New(log *zap.Logger, sinks ...Sink) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		sinks: sinks,
		log:   log.Named("publisher"),
		queue: make(chan events.Event, queueSize),
	}
}

// FromConfig builds the sinks enabled in cfg. It returns nil when none is.
func FromConfig(cfg config.PublisherConfig, log *zap.Logger) *Publisher {
	var sinks []Sink
	if len(cfg.KafkaBrokers) > 0 {
		sinks = append(sinks, NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic))
	}
	if cfg.RedisAddr != "" {
		sinks = append(sinks, NewRedisSink(cfg.RedisAddr, cfg.RedisChannel))
	}
	if len(sinks) == 0 {
		return nil
	}
	return New(log, sinks...)
}

// Subscribe registers the publisher on emitter.
func (p *Publisher) Subscribe(emitter *events.Emitter) {
	emitter.SubscribeAll(events.DiceEvents, p.onEvent)
	emitter.Subscribe(events.EventBlockCommit, p.onBlockCommit)
	emitter.Subscribe(events.EventBlockAbort, p.onBlockAbort)
}

func (p *Publisher) onBlockAbort(events.Event) {
	p.mu.Lock()
	p.pending = nil
	p.mu.Unlock()
}

func (p *Publisher) onEvent(ev events.Event) {
	p.mu.Lock()
	p.pending = append(p.pending, ev)
	p.mu.Unlock()
}

func (p *Publisher) onBlockCommit(events.Event) {
	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()
	for _, ev := range batch {
		select {
		case p.queue <- ev:
		default:
			p.log.Warn("queue full, event dropped", zap.String("event", string(ev.Type)), zap.String("tx", ev.TxID))
		}
	}
}

// Run delivers queued events until ctx is cancelled, then drains what is
// left and closes the sinks.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-p.queue:
			p.deliver(ctx, ev)
		case <-ctx.Done():
			return p.shutdown()
		}
	}
}

func (p *Publisher) shutdown() error {
	for {
		select {
		case ev := <-p.queue:
			p.deliver(context.Background(), ev)
		default:
			var errs []error
			for _, s := range p.sinks {
				errs = append(errs, s.Close())
			}
			return errors.Join(errs...)
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, ev events.Event) {
	payload, err := json.Marshal(Message{Event: ev, TsUnixMs: time.Now().UnixMilli()})
	if err != nil {
		p.log.Error("encode event", zap.String("event", string(ev.Type)), zap.Error(err))
		return
	}
	key := eventKey(ev)
	for _, s := range p.sinks {
		sctx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := s.Publish(sctx, key, payload)
		cancel()
		if err != nil {
			p.log.Error("publish failed",
				zap.String("sink", s.Name()),
				zap.String("event", string(ev.Type)),
				zap.Error(err))
		}
	}
}

// eventKey groups a bet's events by bet ID and bankroll events by house.
func eventKey(ev events.Event) string {
	if id, ok := ev.Data["bet_id"].(string); ok {
		return id
	}
	house, _ := ev.Data["house"].(string)
	return house
}
