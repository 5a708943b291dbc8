// Package metrics exports chain and game activity as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fyusuf-a/2026-q1-turbin3/events"
)

// Collectors holds the node's Prometheus collectors. They are registered on
// their own registry so several nodes can coexist in one process.
type Collectors struct {
	Registry *prometheus.Registry

	BetsPlaced   prometheus.Counter
	BetsResolved *prometheus.CounterVec // by outcome
	BetsRefunded prometheus.Counter
	Wagered      prometheus.Counter
	PaidOut      prometheus.Counter
	TxExecuted   *prometheus.CounterVec // by tx type
	TxFailed     *prometheus.CounterVec // by tx type and reason
	BlockHeight  prometheus.Gauge
	Bankroll     *prometheus.GaugeVec // by house
}

// New creates and registers the collectors.
func New() *Collectors {
	c := &Collectors{
		Registry: prometheus.NewRegistry(),
		BetsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dice_bets_placed_total", Help: "bets opened",
		}),
		BetsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dice_bets_resolved_total", Help: "bets settled by attestation",
		}, []string{"outcome"}),
		BetsRefunded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dice_bets_refunded_total", Help: "expired bets refunded",
		}),
		Wagered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dice_wagered_base_units_total", Help: "sum of wagers escrowed",
		}),
		PaidOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dice_paid_out_base_units_total", Help: "sum returned to winning players",
		}),
		TxExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chain_tx_executed_total", Help: "transactions applied",
		}, []string{"type"}),
		TxFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chain_tx_failed_total", Help: "transactions rejected during execution",
		}, []string{"type", "reason"}),
		BlockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chain_block_height", Help: "height of the last committed block",
		}),
		Bankroll: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dice_bankroll_balance_base_units", Help: "bankroll vault balance",
		}, []string{"house"}),
	}
	c.Registry.MustRegister(
		c.BetsPlaced, c.BetsResolved, c.BetsRefunded, c.Wagered, c.PaidOut,
		c.TxExecuted, c.TxFailed, c.BlockHeight, c.Bankroll,
	)
	return c
}

// Subscribe wires the collectors to emitter.
func (c *Collectors) Subscribe(emitter *events.Emitter) {
	emitter.Subscribe(events.EventBlockCommit, func(ev events.Event) {
		c.BlockHeight.Set(float64(ev.BlockHeight))
	})
	emitter.Subscribe(events.EventTxExecuted, func(ev events.Event) {
		c.TxExecuted.WithLabelValues(str(ev.Data["type"])).Inc()
	})
	emitter.Subscribe(events.EventTxFailed, func(ev events.Event) {
		c.TxFailed.WithLabelValues(str(ev.Data["type"]), str(ev.Data["reason"])).Inc()
	})
	emitter.Subscribe(events.EventBetPlaced, func(ev events.Event) {
		c.BetsPlaced.Inc()
		c.Wagered.Add(num(ev.Data["amount"]))
	})
	emitter.Subscribe(events.EventBetResolved, func(ev events.Event) {
		outcome := "lost"
		if won, _ := ev.Data["won"].(bool); won {
			outcome = "won"
			c.PaidOut.Add(num(ev.Data["payout"]))
		}
		c.BetsResolved.WithLabelValues(outcome).Inc()
	})
	emitter.Subscribe(events.EventBetRefunded, func(ev events.Event) {
		c.BetsRefunded.Inc()
	})
	bankroll := func(ev events.Event) {
		c.Bankroll.WithLabelValues(str(ev.Data["house"])).Set(num(ev.Data["balance"]))
	}
	emitter.Subscribe(events.EventBankrollInit, bankroll)
	emitter.Subscribe(events.EventBankrollFund, bankroll)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) float64 {
	switch n := v.(type) {
	case uint64:
		return float64(n)
	case uint8:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
