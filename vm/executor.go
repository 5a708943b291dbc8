package vm

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/events"
)

// Context is passed to every Handler and provides access to the chain state,
// the current block, the triggering transaction, and the event emitter.
type Context struct {
	State   core.State
	Block   *core.Block
	Tx      *core.Transaction
	Params  core.Params
	Emitter *events.Emitter
}

// Slot is the current ledger clock.
func (c *Context) Slot() int64 { return c.Block.Header.Slot() }

// Now is the block timestamp in unix nanoseconds.
func (c *Context) Now() int64 { return c.Block.Header.Timestamp }

// Verified returns the signature co-instructions of the current transaction.
// The executor has already checked every entry by the time a handler runs.
func (c *Context) Verified() []core.SigVerification { return c.Tx.SigVerify }

// Emit publishes ev stamped with the current tx and block. No-op without an
// emitter.
func (c *Context) Emit(typ events.EventType, data map[string]any) {
	if c.Emitter == nil {
		return
	}
	c.Emitter.Emit(events.Event{
		Type:        typ,
		TxID:        c.Tx.ID,
		BlockHeight: c.Block.Header.Height,
		Data:        data,
	})
}

// FailedTx pairs a transaction rejected during block production with the
// reason it was rejected.
type FailedTx struct {
	Tx  *core.Transaction
	Err error
}

// Executor applies transactions to the state using the global Handler registry.
type Executor struct {
	state   core.State
	params  core.Params
	emitter *events.Emitter
	log     *zap.Logger
}

// NewExecutor creates an Executor with the given state, chain params and
// event emitter. A nil logger disables logging.
func NewExecutor(state core.State, params core.Params, emitter *events.Emitter, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{state: state, params: params, emitter: emitter, log: log.Named("vm")}
}

// Params returns the chain params the executor enforces.
func (e *Executor) Params() core.Params { return e.params }

// ExecuteBlock applies all transactions in block sequentially.
// A failing transaction causes the whole block to be rejected; used when
// replaying blocks produced elsewhere.
func (e *Executor) ExecuteBlock(block *core.Block) error {
	for _, tx := range block.Transactions {
		if err := e.ExecuteTx(block, tx); err != nil {
			return fmt.Errorf("tx %s failed: %w", tx.ID, err)
		}
	}
	return nil
}

// ApplyTxs executes candidates one by one against block and returns the ones
// that succeeded. Failed transactions leave no trace in state. Block producers
// use this so that a losing racer (for example a second resolve of the same
// bet) does not invalidate the block.
func (e *Executor) ApplyTxs(block *core.Block, candidates []*core.Transaction) (applied []*core.Transaction, failed []FailedTx) {
	for _, tx := range candidates {
		if err := e.ExecuteTx(block, tx); err != nil {
			failed = append(failed, FailedTx{Tx: tx, Err: err})
			continue
		}
		applied = append(applied, tx)
	}
	return applied, failed
}

// ExecuteTx verifies and executes a single transaction with snapshot/rollback.
func (e *Executor) ExecuteTx(block *core.Block, tx *core.Transaction) error {
	if err := tx.Verify(); err != nil {
		return e.fail(block, tx, fmt.Errorf("signature: %w", err))
	}

	snapID, err := e.state.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	if err := e.applyTx(block, tx); err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			return fmt.Errorf("revert snapshot after tx failure: %w (revert: %v)", err, revertErr)
		}
		return e.fail(block, tx, err)
	}

	if e.emitter != nil {
		e.emitter.Emit(events.Event{
			Type:        events.EventTxExecuted,
			TxID:        tx.ID,
			BlockHeight: block.Header.Height,
			Data:        map[string]any{"type": string(tx.Type), "from": tx.From, "fee": tx.Fee},
		})
	}
	return nil
}

func (e *Executor) fail(block *core.Block, tx *core.Transaction, err error) error {
	e.log.Debug("tx rejected",
		zap.String("tx", tx.ID),
		zap.String("type", string(tx.Type)),
		zap.Int64("height", block.Header.Height),
		zap.Error(err))
	if e.emitter != nil {
		e.emitter.Emit(events.Event{
			Type:        events.EventTxFailed,
			TxID:        tx.ID,
			BlockHeight: block.Header.Height,
			Data:        map[string]any{"type": string(tx.Type), "reason": Reason(err)},
		})
	}
	return err
}

// applyTx charges the fee, increments the nonce, checks the signature
// co-instructions, then dispatches to the handler.
func (e *Executor) applyTx(block *core.Block, tx *core.Transaction) error {
	acc, err := e.state.GetAccount(tx.From)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	if acc.Nonce != tx.Nonce {
		return fmt.Errorf("invalid nonce: expected %d got %d", acc.Nonce, tx.Nonce)
	}
	if tx.Fee < e.params.SignatureFee {
		return fmt.Errorf("fee %d below signature fee %d", tx.Fee, e.params.SignatureFee)
	}
	if acc.Balance < tx.Fee {
		return fmt.Errorf("%w for fee: have %d need %d", core.ErrInsufficientFunds, acc.Balance, tx.Fee)
	}
	if acc.Nonce == math.MaxUint64 {
		return fmt.Errorf("nonce overflow for account %s", tx.From)
	}
	// Fees are burned.
	acc.Balance -= tx.Fee
	acc.Nonce++
	if err := e.state.SetAccount(acc); err != nil {
		return err
	}

	for i, v := range tx.SigVerify {
		if err := v.Verify(); err != nil {
			return fmt.Errorf("%w: sig_verify[%d]: %v", core.ErrInvalidAttestation, i, err)
		}
	}

	ctx := &Context{
		State:   e.state,
		Block:   block,
		Tx:      tx,
		Params:  e.params,
		Emitter: e.emitter,
	}
	return globalRegistry.Execute(tx.Type, ctx, tx.Payload)
}

var reasons = []error{
	core.ErrInvalidProbability,
	core.ErrInvalidWager,
	core.ErrInsufficientFunds,
	core.ErrDuplicateSeed,
	core.ErrInvalidAttestation,
	core.ErrPayoutOverflow,
	core.ErrInsufficientLiquidity,
	core.ErrBetAlreadyClosed,
	core.ErrBetNotExpired,
	core.ErrBetNotFound,
	core.ErrBankrollExists,
	core.ErrBankrollNotFound,
	core.ErrUnauthorized,
}

// Reason maps err onto a short, low-cardinality label suitable for metrics
// and event payloads.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r) {
			return r.Error()
		}
	}
	return "other"
}
