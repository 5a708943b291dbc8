package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/crypto"
)

// NewSeed returns a random bet seed.
func NewSeed() (core.Seed, error) {
	var s core.Seed
	if _, err := rand.Read(s[:]); err != nil {
		return s, err
	}
	return s, nil
}

// BankrollInit creates the sender's bankroll funded with amount.
func (w *Wallet) BankrollInit(chainID string, amount, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxBankrollInit, nonce, fee, core.BankrollPayload{Amount: amount})
}

// BankrollDeposit adds amount to the sender's bankroll.
func (w *Wallet) BankrollDeposit(chainID string, amount, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxBankrollDeposit, nonce, fee, core.BankrollPayload{Amount: amount})
}

// BankrollWithdraw takes amount out of the sender's bankroll.
func (w *Wallet) BankrollWithdraw(chainID string, amount, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxBankrollWithdraw, nonce, fee, core.BankrollPayload{Amount: amount})
}

// PlaceBet wagers amount against house at win threshold probability.
func (w *Wallet) PlaceBet(chainID, house string, seed core.Seed, probability uint8, amount, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxPlaceBet, nonce, fee, core.PlaceBetPayload{
		House:       house,
		Seed:        seed,
		Probability: probability,
		Amount:      amount,
	})
}

// Attest signs bet's canonical message with the wallet key and returns the
// co-instruction a resolve transaction must carry. The wallet must hold the
// bet's house key.
func (w *Wallet) Attest(bet *core.Bet) (core.SigVerification, error) {
	if bet.House != w.pub.Hex() {
		return core.SigVerification{}, fmt.Errorf("wallet %s is not the house of bet %s", w.pub.Hex(), bet.ID)
	}
	msg, err := bet.Message()
	if err != nil {
		return core.SigVerification{}, err
	}
	return core.SigVerification{
		PubKey:    w.pub.Hex(),
		Message:   hex.EncodeToString(msg),
		Signature: hex.EncodeToString(crypto.SignBytes(w.priv, msg)),
	}, nil
}

// ResolveBet builds a resolve transaction for bet carrying att. The sender
// need not be the house: any holder of the attestation may submit it.
func (w *Wallet) ResolveBet(chainID string, bet *core.Bet, att core.SigVerification, nonce, fee uint64) (*core.Transaction, error) {
	tx, err := core.NewTransaction(chainID, core.TxResolveBet, w.pub.Hex(), nonce, fee, core.ResolveBetPayload{
		House:     bet.House,
		Player:    bet.Player,
		Seed:      bet.Seed,
		Signature: att.Signature,
	})
	if err != nil {
		return nil, err
	}
	tx.SigVerify = []core.SigVerification{att}
	tx.Sign(w.priv)
	return tx, nil
}

// Resolve attests bet as its house and builds the resolve transaction.
func (w *Wallet) Resolve(chainID string, bet *core.Bet, nonce, fee uint64) (*core.Transaction, error) {
	att, err := w.Attest(bet)
	if err != nil {
		return nil, err
	}
	return w.ResolveBet(chainID, bet, att, nonce, fee)
}

// RefundBet returns an expired bet's wager to its player.
func (w *Wallet) RefundBet(chainID, house, player string, seed core.Seed, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxRefundBet, nonce, fee, core.RefundBetPayload{
		House:  house,
		Player: player,
		Seed:   seed,
	})
}
