package core

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fyusuf-a/2026-q1-turbin3/crypto"
)

// TxType identifies the kind of operation a transaction performs.
type TxType string

const (
	TxTransfer         TxType = "transfer"
	TxBankrollInit     TxType = "bankroll_init"
	TxBankrollDeposit  TxType = "bankroll_deposit"
	TxBankrollWithdraw TxType = "bankroll_withdraw"
	TxPlaceBet         TxType = "place_bet"
	TxResolveBet       TxType = "resolve_bet"
	TxRefundBet        TxType = "refund_bet"
)

// SigVerification is a signature-verification co-instruction. The executor
// checks every entry before the handler runs; handlers may then inspect the
// verified (pubkey, message, signature) triples but can never see an
// unverified one.
type SigVerification struct {
	PubKey    string `json:"pubkey"`    // hex
	Message   string `json:"message"`   // hex
	Signature string `json:"signature"` // hex
}

// Verify checks the ed25519 signature in v.
func (v SigVerification) Verify() error {
	pub, err := crypto.PubKeyFromHex(v.PubKey)
	if err != nil {
		return err
	}
	msg, err := v.MessageBytes()
	if err != nil {
		return err
	}
	return crypto.Verify(pub, msg, v.Signature)
}

// MessageBytes decodes the hex message.
func (v SigVerification) MessageBytes() ([]byte, error) {
	return decodeHex("message", v.Message)
}

func decodeHex(field, s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s hex: %w", field, err)
	}
	return b, nil
}

// Transaction is the atomic unit of work on the chain.
// From holds the sender's full hex-encoded ed25519 public key (64 chars).
// Signature covers all fields except ID and Signature itself.
type Transaction struct {
	ID        string            `json:"id"`
	ChainID   string            `json:"chain_id"`
	Type      TxType            `json:"type"`
	From      string            `json:"from"` // hex-encoded ed25519 public key
	Nonce     uint64            `json:"nonce"`
	Fee       uint64            `json:"fee"`
	Timestamp int64             `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload"`
	SigVerify []SigVerification `json:"sig_verify,omitempty"`
	Signature string            `json:"signature"`
}

// signingBody holds the fields that are covered by the signature.
type signingBody struct {
	ChainID   string            `json:"chain_id"`
	Type      TxType            `json:"type"`
	From      string            `json:"from"`
	Nonce     uint64            `json:"nonce"`
	Fee       uint64            `json:"fee"`
	Timestamp int64             `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload"`
	SigVerify []SigVerification `json:"sig_verify,omitempty"`
}

// Hash returns a deterministic hash of the transaction (sans Signature).
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (tx *Transaction) Hash() string {
	body := signingBody{
		ChainID:   tx.ChainID,
		Type:      tx.Type,
		From:      tx.From,
		Nonce:     tx.Nonce,
		Fee:       tx.Fee,
		Timestamp: tx.Timestamp,
		Payload:   tx.Payload,
		SigVerify: tx.SigVerify,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign computes the signature and sets ID.
func (tx *Transaction) Sign(priv crypto.PrivateKey) {
	hash := tx.Hash()
	tx.Signature = crypto.Sign(priv, []byte(hash))
	tx.ID = hash
}

// Verify checks the signature and that From is a valid public key.
func (tx *Transaction) Verify() error {
	if tx.From == "" {
		return errors.New("missing from field")
	}
	pub, err := crypto.PubKeyFromHex(tx.From)
	if err != nil {
		return fmt.Errorf("invalid from (must be ed25519 pubkey hex): %w", err)
	}
	if pub.Hex() != tx.From {
		return errors.New("from must be lowercase hex")
	}
	return crypto.Verify(pub, []byte(tx.Hash()), tx.Signature)
}

// NewTransaction creates an unsigned transaction with the current timestamp.
func NewTransaction(chainID string, typ TxType, from string, nonce, fee uint64, payload any) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Transaction{
		ChainID:   chainID,
		Type:      typ,
		From:      from,
		Nonce:     nonce,
		Fee:       fee,
		Timestamp: time.Now().UnixNano(),
		Payload:   raw,
	}, nil
}

// ---- Payload types ----

// TransferPayload transfers native tokens.
type TransferPayload struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// BankrollPayload carries the amount for bankroll init, deposit and withdraw.
// The house is always the transaction sender.
type BankrollPayload struct {
	Amount uint64 `json:"amount"`
}

// PlaceBetPayload opens a bet against house. The player is the sender.
type PlaceBetPayload struct {
	House       string `json:"house"`
	Seed        Seed   `json:"seed"`
	Probability uint8  `json:"probability"`
	Amount      uint64 `json:"amount"`
}

// ResolveBetPayload settles an open bet. Signature must equal the signature of
// the transaction's single SigVerify entry.
type ResolveBetPayload struct {
	House     string `json:"house"`
	Player    string `json:"player"`
	Seed      Seed   `json:"seed"`
	Signature string `json:"signature"` // hex
}

// RefundBetPayload returns an expired bet's wager to its player.
type RefundBetPayload struct {
	House  string `json:"house"`
	Player string `json:"player"`
	Seed   Seed   `json:"seed"`
}
