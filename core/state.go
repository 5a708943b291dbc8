package core

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/fyusuf-a/2026-q1-turbin3/crypto"
)

// Account holds a balance and replay-protection nonce.
// User accounts are addressed by the hex-encoded ed25519 public key; vaults
// owned by the dice program use a base58 derived address and never sign.
type Account struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// SeedSize is the length of a client-chosen bet seed.
const SeedSize = 16

// Seed is the opaque per-bet value that makes a bet's address unique for a
// (house, player) pair. It is hex encoded in JSON.
type Seed [SeedSize]byte

func (s Seed) String() string { return hex.EncodeToString(s[:]) }

func (s Seed) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Seed) UnmarshalText(text []byte) error {
	parsed, err := ParseSeed(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeed decodes a 32-char hex seed.
func ParseSeed(h string) (Seed, error) {
	var s Seed
	b, err := hex.DecodeString(h)
	if err != nil {
		return s, fmt.Errorf("invalid seed hex: %w", err)
	}
	if len(b) != SeedSize {
		return s, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(b))
	}
	copy(s[:], b)
	return s, nil
}

// BetStatus is the lifecycle state of a bet. Only open bets are stored as Bet
// records; terminal states are recorded on the BetReceipt.
type BetStatus string

const (
	BetOpen     BetStatus = "open"
	BetResolved BetStatus = "resolved"
	BetRefunded BetStatus = "refunded"
)

// Bankroll is a house's pooled liquidity. The balance itself is held by the
// Vault account so it moves through the same transfer paths as every other
// balance.
type Bankroll struct {
	Owner     string `json:"owner"` // house pubkey hex
	Vault     string `json:"vault"` // derived address
	CreatedAt int64  `json:"created_at"`
}

// Bet is an open wager escrowed in its own vault.
type Bet struct {
	ID          string    `json:"id"`
	House       string    `json:"house"`  // pubkey hex
	Player      string    `json:"player"` // pubkey hex
	Seed        Seed      `json:"seed"`
	Probability uint8     `json:"probability"` // win iff roll < probability
	Amount      uint64    `json:"amount"`
	Slot        int64     `json:"slot"`
	CreatedAt   int64     `json:"created_at"`
	Vault       string    `json:"vault"`
	Status      BetStatus `json:"status"`
}

// BetMessageSize is the length of the canonical bet message.
const BetMessageSize = 32 + 32 + SeedSize + 1 + 8 + 8 + 8

// Message returns the canonical encoding of the bet's immutable fields. The
// house signs exactly these bytes; resolution recomputes them from the stored
// record and never accepts a caller-supplied copy.
//
//	house(32) | player(32) | seed(16) | probability(1) | amount(u64 LE) | slot(u64 LE) | created_at(i64 LE)
func (b *Bet) Message() ([]byte, error) {
	house, err := crypto.PubKeyFromHex(b.House)
	if err != nil {
		return nil, fmt.Errorf("house: %w", err)
	}
	player, err := crypto.PubKeyFromHex(b.Player)
	if err != nil {
		return nil, fmt.Errorf("player: %w", err)
	}
	msg := make([]byte, 0, BetMessageSize)
	msg = append(msg, house...)
	msg = append(msg, player...)
	msg = append(msg, b.Seed[:]...)
	msg = append(msg, b.Probability)
	msg = binary.LittleEndian.AppendUint64(msg, b.Amount)
	msg = binary.LittleEndian.AppendUint64(msg, uint64(b.Slot))
	msg = binary.LittleEndian.AppendUint64(msg, uint64(b.CreatedAt))
	return msg, nil
}

// BetReceipt is the tombstone left behind when a bet closes. It keeps the
// attestation so anyone can recompute the roll later.
type BetReceipt struct {
	ID          string    `json:"id"`
	House       string    `json:"house"`
	Player      string    `json:"player"`
	Seed        Seed      `json:"seed"`
	Probability uint8     `json:"probability"`
	Amount      uint64    `json:"amount"`
	Status      BetStatus `json:"status"`
	Roll        uint8     `json:"roll,omitempty"`
	Won         bool      `json:"won"`
	Payout      uint64    `json:"payout"` // total returned to the player
	Signature   string    `json:"signature,omitempty"`
	ClosedBy    string    `json:"closed_by"`
	ClosedSlot  int64     `json:"closed_slot"`
}

// StateReader is the read side of the world state.
type StateReader interface {
	GetAccount(address string) (*Account, error)
	GetBankroll(house string) (*Bankroll, error)
	GetBet(id string) (*Bet, error)
	GetBetReceipt(id string) (*BetReceipt, error)
}

// State is the full world-state interface. Implementations must be
// snapshot-able so the executor can roll back failed transactions.
type State interface {
	StateReader

	SetAccount(account *Account) error
	DeleteAccount(address string) error
	SetBankroll(b *Bankroll) error
	SetBet(b *Bet) error
	DeleteBet(id string) error
	SetBetReceipt(r *BetReceipt) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root from the current write
	// buffer without flushing. Call this before signing a block.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	// Always call ComputeRoot() first to obtain the root for the block header.
	Commit() error
}
