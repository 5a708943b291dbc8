package core

import (
	"fmt"

	"github.com/fyusuf-a/2026-q1-turbin3/crypto"
)

// BankrollVaultAddress derives the account that holds a house's liquidity.
func BankrollVaultAddress(house string) (string, error) {
	pub, err := crypto.PubKeyFromHex(house)
	if err != nil {
		return "", fmt.Errorf("house: %w", err)
	}
	return crypto.DeriveAddress(crypto.TagBankrollVault, pub), nil
}

// BetAddresses derives the bet record ID and its escrow vault address from
// (house, player, seed). Supplying the same seed always yields the same pair.
func BetAddresses(house, player string, seed Seed) (id, vault string, err error) {
	hpub, err := crypto.PubKeyFromHex(house)
	if err != nil {
		return "", "", fmt.Errorf("house: %w", err)
	}
	ppub, err := crypto.PubKeyFromHex(player)
	if err != nil {
		return "", "", fmt.Errorf("player: %w", err)
	}
	id = crypto.DeriveAddress(crypto.TagBet, hpub, ppub, seed[:])
	vault = crypto.DeriveAddress(crypto.TagBetVault, hpub, ppub, seed[:])
	return id, vault, nil
}
