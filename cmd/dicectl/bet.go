package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/rpc"
	"github.com/fyusuf-a/2026-q1-turbin3/wallet"
)

// BetCmd places, resolves, refunds and inspects bets.
func BetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bet",
		Short: "Dice bets",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.AddCommand(
		betPlaceCmd(),
		betResolveCmd(),
		betRefundCmd(),
		betShowCmd(),
	)
	return cmd
}

func betPlaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place a bet that wins when the roll is below probability",
		RunE:  placeBet,
	}
	cmd.Flags().String("house", "", "house public key")
	cmd.MarkFlagRequired("house")
	cmd.Flags().Uint8P("probability", "p", 50, "win threshold in [1,99]")
	cmd.Flags().StringP("amount", "a", "", "wager in whole units")
	cmd.MarkFlagRequired("amount")
	cmd.Flags().String("seed", "", "32-char hex seed (random if empty)")
	return cmd
}

func placeBet(cmd *cobra.Command, args []string) error {
	house, _ := cmd.Flags().GetString("house")
	p, _ := cmd.Flags().GetUint8("probability")
	raw, _ := cmd.Flags().GetString("amount")
	seedHex, _ := cmd.Flags().GetString("seed")

	amount, err := parseAmount(raw)
	if err != nil {
		return err
	}
	var seed core.Seed
	if seedHex == "" {
		seed, err = wallet.NewSeed()
	} else {
		seed, err = core.ParseSeed(seedHex)
	}
	if err != nil {
		return err
	}

	s := newSession(cmd)
	err = s.submit(func(w *wallet.Wallet, nonce uint64) (*core.Transaction, error) {
		return w.PlaceBet(s.chainID, house, seed, p, amount, nonce, s.fee)
	})
	if err != nil {
		return err
	}
	w, _ := s.wallet()
	id, _, err := core.BetAddresses(house, w.PubKey(), seed)
	if err != nil {
		return err
	}
	fmt.Printf("bet %s seed %s\n", id, seed)
	return nil
}

func addBetKeyFlags(cmd *cobra.Command) {
	cmd.Flags().String("house", "", "house public key (defaults to the wallet's)")
	cmd.Flags().String("player", "", "player public key (defaults to the wallet's)")
	cmd.Flags().String("seed", "", "bet seed hex")
	cmd.MarkFlagRequired("seed")
}

// betKey reads (house, player, seed), defaulting house and player to the
// wallet's key.
func betKey(cmd *cobra.Command, s *session) (house, player string, seed core.Seed, err error) {
	house, _ = cmd.Flags().GetString("house")
	player, _ = cmd.Flags().GetString("player")
	seedHex, _ := cmd.Flags().GetString("seed")
	if seed, err = core.ParseSeed(seedHex); err != nil {
		return
	}
	if house == "" || player == "" {
		w, werr := s.wallet()
		if werr != nil {
			err = werr
			return
		}
		if house == "" {
			house = w.PubKey()
		}
		if player == "" {
			player = w.PubKey()
		}
	}
	return
}

func betResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Attest an open bet as its house and settle it",
		RunE:  resolveBet,
	}
	addBetKeyFlags(cmd)
	return cmd
}

func resolveBet(cmd *cobra.Command, args []string) error {
	s := newSession(cmd)
	house, player, seed, err := betKey(cmd, s)
	if err != nil {
		return err
	}
	bet, err := s.client.Bet(s.ctx, house, player, seed)
	if err != nil {
		return err
	}
	return s.submit(func(w *wallet.Wallet, nonce uint64) (*core.Transaction, error) {
		return w.Resolve(s.chainID, bet, nonce, s.fee)
	})
}

func betRefundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refund",
		Short: "Refund an expired bet to its player",
		RunE:  refundBet,
	}
	addBetKeyFlags(cmd)
	return cmd
}

func refundBet(cmd *cobra.Command, args []string) error {
	s := newSession(cmd)
	house, player, seed, err := betKey(cmd, s)
	if err != nil {
		return err
	}
	return s.submit(func(w *wallet.Wallet, nonce uint64) (*core.Transaction, error) {
		return w.RefundBet(s.chainID, house, player, seed, nonce, s.fee)
	})
}

func betShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show an open bet, or its receipt once closed",
		RunE:  showBet,
	}
	addBetKeyFlags(cmd)
	return cmd
}

func showBet(cmd *cobra.Command, args []string) error {
	s := newSession(cmd)
	house, player, seed, err := betKey(cmd, s)
	if err != nil {
		return err
	}
	bet, err := s.client.Bet(s.ctx, house, player, seed)
	if err == nil {
		params, err := s.client.Params(s.ctx)
		if err != nil {
			return err
		}
		slot, err := s.client.Slot(s.ctx)
		if err != nil {
			return err
		}
		fmt.Printf("open: %s at p=%d, placed at slot %d, refundable from slot %d (now %d)\n",
			formatAmount(bet.Amount), bet.Probability, bet.Slot, bet.Slot+params.RefundTimeout, slot)
		return printJSON(bet)
	}
	var rpcErr *rpc.Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != rpc.CodeNotFound {
		return err
	}

	id, _, err := core.BetAddresses(house, player, seed)
	if err != nil {
		return err
	}
	rcpt, err := s.client.BetReceipt(s.ctx, id)
	if err != nil {
		return err
	}
	switch {
	case rcpt.Status == core.BetRefunded:
		fmt.Printf("refunded %s\n", formatAmount(rcpt.Payout))
	case rcpt.Won:
		fmt.Printf("won: roll %d < %d, paid %s\n", rcpt.Roll, rcpt.Probability, formatAmount(rcpt.Payout))
	default:
		fmt.Printf("lost: roll %d >= %d\n", rcpt.Roll, rcpt.Probability)
	}
	return printJSON(rcpt)
}
