// Command dicectl is a command-line client for a dicechain node.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/rpc"
	"github.com/fyusuf-a/2026-q1-turbin3/wallet"
)

const passwordEnv = "DICE_PASSWORD"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "dicectl",
		Short:        "dicechain client",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("rpc_laddr", "http://127.0.0.1:8545", "node JSON-RPC address")
	cmd.PersistentFlags().String("token", os.Getenv("DICE_RPC_AUTH_TOKEN"), "RPC bearer token")
	cmd.PersistentFlags().StringP("key", "k", "wallet.key", "path to keystore file")
	cmd.PersistentFlags().String("chain_id", "dicechain-dev", "chain ID transactions are signed for")
	cmd.PersistentFlags().Uint64("fee", core.DefaultParams().SignatureFee, "transaction fee in base units")

	cmd.AddCommand(
		BalanceCmd(),
		BankrollCmd(),
		BetCmd(),
	)
	return cmd
}

// session bundles what every command needs: a client, the signing wallet
// and the tx envelope settings.
type session struct {
	ctx     context.Context
	client  *rpc.Client
	chainID string
	fee     uint64
	keyPath string
	w       *wallet.Wallet
}

func newSession(cmd *cobra.Command) *session {
	addr, _ := cmd.Flags().GetString("rpc_laddr")
	token, _ := cmd.Flags().GetString("token")
	chainID, _ := cmd.Flags().GetString("chain_id")
	fee, _ := cmd.Flags().GetUint64("fee")
	keyPath, _ := cmd.Flags().GetString("key")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return &session{
		ctx:     ctx,
		client:  rpc.NewClient(addr, token),
		chainID: chainID,
		fee:     fee,
		keyPath: keyPath,
	}
}

// wallet loads the keystore on first use.
func (s *session) wallet() (*wallet.Wallet, error) {
	if s.w != nil {
		return s.w, nil
	}
	w, err := wallet.Open(s.keyPath, os.Getenv(passwordEnv))
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", s.keyPath, err)
	}
	s.w = w
	return w, nil
}

func (s *session) nonce() (uint64, error) {
	w, err := s.wallet()
	if err != nil {
		return 0, err
	}
	bal, err := s.client.Balance(s.ctx, w.PubKey())
	if err != nil {
		return 0, err
	}
	return bal.Nonce, nil
}

// submit builds a transaction with the sender's current nonce and sends it.
func (s *session) submit(build func(w *wallet.Wallet, nonce uint64) (*core.Transaction, error)) error {
	w, err := s.wallet()
	if err != nil {
		return err
	}
	nonce, err := s.nonce()
	if err != nil {
		return err
	}
	tx, err := build(w, nonce)
	if err != nil {
		return err
	}
	id, err := s.client.SendTx(s.ctx, tx)
	if err != nil {
		return err
	}
	fmt.Printf("tx %s submitted (%s)\n", id, tx.Type)
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// BalanceCmd shows an account balance.
func BalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show an account balance (defaults to the wallet's)",
		RunE:  balance,
	}
	cmd.Flags().StringP("addr", "a", "", "account address")
	return cmd
}

func balance(cmd *cobra.Command, args []string) error {
	s := newSession(cmd)
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		w, err := s.wallet()
		if err != nil {
			return err
		}
		addr = w.PubKey()
	}
	bal, err := s.client.Balance(s.ctx, addr)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s (nonce %d)\n", bal.Address, formatAmount(bal.Balance), bal.Nonce)
	return nil
}

// BankrollCmd manages the wallet's house bankroll.
func BankrollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bankroll",
		Short: "House bankroll management",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.AddCommand(
		bankrollTxCmd("init", "Create the wallet's bankroll", (*wallet.Wallet).BankrollInit),
		bankrollTxCmd("deposit", "Add liquidity to the wallet's bankroll", (*wallet.Wallet).BankrollDeposit),
		bankrollTxCmd("withdraw", "Withdraw liquidity from the wallet's bankroll", (*wallet.Wallet).BankrollWithdraw),
		bankrollShowCmd(),
	)
	return cmd
}

type bankrollBuilder func(w *wallet.Wallet, chainID string, amount, nonce, fee uint64) (*core.Transaction, error)

func bankrollTxCmd(use, short string, build bankrollBuilder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("amount")
			amount, err := parseAmount(raw)
			if err != nil {
				return err
			}
			s := newSession(cmd)
			return s.submit(func(w *wallet.Wallet, nonce uint64) (*core.Transaction, error) {
				return build(w, s.chainID, amount, nonce, s.fee)
			})
		},
	}
	cmd.Flags().StringP("amount", "a", "", "amount in whole units")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func bankrollShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a bankroll (defaults to the wallet's)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession(cmd)
			house, _ := cmd.Flags().GetString("house")
			if house == "" {
				w, err := s.wallet()
				if err != nil {
					return err
				}
				house = w.PubKey()
			}
			br, err := s.client.Bankroll(s.ctx, house)
			if err != nil {
				return err
			}
			fmt.Printf("house   %s\nvault   %s\nbalance %s\ncreated %s\n",
				br.Owner, br.Vault, formatAmount(br.Balance), time.Unix(0, br.CreatedAt).UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().String("house", "", "house public key")
	return cmd
}
