// Command node runs a dicechain validator node.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyusuf-a/2026-q1-turbin3/config"
	"github.com/fyusuf-a/2026-q1-turbin3/consensus"
	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/events"
	"github.com/fyusuf-a/2026-q1-turbin3/indexer"
	"github.com/fyusuf-a/2026-q1-turbin3/logger"
	"github.com/fyusuf-a/2026-q1-turbin3/metrics"
	"github.com/fyusuf-a/2026-q1-turbin3/publisher"
	"github.com/fyusuf-a/2026-q1-turbin3/rpc"
	"github.com/fyusuf-a/2026-q1-turbin3/storage"
	"github.com/fyusuf-a/2026-q1-turbin3/vm"
	"github.com/fyusuf-a/2026-q1-turbin3/wallet"

	// Import VM modules to trigger their init() self-registration.
	_ "github.com/fyusuf-a/2026-q1-turbin3/vm/modules/dice"
	_ "github.com/fyusuf-a/2026-q1-turbin3/vm/modules/economy"
)

// passwordEnv names the keystore password variable (not a CLI flag: flags
// leak via ps).
const passwordEnv = "DICE_PASSWORD"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "node",
		Short:        "dicechain validator node",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringP("config", "c", "config.json", "path to config file")
	cmd.PersistentFlags().StringP("key", "k", "validator.key", "path to keystore file")
	cmd.AddCommand(runCmd(), genKeyCmd())
	return cmd
}

func genKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genkey",
		Short: "Generate a new validator key",
		RunE: func(cmd *cobra.Command, args []string) error {
			keyPath, _ := cmd.Flags().GetString("key")
			w, err := wallet.Generate()
			if err != nil {
				return err
			}
			if err := wallet.SaveKey(keyPath, os.Getenv(passwordEnv), w.PrivKey()); err != nil {
				return err
			}
			fmt.Printf("Generated key. Public key (validator address): %s\n", w.PubKey())
			fmt.Printf("Saved to: %s\n", keyPath)
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the node",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			keyPath, _ := cmd.Flags().GetString("key")
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			log, err := logger.New("dicechain-node", cfg.Env)
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, keyPath, log)
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		path = ""
	}
	return config.Load(path)
}

func run(ctx context.Context, cfg *config.Config, keyPath string, log *zap.Logger) error {
	password := os.Getenv(passwordEnv)
	if password == "" {
		log.Warn(passwordEnv + " not set; keystore uses an empty password")
	}
	validator, err := wallet.Open(keyPath, password)
	if err != nil {
		return fmt.Errorf("load key: %w", err)
	}
	privKey := validator.PrivKey()
	if len(cfg.Validators) == 0 {
		cfg.Validators = []string{validator.PubKey()}
	}

	// ---- storage ----
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("mkdir data dir: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "chain"))
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	// State, blocks and indexes share one DB under distinct key prefixes.
	state := storage.NewStateDB(db)
	bc := core.NewBlockchain(storage.NewLevelBlockStore(db))
	if err := bc.Init(); err != nil {
		return fmt.Errorf("blockchain init: %w", err)
	}
	if bc.Tip() == nil {
		genesis, err := config.CreateGenesisBlock(cfg, state, privKey)
		if err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
		if err := bc.AddBlock(genesis); err != nil {
			return fmt.Errorf("add genesis: %w", err)
		}
		log.Info("genesis block committed", zap.String("hash", genesis.Hash), zap.String("chain_id", cfg.Genesis.ChainID))
	}

	// ---- events and subscribers ----
	emitter := events.NewEmitter(log)
	idx := indexer.New(db, emitter, log)
	collectors := metrics.New()
	collectors.Subscribe(emitter)
	collectors.BlockHeight.Set(float64(bc.Height()))
	pub := publisher.FromConfig(cfg.Publisher, log)
	if pub != nil {
		pub.Subscribe(emitter)
	}

	// ---- execution ----
	mempool := core.NewMempool(cfg.Genesis.ChainID)
	exec := vm.NewExecutor(state, cfg.Genesis.Params, emitter, log)
	poa := consensus.New(cfg, bc, state, mempool, exec, emitter, privKey, log)

	// ---- RPC ----
	handler := rpc.NewHandler(bc, mempool, state.Committed(), idx, cfg.Genesis.Params, cfg.Genesis.ChainID)
	rpcServer := rpc.NewServer(fmt.Sprintf(":%d", cfg.RPCPort), handler, cfg.RPCAuthToken, log)
	if err := rpcServer.Start(); err != nil {
		return fmt.Errorf("rpc start: %w", err)
	}
	defer rpcServer.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return poa.Run(gctx, time.Duration(cfg.BlockTimeMs)*time.Millisecond)
	})
	if pub != nil {
		g.Go(func() error { return pub.Run(gctx) })
	}
	if cfg.MetricsPort > 0 {
		health := func(context.Context) error {
			if bc.Tip() == nil {
				return errors.New("no chain tip")
			}
			return nil
		}
		g.Go(func() error {
			return metrics.Serve(gctx, fmt.Sprintf(":%d", cfg.MetricsPort), metrics.Handler(collectors, health), log)
		})
	}

	log.Info("node running",
		zap.String("node_id", cfg.NodeID),
		zap.String("validator", validator.PubKey()),
		zap.Int64("height", bc.Height()))
	err = g.Wait()
	log.Info("shutting down")
	return err
}
