// Command hyperarb is the CLI entrypoint: "run" launches the arbitrage
// pipeline end to end; "analyze-tx", "analyze-routers", and
// "debug-arbitrage" are read-only debug subcommands that load the
// persisted pool cache and exercise the core pipeline without a live
// chain (CLI surface; SPEC_FULL.md's "Supplemented features").
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/arbiter-labs/hyperarb/bot"
	"github.com/arbiter-labs/hyperarb/config"
	"github.com/arbiter-labs/hyperarb/gateway"
	"github.com/arbiter-labs/hyperarb/graph"
	"github.com/arbiter-labs/hyperarb/logging"
	"github.com/arbiter-labs/hyperarb/poolstate"
	"github.com/arbiter-labs/hyperarb/simulate"
	"github.com/arbiter-labs/hyperarb/types"
)

// Exit codes: 0 success, 1 missing required configuration key
// (config.ErrMissingRequired), 2 any other error, including an unreadable
// or malformed config file.
const (
	exitOK            = 0
	exitConfigError   = 1
	exitRuntimeError  = 2
)

var configFlag = &cli.StringFlag{
	Name:  "config",
	Usage: "path to a YAML/TOML config file",
}

func main() {
	app := &cli.App{
		Name:  "hyperarb",
		Usage: "on-chain arbitrage discovery and valuation engine",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			runCommand,
			analyzeTxCommand,
			analyzeRoutersCommand,
			debugArbitrageCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "hyperarb:", err)
		if ce, ok := err.(*config.ErrMissingRequired); ok {
			_ = ce
			os.Exit(exitConfigError)
		}
		os.Exit(exitRuntimeError)
	}
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "start the live arbitrage pipeline (default command)",
	Action: func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}

		log := logging.New(logging.DefaultConfig())
		manager := poolstate.NewManager(poolstate.WithLogger(logging.Component(log, "poolstate")))
		if err := manager.LoadFromCache(cfg.CacheDir, cfg.ChainID); err != nil {
			log.Warn("failed to load pool cache, starting empty", "err", err)
		}

		gw := gateway.NewJSONRPC(cfg.RPCURL, "", gateway.WithLogger(logging.Component(log, "gateway")))

		b := bot.New(gw, manager, bot.Config{
			BaseTokens:     cfg.BaseTokens,
			MaxHops:        cfg.MaxHops,
			MaxPoolsPerHop: cfg.MaxPoolsPerHop,
			WorkerPoolSize: cfg.WorkerPoolSize,
			CacheTTL:       cfg.CacheTTL,
			MinProfit:      types.NewI256FromU256(cfg.MinProfitThreshold),
			GasPrice:       func() types.U256 { return cfg.MaxGasPrice },
			Logger:         logging.Component(log, "bot"),
			OnProfitable: func(opp types.ArbitrageOpportunity, amountIn types.U256, profit types.I256) {
				log.Info("profitable opportunity",
					"start_token", opp.StartToken, "hops", len(opp.Path.Edges),
					"amount_in", amountIn.String(), "profit", profit.String())
			},
		})

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := b.Start(ctx); err != nil {
			return fmt.Errorf("start pipeline: %w", err)
		}
		log.Info("hyperarb running", "chain_id", cfg.ChainID, "base_tokens", len(cfg.BaseTokens))

		<-ctx.Done()
		log.Info("shutting down")
		b.Stop()
		return manager.SaveToCache(cfg.CacheDir, cfg.ChainID)
	},
}

var analyzeTxCommand = &cli.Command{
	Name:      "analyze-tx",
	Usage:     "inspect a single transaction hash against the current pool cache",
	ArgsUsage: "<hash>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return fmt.Errorf("analyze-tx: expected exactly one transaction hash argument")
		}
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}
		manager := poolstate.NewManager()
		if err := manager.LoadFromCache(cfg.CacheDir, cfg.ChainID); err != nil {
			return err
		}
		// Decoding the transaction's calldata into a SwapInfo is the
		// external collaborator's job per Non-goals; this
		// command reports what it can from pool state alone.
		fmt.Printf("analyze-tx: %s: %d pools loaded from cache, %d cached generation\n",
			c.Args().First(), len(manager.Snapshot()), manager.Generation())
		return nil
	},
}

var analyzeRoutersCommand = &cli.Command{
	Name:      "analyze-routers",
	Usage:     "scan a block range for router activity against the current pool cache",
	ArgsUsage: "<fromBlock> <toBlock>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return fmt.Errorf("analyze-routers: expected <fromBlock> <toBlock>")
		}
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}
		manager := poolstate.NewManager()
		if err := manager.LoadFromCache(cfg.CacheDir, cfg.ChainID); err != nil {
			return err
		}
		g := graph.Build(manager)
		finder := graph.NewFinder(g, cfg.MaxHops, cfg.MaxPoolsPerHop)
		cycles := finder.FindAll(context.Background(), cfg.BaseTokens)
		fmt.Printf("analyze-routers: range %s-%s: %d candidate cycles over %d pools\n",
			c.Args().Get(0), c.Args().Get(1), len(cycles), len(manager.Snapshot()))
		return nil
	},
}

var debugArbitrageCommand = &cli.Command{
	Name:      "debug-arbitrage",
	Usage:     "simulate every known cycle for a transaction hash and print profit",
	ArgsUsage: "<hash>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return fmt.Errorf("debug-arbitrage: expected exactly one transaction hash argument")
		}
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}
		manager := poolstate.NewManager()
		if err := manager.LoadFromCache(cfg.CacheDir, cfg.ChainID); err != nil {
			return err
		}

		g := graph.Build(manager)
		finder := graph.NewFinder(g, cfg.MaxHops, cfg.MaxPoolsPerHop)
		sim := simulate.New(manager, slog.Default())

		count := 0
		for opp := range finder.Stream(context.Background(), cfg.BaseTokens) {
			count++
			result, err := sim.Simulate(context.Background(), opp.Path, cfg.MaxGasPrice, cfg.MaxGasPrice, 50)
			if err != nil {
				continue
			}
			fmt.Printf("debug-arbitrage %s: cycle #%d hops=%d profit=%s\n",
				c.Args().First(), count, len(opp.Path.Edges), result.Profit.String())
		}
		return nil
	},
}
