package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mwhitt/stockpulse/internal/config"
	"github.com/mwhitt/stockpulse/internal/consensus"
	"github.com/mwhitt/stockpulse/internal/engine"
	httpserver "github.com/mwhitt/stockpulse/internal/interfaces/http"
	"github.com/mwhitt/stockpulse/internal/ledger"
	"github.com/mwhitt/stockpulse/internal/market"
	"github.com/mwhitt/stockpulse/internal/metrics"
	"github.com/mwhitt/stockpulse/internal/persistence/postgres"
)

// buildStack assembles the engine from flags and config. Returns the
// engine, the metrics registry, and a cleanup func.
func buildStack(cmd *cobra.Command, withAccount bool) (*engine.Engine, *prometheus.Registry, func(), error) {
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}

	dataDir, _ := cmd.Flags().GetString("data-dir")
	csvProvider := market.NewCSVProvider(dataDir)
	guarded := market.NewGuardedProvider(cfg.Provider.Name, csvProvider, csvProvider, cfg.Provider.RPS)

	var rdb *redis.Client
	cleanup := func() {}
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		cleanup = func() { rdb.Close() }
	}
	quotes := market.NewCachedQuotes(guarded, rdb, cfg.Redis.DefaultTTL())

	registry := prometheus.NewRegistry()
	collector := metrics.New(registry)

	var broker engine.Broker
	if withAccount {
		var journal ledger.Journal
		if cfg.Postgres.DSN != "" {
			pgJournal, err := postgres.Connect(cfg.Postgres.DSN, cfg.Postgres.QueryTimeout())
			if err != nil {
				cleanup()
				return nil, nil, nil, err
			}
			journal = pgJournal
			prev := cleanup
			cleanup = func() { pgJournal.Close(); prev() }
		}
		broker = ledger.NewAccount(cfg.Risk.AccountEquity, cfg.Ledger, quotes, journal)
	}

	aggregator := consensus.NewAggregator(cfg.Regime)
	eng := engine.New(guarded, aggregator, cfg.Backtest, cfg.Risk, broker, collector)
	return eng, registry, cleanup, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Compute the consensus signal for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, cleanup, err := buildStack(cmd, false)
			if err != nil {
				return err
			}
			defer cleanup()

			period, _ := cmd.Flags().GetString("period")
			sig, err := eng.Analyze(cmd.Context(), args[0], period)
			if err != nil {
				return err
			}
			return printJSON(sig)
		},
	}
	cmd.Flags().String("period", "1y", "History period to request")
	return cmd
}

func newBacktestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest <symbol>",
		Short: "Replay a symbol's history through the engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, cleanup, err := buildStack(cmd, false)
			if err != nil {
				return err
			}
			defer cleanup()

			period, _ := cmd.Flags().GetString("period")
			balance, _ := cmd.Flags().GetFloat64("balance")
			report, err := eng.RunBacktest(cmd.Context(), args[0], period, balance)
			if err != nil {
				return err
			}
			if full, _ := cmd.Flags().GetBool("full"); !full {
				report.EquityCurve = nil
			}
			return printJSON(report)
		},
	}
	cmd.Flags().String("period", "1y", "History period to request")
	cmd.Flags().Float64("balance", 100000, "Initial simulated balance")
	cmd.Flags().Bool("full", false, "Include the full equity curve in output")
	return cmd
}

func newPaperCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paper",
		Short: "Paper trading operations",
	}

	tradeCmd := &cobra.Command{
		Use:   "trade <symbol>",
		Short: "Execute one paper trade through the risk gate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, cleanup, err := buildStack(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()

			side, _ := cmd.Flags().GetString("side")
			qty, _ := cmd.Flags().GetInt("qty")
			price, _ := cmd.Flags().GetFloat64("price")
			reason, _ := cmd.Flags().GetString("reason")

			res, err := eng.ExecuteTrade(cmd.Context(), ledger.TradeRequest{
				Symbol:   args[0],
				Side:     side,
				Quantity: qty,
				Price:    price,
				Reason:   reason,
			})
			if err != nil {
				return err
			}
			if err := printJSON(res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("trade rejected: %s", res.Message)
			}
			return nil
		},
	}
	tradeCmd.Flags().String("side", "BUY", "BUY or SELL")
	tradeCmd.Flags().Int("qty", 1, "Share quantity")
	tradeCmd.Flags().Float64("price", 0, "Quoted price")
	tradeCmd.Flags().String("reason", "manual", "Trade rationale for the journal")

	portfolioCmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Show the current paper portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, cleanup, err := buildStack(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()

			pf, err := eng.Portfolio(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(pf)
		},
	}

	cmd.AddCommand(tradeCmd, portfolioCmd)
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, registry, cleanup, err := buildStack(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()

			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			worker := engine.NewWorker(eng, cfg.Workers)
			defer worker.Close()

			server := httpserver.NewServer(cfg.Server, eng, worker, registry)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case <-ctx.Done():
				log.Info().Msg("shutting down")
				return server.Shutdown(context.Background())
			case err := <-errCh:
				return err
			}
		},
	}
}
