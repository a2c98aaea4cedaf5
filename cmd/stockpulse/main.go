package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "stockpulse"
	version = "v1.3.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Signal generation and trade simulation engine",
		Version: version,
		Long: `StockPulse turns an OHLC price history into a weighted consensus
trading signal and replays it through a risk-gated paper-trading
simulation. Five specialist agents vote; the chairman's word counts
double.`,
	}

	rootCmd.PersistentFlags().String("config", "config/stockpulse.yaml", "Path to yaml config")
	rootCmd.PersistentFlags().String("data-dir", "data", "Directory of <SYMBOL>.csv history files")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newBacktestCmd())
	rootCmd.AddCommand(newPaperCmd())
	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
