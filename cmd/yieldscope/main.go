package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "yieldscope",
		Short:        "Lending market yield inspector",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	marketsCmd := &cobra.Command{
		Use:   "markets",
		Short: "Compute supply and borrow APY of isolated lending markets",
		RunE:  runMarkets,
	}

	marketsCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	marketsCmd.Flags().String("morpho", "", "Morpho Blue contract address")
	marketsCmd.Flags().StringSlice("market", nil, "market ids (comma-separated, 32-byte hex)")
	marketsCmd.Flags().String("asset", "", "quote asset address; markets with another loan token are skipped")
	marketsCmd.Flags().String("pg-dsn", "", "Postgres DSN of the market catalog, used when --market is empty")
	marketsCmd.Flags().Uint64("chain-id", 0, "catalog chain id, 0 means ask the RPC")
	marketsCmd.Flags().String("out", "", "optional output JSONL path (results are always printed)")
	marketsCmd.Flags().Int("parallelism", 4, "markets evaluated concurrently")
	marketsCmd.Flags().String("rate-override", "", "fixed per-second borrow rate (WAD integer) instead of calling each IRM")
	marketsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(marketsCmd)

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Fetch normalized supply and borrow APY from comparison protocols",
		RunE:  runCompare,
	}

	compareCmd.Flags().String("symbol", "", "quote asset symbol (case-insensitive)")
	compareCmd.Flags().String("mint", "", "quote asset mint on non-EVM sources")
	compareCmd.Flags().String("kamino-api", "", "Kamino API base URL")
	compareCmd.Flags().StringArray("rest", nil, "extra REST source as NAME=KIND:URL (repeatable)")
	compareCmd.Flags().String("rpc", "", "Ethereum RPC URL (Aave source and symbol lookup)")
	compareCmd.Flags().String("aave-pool", "", "Aave v3 pool address")
	compareCmd.Flags().String("asset", "", "quote asset address")
	compareCmd.Flags().String("out", "", "optional output JSONL path (results are always printed)")
	compareCmd.Flags().Int("attempts", 3, "HTTP attempts per request")
	compareCmd.Flags().Duration("retry-delay", 500*time.Millisecond, "fixed delay between HTTP attempts")
	compareCmd.Flags().Duration("fetch-timeout", 10*time.Second, "HTTP request timeout")
	compareCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(compareCmd)

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Register or disable market ids in the Postgres catalog",
		RunE:  runCatalog,
	}

	catalogCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	catalogCmd.Flags().String("rpc", "", "Ethereum RPC URL, used to resolve the chain id")
	catalogCmd.Flags().Uint64("chain-id", 0, "chain id, 0 means ask the RPC")
	catalogCmd.Flags().StringSlice("market", nil, "market ids to register, in evaluation order")
	catalogCmd.Flags().StringSlice("disable", nil, "market ids to disable")
	catalogCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(catalogCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
