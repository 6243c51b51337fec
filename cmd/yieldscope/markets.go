package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldScope/internal/accrual"
	"yieldScope/internal/chain"
	"yieldScope/internal/config"
	"yieldScope/internal/morpho"
	"yieldScope/internal/storage"
	"yieldScope/internal/storage/postgres"
	"yieldScope/internal/token"
)

func runMarkets(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	morphoAddr, err := morpho.ParseAddress(cfg.Morpho)
	if err != nil {
		return fmt.Errorf("morpho: %w", err)
	}
	asset, err := morpho.ParseAddress(cfg.Asset)
	if err != nil {
		return fmt.Errorf("asset: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	rawIDs := cfg.Markets
	if len(rawIDs) == 0 && cfg.PGDSN != "" {
		rawIDs, err = catalogMarkets(ctx, chainClient, cfg.PGDSN, cfg.ChainID)
		if err != nil {
			return err
		}
	}
	ids, err := morpho.ParseMarketIDs(rawIDs)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("market list is required (--market or --pg-dsn)")
	}

	opts := []morpho.Option{morpho.WithLogger(logger)}
	if cfg.RateOverride != "" {
		rate, err := uint256.FromDecimal(cfg.RateOverride)
		if err != nil {
			return fmt.Errorf("rate override: %w", err)
		}
		opts = append(opts, morpho.WithRateModel(morpho.FixedRate{Rate: rate}))
	}

	reader := morpho.NewReader(chainClient, morphoAddr, opts...)
	evaluator := accrual.NewEvaluator(accrual.Config{Parallelism: cfg.Parallelism}, reader, logger)

	logger.Info("markets start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("morpho", morphoAddr.Hex()),
		zap.String("asset", asset.Hex()),
		zap.Int("markets", len(ids)),
		zap.Int("parallelism", cfg.Parallelism),
		zap.Bool("rate_override", cfg.RateOverride != ""),
	)

	report, err := evaluator.Evaluate(ctx, ids, asset)
	if err != nil {
		return err
	}

	meta, err := token.FetchMeta(ctx, chainClient, asset, logger)
	if err != nil {
		logger.Warn("quote token metadata unavailable", zap.String("asset", asset.Hex()), zap.Error(err))
	}
	for _, r := range report.Results {
		logger.Info("market yield",
			zap.String("market", r.MarketID),
			zap.String("asset", meta.Symbol),
			zap.Float64("supply_apy", r.SupplyAPY),
			zap.Float64("borrow_apy", r.BorrowAPY),
			zap.Float64("utilization", r.Utilization),
			zap.String("total_supply", token.FormatAmount(r.TotalSupply, meta.Decimals)),
			zap.String("total_borrow", token.FormatAmount(r.TotalBorrow, meta.Decimals)),
		)
	}

	for _, sink := range sinks(cmd, cfg.Out) {
		if err := sink.PutAccrualResults(report.Results); err != nil {
			return err
		}
	}

	logger.Info("markets done",
		zap.Int("results", len(report.Results)),
		zap.Int("failures", len(report.Failures)),
		zap.Int("skipped", len(ids)-len(report.Results)-len(report.Failures)),
	)

	if len(report.Results) == 0 && len(report.Failures) > 0 {
		return fmt.Errorf("all %d markets failed", len(report.Failures))
	}
	return nil
}

func catalogMarkets(ctx context.Context, chainClient *chain.Client, dsn string, chainID uint64) ([]string, error) {
	chainID, err := resolveChainID(ctx, chainClient, chainID)
	if err != nil {
		return nil, err
	}

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	ids, err := store.ListMarketIDs(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("list catalog markets: %w", err)
	}
	return ids, nil
}

func resolveChainID(ctx context.Context, chainClient *chain.Client, chainID uint64) (uint64, error) {
	if chainID != 0 {
		return chainID, nil
	}
	if chainClient == nil {
		return 0, fmt.Errorf("chain id is required (--chain-id or --rpc)")
	}
	id, err := chainClient.GetChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("get chain id: %w", err)
	}
	return id.Uint64(), nil
}

func sinks(cmd *cobra.Command, out string) []storage.Storage {
	list := []storage.Storage{storage.NewJsonlWriter(cmd.OutOrStdout())}
	if out != "" {
		list = append(list, storage.NewJsonlStorage(out))
	}
	return list
}
