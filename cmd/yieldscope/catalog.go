package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldScope/internal/chain"
	"yieldScope/internal/config"
	"yieldScope/internal/morpho"
	"yieldScope/internal/storage/postgres"
)

func runCatalog(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCatalog(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	register, err := morpho.ParseMarketIDs(cfg.Markets)
	if err != nil {
		return err
	}
	disable, err := morpho.ParseMarketIDs(cfg.Disable)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var chainClient *chain.Client
	if cfg.ChainID == 0 && cfg.RPCURL != "" {
		chainClient, err = chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
	}
	chainID, err := resolveChainID(ctx, chainClient, cfg.ChainID)
	if err != nil {
		return err
	}

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if err := store.UpsertMarkets(ctx, chainID, hexIDs(register)); err != nil {
		return fmt.Errorf("register markets: %w", err)
	}
	if err := store.DisableMarkets(ctx, chainID, hexIDs(disable)); err != nil {
		return fmt.Errorf("disable markets: %w", err)
	}

	enabled, err := store.ListMarketIDs(ctx, chainID)
	if err != nil {
		return fmt.Errorf("list catalog markets: %w", err)
	}
	for _, id := range enabled {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}

	logger.Info("catalog updated",
		zap.Uint64("chain_id", chainID),
		zap.Int("registered", len(register)),
		zap.Int("disabled", len(disable)),
		zap.Int("enabled", len(enabled)),
	)
	return nil
}

func hexIDs(ids []common.Hash) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}
