package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldScope/internal/chain"
	"yieldScope/internal/compare"
	"yieldScope/internal/config"
	"yieldScope/internal/fetch"
	"yieldScope/internal/model"
	"yieldScope/internal/morpho"
	"yieldScope/internal/token"
)

func runCompare(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCompare(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	target := compare.Target{Symbol: cfg.Symbol, Mint: cfg.Mint}
	if cfg.Asset != "" {
		if target.Asset, err = morpho.ParseAddress(cfg.Asset); err != nil {
			return fmt.Errorf("asset: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var chainClient *chain.Client
	if cfg.RPCURL != "" {
		chainClient, err = chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
	}

	if target.Symbol == "" && chainClient != nil && target.Asset != (common.Address{}) {
		meta, err := token.FetchMeta(ctx, chainClient, target.Asset, logger)
		if err != nil {
			return fmt.Errorf("resolve asset symbol: %w", err)
		}
		target.Symbol = meta.Symbol
		logger.Debug("resolved asset symbol", zap.String("asset", target.Asset.Hex()), zap.String("symbol", meta.Symbol))
	}
	if target.Symbol == "" && target.Mint == "" && target.Asset == (common.Address{}) {
		return fmt.Errorf("one of --symbol, --mint or --asset is required")
	}

	fetcher := fetch.NewClient(fetch.Config{
		Attempts: cfg.Attempts,
		Delay:    cfg.RetryDelay,
		Timeout:  cfg.FetchTimeout,
	}, logger)

	sources, err := buildSources(cfg, fetcher, chainClient)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no comparison source configured (--kamino-api, --rest or --aave-pool)")
	}

	logger.Info("compare start",
		zap.String("symbol", target.Symbol),
		zap.String("mint", target.Mint),
		zap.Int("sources", len(sources)),
	)

	outcomes := compare.Compare(ctx, sources, target)

	yields := make([]model.SourceYield, 0, len(outcomes))
	failed := 0
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			failed++
			logger.Warn("source failed", zap.String("source", o.Source), zap.Error(o.Err))
		case o.Yield == nil:
			logger.Info("no matching reserve", zap.String("source", o.Source))
		default:
			yields = append(yields, *o.Yield)
		}
	}

	for _, sink := range sinks(cmd, cfg.Out) {
		if err := sink.PutSourceYields(yields); err != nil {
			return err
		}
	}

	logger.Info("compare done", zap.Int("yields", len(yields)), zap.Int("failures", failed))
	if failed == len(outcomes) {
		return fmt.Errorf("all %d sources failed", failed)
	}
	return nil
}

func buildSources(cfg config.CompareConfig, fetcher *fetch.Client, chainClient *chain.Client) ([]compare.Source, error) {
	var sources []compare.Source

	if cfg.KaminoAPI != "" {
		sources = append(sources, &compare.KaminoSource{BaseURL: cfg.KaminoAPI, Fetcher: fetcher})
	}

	names := make([]string, 0, len(cfg.REST))
	for name := range cfg.REST {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		kind, url, err := parseRESTSource(cfg.REST[name])
		if err != nil {
			return nil, fmt.Errorf("rest source %s: %w", name, err)
		}
		sources = append(sources, &compare.RESTSource{SourceName: name, Kind: kind, URL: url, Fetcher: fetcher})
	}

	if cfg.AavePool != "" {
		if chainClient == nil {
			return nil, fmt.Errorf("aave source requires --rpc")
		}
		pool, err := morpho.ParseAddress(cfg.AavePool)
		if err != nil {
			return nil, fmt.Errorf("aave pool: %w", err)
		}
		sources = append(sources, &compare.AaveSource{Pool: pool, Caller: chainClient})
	}

	return sources, nil
}

// parseRESTSource splits KIND:URL.
func parseRESTSource(value string) (compare.Kind, string, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("expected KIND:URL, got %q", value)
	}
	kind, err := compare.ParseKind(strings.TrimSpace(parts[0]))
	if err != nil {
		return "", "", err
	}
	if kind == compare.KindMarketList {
		return "", "", fmt.Errorf("%s carries no rates", kind)
	}
	return kind, strings.TrimSpace(parts[1]), nil
}
