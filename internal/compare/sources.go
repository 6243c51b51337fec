package compare

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"yieldScope/internal/model"
)

// Fetcher returns the body of an off-chain endpoint. fetch.Client
// implements it with retries.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Caller performs a read-only contract call.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// KaminoSource resolves the primary lending market and reads its reserve
// metrics.
type KaminoSource struct {
	BaseURL string
	Fetcher Fetcher
}

func (s *KaminoSource) Name() string { return "kamino" }

func (s *KaminoSource) Yield(ctx context.Context, target Target) (*model.SourceYield, error) {
	base := strings.TrimRight(s.BaseURL, "/")

	raw, err := s.Fetcher.Get(ctx, base+"/v2/kamino-market")
	if err != nil {
		return nil, fmt.Errorf("market list: %w", err)
	}
	markets, err := Parse(KindMarketList, raw)
	if err != nil {
		return nil, err
	}
	primary, ok := markets.PrimaryMarket()
	if !ok {
		return nil, fmt.Errorf("%w: no primary market", ErrInvalidUpstreamShape)
	}

	metricsURL := fmt.Sprintf("%s/kamino-market/%s/reserves/metrics", base, url.PathEscape(primary.LendingMarket))
	raw, err = s.Fetcher.Get(ctx, metricsURL)
	if err != nil {
		return nil, fmt.Errorf("reserve metrics: %w", err)
	}
	reserves, err := Parse(KindReserveMetrics, raw)
	if err != nil {
		return nil, err
	}
	return toYield(s.Name(), Select(reserves.Reserves, target)), nil
}

// RESTSource fetches one URL and parses it as a reserve variant.
type RESTSource struct {
	SourceName string
	Kind       Kind
	URL        string
	Fetcher    Fetcher
}

func (s *RESTSource) Name() string { return s.SourceName }

func (s *RESTSource) Yield(ctx context.Context, target Target) (*model.SourceYield, error) {
	if s.Kind == KindMarketList {
		return nil, fmt.Errorf("source %s: %s carries no rates", s.SourceName, s.Kind)
	}
	raw, err := s.Fetcher.Get(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	v, err := Parse(s.Kind, raw)
	if err != nil {
		return nil, err
	}
	return toYield(s.Name(), Select(v.Reserves, target)), nil
}

// AaveSource reads getReserveData from an Aave v3 pool.
type AaveSource struct {
	Pool   common.Address
	Caller Caller
}

func (s *AaveSource) Name() string { return "aave" }

func (s *AaveSource) Yield(ctx context.Context, target Target) (*model.SourceYield, error) {
	if target.Asset == (common.Address{}) {
		return nil, errors.New("aave source needs an asset address")
	}
	poolABI, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	data, err := poolABI.Pack("getReserveData", target.Asset)
	if err != nil {
		return nil, fmt.Errorf("pack getReserveData: %w", err)
	}
	resp, err := s.Caller.CallContract(ctx, ethereum.CallMsg{To: &s.Pool, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call getReserveData: %w", err)
	}

	out, err := unpackReserveData(poolABI, resp)
	if err != nil {
		return nil, fmt.Errorf("%w: getReserveData: %v", ErrInvalidUpstreamShape, err)
	}
	// Unlisted assets come back zeroed.
	if out.ATokenAddress == (common.Address{}) {
		return nil, nil
	}

	reserve := RayReserve(target.Symbol, target.Asset.Hex(), out.CurrentLiquidityRate, out.CurrentVariableBorrowRate)
	return toYield(s.Name(), Select([]Reserve{reserve}, target)), nil
}
