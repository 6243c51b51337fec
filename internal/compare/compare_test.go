package compare

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"yieldScope/internal/fetch"
	"yieldScope/internal/model"
)

var usdcAddress = common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")

type fakeFetcher map[string]string

func (f fakeFetcher) Get(_ context.Context, url string) ([]byte, error) {
	body, ok := f[url]
	if !ok {
		return nil, &fetch.ExhaustedError{URL: url, Attempts: 3, Last: errors.New("404")}
	}
	return []byte(body), nil
}

func TestSelectIsCaseInsensitiveOnSymbol(t *testing.T) {
	reserves := []Reserve{
		{Symbol: "sol", SupplyAPY: decimal.NewFromInt(1)},
		{Symbol: "usdc", SupplyAPY: decimal.NewFromInt(2)},
		{Symbol: "USDC", SupplyAPY: decimal.NewFromInt(3)},
	}
	got := Select(reserves, Target{Symbol: "USDC"})
	require.NotNil(t, got)
	require.True(t, got.SupplyAPY.Equal(decimal.NewFromInt(2)))
}

func TestSelectByMintOrAsset(t *testing.T) {
	reserves := []Reserve{
		{Symbol: "USDC.e", Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"},
		{Symbol: "aUSDC", Mint: strings.ToUpper(usdcAddress.Hex()[2:])},
		{Symbol: "bridged", Mint: usdcAddress.Hex()},
	}

	got := Select(reserves, Target{Symbol: "USDC", Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"})
	require.NotNil(t, got)
	require.Equal(t, "USDC.e", got.Symbol)

	got = Select(reserves, Target{Asset: usdcAddress})
	require.NotNil(t, got)
	require.Equal(t, "aUSDC", got.Symbol)

	require.Nil(t, Select(reserves, Target{Symbol: "DAI"}))
	require.Nil(t, Select(nil, Target{Symbol: "USDC"}))
}

func TestKaminoSource(t *testing.T) {
	fetcher := fakeFetcher{
		"https://api.kamino.test/v2/kamino-market": `[
			{"lendingMarket": "alt", "isPrimary": false},
			{"lendingMarket": "main", "isPrimary": true}
		]`,
		"https://api.kamino.test/kamino-market/main/reserves/metrics": `[
			{"liquidityToken": "SOL", "liquidityTokenMint": "So1", "supplyApy": "0.03", "borrowApy": "0.05"},
			{"liquidityToken": "usdc", "liquidityTokenMint": "EPj", "supplyApy": "0.0745", "borrowApy": "0.0921"}
		]`,
	}

	src := &KaminoSource{BaseURL: "https://api.kamino.test/", Fetcher: fetcher}
	got, err := src.Yield(context.Background(), Target{Symbol: "USDC"})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "kamino", got.Source)
	require.Equal(t, "usdc", got.Reserve)
	require.InDelta(t, 7.45, got.SupplyAPY, 1e-9)
	require.InDelta(t, 9.21, got.BorrowAPY, 1e-9)
}

func TestKaminoSourceNoMatch(t *testing.T) {
	fetcher := fakeFetcher{
		"https://k/v2/kamino-market":                    `[{"lendingMarket": "main", "isPrimary": true}]`,
		"https://k/kamino-market/main/reserves/metrics": `[{"liquidityToken": "SOL", "supplyApy": 0.03, "borrowApy": 0.05}]`,
	}
	got, err := (&KaminoSource{BaseURL: "https://k", Fetcher: fetcher}).Yield(context.Background(), Target{Symbol: "USDC"})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestKaminoSourceBadShape(t *testing.T) {
	fetcher := fakeFetcher{"https://k/v2/kamino-market": `[{"isPrimary": true}]`}
	_, err := (&KaminoSource{BaseURL: "https://k", Fetcher: fetcher}).Yield(context.Background(), Target{Symbol: "USDC"})
	require.ErrorIs(t, err, ErrInvalidUpstreamShape)
}

func TestRESTSource(t *testing.T) {
	fetcher := fakeFetcher{"https://compound.test/markets": `[{"symbol": "USDC", "supplyApy": "4.12", "borrowApy": "6.80"}]`}
	src := &RESTSource{SourceName: "compound", Kind: KindPercentReserves, URL: "https://compound.test/markets", Fetcher: fetcher}

	got, err := src.Yield(context.Background(), Target{Symbol: "usdc"})
	require.NoError(t, err)
	require.Equal(t, &model.SourceYield{Source: "compound", Reserve: "USDC", SupplyAPY: 4.12, BorrowAPY: 6.8}, got)
}

func TestRESTSourceExhausted(t *testing.T) {
	src := &RESTSource{SourceName: "compound", Kind: KindPercentReserves, URL: "https://down.test", Fetcher: fakeFetcher{}}
	_, err := src.Yield(context.Background(), Target{Symbol: "USDC"})
	require.ErrorIs(t, err, fetch.ErrFetchExhausted)
}

type fakePool struct {
	liquidityRate *big.Int
	borrowRate    *big.Int
	aToken        common.Address
	err           error
}

func (f *fakePool) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	parsed, err := PoolABI()
	if err != nil {
		return nil, err
	}
	method := parsed.Methods["getReserveData"]
	if !bytes.Equal(msg.Data[:4], method.ID) {
		return nil, errors.New("unexpected selector")
	}
	zero := new(big.Int)
	return method.Outputs.Pack(
		zero, zero, f.liquidityRate, zero, f.borrowRate, zero,
		big.NewInt(1_700_000_000), uint16(1),
		f.aToken, common.Address{}, common.Address{}, common.Address{},
		zero, zero, zero,
	)
}

func TestAaveSource(t *testing.T) {
	liquidity, _ := new(big.Int).SetString("35000000000000000000000000", 10)
	borrow, _ := new(big.Int).SetString("50000000000000000000000000", 10)
	pool := &fakePool{liquidityRate: liquidity, borrowRate: borrow, aToken: common.HexToAddress("0x98c23e9d8f34fefb1b7bd6a91b7ff122f4e16f5c")}

	src := &AaveSource{Pool: common.HexToAddress("0x87870bca3f3fd6335c3f4ce8392d69350b4fa4e2"), Caller: pool}
	got, err := src.Yield(context.Background(), Target{Symbol: "USDC", Asset: usdcAddress})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.InDelta(t, 3.5, got.SupplyAPY, 1e-12)
	require.InDelta(t, 5.0, got.BorrowAPY, 1e-12)
}

func TestAaveSourceUnlistedAsset(t *testing.T) {
	pool := &fakePool{liquidityRate: new(big.Int), borrowRate: new(big.Int)}
	got, err := (&AaveSource{Caller: pool}).Yield(context.Background(), Target{Asset: usdcAddress})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAaveSourceNeedsAsset(t *testing.T) {
	_, err := (&AaveSource{Caller: &fakePool{}}).Yield(context.Background(), Target{Symbol: "USDC"})
	require.Error(t, err)
}

type staticSource struct {
	name  string
	yield *model.SourceYield
	err   error
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) Yield(context.Context, Target) (*model.SourceYield, error) {
	return s.yield, s.err
}

func TestCompareIsolatesFailures(t *testing.T) {
	boom := errors.New("boom")
	sources := []Source{
		staticSource{name: "a", yield: &model.SourceYield{Source: "a", SupplyAPY: 1}},
		staticSource{name: "b", err: boom},
		staticSource{name: "c"},
		staticSource{name: "d", yield: &model.SourceYield{Source: "d", SupplyAPY: 4}},
	}

	outcomes := Compare(context.Background(), sources, Target{Symbol: "USDC"})
	require.Len(t, outcomes, 4)
	require.Equal(t, "a", outcomes[0].Source)
	require.NotNil(t, outcomes[0].Yield)
	require.ErrorIs(t, outcomes[1].Err, boom)
	require.Nil(t, outcomes[2].Yield)
	require.NoError(t, outcomes[2].Err)
	require.Equal(t, 4.0, outcomes[3].Yield.SupplyAPY)
}

func TestCompareCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes := Compare(ctx, []Source{staticSource{name: "a"}}, Target{})
	require.ErrorIs(t, outcomes[0].Err, context.Canceled)
	require.Equal(t, "a", outcomes[0].Source)
}
