package morpho

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"yieldScope/internal/model"
)

// RateModel returns a WAD-scaled per-second borrow rate for a market.
type RateModel interface {
	BorrowRate(ctx context.Context, params model.MarketParams, state model.MarketState) (*uint256.Int, error)
}

// IRMCaller calls borrowRateView on the market's own interest rate model
// contract. Markets without one accrue no interest.
type IRMCaller struct {
	Backend Backend
	Block   *big.Int
}

func (c *IRMCaller) BorrowRate(ctx context.Context, params model.MarketParams, state model.MarketState) (*uint256.Int, error) {
	if params.IRM == (common.Address{}) {
		return new(uint256.Int), nil
	}
	if c.Backend == nil {
		return nil, fmt.Errorf("%w: backend is nil", ErrUpstreamUnavailable)
	}

	parsed, err := IRMABI()
	if err != nil {
		return nil, fmt.Errorf("parse irm abi: %w", err)
	}
	data, err := parsed.Pack("borrowRateView", paramsToTuple(params), stateToTuple(state))
	if err != nil {
		return nil, fmt.Errorf("pack borrowRateView: %w", err)
	}

	irm := params.IRM
	resp, err := c.Backend.CallContract(ctx, ethereum.CallMsg{To: &irm, Data: data}, c.Block)
	if err != nil {
		return nil, fmt.Errorf("%w: call borrowRateView: %w", ErrUpstreamUnavailable, err)
	}
	values, err := parsed.Unpack("borrowRateView", resp)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack borrowRateView: %w", ErrUpstreamUnavailable, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("borrowRateView return size %d", len(values))
	}
	return asUint256(values[0])
}

// FixedRate always returns the same rate.
type FixedRate struct {
	Rate *uint256.Int
}

func (f FixedRate) BorrowRate(context.Context, model.MarketParams, model.MarketState) (*uint256.Int, error) {
	if f.Rate == nil {
		return new(uint256.Int), nil
	}
	return f.Rate.Clone(), nil
}
