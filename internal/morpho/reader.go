package morpho

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"yieldScope/internal/model"
)

var (
	// ErrUpstreamUnavailable wraps any failure of the on-chain read transport.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMarketNotCreated is returned for ids the engine has no parameters for.
	ErrMarketNotCreated = errors.New("market not created")
)

// Backend is the subset of the chain client the reader needs.
type Backend interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BatchCallContract(ctx context.Context, msgs []ethereum.CallMsg, blockNumber *big.Int) ([][]byte, error)
}

// Snapshot pins reads to one block. Timestamp is the reference clock for accrual.
type Snapshot struct {
	Block     uint64
	Timestamp uint64
}

// Reader fetches market parameters, state and borrow rates from the market engine.
type Reader struct {
	backend   Backend
	morpho    common.Address
	rateModel RateModel
	logger    *zap.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithRateModel replaces the on-chain rate model adapter.
func WithRateModel(m RateModel) Option {
	return func(r *Reader) {
		r.rateModel = m
	}
}

// WithLogger sets the reader logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReader builds a Reader for the engine deployed at morpho.
func NewReader(backend Backend, morpho common.Address, opts ...Option) *Reader {
	r := &Reader{
		backend: backend,
		morpho:  morpho,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot reads the latest block header.
func (r *Reader) Snapshot(ctx context.Context) (Snapshot, error) {
	if r.backend == nil {
		return Snapshot{}, fmt.Errorf("%w: backend is nil", ErrUpstreamUnavailable)
	}
	header, err := r.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: latest header: %w", ErrUpstreamUnavailable, err)
	}
	if !header.Number.IsUint64() {
		return Snapshot{}, fmt.Errorf("block number does not fit in uint64: %s", header.Number)
	}
	return Snapshot{Block: header.Number.Uint64(), Timestamp: header.Time}, nil
}

// At returns a view whose reads all happen at the snapshot block.
func (r *Reader) At(snap Snapshot) *View {
	block := new(big.Int).SetUint64(snap.Block)
	rates := r.rateModel
	if rates == nil {
		rates = &IRMCaller{Backend: r.backend, Block: block}
	}
	return &View{
		reader: r,
		snap:   snap,
		block:  block,
		rates:  rates,
	}
}

// View reads market data at a fixed block.
type View struct {
	reader *Reader
	snap   Snapshot
	block  *big.Int
	rates  RateModel
}

// Snapshot returns the block the view is pinned to.
func (v *View) Snapshot() Snapshot {
	return v.snap
}

// CurrentTimestamp is the timestamp of the pinned block.
func (v *View) CurrentTimestamp() uint64 {
	return v.snap.Timestamp
}

// ReadMarket fetches params and state in one batch at the pinned block.
func (v *View) ReadMarket(ctx context.Context, id common.Hash) (model.MarketParams, model.MarketState, error) {
	parsed, err := MorphoABI()
	if err != nil {
		return model.MarketParams{}, model.MarketState{}, fmt.Errorf("parse morpho abi: %w", err)
	}

	paramsData, err := parsed.Pack("idToMarketParams", id)
	if err != nil {
		return model.MarketParams{}, model.MarketState{}, fmt.Errorf("pack idToMarketParams: %w", err)
	}
	stateData, err := parsed.Pack("market", id)
	if err != nil {
		return model.MarketParams{}, model.MarketState{}, fmt.Errorf("pack market: %w", err)
	}

	to := v.reader.morpho
	resp, err := v.reader.backend.BatchCallContract(ctx, []ethereum.CallMsg{
		{To: &to, Data: paramsData},
		{To: &to, Data: stateData},
	}, v.block)
	if err != nil {
		return model.MarketParams{}, model.MarketState{}, fmt.Errorf("%w: read market %s: %w", ErrUpstreamUnavailable, id.Hex(), err)
	}
	if len(resp) != 2 {
		return model.MarketParams{}, model.MarketState{}, fmt.Errorf("%w: read market %s: %d results", ErrUpstreamUnavailable, id.Hex(), len(resp))
	}

	values, err := parsed.Unpack("idToMarketParams", resp[0])
	if err != nil {
		return model.MarketParams{}, model.MarketState{}, fmt.Errorf("%w: unpack idToMarketParams: %w", ErrUpstreamUnavailable, err)
	}
	params, err := decodeParams(values)
	if err != nil {
		return model.MarketParams{}, model.MarketState{}, err
	}
	if params.LoanToken == (common.Address{}) && params.LLTV.IsZero() {
		return model.MarketParams{}, model.MarketState{}, fmt.Errorf("%w: %s", ErrMarketNotCreated, id.Hex())
	}

	values, err = parsed.Unpack("market", resp[1])
	if err != nil {
		return model.MarketParams{}, model.MarketState{}, fmt.Errorf("%w: unpack market: %w", ErrUpstreamUnavailable, err)
	}
	state, err := decodeState(values)
	if err != nil {
		return model.MarketParams{}, model.MarketState{}, err
	}

	v.reader.logger.Debug("market read",
		zap.String("market", id.Hex()),
		zap.Uint64("block", v.snap.Block),
		zap.String("loan_token", params.LoanToken.Hex()),
		zap.Uint64("last_update", state.LastUpdate),
	)

	return params, state, nil
}

// ReadBorrowRate asks the market's rate model for its per-second borrow rate.
func (v *View) ReadBorrowRate(ctx context.Context, params model.MarketParams, state model.MarketState) (*uint256.Int, error) {
	return v.rates.BorrowRate(ctx, params, state)
}
