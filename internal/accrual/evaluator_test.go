package accrual

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"yieldScope/internal/model"
	"yieldScope/internal/morpho"
)

var (
	usdc = common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	usdt = common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7")
)

type fakeMarket struct {
	params  model.MarketParams
	state   model.MarketState
	readErr error
	rate    uint64
}

type fakeReader struct {
	snap        morpho.Snapshot
	snapshotErr error
	markets     map[common.Hash]fakeMarket

	mu    sync.Mutex
	reads []common.Hash
}

func (f *fakeReader) Snapshot(context.Context) (morpho.Snapshot, error) {
	return f.snap, f.snapshotErr
}

func (f *fakeReader) View(snap morpho.Snapshot) MarketView {
	return &fakeView{reader: f, snap: snap}
}

type fakeView struct {
	reader *fakeReader
	snap   morpho.Snapshot
}

func (v *fakeView) ReadMarket(_ context.Context, id common.Hash) (model.MarketParams, model.MarketState, error) {
	v.reader.mu.Lock()
	v.reader.reads = append(v.reader.reads, id)
	v.reader.mu.Unlock()

	m, ok := v.reader.markets[id]
	if !ok {
		return model.MarketParams{}, model.MarketState{}, morpho.ErrMarketNotCreated
	}
	return m.params, m.state, m.readErr
}

func (v *fakeView) ReadBorrowRate(_ context.Context, params model.MarketParams, _ model.MarketState) (*uint256.Int, error) {
	for _, m := range v.reader.markets {
		if m.params.Oracle == params.Oracle {
			return uint256.NewInt(m.rate), nil
		}
	}
	return new(uint256.Int), nil
}

func (v *fakeView) CurrentTimestamp() uint64 {
	return v.snap.Timestamp
}

func market(loan common.Address, tag byte, supply, borrow, lastUpdate uint64) fakeMarket {
	return fakeMarket{
		params: model.MarketParams{
			LoanToken: loan,
			Oracle:    common.BytesToAddress([]byte{tag}),
			LLTV:      uint256.NewInt(860_000_000_000_000_000),
		},
		state: newState(supply, borrow, lastUpdate, 0),
		rate:  1_585_489_599,
	}
}

func TestEvaluateKeepsOrderAndSkipsOtherAssets(t *testing.T) {
	ids := []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02"), common.HexToHash("0x03")}
	reader := &fakeReader{
		snap: morpho.Snapshot{Block: 100, Timestamp: 1_000},
		markets: map[common.Hash]fakeMarket{
			ids[0]: market(usdc, 1, 1_000_000, 900_000, 1_000),
			ids[1]: market(usdt, 2, 1_000_000, 500_000, 1_000),
			ids[2]: market(usdc, 3, 1_000_000, 500_000, 900),
		},
	}

	evaluator := newEvaluator(Config{Parallelism: 2}, reader, zap.NewNop())
	report, err := evaluator.Evaluate(context.Background(), ids, usdc)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(report.Failures) != 0 {
		t.Fatalf("unexpected failures: %+v", report.Failures)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Results[0].MarketID != ids[0].Hex() || report.Results[1].MarketID != ids[2].Hex() {
		t.Fatalf("results out of order: %+v", report.Results)
	}
	for _, r := range report.Results {
		if r.Block != 100 || r.Timestamp != 1_000 {
			t.Fatalf("result not tied to snapshot: %+v", r)
		}
		if r.SupplyAPY > r.BorrowAPY || r.BorrowAPY <= 0 {
			t.Fatalf("unexpected apys: %+v", r)
		}
	}
	if report.Results[0].Utilization != 90 {
		t.Fatalf("expected 90%% utilization, got %v", report.Results[0].Utilization)
	}
}

func TestEvaluateIsolatesFailures(t *testing.T) {
	ids := []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02"), common.HexToHash("0x03")}
	broken := market(usdc, 2, 1, 1, 1)
	broken.readErr = morpho.ErrUpstreamUnavailable
	skewed := market(usdc, 3, 1_000_000, 1, 5_000)

	reader := &fakeReader{
		snap: morpho.Snapshot{Block: 1, Timestamp: 1_000},
		markets: map[common.Hash]fakeMarket{
			ids[0]: market(usdc, 1, 1_000_000, 500_000, 1_000),
			ids[1]: broken,
			ids[2]: skewed,
		},
	}

	report, err := newEvaluator(Config{}, reader, nil).Evaluate(context.Background(), ids, usdc)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].MarketID != ids[0].Hex() {
		t.Fatalf("healthy market must still be evaluated: %+v", report.Results)
	}
	if len(report.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", report.Failures)
	}
	if !errors.Is(report.Failures[0].Err, morpho.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream failure first, got %v", report.Failures[0].Err)
	}
	if !errors.Is(report.Failures[1].Err, ErrClockSkew) {
		t.Fatalf("expected clock skew second, got %v", report.Failures[1].Err)
	}
	if len(reader.reads) != 3 {
		t.Fatalf("every market must be read, got %d reads", len(reader.reads))
	}
}

func TestEvaluateSnapshotFailure(t *testing.T) {
	reader := &fakeReader{snapshotErr: morpho.ErrUpstreamUnavailable}
	_, err := newEvaluator(Config{}, reader, nil).Evaluate(context.Background(), []common.Hash{{}}, usdc)
	if !errors.Is(err, morpho.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}
}

func TestEvaluateCancelledContext(t *testing.T) {
	ids := []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")}
	reader := &fakeReader{
		snap: morpho.Snapshot{Block: 1, Timestamp: 1_000},
		markets: map[common.Hash]fakeMarket{
			ids[0]: market(usdc, 1, 1_000_000, 500_000, 1_000),
			ids[1]: market(usdc, 2, 1_000_000, 500_000, 1_000),
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := newEvaluator(Config{Parallelism: 1}, reader, nil).Evaluate(ctx, ids, usdc)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(report.Results) != 0 || len(report.Failures) != 2 {
		t.Fatalf("expected every market to fail, got %+v", report)
	}
	for _, f := range report.Failures {
		if !errors.Is(f.Err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", f.Err)
		}
	}
}
