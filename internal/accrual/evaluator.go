package accrual

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"yieldScope/internal/model"
	"yieldScope/internal/morpho"
)

const defaultParallelism = 4

// MarketView reads markets at one pinned block.
type MarketView interface {
	ReadMarket(ctx context.Context, id common.Hash) (model.MarketParams, model.MarketState, error)
	ReadBorrowRate(ctx context.Context, params model.MarketParams, state model.MarketState) (*uint256.Int, error)
	CurrentTimestamp() uint64
}

// MarketReader takes snapshots and hands out views pinned to them.
type MarketReader interface {
	Snapshot(ctx context.Context) (morpho.Snapshot, error)
	View(snap morpho.Snapshot) MarketView
}

type morphoReader struct {
	*morpho.Reader
}

func (r morphoReader) View(snap morpho.Snapshot) MarketView {
	return r.At(snap)
}

// Config controls evaluation behavior.
type Config struct {
	Parallelism int
}

// Evaluator computes yields for a list of markets.
type Evaluator struct {
	cfg    Config
	reader MarketReader
	logger *zap.Logger
}

// NewEvaluator builds an Evaluator on top of a morpho reader.
func NewEvaluator(cfg Config, reader *morpho.Reader, logger *zap.Logger) *Evaluator {
	return newEvaluator(cfg, morphoReader{reader}, logger)
}

func newEvaluator(cfg Config, reader MarketReader, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultParallelism
	}
	return &Evaluator{cfg: cfg, reader: reader, logger: logger}
}

type outcome struct {
	result *model.AccrualResult
	err    error
}

// Evaluate computes yields for every market in ids whose loan token is quote.
//
// All markets are read at the same block. A failing market never stops the
// others; its error lands in Report.Failures. Only a failed snapshot aborts the
// whole evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, ids []common.Hash, quote common.Address) (model.Report, error) {
	snap, err := e.reader.Snapshot(ctx)
	if err != nil {
		return model.Report{}, fmt.Errorf("snapshot: %w", err)
	}
	view := e.reader.View(snap)

	e.logger.Info("evaluate markets",
		zap.Int("markets", len(ids)),
		zap.String("quote", quote.Hex()),
		zap.Uint64("block", snap.Block),
		zap.Uint64("timestamp", snap.Timestamp),
	)

	outcomes := make([]outcome, len(ids))
	var g errgroup.Group
	g.SetLimit(e.cfg.Parallelism)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].err = err
				return nil
			}
			result, err := e.evaluateOne(ctx, view, snap, id, quote)
			outcomes[i] = outcome{result: result, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var report model.Report
	for i, o := range outcomes {
		switch {
		case o.err != nil:
			e.logger.Warn("market evaluation failed", zap.String("market", ids[i].Hex()), zap.Error(o.err))
			report.Failures = append(report.Failures, model.MarketFailure{MarketID: ids[i].Hex(), Err: o.err})
		case o.result != nil:
			report.Results = append(report.Results, *o.result)
		}
	}
	return report, nil
}

func (e *Evaluator) evaluateOne(ctx context.Context, view MarketView, snap morpho.Snapshot, id common.Hash, quote common.Address) (*model.AccrualResult, error) {
	params, state, err := view.ReadMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	if params.LoanToken != quote {
		e.logger.Debug("skip market with other loan token",
			zap.String("market", id.Hex()),
			zap.String("loan_token", params.LoanToken.Hex()),
		)
		return nil, nil
	}

	rate, err := view.ReadBorrowRate(ctx, params, state)
	if err != nil {
		return nil, fmt.Errorf("borrow rate: %w", err)
	}

	accrued, err := Accrue(state, rate, view.CurrentTimestamp())
	if err != nil {
		return nil, err
	}

	return &model.AccrualResult{
		MarketID:    id.Hex(),
		BorrowAPY:   accrued.BorrowAPYPercent(),
		SupplyAPY:   accrued.SupplyAPYPercent(),
		Utilization: accrued.UtilizationPercent(),
		LoanToken:   params.LoanToken.Hex(),
		TotalSupply: accrued.AccruedSupply.Dec(),
		TotalBorrow: accrued.AccruedBorrow.Dec(),
		Block:       snap.Block,
		Timestamp:   snap.Timestamp,
	}, nil
}
