// Package accrual turns a market snapshot into accrued totals and annualized yields.
package accrual

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"yieldScope/internal/model"
	"yieldScope/internal/wad"
)

var (
	// ErrClockSkew is returned when a market was updated after the reference time.
	ErrClockSkew = errors.New("clock skew")
	// ErrFeeOutOfRange is returned when the protocol fee exceeds one WAD.
	ErrFeeOutOfRange = errors.New("protocol fee out of range")
)

// Accrual holds the time-adjusted figures of one market. Every value except
// Elapsed is an integer: totals in loan-token units, rates in WAD.
type Accrual struct {
	Elapsed       uint64
	Interest      *uint256.Int
	AccruedSupply *uint256.Int
	AccruedBorrow *uint256.Int
	Utilization   *uint256.Int
	BorrowAPY     *uint256.Int
	SupplyAPY     *uint256.Int
}

// Accrue applies interest since state.LastUpdate at borrowRate and derives the
// annualized borrow and supply yields.
func Accrue(state model.MarketState, borrowRate *uint256.Int, now uint64) (Accrual, error) {
	if state.LastUpdate > now {
		return Accrual{}, fmt.Errorf("%w: last update %d is after %d", ErrClockSkew, state.LastUpdate, now)
	}
	fee := orZero(state.Fee)
	if fee.Gt(wad.Unit()) {
		return Accrual{}, fmt.Errorf("%w: %s", ErrFeeOutOfRange, fee.ToBig())
	}
	rate := orZero(borrowRate)
	supply := orZero(state.TotalSupplyAssets)
	borrow := orZero(state.TotalBorrowAssets)

	elapsed := now - state.LastUpdate
	interest := new(uint256.Int)
	if elapsed > 0 {
		growth, err := wad.TaylorCompounded(rate, elapsed)
		if err != nil {
			return Accrual{}, fmt.Errorf("compound interest: %w", err)
		}
		interest, err = wad.MulDown(borrow, growth)
		if err != nil {
			return Accrual{}, fmt.Errorf("interest: %w", err)
		}
	}

	// Borrowers' interest is credited to suppliers in full; the fee only
	// shows up in the supply yield.
	accruedBorrow, overflow := new(uint256.Int).AddOverflow(borrow, interest)
	if overflow {
		return Accrual{}, fmt.Errorf("accrued borrow: %w", wad.ErrOverflow)
	}
	accruedSupply, overflow := new(uint256.Int).AddOverflow(supply, interest)
	if overflow {
		return Accrual{}, fmt.Errorf("accrued supply: %w", wad.ErrOverflow)
	}

	utilization := new(uint256.Int)
	if !accruedSupply.IsZero() {
		var err error
		utilization, err = wad.DivDown(accruedBorrow, accruedSupply)
		if err != nil {
			return Accrual{}, fmt.Errorf("utilization: %w", err)
		}
	}

	borrowAPY, err := wad.TaylorCompounded(rate, wad.SecondsPerYear)
	if err != nil {
		return Accrual{}, fmt.Errorf("borrow apy: %w", err)
	}
	supplyAPY, err := wad.MulDown(borrowAPY, utilization)
	if err != nil {
		return Accrual{}, fmt.Errorf("supply apy: %w", err)
	}
	supplyAPY, err = wad.MulDown(supplyAPY, new(uint256.Int).Sub(wad.Unit(), fee))
	if err != nil {
		return Accrual{}, fmt.Errorf("supply apy: %w", err)
	}

	return Accrual{
		Elapsed:       elapsed,
		Interest:      interest,
		AccruedSupply: accruedSupply,
		AccruedBorrow: accruedBorrow,
		Utilization:   utilization,
		BorrowAPY:     borrowAPY,
		SupplyAPY:     supplyAPY,
	}, nil
}

// BorrowAPYPercent is the borrow yield as a plain percentage.
func (a Accrual) BorrowAPYPercent() float64 {
	return wad.ToPercent(a.BorrowAPY)
}

// SupplyAPYPercent is the supply yield as a plain percentage.
func (a Accrual) SupplyAPYPercent() float64 {
	return wad.ToPercent(a.SupplyAPY)
}

// UtilizationPercent is the utilization as a plain percentage.
func (a Accrual) UtilizationPercent() float64 {
	return wad.ToPercent(a.Utilization)
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
