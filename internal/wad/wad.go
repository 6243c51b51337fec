// Package wad implements fixed-point arithmetic on integers scaled by 1e18.
//
// Values are unsigned 256-bit integers so that products of two 128-bit
// operands never lose precision. Every operation truncates toward zero.
package wad

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const (
	// Scale is the number of decimals carried by a WAD value.
	Scale = 18
	// One is 1.0 in WAD.
	One uint64 = 1_000_000_000_000_000_000
	// SecondsPerYear is a 365-day year.
	SecondsPerYear uint64 = 31_536_000

	percentExp = -16
)

var (
	// ErrDivisionByZero is returned when a divisor is zero.
	ErrDivisionByZero = errors.New("wad: division by zero")
	// ErrOverflow is returned when a result does not fit in 256 bits.
	ErrOverflow = errors.New("wad: overflow")
)

// Unit returns a fresh 1e18.
func Unit() *uint256.Int {
	return uint256.NewInt(One)
}

// MulDivDown returns x*y/d rounded down, using a 512-bit intermediate.
func MulDivDown(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// MulDown returns a*b/WAD rounded down.
func MulDown(a, b *uint256.Int) (*uint256.Int, error) {
	return MulDivDown(a, b, Unit())
}

// DivDown returns a*WAD/b rounded down.
func DivDown(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	return MulDivDown(a, Unit(), b)
}

// TaylorCompounded approximates e^(rate*t) - 1 with the first three terms of
// its Taylor expansion. rate is a WAD-scaled per-second rate and t a number of
// seconds.
//
// The series is accurate while rate*t stays well below one WAD, which covers
// realistic borrow rates over horizons up to a few years. Larger products
// follow the same truncated formula and underestimate true compounding.
func TaylorCompounded(rate *uint256.Int, t uint64) (*uint256.Int, error) {
	first, overflow := new(uint256.Int).MulOverflow(rate, uint256.NewInt(t))
	if overflow {
		return nil, ErrOverflow
	}
	if first.IsZero() {
		return first, nil
	}

	twoWad := new(uint256.Int).Mul(uint256.NewInt(2), Unit())
	second, err := MulDivDown(first, first, twoWad)
	if err != nil {
		return nil, err
	}

	threeWad := new(uint256.Int).Mul(uint256.NewInt(3), Unit())
	third, err := MulDivDown(second, first, threeWad)
	if err != nil {
		return nil, err
	}

	sum, overflow := new(uint256.Int).AddOverflow(first, second)
	if overflow {
		return nil, ErrOverflow
	}
	sum, overflow = sum.AddOverflow(sum, third)
	if overflow {
		return nil, ErrOverflow
	}
	return sum, nil
}

// ToPercent converts a WAD fraction into a plain percentage (value / 1e16).
func ToPercent(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	pct, _ := ToDecimalPercent(v).Float64()
	return pct
}

// ToDecimalPercent is ToPercent without the float conversion.
func ToDecimalPercent(v *uint256.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), percentExp)
}
