package compare

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrInvalidUpstreamShape marks a payload that failed structural validation.
var ErrInvalidUpstreamShape = errors.New("invalid upstream shape")

// Kind tags the shape of an upstream payload.
type Kind string

const (
	// KindMarketList is a list of lending markets with a primary flag.
	KindMarketList Kind = "market_list"
	// KindReserveMetrics carries supply/borrow APYs as fractions (0.05 = 5%).
	KindReserveMetrics Kind = "reserve_metrics"
	// KindRayReserves carries per-year rates as ray-scaled (1e27) integers.
	KindRayReserves Kind = "ray_reserves"
	// KindPercentReserves carries APYs already in percent.
	KindPercentReserves Kind = "percent_reserves"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindMarketList, KindReserveMetrics, KindRayReserves, KindPercentReserves:
		return k, nil
	default:
		return "", fmt.Errorf("unknown source kind %q", s)
	}
}

// Market is one entry of a market list.
type Market struct {
	LendingMarket string
	IsPrimary     bool
}

// Reserve is a reserve normalized to percent APYs.
type Reserve struct {
	Symbol    string
	Mint      string
	SupplyAPY decimal.Decimal
	BorrowAPY decimal.Decimal
}

// Variant is a validated payload. Markets is set for KindMarketList,
// Reserves for every other kind.
type Variant struct {
	Kind     Kind
	Markets  []Market
	Reserves []Reserve
}

// PrimaryMarket returns the first market flagged as primary.
func (v Variant) PrimaryMarket() (Market, bool) {
	for _, m := range v.Markets {
		if m.IsPrimary {
			return m, true
		}
	}
	return Market{}, false
}

// Parse validates raw against the shape of kind. Any structural violation
// wraps ErrInvalidUpstreamShape.
func Parse(kind Kind, raw []byte) (Variant, error) {
	elems, err := parseArray(raw)
	if err != nil {
		return Variant{}, err
	}

	v := Variant{Kind: kind}
	for i, elem := range elems {
		fields, err := parseObject(elem)
		if err != nil {
			return Variant{}, shapeErr(kind, i, err)
		}
		switch kind {
		case KindMarketList:
			m, err := parseMarket(fields)
			if err != nil {
				return Variant{}, shapeErr(kind, i, err)
			}
			v.Markets = append(v.Markets, m)
		case KindReserveMetrics:
			r, err := parseReserveMetrics(fields)
			if err != nil {
				return Variant{}, shapeErr(kind, i, err)
			}
			v.Reserves = append(v.Reserves, r)
		case KindRayReserves:
			r, err := parseRayReserve(fields)
			if err != nil {
				return Variant{}, shapeErr(kind, i, err)
			}
			v.Reserves = append(v.Reserves, r)
		case KindPercentReserves:
			r, err := parsePercentReserve(fields)
			if err != nil {
				return Variant{}, shapeErr(kind, i, err)
			}
			v.Reserves = append(v.Reserves, r)
		default:
			return Variant{}, fmt.Errorf("unknown source kind %q", kind)
		}
	}
	return v, nil
}

func shapeErr(kind Kind, index int, err error) error {
	return fmt.Errorf("%w: %s element %d: %v", ErrInvalidUpstreamShape, kind, index, err)
}

func parseArray(raw []byte) ([]json.RawMessage, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array: %v", ErrInvalidUpstreamShape, err)
	}
	if elems == nil {
		return nil, fmt.Errorf("%w: expected a JSON array, got null", ErrInvalidUpstreamShape)
	}
	return elems, nil
}

func parseObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("expected an object: %v", err)
	}
	if fields == nil {
		return nil, errors.New("null element")
	}
	return fields, nil
}

func parseMarket(fields map[string]json.RawMessage) (Market, error) {
	var m Market
	if err := stringField(fields, "lendingMarket", &m.LendingMarket); err != nil {
		return Market{}, err
	}
	raw, ok := fields["isPrimary"]
	if !ok {
		return Market{}, errors.New("missing isPrimary")
	}
	if err := json.Unmarshal(raw, &m.IsPrimary); err != nil || isNull(raw) {
		return Market{}, errors.New("isPrimary is not a boolean")
	}
	return m, nil
}

func parseReserveMetrics(fields map[string]json.RawMessage) (Reserve, error) {
	var r Reserve
	errSymbol := stringField(fields, "liquidityToken", &r.Symbol)
	errMint := stringField(fields, "liquidityTokenMint", &r.Mint)
	if errSymbol != nil && errMint != nil {
		return Reserve{}, errors.New("missing liquidityToken and liquidityTokenMint")
	}

	supply, err := decimalField(fields, "supplyApy")
	if err != nil {
		return Reserve{}, err
	}
	borrow, err := decimalField(fields, "borrowApy")
	if err != nil {
		return Reserve{}, err
	}
	r.SupplyAPY = supply.Shift(2)
	r.BorrowAPY = borrow.Shift(2)
	return r, nil
}

func parseRayReserve(fields map[string]json.RawMessage) (Reserve, error) {
	var symbol, asset string
	errSymbol := stringField(fields, "symbol", &symbol)
	errAsset := stringField(fields, "underlyingAsset", &asset)
	if errSymbol != nil && errAsset != nil {
		return Reserve{}, errors.New("missing symbol and underlyingAsset")
	}

	liquidity, err := decimalField(fields, "liquidityRate")
	if err != nil {
		return Reserve{}, err
	}
	borrow, err := decimalField(fields, "variableBorrowRate")
	if err != nil {
		return Reserve{}, err
	}
	return Reserve{
		Symbol:    symbol,
		Mint:      asset,
		SupplyAPY: rayToPercent(liquidity),
		BorrowAPY: rayToPercent(borrow),
	}, nil
}

func parsePercentReserve(fields map[string]json.RawMessage) (Reserve, error) {
	var r Reserve
	if err := stringField(fields, "symbol", &r.Symbol); err != nil {
		return Reserve{}, err
	}
	_ = stringField(fields, "underlyingAsset", &r.Mint)

	var err error
	if r.SupplyAPY, err = decimalField(fields, "supplyApy"); err != nil {
		return Reserve{}, err
	}
	if r.BorrowAPY, err = decimalField(fields, "borrowApy"); err != nil {
		return Reserve{}, err
	}
	return r, nil
}

// rayToPercent converts a ray-scaled fraction into percent: rate * 100 / 1e27.
func rayToPercent(rate decimal.Decimal) decimal.Decimal {
	return rate.Shift(-25)
}

// RayReserve normalizes on-chain ray rates the same way a ray_reserves
// payload is normalized.
func RayReserve(symbol, asset string, liquidityRate, variableBorrowRate *big.Int) Reserve {
	return Reserve{
		Symbol:    symbol,
		Mint:      asset,
		SupplyAPY: rayToPercent(decimal.NewFromBigInt(liquidityRate, 0)),
		BorrowAPY: rayToPercent(decimal.NewFromBigInt(variableBorrowRate, 0)),
	}
}

func stringField(fields map[string]json.RawMessage, name string, dst *string) error {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return fmt.Errorf("missing %s", name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s is not a string", name)
	}
	return nil
}

// decimalField accepts a JSON number or a numeric string.
func decimalField(fields map[string]json.RawMessage, name string) (decimal.Decimal, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return decimal.Zero, fmt.Errorf("missing %s", name)
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, fmt.Errorf("%s is not numeric", name)
	}
	return d, nil
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
