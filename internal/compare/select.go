package compare

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"yieldScope/internal/model"
)

// Target identifies the quote asset across protocols. Symbol matches
// case-insensitively; Mint matches exactly (base58 mints are case
// sensitive); Asset matches EVM underlying addresses.
type Target struct {
	Symbol string
	Mint   string
	Asset  common.Address
}

// Select returns the first reserve matching target, or nil.
func Select(reserves []Reserve, target Target) *Reserve {
	for i := range reserves {
		if target.matches(reserves[i]) {
			return &reserves[i]
		}
	}
	return nil
}

func (t Target) matches(r Reserve) bool {
	if t.Symbol != "" && strings.EqualFold(r.Symbol, t.Symbol) {
		return true
	}
	if r.Mint == "" {
		return false
	}
	if t.Mint != "" && r.Mint == t.Mint {
		return true
	}
	if t.Asset != (common.Address{}) && common.IsHexAddress(r.Mint) {
		return common.HexToAddress(r.Mint) == t.Asset
	}
	return false
}

func toYield(source string, r *Reserve) *model.SourceYield {
	if r == nil {
		return nil
	}
	reserve := r.Symbol
	if reserve == "" {
		reserve = r.Mint
	}
	return &model.SourceYield{
		Source:    source,
		Reserve:   reserve,
		SupplyAPY: r.SupplyAPY.InexactFloat64(),
		BorrowAPY: r.BorrowAPY.InexactFloat64(),
	}
}
