package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MarketParams are the immutable parameters of an isolated lending market.
type MarketParams struct {
	LoanToken       common.Address
	CollateralToken common.Address
	Oracle          common.Address
	IRM             common.Address
	LLTV            *uint256.Int
}

// MarketState is a point-in-time snapshot of a market's recorded totals.
// Totals are as of LastUpdate; interest since then is not included.
type MarketState struct {
	TotalSupplyAssets *uint256.Int
	TotalSupplyShares *uint256.Int
	TotalBorrowAssets *uint256.Int
	TotalBorrowShares *uint256.Int
	LastUpdate        uint64
	Fee               *uint256.Int
}
