package compare

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// getReserveData returns a static struct, so its encoding equals the
// flattened field list below.
const poolABIJSON = `[
  {
    "inputs": [{"internalType": "address", "name": "asset", "type": "address"}],
    "name": "getReserveData",
    "outputs": [
      {"internalType": "uint256", "name": "configuration", "type": "uint256"},
      {"internalType": "uint128", "name": "liquidityIndex", "type": "uint128"},
      {"internalType": "uint128", "name": "currentLiquidityRate", "type": "uint128"},
      {"internalType": "uint128", "name": "variableBorrowIndex", "type": "uint128"},
      {"internalType": "uint128", "name": "currentVariableBorrowRate", "type": "uint128"},
      {"internalType": "uint128", "name": "currentStableBorrowRate", "type": "uint128"},
      {"internalType": "uint40", "name": "lastUpdateTimestamp", "type": "uint40"},
      {"internalType": "uint16", "name": "id", "type": "uint16"},
      {"internalType": "address", "name": "aTokenAddress", "type": "address"},
      {"internalType": "address", "name": "stableDebtTokenAddress", "type": "address"},
      {"internalType": "address", "name": "variableDebtTokenAddress", "type": "address"},
      {"internalType": "address", "name": "interestRateStrategyAddress", "type": "address"},
      {"internalType": "uint128", "name": "accruedToTreasury", "type": "uint128"},
      {"internalType": "uint128", "name": "unbacked", "type": "uint128"},
      {"internalType": "uint128", "name": "isolationModeTotalDebt", "type": "uint128"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	poolABI     abi.ABI
	poolABIOnce sync.Once
	poolABIErr  error
)

// PoolABI returns the parsed Aave v3 pool ABI subset.
func PoolABI() (abi.ABI, error) {
	poolABIOnce.Do(func() {
		poolABI, poolABIErr = abi.JSON(strings.NewReader(poolABIJSON))
	})
	return poolABI, poolABIErr
}

type reserveData struct {
	CurrentLiquidityRate      *big.Int
	CurrentVariableBorrowRate *big.Int
	ATokenAddress             common.Address
}

func unpackReserveData(parsed abi.ABI, resp []byte) (reserveData, error) {
	values, err := parsed.Unpack("getReserveData", resp)
	if err != nil {
		return reserveData{}, err
	}
	if len(values) != 15 {
		return reserveData{}, fmt.Errorf("expected 15 fields, got %d", len(values))
	}
	liquidity, ok := values[2].(*big.Int)
	if !ok {
		return reserveData{}, fmt.Errorf("currentLiquidityRate: unexpected type %T", values[2])
	}
	borrow, ok := values[4].(*big.Int)
	if !ok {
		return reserveData{}, fmt.Errorf("currentVariableBorrowRate: unexpected type %T", values[4])
	}
	aToken, ok := values[8].(common.Address)
	if !ok {
		return reserveData{}, fmt.Errorf("aTokenAddress: unexpected type %T", values[8])
	}
	return reserveData{
		CurrentLiquidityRate:      liquidity,
		CurrentVariableBorrowRate: borrow,
		ATokenAddress:             aToken,
	}, nil
}
