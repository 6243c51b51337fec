package morpho

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const morphoABIJSON = `[
  {
    "inputs": [{"internalType": "bytes32", "name": "id", "type": "bytes32"}],
    "name": "idToMarketParams",
    "outputs": [
      {"internalType": "address", "name": "loanToken", "type": "address"},
      {"internalType": "address", "name": "collateralToken", "type": "address"},
      {"internalType": "address", "name": "oracle", "type": "address"},
      {"internalType": "address", "name": "irm", "type": "address"},
      {"internalType": "uint256", "name": "lltv", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "id", "type": "bytes32"}],
    "name": "market",
    "outputs": [
      {"internalType": "uint128", "name": "totalSupplyAssets", "type": "uint128"},
      {"internalType": "uint128", "name": "totalSupplyShares", "type": "uint128"},
      {"internalType": "uint128", "name": "totalBorrowAssets", "type": "uint128"},
      {"internalType": "uint128", "name": "totalBorrowShares", "type": "uint128"},
      {"internalType": "uint128", "name": "lastUpdate", "type": "uint128"},
      {"internalType": "uint128", "name": "fee", "type": "uint128"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const irmABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {"internalType": "address", "name": "loanToken", "type": "address"},
          {"internalType": "address", "name": "collateralToken", "type": "address"},
          {"internalType": "address", "name": "oracle", "type": "address"},
          {"internalType": "address", "name": "irm", "type": "address"},
          {"internalType": "uint256", "name": "lltv", "type": "uint256"}
        ],
        "internalType": "struct MarketParams",
        "name": "marketParams",
        "type": "tuple"
      },
      {
        "components": [
          {"internalType": "uint128", "name": "totalSupplyAssets", "type": "uint128"},
          {"internalType": "uint128", "name": "totalSupplyShares", "type": "uint128"},
          {"internalType": "uint128", "name": "totalBorrowAssets", "type": "uint128"},
          {"internalType": "uint128", "name": "totalBorrowShares", "type": "uint128"},
          {"internalType": "uint128", "name": "lastUpdate", "type": "uint128"},
          {"internalType": "uint128", "name": "fee", "type": "uint128"}
        ],
        "internalType": "struct Market",
        "name": "market",
        "type": "tuple"
      }
    ],
    "name": "borrowRateView",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	morphoABI     abi.ABI
	morphoABIOnce sync.Once
	morphoABIErr  error

	irmABI     abi.ABI
	irmABIOnce sync.Once
	irmABIErr  error
)

// MorphoABI returns the parsed ABI of the market engine's read methods.
func MorphoABI() (abi.ABI, error) {
	morphoABIOnce.Do(func() {
		morphoABI, morphoABIErr = abi.JSON(strings.NewReader(morphoABIJSON))
	})
	return morphoABI, morphoABIErr
}

// IRMABI returns the parsed ABI of an interest rate model.
func IRMABI() (abi.ABI, error) {
	irmABIOnce.Do(func() {
		irmABI, irmABIErr = abi.JSON(strings.NewReader(irmABIJSON))
	})
	return irmABI, irmABIErr
}
