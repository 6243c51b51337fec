package morpho

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"yieldScope/internal/model"
)

type marketParamsTuple struct {
	LoanToken       common.Address `abi:"loanToken"`
	CollateralToken common.Address `abi:"collateralToken"`
	Oracle          common.Address `abi:"oracle"`
	Irm             common.Address `abi:"irm"`
	Lltv            *big.Int       `abi:"lltv"`
}

type marketTuple struct {
	TotalSupplyAssets *big.Int `abi:"totalSupplyAssets"`
	TotalSupplyShares *big.Int `abi:"totalSupplyShares"`
	TotalBorrowAssets *big.Int `abi:"totalBorrowAssets"`
	TotalBorrowShares *big.Int `abi:"totalBorrowShares"`
	LastUpdate        *big.Int `abi:"lastUpdate"`
	Fee               *big.Int `abi:"fee"`
}

func paramsToTuple(p model.MarketParams) marketParamsTuple {
	return marketParamsTuple{
		LoanToken:       p.LoanToken,
		CollateralToken: p.CollateralToken,
		Oracle:          p.Oracle,
		Irm:             p.IRM,
		Lltv:            toBig(p.LLTV),
	}
}

func stateToTuple(s model.MarketState) marketTuple {
	return marketTuple{
		TotalSupplyAssets: toBig(s.TotalSupplyAssets),
		TotalSupplyShares: toBig(s.TotalSupplyShares),
		TotalBorrowAssets: toBig(s.TotalBorrowAssets),
		TotalBorrowShares: toBig(s.TotalBorrowShares),
		LastUpdate:        new(big.Int).SetUint64(s.LastUpdate),
		Fee:               toBig(s.Fee),
	}
}

// MarketID returns the id the engine assigns to a market: keccak256(abi.encode(params)).
func MarketID(p model.MarketParams) (common.Hash, error) {
	parsed, err := MorphoABI()
	if err != nil {
		return common.Hash{}, fmt.Errorf("parse morpho abi: %w", err)
	}
	encoded, err := parsed.Methods["idToMarketParams"].Outputs.Pack(
		p.LoanToken,
		p.CollateralToken,
		p.Oracle,
		p.IRM,
		toBig(p.LLTV),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode market params: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

func decodeParams(values []interface{}) (model.MarketParams, error) {
	if len(values) != 5 {
		return model.MarketParams{}, fmt.Errorf("idToMarketParams return size %d", len(values))
	}
	var addrs [4]common.Address
	for i := range addrs {
		addr, ok := values[i].(common.Address)
		if !ok {
			return model.MarketParams{}, fmt.Errorf("idToMarketParams[%d] unexpected type %T", i, values[i])
		}
		addrs[i] = addr
	}
	lltv, err := asUint256(values[4])
	if err != nil {
		return model.MarketParams{}, fmt.Errorf("lltv: %w", err)
	}
	return model.MarketParams{
		LoanToken:       addrs[0],
		CollateralToken: addrs[1],
		Oracle:          addrs[2],
		IRM:             addrs[3],
		LLTV:            lltv,
	}, nil
}

func decodeState(values []interface{}) (model.MarketState, error) {
	if len(values) != 6 {
		return model.MarketState{}, fmt.Errorf("market return size %d", len(values))
	}
	fields := make([]*uint256.Int, len(values))
	for i, value := range values {
		v, err := asUint256(value)
		if err != nil {
			return model.MarketState{}, fmt.Errorf("market[%d]: %w", i, err)
		}
		fields[i] = v
	}
	if !fields[4].IsUint64() {
		return model.MarketState{}, fmt.Errorf("lastUpdate overflows uint64: %s", fields[4].ToBig())
	}
	return model.MarketState{
		TotalSupplyAssets: fields[0],
		TotalSupplyShares: fields[1],
		TotalBorrowAssets: fields[2],
		TotalBorrowShares: fields[3],
		LastUpdate:        fields[4].Uint64(),
		Fee:               fields[5],
	}, nil
}

func asUint256(value interface{}) (*uint256.Int, error) {
	b, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
	if b.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", b)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("value overflows 256 bits: %s", b)
	}
	return v, nil
}

func toBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}
