package morpho

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseMarketIDs converts hex strings into 32-byte market ids.
func ParseMarketIDs(inputs []string) ([]common.Hash, error) {
	ids := make([]common.Hash, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		data, err := hexutil.Decode(input)
		if err != nil {
			return nil, fmt.Errorf("invalid market id: %s", input)
		}
		if len(data) != common.HashLength {
			return nil, fmt.Errorf("invalid market id length: %s", input)
		}
		ids = append(ids, common.BytesToHash(data))
	}
	return ids, nil
}

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}
