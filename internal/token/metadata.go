package token

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"yieldScope/internal/model"
)

// Caller is the subset of the chain client needed for metadata lookups.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// FetchMeta loads token metadata via ERC-20 calls. Decimals are required;
// symbol and name are best effort and fall back to the bytes32 encoding.
func FetchMeta(ctx context.Context, caller Caller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if caller == nil {
		return meta, errors.New("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	std, err := ERC20ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}
	legacy, err := legacyABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 legacy abi: %w", err)
	}

	values, err := call(ctx, caller, token, std, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return meta, fmt.Errorf("decimals: unexpected type %T", values[0])
	}
	meta.Decimals = decimals

	meta.Symbol = textField(ctx, caller, token, std, legacy, "symbol", logger)
	meta.Name = textField(ctx, caller, token, std, legacy, "name", logger)
	return meta, nil
}

func textField(ctx context.Context, caller Caller, token common.Address, std, legacy abi.ABI, method string, logger *zap.Logger) string {
	if values, err := call(ctx, caller, token, std, method); err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	values, err := call(ctx, caller, token, legacy, method)
	if err != nil {
		logger.Debug("token text call failed",
			zap.String("token", token.Hex()),
			zap.String("method", method),
			zap.Error(err),
		)
		return ""
	}
	if s, ok := bytes32ToString(values[0]); ok {
		return s
	}
	return ""
}

func call(ctx context.Context, caller Caller, token common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

// FormatAmount renders a base-unit integer string with the token's decimals.
func FormatAmount(raw string, decimals uint8) string {
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return raw
	}
	return formatTokenAmount(value, decimals)
}

func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	text := new(big.Rat).SetFrac(abs, denom).FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}
