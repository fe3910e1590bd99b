package scanner

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
)

// NativeDecimals is the number of decimals of BNB
const NativeDecimals = 18

// ScaleAmount converts an integer amount (decimal or 0x-hex string) in the smallest
// unit into whole units
func ScaleAmount(raw string, decimals int) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, ok := ethmath.ParseBig256(raw)
	if !ok {
		return 0, fmt.Errorf("%w: invalid integer amount %q", ErrBadResponse, raw)
	}
	return ScaleBig(v, decimals), nil
}

// ScaleBig divides v by 10^decimals
func ScaleBig(v *big.Int, decimals int) float64 {
	f := new(big.Float).SetInt(v)
	if decimals > 0 {
		divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
		f.Quo(f, new(big.Float).SetInt(divisor))
	}
	out, _ := f.Float64()
	return out
}

// TokenDecimals returns the decimals of a known token contract, 18 otherwise
func (t Tokens) TokenDecimals(contract string) int {
	if !common.IsHexAddress(contract) {
		return NativeDecimals
	}
	addr := common.HexToAddress(contract)
	switch addr {
	case t.PLEX.Address:
		return t.PLEX.Decimals
	case t.USDT.Address:
		return t.USDT.Decimals
	}
	return NativeDecimals
}

// SameAddress compares two hex addresses case-insensitively
func SameAddress(a, b string) bool {
	if !common.IsHexAddress(a) || !common.IsHexAddress(b) {
		return false
	}
	return common.HexToAddress(a) == common.HexToAddress(b)
}
