package util

import (
	"math/big"
)

const (
	GasMarginNumerator   = 120
	GasMarginDenominator = 100
)

// GasLimitWithMargin returns ceil(estimate * 1.2) using integer arithmetic.
func GasLimitWithMargin(estimate uint64) uint64 {
	scaled := new(big.Int).Mul(new(big.Int).SetUint64(estimate), big.NewInt(GasMarginNumerator))
	denominator := big.NewInt(GasMarginDenominator)
	quotient, remainder := new(big.Int).QuoRem(scaled, denominator, new(big.Int))
	if remainder.Sign() > 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	return quotient.Uint64()
}

// FeeData mirrors what the network suggests for the next transaction.
// GasPrice is set only on chains without a base fee.
type FeeData struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	GasPrice             *big.Int
}

func (f FeeData) IsDynamic() bool {
	return f.MaxFeePerGas != nil
}

// DynamicFee computes maxFeePerGas = 2 * baseFee + tip.
func DynamicFee(baseFee *big.Int, tip *big.Int) FeeData {
	maxFee := new(big.Int).Mul(baseFee, big.NewInt(2))
	maxFee.Add(maxFee, tip)
	return FeeData{
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: new(big.Int).Set(tip),
	}
}
