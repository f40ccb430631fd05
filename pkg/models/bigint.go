package models

import "math/big"

// OrZero returns v, or a fresh zero when v is nil. Decoded entities may carry
// nil amounts for fields added after they were first written.
func OrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// Add returns a new value a+b treating nil as zero.
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(OrZero(a), OrZero(b))
}

func Sub(a, b *big.Int) *big.Int {
	return new(big.Int).Sub(OrZero(a), OrZero(b))
}

func IsZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

func IsPositive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}
