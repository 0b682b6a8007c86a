package grade

import (
	"math"
	"math/big"
)

var half = big.NewRat(1, 2)

// Round1 rounds x to one decimal place the way report consumers expect (`Number(x.toFixed(1))`):
// the exact binary value of x is rounded, ties go away from zero.
func Round1(x float64) float64 {
	if x < 0 {
		return -roundTo(-x, 10)
	}
	return roundTo(x, 10)
}

// Round0 rounds x to the nearest integer, ties toward +Inf (`Math.round`).
func Round0(x float64) float64 {
	return roundTo(x, 1)
}

// roundTo returns floor(x*scale + 1/2) / scale, computed exactly.
func roundTo(x float64, scale int64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	r := new(big.Rat).SetFloat64(x)
	r.Mul(r, big.NewRat(scale, 1))
	r.Add(r, half)

	// big.Int.Div is Euclidean, which is floor for a positive denominator
	n := new(big.Int).Div(r.Num(), r.Denom())
	f, _ := new(big.Float).SetInt(n).Float64()
	if scale == 1 {
		return f
	}
	return f / float64(scale)
}
