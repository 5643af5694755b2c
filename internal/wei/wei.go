// Package wei handles arbitrary-precision token amounts. Amounts travel
// through the system as decimal strings and are only ever manipulated as
// big integers; floating point is never involved.
package wei

import (
	"errors"
	"math/big"
)

// Errors returned by amount parsing.
var (
	ErrInvalidAmount  = errors.New("invalid wei amount")
	ErrNegativeAmount = errors.New("negative wei amount")
)

var (
	hundredTwo = big.NewInt(102)
	hundred    = big.NewInt(100)
)

// Parse converts a decimal string into a non-negative big integer.
func Parse(s string) (*big.Int, error) {
	if s == "" {
		return nil, ErrInvalidAmount
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	if n.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	return n, nil
}

// MinIncrement returns the smallest acceptable bid over top: a 2% raise,
// rounded up. Computed as ceil(top*102/100) in integer arithmetic so that
// repeated increments never drift the way a float computation would.
func MinIncrement(top *big.Int) *big.Int {
	n := new(big.Int).Mul(top, hundredTwo)
	n.Add(n, big.NewInt(99))
	return n.Div(n, hundred)
}

// Less reports whether a < b.
func Less(a, b *big.Int) bool { return a.Cmp(b) < 0 }
