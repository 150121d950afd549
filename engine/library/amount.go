package library

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Amounts are never mutated in place once they are stored in state. Every helper
// here returns a fresh value so a stored balance can be handed out without copying.

func Zero() *uint256.Int {
	return new(uint256.Int)
}

func Amount(n uint64) *uint256.Int {
	return uint256.NewInt(n)
}

// ParseAmount reads a base 10 integer token amount.
func ParseAmount(s string) (*uint256.Int, error) {
	a, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return a, nil
}

// OrZero returns a if it is not nil.
func OrZero(a *uint256.Int) *uint256.Int {
	if a == nil {
		return Zero()
	}
	return a
}

// Add returns a+b or an InvariantViolation on overflow.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(OrZero(a), OrZero(b))
	if overflow {
		return nil, Invariant("amount overflow")
	}
	return sum, nil
}

// MustAdd is Add for sums that are already bounded by a stored total.
func MustAdd(a, b *uint256.Int) *uint256.Int {
	sum, err := Add(a, b)
	if err != nil {
		panic(err)
	}
	return sum
}

// Sub returns a-b or an InvariantViolation if b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(OrZero(a), OrZero(b))
	if underflow {
		return nil, Invariant("amount underflow")
	}
	return diff, nil
}

func MustSub(a, b *uint256.Int) *uint256.Int {
	diff, err := Sub(a, b)
	if err != nil {
		panic(err)
	}
	return diff
}

// SubFloor returns a-b, or zero if b > a.
func SubFloor(a, b *uint256.Int) *uint256.Int {
	if OrZero(b).Gt(OrZero(a)) {
		return Zero()
	}
	return new(uint256.Int).Sub(OrZero(a), OrZero(b))
}

func Min(a, b *uint256.Int) *uint256.Int {
	if OrZero(a).Lt(OrZero(b)) {
		return OrZero(a)
	}
	return OrZero(b)
}

// MulDiv returns a*b/d, failing if the product does not fit in 256 bits.
func MulDiv(a, b, d *uint256.Int) (*uint256.Int, error) {
	if OrZero(d).IsZero() {
		return nil, Invariant("division by zero")
	}
	product, overflow := new(uint256.Int).MulOverflow(OrZero(a), OrZero(b))
	if overflow {
		return nil, Invariant("amount overflow")
	}
	return product.Div(product, d), nil
}

// Percent returns a*p for quorum arithmetic.
func Percent(a *uint256.Int, p uint64) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(OrZero(a), uint256.NewInt(p))
	if overflow {
		return nil, Invariant("amount overflow")
	}
	return product, nil
}
