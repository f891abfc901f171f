// Package ring provides the coefficient rings homology is computed over.
//
// Elements are int64 values.  Integers and rationals share the same representation
// (rationals are only ever needed up to nonzero scaling); prime field elements are kept in [0, p).
// Arithmetic that leaves the int64 range panics with an overflow that CatchOverflow turns into an error.
package ring

import (
	"fmt"
	"math"
	"strconv"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/pkg/errors"
)

type Kind int8

const (
	Integers Kind = iota
	Rationals
	PrimeField
)

// MaxPrime bounds the field characteristic so that a product of two elements fits in an int64.
const MaxPrime = math.MaxInt32

// Step is a 2x2 transform [[S, T], [X, Y]] applied to a pair of rows (or columns) (a, b):
// S*a + T*b is the new pivot and X*a + Y*b == 0.  The transform is invertible over the ring.
type Step struct {
	S, T, X, Y int64
}

type Ring interface {
	Kind() Kind
	String() string

	// Char returns 0 for Z and Q, otherwise p.
	Char() int64
	IsField() bool

	// Norm returns the canonical representative of a.
	Norm(a int64) int64
	Add(a, b int64) int64
	Sub(a, b int64) int64
	Mul(a, b int64) int64
	Neg(a int64) int64

	// IsUnit reports if a can be used as a pivot without fractions.
	IsUnit(a int64) bool

	// Inv returns the inverse of a unit.
	Inv(a int64) int64

	// Step returns an invertible transform clearing b against pivot a (a != 0).
	Step(a, b int64) Step

	// Clear returns (x, y) with x*a + y*b == 0 and y invertible in the ring.
	// Over Z this requires that a divides b.
	Clear(a, b int64) (x, y int64)

	// Size orders candidate pivots; smaller is preferred.
	Size(a int64) int64

	// Order returns the order of the cyclic module R/(a): 0 when a is zero, 1 when it vanishes.
	Order(a int64) int64
}

func NewIntegers() Ring {
	return integers{}
}

func NewRationals() Ring {
	return rationals{}
}

// NewPrimeField returns F_p, or ErrUnsupportedRing if p is not a prime in range.
func NewPrimeField(p int64) (Ring, error) {
	if p < 2 || p > MaxPrime || !IsPrime(p) {
		return nil, errors.Wrapf(khoca.ErrUnsupportedRing, "%d is not a supported prime", p)
	}
	return primeField{p: p}, nil
}

// Parse interprets "0" or "Z" as the integers, "Q" as the rationals, and a prime p as F_p.
func Parse(spec string) (Ring, error) {
	switch spec {
	case "0", "Z", "z":
		return NewIntegers(), nil
	case "Q", "q":
		return NewRationals(), nil
	}
	p, err := strconv.ParseInt(spec, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(khoca.ErrUnsupportedRing, "unrecognized ring %q", spec)
	}
	return NewPrimeField(p)
}

func IsPrime(n int64) bool {
	if n < 2 {
		return false
	}
	for d := int64(2); d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// Gcd returns the non-negative gcd of a and b.
func Gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// ExtGcd returns g, s, t with s*a + t*b == g == gcd(a, b) >= 0.
func ExtGcd(a, b int64) (g, s, t int64) {
	s0, s1 := int64(1), int64(0)
	t0, t1 := int64(0), int64(1)
	r0, r1 := a, b
	for r1 != 0 {
		q := r0 / r1
		r0, r1 = r1, r0-q*r1
		s0, s1 = s1, s0-q*s1
		t0, t1 = t1, t0-q*t1
	}
	if r0 < 0 {
		r0, s0, t0 = -r0, -s0, -t0
	}
	return r0, s0, t0
}

type overflow struct{}

func (overflow) Error() string { return "int64 coefficient overflow" }

// CatchOverflow is deferred by callers doing ring arithmetic; it converts an overflow panic
// into ErrResourceLimitExceeded and re-raises any other panic.
func CatchOverflow(errp *error) {
	if r := recover(); r != nil {
		if _, ok := r.(overflow); ok {
			*errp = errors.Wrap(khoca.ErrResourceLimitExceeded, "int64 coefficient overflow")
			return
		}
		panic(r)
	}
}

func addChecked(a, b int64) int64 {
	c := a + b
	if (c > a) != (b > 0) {
		panic(overflow{})
	}
	return c
}

func mulChecked(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		panic(overflow{})
	}
	c := a * b
	if c/b != a {
		panic(overflow{})
	}
	return c
}

func negChecked(a int64) int64 {
	if a == math.MinInt64 {
		panic(overflow{})
	}
	return -a
}

func abs(a int64) int64 {
	if a < 0 {
		return negChecked(a)
	}
	return a
}

type integers struct{}

func (integers) Kind() Kind           { return Integers }
func (integers) String() string       { return "Z" }
func (integers) Char() int64          { return 0 }
func (integers) IsField() bool        { return false }
func (integers) Norm(a int64) int64   { return a }
func (integers) Add(a, b int64) int64 { return addChecked(a, b) }
func (integers) Sub(a, b int64) int64 { return addChecked(a, negChecked(b)) }
func (integers) Mul(a, b int64) int64 { return mulChecked(a, b) }
func (integers) Neg(a int64) int64    { return negChecked(a) }
func (integers) IsUnit(a int64) bool  { return a == 1 || a == -1 }
func (integers) Inv(a int64) int64    { return a }
func (integers) Size(a int64) int64   { return abs(a) }

func (integers) Step(a, b int64) Step {
	if b%a == 0 {
		return Step{S: 1, T: 0, X: negChecked(b / a), Y: 1}
	}
	g, s, t := ExtGcd(a, b)
	return Step{S: s, T: t, X: negChecked(b / g), Y: a / g}
}

func (integers) Clear(a, b int64) (int64, int64) {
	if b%a == 0 {
		return negChecked(b / a), 1
	}
	g := Gcd(a, b)
	return negChecked(b / g), a / g
}

func (integers) Order(a int64) int64 {
	return abs(a)
}

// rationals reuses integer arithmetic; every nonzero element is treated as invertible
// by scaling, so no torsion is ever reported.
type rationals struct {
	integers
}

func (rationals) Kind() Kind     { return Rationals }
func (rationals) String() string { return "Q" }
func (rationals) IsField() bool  { return true }
func (rationals) Order(a int64) int64 {
	if a == 0 {
		return 0
	}
	return 1
}

type primeField struct {
	p int64
}

func (F primeField) Kind() Kind     { return PrimeField }
func (F primeField) String() string { return fmt.Sprintf("F_%d", F.p) }
func (F primeField) Char() int64    { return F.p }
func (F primeField) IsField() bool  { return true }

func (F primeField) Norm(a int64) int64 {
	a %= F.p
	if a < 0 {
		a += F.p
	}
	return a
}

func (F primeField) Add(a, b int64) int64 { return F.Norm(F.Norm(a) + F.Norm(b)) }
func (F primeField) Sub(a, b int64) int64 { return F.Norm(F.Norm(a) - F.Norm(b)) }
func (F primeField) Mul(a, b int64) int64 { return F.Norm(F.Norm(a) * F.Norm(b)) }
func (F primeField) Neg(a int64) int64    { return F.Norm(-F.Norm(a)) }
func (F primeField) IsUnit(a int64) bool  { return F.Norm(a) != 0 }

func (F primeField) Inv(a int64) int64 {
	_, s, _ := ExtGcd(F.Norm(a), F.p)
	return F.Norm(s)
}

func (F primeField) Step(a, b int64) Step {
	return Step{S: 1, T: 0, X: F.Neg(F.Mul(b, F.Inv(a))), Y: 1}
}

func (F primeField) Clear(a, b int64) (int64, int64) {
	return F.Neg(F.Mul(b, F.Inv(a))), 1
}

func (F primeField) Size(a int64) int64 {
	if F.Norm(a) == 0 {
		return 0
	}
	return 1
}

func (F primeField) Order(a int64) int64 {
	if F.Norm(a) == 0 {
		return 0
	}
	return 1
}
