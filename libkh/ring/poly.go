package ring

import (
	"strconv"
	"strings"
)

// Poly is a polynomial in a single indeterminate, coefficients ordered from low to high degree.
// The zero polynomial has length 0.
type Poly []int64

// Const returns the constant polynomial c.
func Const(R Ring, c int64) Poly {
	return Poly{R.Norm(c)}.Trim()
}

// Monomial returns c*u^m.
func Monomial(R Ring, c int64, m int) Poly {
	p := make(Poly, m+1)
	p[m] = R.Norm(c)
	return p.Trim()
}

func (p Poly) Trim() Poly {
	n := len(p)
	for n > 0 && p[n-1] == 0 {
		n--
	}
	return p[:n]
}

func (p Poly) IsZero() bool {
	return len(p.Trim()) == 0
}

// Degree returns -1 for the zero polynomial.
func (p Poly) Degree() int {
	return len(p.Trim()) - 1
}

// Coeff returns the coefficient of u^i.
func (p Poly) Coeff(i int) int64 {
	if i < 0 || i >= len(p) {
		return 0
	}
	return p[i]
}

func (p Poly) Add(R Ring, q Poly) Poly {
	n := max(len(p), len(q))
	out := make(Poly, n)
	for i := 0; i < n; i++ {
		out[i] = R.Add(p.Coeff(i), q.Coeff(i))
	}
	return out.Trim()
}

func (p Poly) Sub(R Ring, q Poly) Poly {
	n := max(len(p), len(q))
	out := make(Poly, n)
	for i := 0; i < n; i++ {
		out[i] = R.Sub(p.Coeff(i), q.Coeff(i))
	}
	return out.Trim()
}

func (p Poly) Mul(R Ring, q Poly) Poly {
	p, q = p.Trim(), q.Trim()
	if len(p) == 0 || len(q) == 0 {
		return nil
	}
	out := make(Poly, len(p)+len(q)-1)
	for i, pi := range p {
		if pi == 0 {
			continue
		}
		for j, qj := range q {
			out[i+j] = R.Add(out[i+j], R.Mul(pi, qj))
		}
	}
	return out.Trim()
}

func (p Poly) Scale(R Ring, c int64) Poly {
	out := make(Poly, len(p))
	for i, pi := range p {
		out[i] = R.Mul(pi, c)
	}
	return out.Trim()
}

// Eval evaluates p at a using Horner's rule.
func (p Poly) Eval(R Ring, a int64) int64 {
	acc := int64(0)
	for i := len(p) - 1; i >= 0; i-- {
		acc = R.Add(R.Mul(acc, a), p[i])
	}
	return R.Norm(acc)
}

// Monomial reports if p is c*u^m (c != 0).
func (p Poly) Monomial() (c int64, m int, ok bool) {
	p = p.Trim()
	if len(p) == 0 {
		return 0, 0, false
	}
	m = len(p) - 1
	for i := 0; i < m; i++ {
		if p[i] != 0 {
			return 0, 0, false
		}
	}
	return p[m], m, true
}

func (p Poly) Equal(q Poly) bool {
	p, q = p.Trim(), q.Trim()
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Pow returns a^m.
func Pow(R Ring, a int64, m int) int64 {
	acc := R.Norm(1)
	for ; m > 0; m-- {
		acc = R.Mul(acc, a)
	}
	return acc
}

// Format writes p using sym as the indeterminate, highest degree first, e.g. "-u^2 + 3".
func (p Poly) Format(sym string) string {
	p = p.Trim()
	if len(p) == 0 {
		return "0"
	}
	var terms []string
	for i := len(p) - 1; i >= 0; i-- {
		c := p[i]
		if c == 0 {
			continue
		}
		var term string
		switch {
		case i == 0:
			term = strconv.FormatInt(c, 10)
		case c == 1:
			term = sym
		case c == -1:
			term = "-" + sym
		default:
			term = strconv.FormatInt(c, 10) + "*" + sym
		}
		if i > 1 {
			term += "^" + strconv.Itoa(i)
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, " + ")
}

// Divide returns quo, scale, rem with scale*p == quo*a + rem and deg rem < deg a, for a != 0.
//
// Over a prime field scale is 1.  Over Z and Q the leading coefficient of a is not inverted:
// scale is the product of the factors of it needed to keep the division integral.
func (p Poly) Divide(R Ring, a Poly) (quo Poly, scale int64, rem Poly) {
	a = a.Trim()
	rem = append(Poly(nil), p.Trim()...)
	scale = R.Norm(1)
	da := len(a) - 1
	if da < 0 {
		panic("ring: division by the zero polynomial")
	}
	if len(rem)-1 < da {
		return nil, scale, rem
	}

	lc := a[da]
	field := R.Kind() == PrimeField
	var inv int64
	if field {
		inv = R.Inv(lc)
	}
	quo = make(Poly, len(rem)-da)
	for len(rem)-1 >= da {
		n := len(rem) - 1
		top, shift := rem[n], n-da
		var c int64
		switch {
		case field:
			c = R.Mul(top, inv)
		case top%lc == 0:
			c = top / lc
		default:
			for i := range rem {
				rem[i] = R.Mul(rem[i], lc)
			}
			for i := range quo {
				quo[i] = R.Mul(quo[i], lc)
			}
			scale = R.Mul(scale, lc)
			c = top
		}
		quo[shift] = R.Add(quo[shift], c)
		for i, ai := range a {
			rem[shift+i] = R.Sub(rem[shift+i], R.Mul(c, ai))
		}
		rem = rem.Trim()
	}
	return quo.Trim(), scale, rem
}

// Content returns the non-negative gcd of the coefficients of p.
func (p Poly) Content() int64 {
	var g int64
	for _, c := range p {
		if c != 0 {
			g = Gcd(g, c)
		}
	}
	return g
}

// Normalize returns the associate of p used to report it: monic over a prime field,
// primitive with a positive leading coefficient over Q, and with a positive leading coefficient over Z.
func (p Poly) Normalize(R Ring) Poly {
	p = p.Trim()
	if len(p) == 0 {
		return nil
	}
	lc := p[len(p)-1]
	switch R.Kind() {
	case PrimeField:
		return p.Scale(R, R.Inv(lc))
	case Rationals:
		out := make(Poly, len(p))
		g := p.Content()
		if lc < 0 {
			g = -g
		}
		for i, c := range p {
			out[i] = c / g
		}
		return out
	}
	if lc < 0 {
		return p.Scale(R, -1)
	}
	return append(Poly(nil), p...)
}

// PolyGcd returns the normalised gcd of a and b over a field (see Normalize).
func PolyGcd(R Ring, a, b Poly) Poly {
	a, b = a.Trim(), b.Trim()
	for len(b) > 0 {
		_, _, r := a.Divide(R, b)
		if R.Kind() != PrimeField && len(r) > 0 {
			r = r.Normalize(R)
		}
		a, b = b, r
	}
	return a.Normalize(R)
}

// Quotient returns p / a up to a unit of the field; a must divide p.
func (p Poly) Quotient(R Ring, a Poly) (Poly, bool) {
	quo, _, rem := p.Divide(R, a)
	if len(rem) > 0 {
		return nil, false
	}
	return quo.Normalize(R), true
}

// Compare orders polynomials by degree, then by coefficients from the top down.
func (p Poly) Compare(q Poly) int {
	p, q = p.Trim(), q.Trim()
	if len(p) != len(q) {
		if len(p) < len(q) {
			return -1
		}
		return 1
	}
	for i := len(p) - 1; i >= 0; i-- {
		switch {
		case p[i] < q[i]:
			return -1
		case p[i] > q[i]:
			return 1
		}
	}
	return 0
}
