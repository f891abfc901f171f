// Package frobenius builds the rank-k Frobenius algebras A = R[X]/(f) used to decorate circles.
//
// Given a monic f of degree k and a root a of f, the equivariant lift is F_u = (X - u) * f/(X - a),
// a polynomial over R[u] that specialises to f at u = a.  Structure constants are computed once
// over R[u]; the non-equivariant tables are their specialisation at u = a.
//
// The basis is 1, X, ..., X^(k-1) with quantum degree q(X^i) = (k-1) - 2i, and u has degree -2.
// The trace reads the coefficient of X^(k-1).
package frobenius

import (
	"fmt"
	"strings"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh/ring"
	"github.com/pkg/errors"
)

// Root names the equivariant indeterminate and the value it is specialised to.
type Root struct {
	Symbol string // defaults to "u"
	Value  int64
}

// Table holds structure constants, each a polynomial in u.
type Table struct {
	Rank int

	// Mul[i][j][l] is the coefficient of X^l in X^i * X^j.
	Mul [][][]ring.Poly

	// Comul[i][l1][l2] is the coefficient of X^l1 (x) X^l2 in the comultiplication of X^i.
	Comul [][][]ring.Poly

	// MarkedMul[i] is c where X^i acts on the marked generator g as c*g.
	MarkedMul []ring.Poly

	// MarkedComul[l] is the coefficient of g (x) X^l in the comultiplication of g.
	MarkedComul []ring.Poly
}

type Algebra struct {
	ring        ring.Ring
	f           []int64     // monic, low -> high
	g           []int64     // f / (X - a), monic
	lift        []ring.Poly // F_u, low -> high
	root        Root
	k           int
	graded      bool
	general     *Table
	specialized *Table
}

// New builds the algebra R[X]/(f) for f given by its full coefficient list (low to high).
func New(R ring.Ring, coeffs []int64, root Root) (A *Algebra, err error) {
	defer ring.CatchOverflow(&err)

	f := make([]int64, len(coeffs))
	for i, c := range coeffs {
		f[i] = R.Norm(c)
	}
	k := len(f) - 1
	if k < 1 {
		return nil, errors.Wrapf(khoca.ErrUnsupportedAlgebra, "degree %d polynomial", k)
	}
	if f[k] != R.Norm(1) {
		return nil, errors.Wrapf(khoca.ErrUnsupportedAlgebra, "%s is not monic", formatX(f))
	}
	if root.Symbol == "" {
		root.Symbol = "u"
	}
	root.Value = R.Norm(root.Value)
	if ring.Poly(f).Eval(R, root.Value) != 0 {
		return nil, errors.Wrapf(khoca.ErrUnsupportedAlgebra, "%d is not a root of %s", root.Value, formatX(f))
	}

	A = &Algebra{
		ring: R,
		f:    f,
		g:    divideRoot(R, f, root.Value),
		root: root,
		k:    k,
	}

	// F_u = X*g - u*g
	A.lift = make([]ring.Poly, k+1)
	for i := 0; i <= k; i++ {
		var gPrev, gCur int64
		if i > 0 {
			gPrev = A.g[i-1]
		}
		if i < k {
			gCur = A.g[i]
		}
		A.lift[i] = ring.Poly{gPrev, R.Neg(gCur)}.Trim()
	}

	A.graded = true
	for i, Fi := range A.lift {
		if Fi.IsZero() {
			continue
		}
		if _, m, ok := Fi.Monomial(); !ok || m != k-i {
			A.graded = false
		}
	}

	A.general = A.buildTable()
	A.specialized = A.general.specialize(R, root.Value)
	return A, nil
}

// divideRoot returns f / (X - a) by synthetic division; f(a) must be 0.
func divideRoot(R ring.Ring, f []int64, a int64) []int64 {
	k := len(f) - 1
	g := make([]int64, k)
	carry := int64(0)
	for i := k; i >= 1; i-- {
		carry = R.Add(f[i], R.Mul(carry, a))
		g[i-1] = carry
	}
	return g
}

func (A *Algebra) Ring() ring.Ring {
	return A.ring
}

func (A *Algebra) Rank() int {
	return A.k
}

func (A *Algebra) Root() Root {
	return A.root
}

// Polynomial returns f, low to high.
func (A *Algebra) Polynomial() []int64 {
	return append([]int64(nil), A.f...)
}

// Lift returns F_u, low to high.
func (A *Algebra) Lift() []ring.Poly {
	return append([]ring.Poly(nil), A.lift...)
}

// Degree returns the quantum degree of X^i.
func (A *Algebra) Degree(i int) int {
	return (A.k - 1) - 2*i
}

// Graded reports if F_u is homogeneous, making the equivariant complex graded.
func (A *Algebra) Graded() bool {
	return A.graded
}

// Homogeneous reports if f itself is homogeneous (f = X^k), making the specialised complex graded.
func (A *Algebra) Homogeneous() bool {
	for _, c := range A.f[:A.k] {
		if c != 0 {
			return false
		}
	}
	return true
}

// Table returns the structure constants over R[u], or their specialisation at u = root.
func (A *Algebra) Table(equivariant bool) *Table {
	if equivariant {
		return A.general
	}
	return A.specialized
}

// String renders the algebra the way it is reported, e.g. "Z[X] / (1*X^2)".
func (A *Algebra) String() string {
	return fmt.Sprintf("%v[X] / (%s)", A.ring, formatX(A.f))
}

// LiftString renders the equivariant lift, e.g. "Z[u][X] / (1*X^2 + -u*X)".
func (A *Algebra) LiftString() string {
	terms := make([]string, 0, A.k+1)
	for i := A.k; i >= 0; i-- {
		c := A.lift[i]
		if c.IsZero() {
			continue
		}
		coef := c.Format(A.root.Symbol)
		if len(c) > 1 && strings.Contains(coef, " + ") {
			coef = "(" + coef + ")"
		}
		terms = append(terms, xTerm(coef, i))
	}
	return fmt.Sprintf("%v[%s][X] / (%s)", A.ring, A.root.Symbol, strings.Join(terms, " + "))
}

func formatX(f []int64) string {
	var terms []string
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] != 0 {
			terms = append(terms, xTerm(fmt.Sprint(f[i]), i))
		}
	}
	if len(terms) == 0 {
		return "0"
	}
	return strings.Join(terms, " + ")
}

func xTerm(coef string, i int) string {
	switch i {
	case 0:
		return coef
	case 1:
		return coef + "*X"
	}
	return fmt.Sprintf("%s*X^%d", coef, i)
}
