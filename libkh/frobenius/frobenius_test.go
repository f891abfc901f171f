package frobenius

import (
	"testing"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh/ring"
	"github.com/stretchr/testify/require"
)

var (
	Z = ring.NewIntegers()
	Q = ring.NewRationals()
)

type algebraCase struct {
	R      ring.Ring
	coeffs []int64
	root   int64
}

func sampleAlgebras(t *testing.T) []*Algebra {
	F2, _ := ring.NewPrimeField(2)
	F5, _ := ring.NewPrimeField(5)
	var out []*Algebra
	for _, ac := range []algebraCase{
		{Z, []int64{0, 0, 1}, 0},     // X^2
		{Z, []int64{-1, 0, 1}, 1},    // X^2 - 1
		{Q, []int64{0, -1, 1}, 1},    // X^2 - X
		{Z, []int64{0, 0, 0, 1}, 0},  // X^3
		{Z, []int64{0, -1, 0, 1}, 1}, // X^3 - X
		{F2, []int64{1, 0, 1}, 1},    // X^2 + 1 = (X + 1)^2
		{F5, []int64{3, 1}, 2},       // X + 3
		{Z, []int64{6, -5, 1}, 3},    // (X - 2)(X - 3)
	} {
		A, err := New(ac.R, ac.coeffs, Root{Value: ac.root})
		require.NoError(t, err, "%v", ac.coeffs)
		out = append(out, A)
	}
	return out
}

func TestBarNatanLift(t *testing.T) {
	A, err := New(Z, []int64{0, 0, 1}, Root{})
	require.NoError(t, err)
	require.Equal(t, 2, A.Rank())
	require.True(t, A.Graded())
	require.True(t, A.Homogeneous())
	require.Equal(t, "Z[X] / (1*X^2)", A.String())
	require.Equal(t, "Z[u][X] / (1*X^2 + -u*X)", A.LiftString())
	require.Equal(t, 1, A.Degree(0))
	require.Equal(t, -1, A.Degree(1))

	T := A.Table(true)
	require.True(t, T.Mul[1][1][0].IsZero())
	require.Equal(t, ring.Poly{0, 1}, T.Mul[1][1][1]) // X^2 = uX

	// comultiplication of 1 is 1(x)X + X(x)1 - u 1(x)1; of X is X(x)X
	require.Equal(t, ring.Poly{0, -1}, T.Comul[0][0][0])
	require.Equal(t, ring.Poly{1}, T.Comul[0][0][1])
	require.Equal(t, ring.Poly{1}, T.Comul[0][1][0])
	require.True(t, T.Comul[0][1][1].IsZero())
	require.Equal(t, ring.Poly{1}, T.Comul[1][1][1])
	require.True(t, T.Comul[1][0][0].IsZero())

	// the marked generator is X, and its comultiplication is g (x) X
	require.True(t, T.MarkedComul[0].IsZero())
	require.Equal(t, ring.Poly{1}, T.MarkedComul[1])
	require.Equal(t, ring.Poly{0, 1}, T.MarkedMul[1])

	S := A.Table(false)
	require.True(t, S.Mul[1][1][1].IsZero())
	require.True(t, S.Comul[0][0][0].IsZero())
	require.True(t, S.MarkedMul[1].IsZero())
}

func TestLee(t *testing.T) {
	A, err := New(Z, []int64{-1, 0, 1}, Root{Value: 1})
	require.NoError(t, err)
	require.False(t, A.Graded())
	require.False(t, A.Homogeneous())
	require.Equal(t, "Z[X] / (1*X^2 + -1)", A.String())

	S := A.Table(false)
	require.Equal(t, ring.Poly{1}, S.Mul[1][1][0]) // X^2 = 1
	require.True(t, S.Mul[1][1][1].IsZero())
	require.Equal(t, ring.Poly{1}, S.MarkedMul[1]) // X g = g
}

func TestDuality(t *testing.T) {
	for _, A := range sampleAlgebras(t) {
		R, k := A.Ring(), A.Rank()
		for i := 0; i < k; i++ {
			for l := 0; l < k; l++ {
				tr := A.Trace(A.Multiply(A.Basis(i), A.Horner(k-1-l)))
				if i == l {
					require.Equal(t, ring.Const(R, 1), tr, "%v i=%d l=%d", A, i, l)
				} else {
					require.True(t, tr.IsZero(), "%v i=%d l=%d", A, i, l)
				}
			}
		}
	}
}

// The comultiplication is a map of A-modules: it carries X^i X^j to (X^i (x) 1) times the image of X^j.
func TestComulIsModuleMap(t *testing.T) {
	for _, A := range sampleAlgebras(t) {
		R, k := A.Ring(), A.Rank()
		T := A.Table(true)
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				for a := 0; a < k; a++ {
					for b := 0; b < k; b++ {
						var lhs, rhs ring.Poly
						for l := 0; l < k; l++ {
							lhs = lhs.Add(R, T.Mul[i][j][l].Mul(R, T.Comul[l][a][b]))
							rhs = rhs.Add(R, T.Mul[i][l][a].Mul(R, T.Comul[j][l][b]))
						}
						require.True(t, lhs.Equal(rhs), "%v i=%d j=%d a=%d b=%d", A, i, j, a, b)
					}
				}
			}
		}
	}
}

func TestMarkedModule(t *testing.T) {
	for _, A := range sampleAlgebras(t) {
		R, k := A.Ring(), A.Rank()
		g := A.MarkedElement()
		x := A.Basis(min(1, k-1))
		u := ring.Monomial(R, 1, 1)

		// (X - u) g == 0 in A when k > 1
		if k > 1 {
			Xg := A.Multiply(x, g)
			for l := range Xg {
				require.True(t, Xg[l].Equal(g[l].Mul(R, u)), "%v", A)
			}
		}
	}
}

func TestSpecialization(t *testing.T) {
	for _, A := range sampleAlgebras(t) {
		R, a := A.Ring(), A.Root().Value
		G, S := A.Table(true), A.Table(false)
		for i := 0; i < A.Rank(); i++ {
			for j := 0; j < A.Rank(); j++ {
				for l := 0; l < A.Rank(); l++ {
					require.Equal(t, G.Mul[i][j][l].Eval(R, a), S.Mul[i][j][l].Eval(R, 0))
					require.Equal(t, G.Comul[i][j][l].Eval(R, a), S.Comul[i][j][l].Eval(R, 0))
				}
			}
		}
	}
}

func TestGraded(t *testing.T) {
	algebras := sampleAlgebras(t)
	expect := []bool{true, false, true, true, false, false, true, false}
	for i, A := range algebras {
		require.Equal(t, expect[i], A.Graded(), "%v", A)
	}
}

func TestErrors(t *testing.T) {
	for _, coeffs := range [][]int64{
		{1},
		{},
		{0, 0, 2},
		{1, 0, 1},
	} {
		_, err := New(Z, coeffs, Root{})
		require.Equal(t, khoca.KindUnsupportedAlgebra, khoca.KindOf(err), "%v", coeffs)
	}

	_, err := New(Z, []int64{0, 0, 1}, Root{Value: 1})
	require.Equal(t, khoca.KindUnsupportedAlgebra, khoca.KindOf(err))
}
