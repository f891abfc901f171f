package ring

import (
	"math"
	"testing"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		spec string
		name string
		kind khoca.Kind
	}{
		{"0", "Z", khoca.KindNone},
		{"Z", "Z", khoca.KindNone},
		{"Q", "Q", khoca.KindNone},
		{"2", "F_2", khoca.KindNone},
		{"7", "F_7", khoca.KindNone},
		{"4", "", khoca.KindUnsupportedRing},
		{"1", "", khoca.KindUnsupportedRing},
		{"-3", "", khoca.KindUnsupportedRing},
		{"R", "", khoca.KindUnsupportedRing},
		{"4294967311", "", khoca.KindUnsupportedRing},
	} {
		R, err := Parse(tc.spec)
		require.Equal(t, tc.kind, khoca.KindOf(err), tc.spec)
		if err == nil {
			require.Equal(t, tc.name, R.String())
		}
	}
}

func TestStepInvariants(t *testing.T) {
	F7, _ := NewPrimeField(7)
	for _, R := range []Ring{NewIntegers(), NewRationals(), F7} {
		for _, ab := range [][2]int64{{2, 4}, {4, 6}, {-3, 5}, {6, -4}, {1, 9}, {5, 3}} {
			a, b := R.Norm(ab[0]), R.Norm(ab[1])
			st := R.Step(a, b)
			require.Equal(t, int64(0), R.Add(R.Mul(st.X, a), R.Mul(st.Y, b)), "%v %v", R, ab)

			det := R.Sub(R.Mul(st.S, st.Y), R.Mul(st.T, st.X))
			require.True(t, R.IsUnit(det), "%v %v det=%d", R, ab, det)

			if R.Kind() == Integers {
				require.Equal(t, Gcd(a, b), R.Size(R.Add(R.Mul(st.S, a), R.Mul(st.T, b))))
			}
		}
	}
}

func TestClear(t *testing.T) {
	Z := NewIntegers()
	x, y := Z.Clear(3, 12)
	require.Equal(t, int64(-4), x)
	require.Equal(t, int64(1), y)

	Q := NewRationals()
	x, y = Q.Clear(4, 6)
	require.Equal(t, int64(0), x*4+y*6)
	require.Equal(t, int64(2), y)

	F5, _ := NewPrimeField(5)
	x, y = F5.Clear(2, 3)
	require.Equal(t, int64(0), F5.Add(F5.Mul(x, 2), F5.Mul(y, 3)))
	require.Equal(t, int64(1), y)
}

func TestPrimeField(t *testing.T) {
	F, err := NewPrimeField(11)
	require.NoError(t, err)
	for a := int64(1); a < 11; a++ {
		require.Equal(t, int64(1), F.Mul(a, F.Inv(a)))
	}
	require.Equal(t, int64(10), F.Norm(-1))
	require.Equal(t, int64(1), F.Order(3))
	require.Equal(t, int64(0), F.Order(22))
	require.False(t, F.IsUnit(0))
}

func TestOrder(t *testing.T) {
	require.Equal(t, int64(2), NewIntegers().Order(-2))
	require.Equal(t, int64(1), NewIntegers().Order(1))
	require.Equal(t, int64(1), NewRationals().Order(6))
	require.True(t, NewRationals().IsField())
	require.False(t, NewRationals().IsUnit(2))
}

func TestOverflow(t *testing.T) {
	run := func(fn func()) (err error) {
		defer CatchOverflow(&err)
		fn()
		return nil
	}
	Z := NewIntegers()
	err := run(func() { Z.Mul(math.MaxInt64/2, 3) })
	require.Equal(t, khoca.KindResourceLimitExceeded, khoca.KindOf(err))

	err = run(func() { Z.Add(math.MaxInt64, 1) })
	require.Equal(t, khoca.KindResourceLimitExceeded, khoca.KindOf(err))

	err = run(func() { Z.Neg(math.MinInt64) })
	require.Equal(t, khoca.KindResourceLimitExceeded, khoca.KindOf(err))

	err = run(func() { Z.Add(math.MaxInt64-1, 1) })
	require.NoError(t, err)

	require.Panics(t, func() {
		var err error
		defer CatchOverflow(&err)
		panic("unrelated")
	})
}

func TestPoly(t *testing.T) {
	Z := NewIntegers()
	p := Poly{1, 2}     // 1 + 2u
	q := Poly{-1, 0, 1} // u^2 - 1

	require.Equal(t, Poly{-1, -2, 1, 2}, p.Mul(Z, q))
	require.Equal(t, Poly{0, 2, 1}, p.Add(Z, q))
	require.True(t, p.Sub(Z, p).IsZero())
	require.Equal(t, 2, q.Degree())
	require.Equal(t, -1, Poly{0, 0}.Degree())
	require.Equal(t, int64(3), q.Eval(Z, 2))

	c, m, ok := Monomial(Z, -3, 2).Monomial()
	require.True(t, ok)
	require.Equal(t, int64(-3), c)
	require.Equal(t, 2, m)
	_, _, ok = q.Monomial()
	require.False(t, ok)

	require.Equal(t, "u^2 + -1", q.Format("u"))
	require.Equal(t, "2*h + 1", p.Format("h"))
	require.Equal(t, "0", Poly(nil).Format("u"))
	require.Equal(t, int64(16), Pow(Z, 2, 4))

	F3, _ := NewPrimeField(3)
	require.Equal(t, Poly{2, 1}, Poly{-1, 4}.Scale(F3, 1))
}

func TestPolyDivide(t *testing.T) {
	Q := NewRationals()
	quo, scale, rem := Poly{1, 2, 1}.Divide(Q, Poly{2, 2})
	require.Equal(t, Poly{1, 1}, quo)
	require.Equal(t, int64(2), scale)
	require.Empty(t, rem)

	F3, _ := NewPrimeField(3)
	quo, scale, rem = Poly{1, 0, 1}.Divide(F3, Poly{1, 1})
	require.Equal(t, Poly{2, 1}, quo)
	require.Equal(t, int64(1), scale)
	require.Equal(t, Poly{2}, rem)

	quo, _, rem = Poly{3}.Divide(Q, Poly{1, 1})
	require.Empty(t, quo)
	require.Equal(t, Poly{3}, rem)

	require.Equal(t, Poly{1, 1}, PolyGcd(Q, Poly{-1, 0, 1}, Poly{1, 2, 1}))
	require.Equal(t, Poly{1}, PolyGcd(Q, Poly{-1, 1}, Poly{1, 1}))
	require.Equal(t, Poly{1, 0, 1}, PolyGcd(F3, Poly{1, 0, 1}, Poly{1, 1, 1, 1}))

	q, ok := Poly{-1, 0, 1}.Quotient(Q, Poly{-2, 2})
	require.True(t, ok)
	require.Equal(t, Poly{1, 1}, q)
	_, ok = Poly{1, 0, 1}.Quotient(Q, Poly{1, 1})
	require.False(t, ok)

	require.Equal(t, Poly{1, 1}, Poly{2, 2}.Normalize(F3))
	require.Equal(t, Poly{-1, 2}, Poly{3, -6}.Normalize(Q))
	require.Equal(t, int64(3), Poly{3, -6, 0}.Content())

	require.Equal(t, -1, Poly{5}.Compare(Poly{0, 1}))
	require.Equal(t, 1, Poly{2, 1}.Compare(Poly{1, 1}))
	require.Equal(t, 0, Poly{1, 1, 0}.Compare(Poly{1, 1}))
}
