package complex

import (
	"sort"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh/ring"
	"github.com/pkg/errors"
)

// UPower returns the power of u carried by entry (row, col) of D[i].
func (cx *Complex) UPower(i, row, col int) int {
	return (cx.Groups[i+1].Q[row] - cx.Groups[i].Q[col]) / 2
}

// Specialize substitutes u = a into an equivariant complex.
func (cx *Complex) Specialize(a int64) (out *Complex, err error) {
	defer ring.CatchOverflow(&err)

	if !cx.Equivariant {
		return nil, errors.Wrap(khoca.ErrInvariantViolation, "complex is already specialised")
	}
	R := cx.Ring
	out = &Complex{
		Ring:    R,
		Rank:    cx.Rank,
		Reduced: cx.Reduced,
		MinH:    cx.MinH,
		Groups:  cx.Groups,
		D:       make([]Matrix, len(cx.D)),
	}
	for i, M := range cx.D {
		S := Matrix{
			NumRows: M.NumRows,
			Cols:    make([]Column, len(M.Cols)),
		}
		for j, col := range M.Cols {
			var scol Column
			for _, e := range col {
				c := R.Mul(e.Coef, ring.Pow(R, a, cx.UPower(i, e.Row, j)))
				if R.Norm(c) != 0 {
					scol = append(scol, Entry{Row: e.Row, Coef: c})
				}
			}
			S.Cols[j] = scol
		}
		if cx.Polynomial {
			S.Cols = make([]Column, len(M.PolyCols))
			for j, col := range M.PolyCols {
				var scol Column
				for _, e := range col {
					if c := e.Coef.Eval(R, a); c != 0 {
						scol = append(scol, Entry{Row: e.Row, Coef: c})
					}
				}
				S.Cols[j] = scol
			}
		}
		out.D[i] = S
	}
	return out, nil
}

// Graded reports if every entry preserves the quantum grading (equivariant complexes are graded by u
// unless their entries are polynomials).
func (cx *Complex) Graded() bool {
	if cx.Equivariant {
		return !cx.Polynomial
	}
	for i, M := range cx.D {
		for j, col := range M.Cols {
			for _, e := range col {
				if cx.Groups[i+1].Q[e.Row] != cx.Groups[i].Q[j] {
					return false
				}
			}
		}
	}
	return true
}

// CheckSquareZero verifies d∘d = 0.
func (cx *Complex) CheckSquareZero() (err error) {
	defer ring.CatchOverflow(&err)

	R := cx.Ring
	if cx.Polynomial {
		return cx.checkSquareZeroPoly()
	}
	for i := 0; i+1 < len(cx.D); i++ {
		D0, D1 := &cx.D[i], &cx.D[i+1]
		acc := make(map[int]int64)
		for j, col := range D0.Cols {
			for _, e := range col {
				for _, f := range D1.Cols[e.Row] {
					acc[f.Row] = R.Add(acc[f.Row], R.Mul(e.Coef, f.Coef))
				}
			}
			for row, c := range acc {
				if R.Norm(c) != 0 {
					return errors.Wrapf(khoca.ErrInvariantViolation, "d∘d != 0 at h=%d: column %d row %d is %d", cx.Groups[i].H, j, row, c)
				}
				delete(acc, row)
			}
		}
	}
	return nil
}

func (cx *Complex) checkSquareZeroPoly() error {
	R := cx.Ring
	for i := 0; i+1 < len(cx.D); i++ {
		D0, D1 := &cx.D[i], &cx.D[i+1]
		acc := make(map[int]ring.Poly)
		for j, col := range D0.PolyCols {
			for _, e := range col {
				for _, f := range D1.PolyCols[e.Row] {
					acc[f.Row] = acc[f.Row].Add(R, e.Coef.Mul(R, f.Coef))
				}
			}
			for row, p := range acc {
				if !p.IsZero() {
					return errors.Wrapf(khoca.ErrInvariantViolation, "d∘d != 0 at h=%d: column %d row %d is %s", cx.Groups[i].H, j, row, p.Format("u"))
				}
				delete(acc, row)
			}
		}
	}
	return nil
}

// Rank is the number of generators in bidegree (H, Q).
type Rank struct {
	H, Q, N int
}

// ChainRanks returns the chain group ranks ordered by (h, q).
func (cx *Complex) ChainRanks() []Rank {
	var out []Rank
	for _, grp := range cx.Groups {
		count := make(map[int]int)
		for _, q := range grp.Q {
			count[q]++
		}
		qs := make([]int, 0, len(count))
		for q := range count {
			qs = append(qs, q)
		}
		sort.Ints(qs)
		for _, q := range qs {
			out = append(out, Rank{H: grp.H, Q: q, N: count[q]})
		}
	}
	return out
}

// Euler returns the graded Euler characteristic sum (-1)^h q^q as a map from q to coefficient.
func (cx *Complex) Euler() map[int]int64 {
	chi := make(map[int]int64)
	for _, grp := range cx.Groups {
		sign := int64(1)
		if grp.H%2 != 0 {
			sign = -1
		}
		for _, q := range grp.Q {
			chi[q] += sign
		}
	}
	for q, c := range chi {
		if c == 0 {
			delete(chi, q)
		}
	}
	return chi
}

// NumGenerators returns the total number of chain generators.
func (cx *Complex) NumGenerators() int {
	N := 0
	for _, grp := range cx.Groups {
		N += len(grp.Q)
	}
	return N
}
