package homology

import (
	"context"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh/ring"
	"github.com/pkg/errors"
)

type pivot struct {
	row, col int // generator ids
	val      int64
}

// pivotPicker returns the position of the next pivot in the trailing submatrix at t.
type pivotPicker func(D *dense, t int) (r, c int, ok bool)

func (D *dense) swapRows(i, j int) {
	D.a[i], D.a[j] = D.a[j], D.a[i]
	D.rows[i], D.rows[j] = D.rows[j], D.rows[i]
}

func (D *dense) swapCols(i, j int) {
	for _, row := range D.a {
		row[i], row[j] = row[j], row[i]
	}
	D.cols[i], D.cols[j] = D.cols[j], D.cols[i]
}

// rowStep replaces rows (t, i) with (S*t + T*i, X*t + Y*i).
func (D *dense) rowStep(R ring.Ring, t, i int, st ring.Step) {
	rt, ri := D.a[t], D.a[i]
	for j := range rt {
		a, b := rt[j], ri[j]
		if a == 0 && b == 0 {
			continue
		}
		rt[j] = R.Add(R.Mul(st.S, a), R.Mul(st.T, b))
		ri[j] = R.Add(R.Mul(st.X, a), R.Mul(st.Y, b))
	}
	if R.Kind() == ring.Rationals {
		scaleContent(ri)
	}
}

func (D *dense) colStep(R ring.Ring, t, j int, st ring.Step) {
	for _, row := range D.a {
		a, b := row[t], row[j]
		if a == 0 && b == 0 {
			continue
		}
		row[t] = R.Add(R.Mul(st.S, a), R.Mul(st.T, b))
		row[j] = R.Add(R.Mul(st.X, a), R.Mul(st.Y, b))
	}
	if R.Kind() == ring.Rationals {
		col := make([]int64, len(D.a))
		for r, row := range D.a {
			col[r] = row[j]
		}
		if g := scaleContent(col); g > 1 {
			for r, row := range D.a {
				row[j] = col[r]
			}
		}
	}
}

// scaleContent divides v by the gcd of its entries and returns that gcd.
// Only valid where every nonzero integer is a unit.
func scaleContent(v []int64) int64 {
	var g int64
	for _, x := range v {
		if x != 0 {
			g = ring.Gcd(g, x)
		}
	}
	if g > 1 {
		for i := range v {
			v[i] /= g
		}
	}
	return g
}

func (D *dense) lineClear(t int) bool {
	for i := t + 1; i < len(D.rows); i++ {
		if D.a[i][t] != 0 {
			return false
		}
	}
	for j := t + 1; j < len(D.cols); j++ {
		if D.a[t][j] != 0 {
			return false
		}
	}
	return true
}

// diagonalize reduces D to diagonal form and returns its nonzero diagonal.
//
// When clearOnly is set, rows and columns are only ever cleared against the pivot (never swapped into it),
// which keeps the transform triangular with respect to the pivot order.  This is what the u-graded
// elimination needs: a pivot of minimal u-power divides everything in its row and column.
func diagonalize(ctx context.Context, R ring.Ring, D *dense, pick pivotPicker, clearOnly bool) ([]pivot, error) {
	var out []pivot
	for t := 0; t < len(D.rows) && t < len(D.cols); t++ {
		if t%64 == 0 && ctx.Err() != nil {
			return nil, errors.Wrap(khoca.ErrCancelled, "eliminating")
		}
		r, c, ok := pick(D, t)
		if !ok {
			break
		}
		D.swapRows(t, r)
		D.swapCols(t, c)

		for !D.lineClear(t) {
			for i := t + 1; i < len(D.rows); i++ {
				if b := D.a[i][t]; b != 0 {
					D.rowStep(R, t, i, stepFor(R, D.a[t][t], b, clearOnly))
				}
			}
			for j := t + 1; j < len(D.cols); j++ {
				if b := D.a[t][j]; b != 0 {
					D.colStep(R, t, j, stepFor(R, D.a[t][t], b, clearOnly))
				}
			}
		}
		out = append(out, pivot{row: D.rows[t], col: D.cols[t], val: D.a[t][t]})
	}
	return out, nil
}

func stepFor(R ring.Ring, a, b int64, clearOnly bool) ring.Step {
	if clearOnly {
		x, y := R.Clear(a, b)
		return ring.Step{S: 1, T: 0, X: x, Y: y}
	}
	return R.Step(a, b)
}

// pickSmallest prefers the entry of least size, scanning rows then columns.
func pickSmallest(R ring.Ring) pivotPicker {
	return func(D *dense, t int) (int, int, bool) {
		br, bc, best := -1, -1, int64(-1)
		for r := t; r < len(D.rows); r++ {
			row := D.a[r]
			for c := t; c < len(D.cols); c++ {
				if row[c] == 0 {
					continue
				}
				if sz := R.Size(row[c]); best < 0 || sz < best {
					br, bc, best = r, c, sz
					if sz <= 1 {
						return br, bc, true
					}
				}
			}
		}
		return br, bc, best >= 0
	}
}

// pickLowestU prefers the entry carrying the least power of u, then the least size.
func pickLowestU(R ring.Ring, w *work, i int) pivotPicker {
	return func(D *dense, t int) (int, int, bool) {
		br, bc := -1, -1
		var bestM int
		var bestSz int64
		for r := t; r < len(D.rows); r++ {
			qr := w.q(i+1, D.rows[r])
			row := D.a[r]
			for c := t; c < len(D.cols); c++ {
				if row[c] == 0 {
					continue
				}
				m := (qr - w.q(i, D.cols[c])) / 2
				sz := R.Size(row[c])
				if br < 0 || m < bestM || (m == bestM && sz < bestSz) {
					br, bc, bestM, bestSz = r, c, m, sz
				}
			}
		}
		return br, bc, br >= 0
	}
}

// invariantFactors rewrites cyclic orders d_1..d_n as d_1 | d_2 | ... | d_n, dropping trivial factors.
func invariantFactors(ds []int64) []int64 {
	out := append([]int64(nil), ds...)
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			a, b := out[i], out[j]
			g := ring.Gcd(a, b)
			out[i], out[j] = g, a/g*b
		}
	}
	kept := out[:0]
	for _, d := range out {
		if d > 1 {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
