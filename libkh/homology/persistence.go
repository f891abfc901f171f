package homology

import (
	"sort"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh/ring"
)

// filtrationOrder sorts generator ids of degree i by descending q (the order they enter the
// filtration), ties broken by id.
func (w *work) filtrationOrder(i int, ids []int) {
	sort.Slice(ids, func(a, b int) bool {
		qa, qb := w.q(i, ids[a]), w.q(i, ids[b])
		if qa != qb {
			return qa > qb
		}
		return ids[a] < ids[b]
	})
}

// low returns the row of col entering the filtration last.
func (w *work) low(i int, col map[int]int64) int {
	best, bestQ := -1, 0
	for r := range col {
		q := w.q(i+1, r)
		if best < 0 || q < bestQ || (q == bestQ && r > best) {
			best, bestQ = r, q
		}
	}
	return best
}

// persistence runs the standard column reduction of D[i] in filtration order.
// It returns the rows that end up as a pivot ("low") of some column, and the columns that do not reduce to zero.
func (w *work) persistence(i int) (lows map[int]bool, nonzero map[int]bool) {
	R := w.R
	M := w.mats[i]
	order := sortedKeys(w.live[i])
	w.filtrationOrder(i, order)

	lows = make(map[int]bool)
	nonzero = make(map[int]bool)
	pivotOf := make(map[int]map[int]int64) // low row -> reduced column

	for _, j := range order {
		col := make(map[int]int64, len(M.cols[j]))
		for r, c := range M.cols[j] {
			col[r] = c
		}
		for len(col) > 0 {
			lo := w.low(i, col)
			other, exists := pivotOf[lo]
			if !exists {
				break
			}
			x, y := R.Clear(other[lo], col[lo])
			for r := range col {
				col[r] = R.Mul(y, col[r])
			}
			for r, c := range other {
				col[r] = R.Add(col[r], R.Mul(x, c))
			}
			for r, c := range col {
				if R.Norm(c) == 0 {
					delete(col, r)
				}
			}
			if R.Kind() != ring.PrimeField {
				normalizeColumn(col)
			}
		}
		if len(col) > 0 {
			lo := w.low(i, col)
			pivotOf[lo] = col
			lows[lo] = true
			nonzero[j] = true
		}
	}
	return lows, nonzero
}

func normalizeColumn(col map[int]int64) {
	var g int64
	for _, c := range col {
		g = ring.Gcd(g, c)
	}
	if g > 1 {
		for r := range col {
			col[r] /= g
		}
	}
}

// presentation exports the residual complex, with u-powers restored from the gradings.
func (w *work) presentation() *khoca.Presentation {
	P := &khoca.Presentation{
		Degrees: make([]khoca.PresentedDegree, len(w.live)),
	}
	ids := make([][]int, len(w.live))
	for i := range w.live {
		ids[i] = sortedKeys(w.live[i])
		deg := &P.Degrees[i]
		deg.H = w.h(i)
		deg.Q = make([]int, len(ids[i]))
		for k, g := range ids[i] {
			deg.Q[k] = w.q(i, g)
		}
	}
	for i, M := range w.mats {
		rowAt := make(map[int]int, len(ids[i+1]))
		for k, g := range ids[i+1] {
			rowAt[g] = k
		}
		deg := &P.Degrees[i]
		for k, g := range ids[i] {
			col := M.cols[g]
			for _, r := range sortedKeys(col) {
				deg.Entries = append(deg.Entries, khoca.PresentedEntry{
					Row:    rowAt[r],
					Col:    k,
					Coef:   col[r],
					UPower: (w.q(i+1, r) - w.q(i, g)) / 2,
				})
			}
		}
	}
	return P
}
