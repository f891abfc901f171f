package homology

import (
	"context"
	"sort"

	"github.com/emirpasic/gods/trees/binaryheap"
	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh/complex"
	"github.com/fine-structures/go-khoca/libkh/ring"
	"github.com/pkg/errors"
)

// sparseMat is a mutable sparse matrix indexed by generator ids, kept in both orientations.
type sparseMat struct {
	cols map[int]map[int]int64    // col -> row -> coef
	rows map[int]map[int]struct{} // row -> cols
}

func newSparseMat() *sparseMat {
	return &sparseMat{
		cols: make(map[int]map[int]int64),
		rows: make(map[int]map[int]struct{}),
	}
}

func (M *sparseMat) get(row, col int) int64 {
	return M.cols[col][row]
}

func (M *sparseMat) set(row, col int, c int64) {
	if c == 0 {
		if col := M.cols[col]; col != nil {
			delete(col, row)
		}
		if r := M.rows[row]; r != nil {
			delete(r, col)
		}
		return
	}
	cm := M.cols[col]
	if cm == nil {
		cm = make(map[int]int64, 4)
		M.cols[col] = cm
	}
	cm[row] = c
	rm := M.rows[row]
	if rm == nil {
		rm = make(map[int]struct{}, 4)
		M.rows[row] = rm
	}
	rm[col] = struct{}{}
}

func (M *sparseMat) removeCol(col int) {
	for row := range M.cols[col] {
		delete(M.rows[row], col)
	}
	delete(M.cols, col)
}

func (M *sparseMat) removeRow(row int) {
	for col := range M.rows[row] {
		delete(M.cols[col], row)
	}
	delete(M.rows, row)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// work is a chain complex (or a q-block of one) being reduced in place.
// Generators keep the ids they have in the source complex.
type work struct {
	R    ring.Ring
	cx   *complex.Complex
	live []map[int]struct{} // per degree
	mats []*sparseMat       // mats[i]: degree i -> i+1
	dims []int              // per degree, generator count before any reduction
}

func newWork(cx *complex.Complex, gens [][]int) *work {
	w := &work{
		R:    cx.Ring,
		cx:   cx,
		live: make([]map[int]struct{}, len(cx.Groups)),
		mats: make([]*sparseMat, len(cx.D)),
		dims: make([]int, len(cx.Groups)),
	}
	for i := range cx.Groups {
		w.live[i] = make(map[int]struct{}, len(gens[i]))
		for _, g := range gens[i] {
			w.live[i][g] = struct{}{}
		}
		w.dims[i] = len(gens[i])
	}
	for i := range cx.D {
		M := newSparseMat()
		for _, j := range gens[i] {
			for _, e := range cx.D[i].Cols[j] {
				if _, ok := w.live[i+1][e.Row]; ok {
					M.set(e.Row, j, w.R.Norm(e.Coef))
				}
			}
		}
		w.mats[i] = M
	}
	return w
}

// q returns the quantum grading of generator g in degree i.
func (w *work) q(i, g int) int {
	return w.cx.Groups[i].Q[g]
}

func (w *work) h(i int) int {
	return w.cx.Groups[i].H
}

// canceller is a complex under reduction that can cancel pairs joined by a unit entry.
type canceller interface {
	numMats() int
	colIDs(i int) []int

	// pickUnit returns the unit entry of column b of D[i] to cancel along with its Markowitz cost.
	pickUnit(i, b int) (row, cost int, ok bool)

	// cancel eliminates the pair (b, c) and returns the columns of D[i] whose entries changed.
	cancel(i, b, c int) []int
}

// cancelUnits cancels pairs joined by a unit entry of equal quantum grading.
// Each cancellation removes one generator from two adjacent degrees and corrects the differential
// by the zig-zag d(y,x) -= d(y,b) d(c,b)^-1 d(c,x).
//
// A cancellation in D[i] only changes entries of D[i], so the matrices are finished one at a time.
func cancelUnits(ctx context.Context, w canceller) (int, error) {
	cancelled := 0
	for i := 0; i < w.numMats(); i++ {
		n, err := cancelUnitsIn(ctx, w, i)
		cancelled += n
		if err != nil {
			return cancelled, err
		}
	}
	return cancelled, nil
}

// candidate is a column of D[i] queued with the Markowitz cost of its best unit pivot.
type candidate struct {
	cost int
	col  int
	ver  int
}

func compareCandidates(a, b interface{}) int {
	ca, cb := a.(candidate), b.(candidate)
	if ca.cost != cb.cost {
		return ca.cost - cb.cost
	}
	return ca.col - cb.col
}

// cancelUnitsIn works through a queue of columns, cheapest pivot first.
// Only the columns a cancellation touches are queued again; stale queue entries are skipped by version.
func cancelUnitsIn(ctx context.Context, w canceller, i int) (int, error) {
	ids := w.colIDs(i)
	queue := binaryheap.NewWith(compareCandidates)
	version := make(map[int]int, len(ids))
	push := func(b int) {
		version[b]++
		if _, cost, ok := w.pickUnit(i, b); ok {
			queue.Push(candidate{cost: cost, col: b, ver: version[b]})
		}
	}
	for _, b := range ids {
		push(b)
	}

	cancelled := 0
	for {
		v, ok := queue.Pop()
		if !ok {
			break
		}
		cand := v.(candidate)
		if version[cand.col] != cand.ver {
			continue
		}
		c, cost, ok := w.pickUnit(i, cand.col)
		if !ok {
			continue
		}
		if cost > cand.cost {
			push(cand.col)
			continue
		}
		touched := w.cancel(i, cand.col, c)
		delete(version, cand.col)
		for _, x := range touched {
			push(x)
		}
		cancelled++
		if cancelled%1024 == 0 && ctx.Err() != nil {
			return cancelled, errors.Wrap(khoca.ErrCancelled, "reducing complex")
		}
	}
	if ctx.Err() != nil {
		return cancelled, errors.Wrap(khoca.ErrCancelled, "reducing complex")
	}
	return cancelled, nil
}

func (w *work) numMats() int {
	return len(w.mats)
}

func (w *work) colIDs(i int) []int {
	return sortedKeys(w.mats[i].cols)
}

// pickUnit returns the unit entry of column b of equal grading with the least fill-in,
// (|col| - 1) (|row| - 1), ties going to the lowest row.
func (w *work) pickUnit(i, b int) (row, cost int, ok bool) {
	M := w.mats[i]
	col := M.cols[b]
	qb := w.q(i, b)
	for r, coef := range col {
		if !w.R.IsUnit(coef) || w.q(i+1, r) != qb {
			continue
		}
		c := (len(col) - 1) * (len(M.rows[r]) - 1)
		if !ok || c < cost || (c == cost && r < row) {
			row, cost, ok = r, c, true
		}
	}
	return row, cost, ok
}

func (w *work) cancel(i, b, c int) []int {
	R, M := w.R, w.mats[i]
	inv := R.Inv(M.get(c, b))

	type term struct {
		idx  int
		coef int64
	}
	var ys, xs []term
	for y, dyb := range M.cols[b] {
		if y != c {
			ys = append(ys, term{y, dyb})
		}
	}
	for x := range M.rows[c] {
		if x != b {
			xs = append(xs, term{x, R.Mul(inv, M.get(c, x))})
		}
	}
	for _, x := range xs {
		for _, y := range ys {
			M.set(y.idx, x.idx, R.Sub(M.get(y.idx, x.idx), R.Mul(y.coef, x.coef)))
		}
	}

	M.removeCol(b)
	M.removeRow(c)
	if i > 0 {
		w.mats[i-1].removeRow(b)
	}
	if i+1 < len(w.mats) {
		w.mats[i+1].removeCol(c)
	}
	delete(w.live[i], b)
	delete(w.live[i+1], c)

	touched := make([]int, len(xs))
	for k, x := range xs {
		touched[k] = x.idx
	}
	return touched
}

// dense is a residual differential copied out for elimination.
type dense struct {
	rows []int // generator ids of degree i+1
	cols []int // generator ids of degree i
	a    [][]int64
}

func (w *work) residual(i int) *dense {
	D := &dense{
		rows: sortedKeys(w.live[i+1]),
		cols: sortedKeys(w.live[i]),
	}
	rowAt := make(map[int]int, len(D.rows))
	for r, g := range D.rows {
		rowAt[g] = r
	}
	D.a = make([][]int64, len(D.rows))
	for r := range D.a {
		D.a[r] = make([]int64, len(D.cols))
	}
	M := w.mats[i]
	for c, g := range D.cols {
		for row, coef := range M.cols[g] {
			D.a[rowAt[row]][c] = coef
		}
	}
	return D
}
