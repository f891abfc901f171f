package homology

import (
	"context"
	"sort"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh/complex"
	"github.com/fine-structures/go-khoca/libkh/ring"
	"github.com/pkg/errors"
)

// polyMat is a sparseMat with entries in R[u].
type polyMat struct {
	cols map[int]map[int]ring.Poly
	rows map[int]map[int]struct{}
}

func newPolyMat() *polyMat {
	return &polyMat{
		cols: make(map[int]map[int]ring.Poly),
		rows: make(map[int]map[int]struct{}),
	}
}

func (M *polyMat) get(row, col int) ring.Poly {
	return M.cols[col][row]
}

func (M *polyMat) set(row, col int, p ring.Poly) {
	if p.IsZero() {
		delete(M.cols[col], row)
		delete(M.rows[row], col)
		return
	}
	cm := M.cols[col]
	if cm == nil {
		cm = make(map[int]ring.Poly, 4)
		M.cols[col] = cm
	}
	cm[row] = p
	rm := M.rows[row]
	if rm == nil {
		rm = make(map[int]struct{}, 4)
		M.rows[row] = rm
	}
	rm[col] = struct{}{}
}

func (M *polyMat) removeCol(col int) {
	for row := range M.cols[col] {
		delete(M.rows[row], col)
	}
	delete(M.cols, col)
}

func (M *polyMat) removeRow(row int) {
	for col := range M.rows[row] {
		delete(M.cols[col], row)
	}
	delete(M.rows, row)
}

// polyWork is a polynomial complex being reduced in place.
type polyWork struct {
	R    ring.Ring
	cx   *complex.Complex
	live []map[int]struct{}
	mats []*polyMat
}

func newPolyWork(cx *complex.Complex) *polyWork {
	w := &polyWork{
		R:    cx.Ring,
		cx:   cx,
		live: make([]map[int]struct{}, len(cx.Groups)),
		mats: make([]*polyMat, len(cx.D)),
	}
	for i, grp := range cx.Groups {
		w.live[i] = make(map[int]struct{}, len(grp.Q))
		for g := range grp.Q {
			w.live[i][g] = struct{}{}
		}
	}
	for i := range cx.D {
		M := newPolyMat()
		for j, col := range cx.D[i].PolyCols {
			for _, e := range col {
				M.set(e.Row, j, e.Coef)
			}
		}
		w.mats[i] = M
	}
	return w
}

func (w *polyWork) q(i, g int) int {
	return w.cx.Groups[i].Q[g]
}

func (w *polyWork) h(i int) int {
	return w.cx.Groups[i].H
}

func (w *polyWork) numMats() int {
	return len(w.mats)
}

func (w *polyWork) colIDs(i int) []int {
	return sortedKeys(w.mats[i].cols)
}

// pickUnit only takes constant entries: no other polynomial is a unit of R[u].
func (w *polyWork) pickUnit(i, b int) (row, cost int, ok bool) {
	M := w.mats[i]
	col := M.cols[b]
	qb := w.q(i, b)
	for r, p := range col {
		if len(p) != 1 || !w.R.IsUnit(p[0]) || w.q(i+1, r) != qb {
			continue
		}
		c := (len(col) - 1) * (len(M.rows[r]) - 1)
		if !ok || c < cost || (c == cost && r < row) {
			row, cost, ok = r, c, true
		}
	}
	return row, cost, ok
}

func (w *polyWork) cancel(i, b, c int) []int {
	R, M := w.R, w.mats[i]
	inv := ring.Const(R, R.Inv(M.get(c, b)[0]))

	type term struct {
		idx  int
		coef ring.Poly
	}
	var ys, xs []term
	for y, dyb := range M.cols[b] {
		if y != c {
			ys = append(ys, term{y, dyb})
		}
	}
	for x := range M.rows[c] {
		if x != b {
			xs = append(xs, term{x, inv.Mul(R, M.get(c, x))})
		}
	}
	for _, x := range xs {
		for _, y := range ys {
			M.set(y.idx, x.idx, M.get(y.idx, x.idx).Sub(R, y.coef.Mul(R, x.coef)))
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

// polyDense is a residual polynomial differential copied out for elimination.
type polyDense struct {
	rows []int
	cols []int
	a    [][]ring.Poly
}

func (w *polyWork) residual(i int) *polyDense {
	D := &polyDense{
		rows: sortedKeys(w.live[i+1]),
		cols: sortedKeys(w.live[i]),
	}
	rowAt := make(map[int]int, len(D.rows))
	for r, g := range D.rows {
		rowAt[g] = r
	}
	D.a = make([][]ring.Poly, len(D.rows))
	for r := range D.a {
		D.a[r] = make([]ring.Poly, len(D.cols))
	}
	for c, g := range D.cols {
		for row, p := range w.mats[i].cols[g] {
			D.a[rowAt[row]][c] = p
		}
	}
	return D
}

func (D *polyDense) swapRows(i, j int) {
	D.a[i], D.a[j] = D.a[j], D.a[i]
	D.rows[i], D.rows[j] = D.rows[j], D.rows[i]
}

func (D *polyDense) swapCols(i, j int) {
	for _, row := range D.a {
		row[i], row[j] = row[j], row[i]
	}
	D.cols[i], D.cols[j] = D.cols[j], D.cols[i]
}

// rowReduce divides row i by row t in column t, leaving the remainder at (i, t).
//
// The inverse change of basis is applied to the columns of next, the differential leaving the degree
// of D's rows, so that next stays the differential of the same complex.  Columns of next are only ever
// determined up to a nonzero constant, which changes neither its rank nor its elementary divisors.
func (D *polyDense) rowReduce(R ring.Ring, t, i int, next *polyDense) {
	quo, scale, _ := D.a[i][t].Divide(R, D.a[t][t])
	rt, ri := D.a[t], D.a[i]
	for j := range ri {
		if ri[j].IsZero() && rt[j].IsZero() {
			continue
		}
		ri[j] = ri[j].Scale(R, scale).Sub(R, quo.Mul(R, rt[j]))
	}
	if R.Kind() != ring.PrimeField {
		dropContent(ri)
	}

	if next == nil {
		return
	}
	// rows (t, i) <- [[1, 0], [-quo, scale]] (t, i), so columns (t, i) <- (scale*t + quo*i, i)
	for _, row := range next.a {
		if row[t].IsZero() && row[i].IsZero() {
			continue
		}
		row[t] = row[t].Scale(R, scale).Add(R, quo.Mul(R, row[i]))
	}
	if R.Kind() != ring.PrimeField {
		next.dropColContent(t)
	}
}

func (D *polyDense) colReduce(R ring.Ring, t, j int) {
	quo, scale, _ := D.a[t][j].Divide(R, D.a[t][t])
	for _, row := range D.a {
		if row[j].IsZero() && row[t].IsZero() {
			continue
		}
		row[j] = row[j].Scale(R, scale).Sub(R, quo.Mul(R, row[t]))
	}
	if R.Kind() != ring.PrimeField {
		D.dropColContent(j)
	}
}

func (D *polyDense) dropColContent(j int) {
	col := make([]ring.Poly, len(D.a))
	for r, row := range D.a {
		col[r] = row[j]
	}
	dropContent(col)
	for r, row := range D.a {
		row[j] = col[r]
	}
}

// dropContent divides v by the gcd of all its coefficients.  Only valid over Q.
func dropContent(v []ring.Poly) {
	var g int64
	for _, p := range v {
		if c := p.Content(); c != 0 {
			g = ring.Gcd(g, c)
		}
	}
	if g <= 1 {
		return
	}
	for k, p := range v {
		out := make(ring.Poly, len(p))
		for i, c := range p {
			out[i] = c / g
		}
		v[k] = out
	}
}

// leastInLine returns the nonzero entry of least degree in column t below the pivot or in row t
// right of it.
func (D *polyDense) leastInLine(t int) (r, c int, ok bool) {
	best := -1
	for i := t + 1; i < len(D.rows); i++ {
		if d := D.a[i][t].Degree(); d >= 0 && (best < 0 || d < best) {
			r, c, best = i, t, d
		}
	}
	for j := t + 1; j < len(D.cols); j++ {
		if d := D.a[t][j].Degree(); d >= 0 && (best < 0 || d < best) {
			r, c, best = t, j, d
		}
	}
	return r, c, best >= 0
}

type polyPivot struct {
	row, col int // generator ids
	val      ring.Poly
}

type polyPivotPicker func(D *polyDense, t int) (r, c int, ok bool)

// diagonalizeEuclid reduces D over F[u] to diagonal form by Euclidean steps on u-degree.
// The pivot is divided into every entry of its row and column; a nonzero remainder of lower degree
// replaces it, until the pivot divides its whole line.
//
// Row operations are mirrored onto the columns of next (see rowReduce); its columns stay aligned with D's rows.
func diagonalizeEuclid(ctx context.Context, R ring.Ring, D, next *polyDense, pick polyPivotPicker) ([]polyPivot, error) {
	swapRows := func(i, j int) {
		D.swapRows(i, j)
		if next != nil {
			next.swapCols(i, j)
		}
	}

	var out []polyPivot
	for t := 0; t < len(D.rows) && t < len(D.cols); t++ {
		if ctx.Err() != nil {
			return nil, errors.Wrap(khoca.ErrCancelled, "eliminating over F[u]")
		}
		r, c, ok := pick(D, t)
		if !ok {
			break
		}
		swapRows(t, r)
		D.swapCols(t, c)

		for {
			for i := t + 1; i < len(D.rows); i++ {
				if !D.a[i][t].IsZero() {
					D.rowReduce(R, t, i, next)
				}
			}
			for j := t + 1; j < len(D.cols); j++ {
				if !D.a[t][j].IsZero() {
					D.colReduce(R, t, j)
				}
			}
			r, c, found := D.leastInLine(t)
			if !found {
				break
			}
			if r > t {
				swapRows(t, r)
			} else {
				D.swapCols(t, c)
			}
		}
		out = append(out, polyPivot{row: D.rows[t], col: D.cols[t], val: D.a[t][t].Normalize(R)})
	}
	return out, nil
}

// pickLeastDegree prefers the entry of least u-degree, then the column entering the quantum filtration
// first (highest q) and the row entering it last (lowest q), as persistence pairs them.
func (w *polyWork) pickLeastDegree(i int) polyPivotPicker {
	return func(D *polyDense, t int) (int, int, bool) {
		br, bc := -1, -1
		var bestDeg, bestQc, bestQr int
		for r := t; r < len(D.rows); r++ {
			qr := w.q(i+1, D.rows[r])
			for c := t; c < len(D.cols); c++ {
				deg := D.a[r][c].Degree()
				if deg < 0 {
					continue
				}
				qc := w.q(i, D.cols[c])
				better := br < 0 || deg < bestDeg ||
					(deg == bestDeg && qc > bestQc) ||
					(deg == bestDeg && qc == bestQc && qr < bestQr)
				if better {
					br, bc, bestDeg, bestQc, bestQr = r, c, deg, qc, qr
				}
			}
		}
		return br, bc, br >= 0
	}
}

// reduceEuclidean decomposes the homology over F[u] into free summands and summands F[u]/(p).
// Each summand is labelled by the quantum grading of the generator it is left on.
//
// The differentials are diagonalized in order of degree, each change of basis carried into the next one,
// so the pivot rows of D[i] arrive as zero columns of D[i+1] and no generator is paired twice.
func (hm *Homology) reduceEuclidean(ctx context.Context, w *polyWork) error {
	paired := make([]map[int]bool, len(w.live))
	for i := range paired {
		paired[i] = make(map[int]bool)
	}

	mats := make([]*polyDense, len(w.mats))
	for i := range w.mats {
		mats[i] = w.residual(i)
	}
	for i, D := range mats {
		var next *polyDense
		if i+1 < len(mats) {
			next = mats[i+1]
		}
		piv, err := diagonalizeEuclid(ctx, w.R, D, next, w.pickLeastDegree(i))
		if err != nil {
			return err
		}
		if next != nil {
			for t := range piv {
				for _, row := range next.a {
					if !row[t].IsZero() {
						return errors.Wrapf(khoca.ErrInternalInconsistency, "d∘d != 0 after reducing h=%d", w.h(i))
					}
				}
			}
		}
		for _, p := range piv {
			paired[i][p.col] = true
			paired[i+1][p.row] = true
			if p.val.Degree() < 1 {
				continue
			}
			b := hm.bucket(w.h(i+1), w.q(i+1, p.row))
			if _, m, ok := p.val.Monomial(); ok {
				b.UTorsion = append(b.UTorsion, m)
				sort.Ints(b.UTorsion)
			} else {
				b.Divisors = append(b.Divisors, p.val)
			}
		}
	}

	for i := range w.live {
		for _, g := range sortedKeys(w.live[i]) {
			if !paired[i][g] {
				hm.bucket(w.h(i), w.q(i, g)).Free++
			}
		}
	}

	it := hm.buckets.Iterator()
	for it.Next() {
		b := it.Value().(*Bucket)
		b.Divisors = polyInvariantFactors(w.R, b.Divisors)
	}
	return nil
}

// polyInvariantFactors rewrites F[u]/(p_1) + ... + F[u]/(p_n) as summands p_1 | p_2 | ... | p_n,
// dropping trivial ones.
func polyInvariantFactors(R ring.Ring, ps []ring.Poly) []ring.Poly {
	out := append([]ring.Poly(nil), ps...)
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			a, b := out[i], out[j]
			g := ring.PolyGcd(R, a, b)
			if l, ok := a.Mul(R, b).Quotient(R, g); ok {
				out[i], out[j] = g, l
			}
		}
	}
	kept := out[:0]
	for _, p := range out {
		if p.Degree() > 0 {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Compare(kept[j]) < 0
	})
	return kept
}

// presentation exports the residual polynomial complex.
func (w *polyWork) presentation() *khoca.Presentation {
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
				e := khoca.PresentedEntry{
					Row: rowAt[r],
					Col: k,
				}
				if c, m, ok := col[r].Monomial(); ok {
					e.Coef, e.UPower = c, m
				} else {
					e.Coefs = append([]int64(nil), col[r]...)
				}
				deg.Entries = append(deg.Entries, e)
			}
		}
	}
	return P
}
