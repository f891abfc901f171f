// Package complex assembles the Khovanov chain complex of a cube of resolutions.
//
// Generators of vertex v label each circle with a basis element X^i (the marked circle of a reduced
// complex carries only its module generator).  Generators are grouped by homological degree
// h = |v| - n-, ordered by vertex and then by label index, circle 0 being the least significant digit.
//
// An equivariant complex stores the coefficient c of each entry c*u^m; the power m is implied by the
// gradings of the row and column, m = (q_row - q_col) / 2.  When the lift of the algebra is not graded
// no such power exists, and entries are kept as full polynomials in u instead.
package complex

import (
	"context"
	"math/bits"
	"sort"
	"sync"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh/cube"
	"github.com/fine-structures/go-khoca/libkh/frobenius"
	"github.com/fine-structures/go-khoca/libkh/ring"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

type Opts struct {
	Reduced     bool
	Equivariant bool // keep u as an indeterminate rather than substituting the root
	Workers     int
}

type Entry struct {
	Row  int
	Coef int64
}

// Column is a sparse column sorted by row.
type Column []Entry

type PolyEntry struct {
	Row  int
	Coef ring.Poly
}

// PolyColumn is a sparse column of polynomials in u, sorted by row.
type PolyColumn []PolyEntry

// Matrix is a sparse column-major matrix.
// A polynomial complex fills PolyCols and leaves Cols empty.
type Matrix struct {
	NumRows  int
	Cols     []Column
	PolyCols []PolyColumn
}

func (M *Matrix) NumCols() int {
	return max(len(M.Cols), len(M.PolyCols))
}

// NumEntries returns the number of stored nonzero entries.
func (M *Matrix) NumEntries() int {
	N := 0
	for _, col := range M.Cols {
		N += len(col)
	}
	for _, col := range M.PolyCols {
		N += len(col)
	}
	return N
}

// Group is the chain group of one homological degree.
type Group struct {
	H int
	Q []int // quantum grading of each generator
}

type Complex struct {
	Ring        ring.Ring
	Rank        int
	Reduced     bool
	Equivariant bool
	Polynomial  bool // equivariant over an ungraded lift; entries are in Matrix.PolyCols
	MinH        int
	Groups      []Group
	D           []Matrix // D[i] maps Groups[i] to Groups[i+1]
}

type assembler struct {
	cube   *cube.Cube
	alg    *frobenius.Algebra
	table  *frobenius.Table
	opts   Opts
	poly   bool
	offset []int // generator offset of each vertex within its group
	numPos int
	numNeg int
}

// Assemble builds the chain complex of c decorated by A.
func Assemble(ctx context.Context, c *cube.Cube, A *frobenius.Algebra, opts Opts) (cx *Complex, err error) {
	defer ring.CatchOverflow(&err)

	d := c.Diagram()
	n := d.NumCrossings()
	asm := &assembler{
		cube:   c,
		alg:    A,
		table:  A.Table(opts.Equivariant),
		opts:   opts,
		poly:   opts.Equivariant && !A.Graded(),
		offset: make([]int, c.NumVertices()),
		numPos: d.NumPositive(),
		numNeg: d.NumNegative(),
	}

	cx = &Complex{
		Ring:        A.Ring(),
		Rank:        A.Rank(),
		Reduced:     opts.Reduced,
		Equivariant: opts.Equivariant,
		Polynomial:  asm.poly,
		MinH:        -asm.numNeg,
		Groups:      make([]Group, n+1),
		D:           make([]Matrix, n),
	}
	for i := range cx.Groups {
		cx.Groups[i].H = cx.MinH + i
	}

	// lay out generators: vertices of each height in ascending order
	digits := make([]int, 0, 64)
	for v := uint64(0); v < uint64(c.NumVertices()); v++ {
		V := c.Vertex(v)
		grp := &cx.Groups[V.Height()]
		asm.offset[v] = len(grp.Q)
		N := asm.numGenerators(V)
		for gi := 0; gi < N; gi++ {
			digits = asm.decode(V, gi, digits[:0])
			grp.Q = append(grp.Q, asm.genQ(V, digits))
		}
	}
	for i := range cx.D {
		cx.D[i].NumRows = len(cx.Groups[i+1].Q)
	}

	colsOf := make([][]Column, c.NumVertices())
	polyColsOf := make([][]PolyColumn, c.NumVertices())
	if err = asm.forEachVertex(ctx, func(v uint64) error {
		var err error
		colsOf[v], polyColsOf[v], err = asm.vertexColumns(v)
		return err
	}); err != nil {
		return nil, err
	}

	for v := uint64(0); v < uint64(c.NumVertices()); v++ {
		h := bits.OnesCount64(v)
		if h < n {
			cx.D[h].Cols = append(cx.D[h].Cols, colsOf[v]...)
			cx.D[h].PolyCols = append(cx.D[h].PolyCols, polyColsOf[v]...)
		}
	}

	for i, M := range cx.D {
		klog.V(2).Infof("complex: h=%d  %d x %d  %d entries", cx.Groups[i].H, M.NumRows, M.NumCols(), M.NumEntries())
	}
	return cx, nil
}

func (asm *assembler) forEachVertex(ctx context.Context, fn func(v uint64) error) error {
	workers := max(asm.opts.Workers, 1)
	jobs := make(chan uint64, workers)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range jobs {
				err := func() (err error) {
					defer ring.CatchOverflow(&err)
					return fn(v)
				}()
				if err != nil {
					fail(err)
				}
			}
		}()
	}

feed:
	for v := uint64(0); v < uint64(asm.cube.NumVertices()); v++ {
		mu.Lock()
		failed := firstErr != nil
		mu.Unlock()
		if failed {
			break
		}
		select {
		case <-ctx.Done():
			fail(errors.Wrap(khoca.ErrCancelled, "assembling complex"))
			break feed
		case jobs <- v:
		}
	}
	close(jobs)
	wg.Wait()
	return firstErr
}

func (asm *assembler) radix(V *cube.Vertex, ci int) int {
	if asm.opts.Reduced && ci == V.Marked {
		return 1
	}
	return asm.alg.Rank()
}

func (asm *assembler) numGenerators(V *cube.Vertex) int {
	N := 1
	for ci := 0; ci < V.NumCircles; ci++ {
		N *= asm.radix(V, ci)
	}
	return N
}

func (asm *assembler) decode(V *cube.Vertex, gi int, digits []int) []int {
	for ci := 0; ci < V.NumCircles; ci++ {
		r := asm.radix(V, ci)
		digits = append(digits, gi%r)
		gi /= r
	}
	return digits
}

func (asm *assembler) encode(V *cube.Vertex, digits []int) int {
	gi := 0
	for ci := V.NumCircles - 1; ci >= 0; ci-- {
		gi = gi*asm.radix(V, ci) + digits[ci]
	}
	return gi
}

// genQ returns the quantum grading of a labelled resolution:
// the sum of label degrees plus (k-1)(|v| + n+) - k n-, the marked circle contributing 0.
func (asm *assembler) genQ(V *cube.Vertex, digits []int) int {
	k := asm.alg.Rank()
	q := (k-1)*(V.Height()+asm.numPos) - k*asm.numNeg
	for ci, label := range digits {
		if asm.opts.Reduced && ci == V.Marked {
			continue
		}
		q += asm.alg.Degree(label)
	}
	return q
}

func (asm *assembler) vertexColumns(v uint64) ([]Column, []PolyColumn, error) {
	c := asm.cube
	V := c.Vertex(v)
	R := asm.alg.Ring()

	var edges []cube.Edge
	for bit := 0; bit < c.NumCrossings(); bit++ {
		if v&(1<<uint(bit)) != 0 {
			continue
		}
		e, err := c.Edge(v, bit)
		if err != nil {
			return nil, nil, err
		}
		edges = append(edges, e)
	}
	if len(edges) == 0 {
		return nil, nil, nil
	}

	N := asm.numGenerators(V)
	var (
		cols     []Column
		polyCols []PolyColumn
	)
	if asm.poly {
		polyCols = make([]PolyColumn, N)
	} else {
		cols = make([]Column, N)
	}

	digits := make([]int, 0, V.NumCircles)
	for gi := 0; gi < N; gi++ {
		digits = asm.decode(V, gi, digits[:0])
		qSrc := asm.genQ(V, digits)

		var (
			col     Column
			polyCol PolyColumn
		)
		for ei := range edges {
			e := &edges[ei]
			W := c.Vertex(e.To)
			var emitErr error
			asm.apply(e, V, W, digits, func(target []int, p ring.Poly) {
				if emitErr != nil || p.IsZero() {
					return
				}
				row := asm.offset[e.To] + asm.encode(W, target)
				if asm.poly {
					polyCol = append(polyCol, PolyEntry{Row: row, Coef: p.Scale(R, int64(e.Sign))})
					return
				}
				coef, err := asm.coefficient(p, asm.genQ(W, target)-qSrc)
				if err != nil {
					emitErr = err
					return
				}
				coef = R.Mul(coef, int64(e.Sign))
				if coef != 0 {
					col = append(col, Entry{Row: row, Coef: coef})
				}
			})
			if emitErr != nil {
				return nil, nil, emitErr
			}
		}
		if asm.poly {
			polyCols[gi] = compactPoly(R, polyCol)
		} else {
			cols[gi] = compact(R, col)
		}
	}
	return cols, polyCols, nil
}

// coefficient maps a structure constant to a matrix entry; dq is q_row - q_col.
func (asm *assembler) coefficient(p ring.Poly, dq int) (int64, error) {
	if !asm.opts.Equivariant {
		return p.Coeff(0), nil
	}
	c, m, ok := p.Monomial()
	if !ok || 2*m != dq {
		return 0, errors.Wrapf(khoca.ErrInvariantViolation, "structure constant %s does not shift q by %d", p.Format("u"), dq)
	}
	return c, nil
}

// apply emits the image of one labelled resolution along edge e.
func (asm *assembler) apply(e *cube.Edge, V, W *cube.Vertex, digits []int, emit func(target []int, p ring.Poly)) {
	T := asm.table
	k := asm.alg.Rank()
	reduced := asm.opts.Reduced

	target := make([]int, W.NumCircles)
	for ci, to := range e.Passive {
		if to >= 0 {
			target[to] = digits[ci]
		}
	}

	switch e.Kind {
	case cube.Merge:
		a, b, out := e.In[0], e.In[1], e.Out[0]
		if reduced && (a == V.Marked || b == V.Marked) {
			unmarked := a
			if a == V.Marked {
				unmarked = b
			}
			target[out] = 0
			emit(target, T.MarkedMul[digits[unmarked]])
			return
		}
		for l := 0; l < k; l++ {
			target[out] = l
			emit(target, T.Mul[digits[a]][digits[b]][l])
		}

	case cube.Split:
		a, out1, out2 := e.In[0], e.Out[0], e.Out[1]
		if reduced && a == V.Marked {
			marked, unmarked := out1, out2
			if out2 == W.Marked {
				marked, unmarked = out2, out1
			}
			target[marked] = 0
			for l := 0; l < k; l++ {
				target[unmarked] = l
				emit(target, T.MarkedComul[l])
			}
			return
		}
		for l1 := 0; l1 < k; l1++ {
			for l2 := 0; l2 < k; l2++ {
				target[out1] = l1
				target[out2] = l2
				emit(target, T.Comul[digits[a]][l1][l2])
			}
		}
	}
}

// compact sorts a column by row, sums duplicate rows, and drops zeros.
func compact(R ring.Ring, col Column) Column {
	if len(col) == 0 {
		return nil
	}
	sort.Slice(col, func(i, j int) bool {
		return col[i].Row < col[j].Row
	})
	out := col[:0]
	for _, e := range col {
		if n := len(out); n > 0 && out[n-1].Row == e.Row {
			out[n-1].Coef = R.Add(out[n-1].Coef, e.Coef)
			continue
		}
		out = append(out, e)
	}
	kept := out[:0]
	for _, e := range out {
		if R.Norm(e.Coef) != 0 {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func compactPoly(R ring.Ring, col PolyColumn) PolyColumn {
	if len(col) == 0 {
		return nil
	}
	sort.Slice(col, func(i, j int) bool {
		return col[i].Row < col[j].Row
	})
	out := col[:0]
	for _, e := range col {
		if n := len(out); n > 0 && out[n-1].Row == e.Row {
			out[n-1].Coef = out[n-1].Coef.Add(R, e.Coef)
			continue
		}
		out = append(out, e)
	}
	kept := out[:0]
	for _, e := range out {
		if !e.Coef.IsZero() {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
