// Package homology reduces a Khovanov chain complex to its homology.
//
// All modes start with the cancellation lemma: any unit entry joining two generators of equal quantum
// grading is eliminated along with its pair.  What remains is finished according to the complex:
//
//	graded         each quantum grading separately (in parallel); Smith normal form over Z, rank over fields
//	equivariant    graded elimination over F[u]; pivots c*u^m with m > 0 are torsion F[u]/(u^m)
//	euclidean      an ungraded lift over F[u]; Euclidean elimination on u-degree, torsion F[u]/(p(u))
//	presented      equivariant over Z[u]: the residual complex is returned as a presentation
//	filtered       a non-homogeneous differential; persistence in the quantum filtration,
//	               plus Smith normal form for the torsion over Z
package homology

import (
	"context"
	"sort"
	"sync"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh/complex"
	"github.com/fine-structures/go-khoca/libkh/ring"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

type Mode int8

const (
	GradedMode Mode = iota
	EquivariantMode
	FilteredMode
	PresentedMode
	EuclideanMode
)

func (m Mode) String() string {
	switch m {
	case GradedMode:
		return "graded"
	case EquivariantMode:
		return "equivariant"
	case FilteredMode:
		return "filtered"
	case PresentedMode:
		return "presented"
	case EuclideanMode:
		return "euclidean"
	}
	return "unknown"
}

type Opts struct {
	Workers int

	// AllowPresentation accepts a module presentation in place of a decomposition over Z[u].
	AllowPresentation bool
}

// Grading is a bidegree (homological, quantum).
type Grading struct {
	H, Q int
}

func compareGradings(a, b interface{}) int {
	ga, gb := a.(Grading), b.(Grading)
	switch {
	case ga.H < gb.H:
		return -1
	case ga.H > gb.H:
		return 1
	case ga.Q < gb.Q:
		return -1
	case ga.Q > gb.Q:
		return 1
	}
	return 0
}

// Bucket is the homology in one bidegree.
type Bucket struct {
	H, Q     int
	Free     int
	Torsion  []int64 // invariant factors d > 1 of the Z-torsion
	UTorsion []int   // powers m > 0 of summands F[u]/(u^m)

	// Divisors are the other summands F[u]/(p), p normalized and not a monomial.
	Divisors []ring.Poly
}

func (b *Bucket) IsZero() bool {
	return b.Free == 0 && len(b.Torsion) == 0 && len(b.UTorsion) == 0 && len(b.Divisors) == 0
}

type Homology struct {
	Ring        ring.Ring
	Reduced     bool
	Equivariant bool
	Mode        Mode

	// Presentation is set in PresentedMode in place of buckets.
	Presentation *khoca.Presentation

	buckets *redblacktree.Tree // Grading -> *Bucket
}

func newHomology(cx *complex.Complex) *Homology {
	return &Homology{
		Ring:        cx.Ring,
		Reduced:     cx.Reduced,
		Equivariant: cx.Equivariant,
		buckets:     redblacktree.NewWith(compareGradings),
	}
}

func (hm *Homology) bucket(h, q int) *Bucket {
	key := Grading{h, q}
	if v, found := hm.buckets.Get(key); found {
		return v.(*Bucket)
	}
	b := &Bucket{H: h, Q: q}
	hm.buckets.Put(key, b)
	return b
}

// Buckets returns the nonzero buckets ordered by (h, q).
func (hm *Homology) Buckets() []Bucket {
	out := make([]Bucket, 0, hm.buckets.Size())
	it := hm.buckets.Iterator()
	for it.Next() {
		if b := it.Value().(*Bucket); !b.IsZero() {
			out = append(out, *b)
		}
	}
	return out
}

func (hm *Homology) Bucket(h, q int) (Bucket, bool) {
	if v, found := hm.buckets.Get(Grading{h, q}); found {
		if b := v.(*Bucket); !b.IsZero() {
			return *b, true
		}
	}
	return Bucket{H: h, Q: q}, false
}

// FreeRank returns the total free rank.
func (hm *Homology) FreeRank() int {
	N := 0
	it := hm.buckets.Iterator()
	for it.Next() {
		N += it.Value().(*Bucket).Free
	}
	return N
}

// NumTorsion returns the number of torsion summands of either kind.
func (hm *Homology) NumTorsion() int {
	N := 0
	it := hm.buckets.Iterator()
	for it.Next() {
		b := it.Value().(*Bucket)
		N += len(b.Torsion) + len(b.UTorsion) + len(b.Divisors)
	}
	return N
}

// Reduce computes the homology of cx.  cx is not modified.
func Reduce(ctx context.Context, cx *complex.Complex, opts Opts) (hm *Homology, err error) {
	defer ring.CatchOverflow(&err)

	hm = newHomology(cx)
	R := cx.Ring
	switch {
	case cx.Equivariant && !R.IsField():
		if !opts.AllowPresentation {
			return nil, errors.Wrapf(khoca.ErrUnsupportedRing, "equivariant homology over %v[u] has no decomposition", R)
		}
		hm.Mode = PresentedMode
	case cx.Equivariant && cx.Polynomial:
		hm.Mode = EuclideanMode
	case cx.Equivariant:
		hm.Mode = EquivariantMode
	case cx.Graded():
		hm.Mode = GradedMode
	default:
		hm.Mode = FilteredMode
	}

	klog.V(2).Infof("homology: %v mode, %d generators", hm.Mode, cx.NumGenerators())

	switch {
	case hm.Mode == GradedMode:
		err = hm.reduceGraded(ctx, cx, opts)
	case cx.Polynomial:
		w := newPolyWork(cx)
		var n int
		if n, err = cancelUnits(ctx, w); err != nil {
			return nil, err
		}
		klog.V(2).Infof("homology: cancelled %d pairs", n)
		if hm.Mode == EuclideanMode {
			err = hm.reduceEuclidean(ctx, w)
		} else {
			hm.Presentation = w.presentation()
		}
	default:
		w := newWork(cx, allGenerators(cx))
		var n int
		if n, err = cancelUnits(ctx, w); err != nil {
			return nil, err
		}
		klog.V(2).Infof("homology: cancelled %d pairs", n)
		switch hm.Mode {
		case EquivariantMode:
			err = hm.reduceEquivariant(ctx, w)
		case FilteredMode:
			err = hm.reduceFiltered(ctx, w)
		case PresentedMode:
			hm.Presentation = w.presentation()
		}
	}
	if err != nil {
		return nil, err
	}
	if hm.Mode != PresentedMode {
		if err = hm.checkEuler(cx); err != nil {
			return nil, err
		}
	}
	return hm, nil
}

func allGenerators(cx *complex.Complex) [][]int {
	gens := make([][]int, len(cx.Groups))
	for i, grp := range cx.Groups {
		gens[i] = make([]int, len(grp.Q))
		for g := range grp.Q {
			gens[i][g] = g
		}
	}
	return gens
}

// qBlocks splits the generators of each degree by quantum grading.
func qBlocks(cx *complex.Complex) ([]int, map[int][][]int) {
	blocks := make(map[int][][]int)
	for i, grp := range cx.Groups {
		for g, q := range grp.Q {
			gens := blocks[q]
			if gens == nil {
				gens = make([][]int, len(cx.Groups))
				blocks[q] = gens
			}
			gens[i] = append(gens[i], g)
		}
	}
	qs := make([]int, 0, len(blocks))
	for q := range blocks {
		qs = append(qs, q)
	}
	sort.Ints(qs)
	return qs, blocks
}

type blockResult struct {
	free    []int
	torsion [][]int64 // per degree
}

func (hm *Homology) reduceGraded(ctx context.Context, cx *complex.Complex, opts Opts) error {
	qs, blocks := qBlocks(cx)
	results := make([]blockResult, len(qs))

	workers := max(opts.Workers, 1)
	jobs := make(chan int, len(qs))
	for bi := range qs {
		jobs <- bi
	}
	close(jobs)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for wi := 0; wi < workers; wi++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for bi := range jobs {
				mu.Lock()
				failed := firstErr != nil
				mu.Unlock()
				if failed {
					continue
				}
				err := func() (err error) {
					defer ring.CatchOverflow(&err)
					results[bi], err = reduceBlock(ctx, newWork(cx, blocks[qs[bi]]))
					return err
				}()
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = errors.WithMessagef(err, "q=%d", qs[bi])
					}
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	for bi, q := range qs {
		res := &results[bi]
		for i, grp := range cx.Groups {
			if res.free[i] == 0 && len(res.torsion[i]) == 0 {
				continue
			}
			b := hm.bucket(grp.H, q)
			b.Free += res.free[i]
			b.Torsion = invariantFactors(append(b.Torsion, res.torsion[i]...))
		}
	}
	return nil
}

func reduceBlock(ctx context.Context, w *work) (blockResult, error) {
	res := blockResult{
		free:    make([]int, len(w.live)),
		torsion: make([][]int64, len(w.live)),
	}
	if _, err := cancelUnits(ctx, w); err != nil {
		return res, err
	}
	ranks := make([]int, len(w.mats))
	for i := range w.mats {
		piv, err := diagonalize(ctx, w.R, w.residual(i), pickSmallest(w.R), false)
		if err != nil {
			return res, err
		}
		ranks[i] = len(piv)
		for _, p := range piv {
			if d := w.R.Order(p.val); d > 1 {
				res.torsion[i+1] = append(res.torsion[i+1], d)
			}
		}
	}
	for i := range w.live {
		free := len(w.live[i])
		if i < len(ranks) {
			free -= ranks[i]
		}
		if i > 0 {
			free -= ranks[i-1]
		}
		if free < 0 {
			return res, errors.Wrapf(khoca.ErrInternalInconsistency, "negative free rank at h=%d", w.h(i))
		}
		res.free[i] = free
		res.torsion[i] = invariantFactors(res.torsion[i])
	}
	return res, nil
}

func (hm *Homology) reduceEquivariant(ctx context.Context, w *work) error {
	type key struct{ i, q int }
	used := make(map[key]int)
	var torsion []pivot
	var torsionDeg []int

	for i := range w.mats {
		piv, err := diagonalize(ctx, w.R, w.residual(i), pickLowestU(w.R, w, i), true)
		if err != nil {
			return err
		}
		for _, p := range piv {
			used[key{i, w.q(i, p.col)}]++
			qr := w.q(i+1, p.row)
			used[key{i + 1, qr}]++
			if (qr-w.q(i, p.col))/2 > 0 {
				torsion = append(torsion, p)
				torsionDeg = append(torsionDeg, i+1)
			}
		}
	}

	for i := range w.live {
		count := make(map[int]int)
		for g := range w.live[i] {
			count[w.q(i, g)]++
		}
		for q, n := range count {
			free := n - used[key{i, q}]
			if free < 0 {
				return errors.Wrapf(khoca.ErrInternalInconsistency, "negative free rank at h=%d q=%d", w.h(i), q)
			}
			if free > 0 {
				hm.bucket(w.h(i), q).Free += free
			}
		}
	}
	for ti, p := range torsion {
		i := torsionDeg[ti]
		qr := w.q(i, p.row)
		b := hm.bucket(w.h(i), qr)
		b.UTorsion = append(b.UTorsion, (qr-w.q(i-1, p.col))/2)
		sort.Ints(b.UTorsion)
	}
	return nil
}

// reduceFiltered labels the free part by persistence: a generator that is neither a reduced column
// nor the low of one survives, at its own quantum grading.
//
// Over Z the torsion is read from the Smith normal form of each residual differential, labelled by the
// pivot row, and the persistence ranks are checked against it.
func (hm *Homology) reduceFiltered(ctx context.Context, w *work) error {
	lows := make([]map[int]bool, len(w.mats))
	nonzero := make([]map[int]bool, len(w.mats))
	for i := range w.mats {
		lows[i], nonzero[i] = w.persistence(i)
	}
	for i := range w.live {
		for _, g := range sortedKeys(w.live[i]) {
			if i < len(w.mats) && nonzero[i][g] {
				continue
			}
			if i > 0 && lows[i-1][g] {
				continue
			}
			hm.bucket(w.h(i), w.q(i, g)).Free++
		}
	}
	if w.R.IsField() {
		return nil
	}

	for i := range w.mats {
		piv, err := diagonalize(ctx, w.R, w.residual(i), pickSmallest(w.R), false)
		if err != nil {
			return err
		}
		if len(piv) != len(nonzero[i]) {
			return errors.Wrapf(khoca.ErrInternalInconsistency, "rank of d at h=%d: %d by elimination, %d by persistence",
				w.h(i), len(piv), len(nonzero[i]))
		}
		for _, p := range piv {
			if d := w.R.Order(p.val); d > 1 {
				b := hm.bucket(w.h(i+1), w.q(i+1, p.row))
				b.Torsion = append(b.Torsion, d)
			}
		}
	}
	it := hm.buckets.Iterator()
	for it.Next() {
		b := it.Value().(*Bucket)
		b.Torsion = invariantFactors(b.Torsion)
	}
	return nil
}

// checkEuler compares the alternating sum of chain ranks with that of the free ranks,
// per quantum grading when the differential preserves it and in total otherwise.
func (hm *Homology) checkEuler(cx *complex.Complex) error {
	perQ := hm.Mode == GradedMode
	chain := make(map[int]int64)
	for _, r := range cx.ChainRanks() {
		q := 0
		if perQ {
			q = r.Q
		}
		chain[q] += sign(r.H) * int64(r.N)
	}
	free := make(map[int]int64)
	for _, b := range hm.Buckets() {
		q := 0
		if perQ {
			q = b.Q
		}
		free[q] += sign(b.H) * int64(b.Free)
	}
	for q, c := range chain {
		if free[q] != c {
			return errors.Wrapf(khoca.ErrInternalInconsistency, "Euler characteristic mismatch at q=%d: chain %d, homology %d", q, c, free[q])
		}
	}
	for q, f := range free {
		if chain[q] != f {
			return errors.Wrapf(khoca.ErrInternalInconsistency, "Euler characteristic mismatch at q=%d: chain %d, homology %d", q, chain[q], f)
		}
	}
	return nil
}

func sign(h int) int64 {
	if h%2 != 0 {
		return -1
	}
	return 1
}
