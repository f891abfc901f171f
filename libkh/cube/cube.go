// Package cube builds the cube of resolutions of a closed braid diagram.
//
// Vertex v is a bit vector over crossings; bit i set means crossing i takes its 1-smoothing.
// For a positive crossing the 0-smoothing is the oriented (vertical) one and the 1-smoothing
// joins the two upper ends and the two lower ends; a negative crossing is the reverse.
//
// Arcs are cut into segments: segment (j, s) is strand s just above crossing j, and level n
// is identified with level 0 by the braid closure.  Circles of a resolution are ordered by their
// least segment, and the marked circle is the one holding segment (0, 0).
package cube

import (
	"context"
	"math/bits"
	"sync"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh/braid"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

type Opts struct {
	Workers       int
	MaxCrossings  int
	MaxGenerators int64

	// Rank and Reduced size the generator estimate checked against MaxGenerators.
	Rank    int
	Reduced bool
}

// Vertex is one complete resolution.
type Vertex struct {
	Bits       uint64
	NumCircles int
	Marked     int     // circle holding segment (0, 0)
	circleOf   []int32 // segment -> circle index
}

// CircleOf returns the circle index of a segment.
func (v *Vertex) CircleOf(seg int) int {
	return int(v.circleOf[seg])
}

// Check verifies the marked circle and every segment label lie in [0, NumCircles).
func (v *Vertex) Check() error {
	if v.Marked < 0 || v.Marked >= v.NumCircles {
		return errors.Wrapf(khoca.ErrInvariantViolation, "vertex %b: marked circle %d of %d", v.Bits, v.Marked, v.NumCircles)
	}
	for seg, ci := range v.circleOf {
		if ci < 0 || int(ci) >= v.NumCircles {
			return errors.Wrapf(khoca.ErrInvariantViolation, "vertex %b: segment %d on circle %d of %d", v.Bits, seg, ci, v.NumCircles)
		}
	}
	return nil
}

// Height returns the number of 1-smoothings.
func (v *Vertex) Height() int {
	return bits.OnesCount64(v.Bits)
}

type Cube struct {
	diagram  *braid.Diagram
	levels   int
	vertices []Vertex
}

// Build resolves every vertex of the cube of d.
func Build(ctx context.Context, d *braid.Diagram, opts Opts) (*Cube, error) {
	n := d.NumCrossings()
	if opts.MaxCrossings > 0 && n > opts.MaxCrossings {
		return nil, errors.Wrapf(khoca.ErrResourceLimitExceeded, "%d crossings exceeds limit of %d", n, opts.MaxCrossings)
	}
	if n > 62 {
		return nil, errors.Wrapf(khoca.ErrResourceLimitExceeded, "%d crossings", n)
	}
	if opts.MaxGenerators > 0 && opts.Rank > 0 {
		est := EstimateSize(d, opts.Rank, opts.Reduced)
		if est.Generators > opts.MaxGenerators {
			return nil, errors.Wrapf(khoca.ErrResourceLimitExceeded, "%d chain generators exceeds limit of %d", est.Generators, opts.MaxGenerators)
		}
	}

	c := &Cube{
		diagram:  d,
		levels:   max(n, 1),
		vertices: make([]Vertex, 1<<n),
	}

	workers := max(opts.Workers, 1)
	jobs := make(chan uint64, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uf := newUnionFind(c.numSegments())
			for v := range jobs {
				c.vertices[v] = c.resolve(v, uf)
			}
		}()
	}

	var err error
feed:
	for v := uint64(0); v < uint64(len(c.vertices)); v++ {
		select {
		case <-ctx.Done():
			err = errors.Wrap(khoca.ErrCancelled, "building cube")
			break feed
		case jobs <- v:
		}
	}
	close(jobs)
	wg.Wait()
	if err != nil {
		return nil, err
	}
	for v := range c.vertices {
		if err = c.vertices[v].Check(); err != nil {
			return nil, err
		}
	}

	klog.V(2).Infof("cube: %d crossings, %d vertices, %d segments", n, len(c.vertices), c.numSegments())
	return c, nil
}

func (c *Cube) Diagram() *braid.Diagram {
	return c.diagram
}

func (c *Cube) NumCrossings() int {
	return c.diagram.NumCrossings()
}

func (c *Cube) NumVertices() int {
	return len(c.vertices)
}

func (c *Cube) Vertex(v uint64) *Vertex {
	return &c.vertices[v]
}

// HomDegree returns the homological degree |v| - n- of a vertex.
func (c *Cube) HomDegree(v uint64) int {
	return bits.OnesCount64(v) - c.diagram.NumNegative()
}

func (c *Cube) numSegments() int {
	return c.levels * c.diagram.Strands()
}

func (c *Cube) segment(level, strand int) int {
	return (level%c.levels)*c.diagram.Strands() + strand
}

// crossingEnds returns the segments at the top-left, top-right, bottom-left and bottom-right of crossing j.
func (c *Cube) crossingEnds(j int) (tl, tr, bl, br int) {
	p := c.diagram.Crossing(j).Strand
	return c.segment(j, p), c.segment(j, p+1), c.segment(j+1, p), c.segment(j+1, p+1)
}

// horizontal reports if crossing j takes the smoothing joining its two upper ends at vertex v.
func (c *Cube) horizontal(v uint64, j int) bool {
	one := v&(1<<uint(j)) != 0
	if c.diagram.Crossing(j).Sign > 0 {
		return one
	}
	return !one
}

func (c *Cube) resolve(v uint64, uf *unionFind) Vertex {
	uf.reset()
	strands := c.diagram.Strands()
	for j := 0; j < c.diagram.NumCrossings(); j++ {
		p := c.diagram.Crossing(j).Strand
		for s := 0; s < strands; s++ {
			if s != p && s != p+1 {
				uf.union(c.segment(j, s), c.segment(j+1, s))
			}
		}
		tl, tr, bl, br := c.crossingEnds(j)
		if c.horizontal(v, j) {
			uf.union(tl, tr)
			uf.union(bl, br)
		} else {
			uf.union(tl, bl)
			uf.union(tr, br)
		}
	}

	vtx := Vertex{
		Bits:     v,
		circleOf: make([]int32, c.numSegments()),
	}
	label := make(map[int]int32, 4)
	for seg := range vtx.circleOf {
		root := uf.find(seg)
		idx, exists := label[root]
		if !exists {
			idx = int32(len(label))
			label[root] = idx
		}
		vtx.circleOf[seg] = idx
	}
	vtx.NumCircles = len(label)
	vtx.Marked = int(vtx.circleOf[c.segment(0, 0)])
	return vtx
}

// Estimate sizes a cube before it is built.
type Estimate struct {
	Vertices   int64
	Generators int64 // saturates at MaxInt64
	MaxCircles int
}

// EstimateSize counts circles at every vertex without storing resolutions.
func EstimateSize(d *braid.Diagram, rank int, reduced bool) Estimate {
	n := d.NumCrossings()
	if n > 62 {
		return Estimate{Vertices: -1, Generators: 1<<63 - 1}
	}
	c := &Cube{diagram: d, levels: max(n, 1)}
	uf := newUnionFind(c.numSegments())

	est := Estimate{Vertices: int64(1) << n}
	for v := uint64(0); v < uint64(est.Vertices); v++ {
		vtx := c.resolve(v, uf)
		est.MaxCircles = max(est.MaxCircles, vtx.NumCircles)
		circles := vtx.NumCircles
		if reduced {
			circles--
		}
		est.Generators = saturatingAdd(est.Generators, saturatingPow(int64(rank), circles))
	}
	return est
}

func saturatingAdd(a, b int64) int64 {
	if a > 1<<63-1-b {
		return 1<<63 - 1
	}
	return a + b
}

func saturatingPow(base int64, exp int) int64 {
	acc := int64(1)
	for ; exp > 0; exp-- {
		if base != 0 && acc > (1<<63-1)/base {
			return 1<<63 - 1
		}
		acc *= base
	}
	return acc
}

type unionFind struct {
	parent []int
}

func newUnionFind(N int) *unionFind {
	return &unionFind{parent: make([]int, N)}
}

func (uf *unionFind) reset() {
	for i := range uf.parent {
		uf.parent[i] = i
	}
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra < rb {
		uf.parent[rb] = ra
	} else if rb < ra {
		uf.parent[ra] = rb
	}
}
