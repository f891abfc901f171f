package cube

import (
	"math/bits"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/pkg/errors"
)

type MoveKind int8

const (
	Merge MoveKind = iota + 1
	Split
)

func (kind MoveKind) String() string {
	switch kind {
	case Merge:
		return "merge"
	case Split:
		return "split"
	}
	return "?"
}

// Edge is the cobordism between vertex From and To = From | 1<<Bit.
type Edge struct {
	From, To uint64
	Bit      int
	Sign     int8 // (-1)^(number of 1s in From below Bit)
	Kind     MoveKind

	// In lists the affected circles of From (2 for a merge, 1 for a split) and Out those of To.
	In  []int
	Out []int

	// Passive maps each circle of From to its circle in To; affected circles map to -1.
	Passive []int
}

// Edge classifies the cobordism leaving vertex from by flipping bit from 0 to 1.
func (c *Cube) Edge(from uint64, bit int) (Edge, error) {
	if bit < 0 || bit >= c.NumCrossings() || from&(1<<uint(bit)) != 0 {
		return Edge{}, errors.Wrapf(khoca.ErrInvariantViolation, "no edge leaves vertex %b along bit %d", from, bit)
	}
	to := from | 1<<uint(bit)
	V, W := &c.vertices[from], &c.vertices[to]

	e := Edge{
		From: from,
		To:   to,
		Bit:  bit,
		Sign: 1,
	}
	if bits.OnesCount64(from&(1<<uint(bit)-1))%2 == 1 {
		e.Sign = -1
	}

	tl, tr, bl, br := c.crossingEnds(bit)
	ends := [4]int{tl, tr, bl, br}
	for _, seg := range ends {
		e.In = appendUnique(e.In, V.CircleOf(seg))
		e.Out = appendUnique(e.Out, W.CircleOf(seg))
	}

	switch {
	case len(e.In) == 2 && len(e.Out) == 1:
		e.Kind = Merge
	case len(e.In) == 1 && len(e.Out) == 2:
		e.Kind = Split
	default:
		return Edge{}, errors.Wrapf(khoca.ErrInvariantViolation, "edge %b -> %b touches %d and %d circles", from, to, len(e.In), len(e.Out))
	}

	e.Passive = make([]int, V.NumCircles)
	for i := range e.Passive {
		e.Passive[i] = -1
	}
	for seg := range V.circleOf {
		ci := V.CircleOf(seg)
		if containsInt(e.In, ci) || e.Passive[ci] >= 0 {
			continue
		}
		e.Passive[ci] = W.CircleOf(seg)
	}

	if V.NumCircles-len(e.In) != W.NumCircles-len(e.Out) {
		return Edge{}, errors.Wrapf(khoca.ErrInvariantViolation, "edge %b -> %b changes passive circle count", from, to)
	}
	return e, nil
}

func appendUnique(list []int, x int) []int {
	if containsInt(list, x) {
		return list
	}
	return append(list, x)
}

func containsInt(list []int, x int) bool {
	for _, y := range list {
		if y == x {
			return true
		}
	}
	return false
}
