// Package braid holds link diagrams given as closed braids.
//
// A braid word is a sequence of letters; letter 'a'+p is a positive crossing of strands p and p+1
// (counting from 0), and 'A'+p is the corresponding negative crossing.
package braid

import (
	"strconv"
	"strings"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/pkg/errors"
)

// MaxStrands is the most strands a braid word can address ('z' joins strands 25 and 26).
const MaxStrands = 27

type Crossing struct {
	Strand int  // left strand p; the crossing exchanges p and p+1
	Sign   int8 // +1 or -1
}

// Letter returns the braid word letter for this crossing.
func (c Crossing) Letter() byte {
	if c.Sign < 0 {
		return byte('A' + c.Strand)
	}
	return byte('a' + c.Strand)
}

// Diagram is a closed braid diagram.  Crossings are numbered top to bottom.
type Diagram struct {
	strands   int
	crossings []Crossing
	numNeg    int
}

// New validates and returns a diagram.
func New(strands int, crossings []Crossing) (*Diagram, error) {
	if strands < 1 || strands > MaxStrands {
		return nil, errors.Wrapf(khoca.ErrMalformedDiagram, "strand count %d out of range", strands)
	}
	d := &Diagram{
		strands:   strands,
		crossings: make([]Crossing, len(crossings)),
	}
	for i, c := range crossings {
		if c.Strand < 0 || c.Strand+1 >= strands {
			return nil, errors.Wrapf(khoca.ErrMalformedDiagram, "crossing %d joins strands %d and %d of %d", i, c.Strand, c.Strand+1, strands)
		}
		switch c.Sign {
		case 1:
		case -1:
			d.numNeg++
		default:
			return nil, errors.Wrapf(khoca.ErrMalformedDiagram, "crossing %d has sign %d", i, c.Sign)
		}
		d.crossings[i] = c
	}
	return d, nil
}

// Trivial returns the closure of the identity braid on the given number of strands:
// an unlink with one unknotted component per strand.
func Trivial(strands int) *Diagram {
	if strands < 1 {
		strands = 1
	}
	return &Diagram{
		strands: strands,
	}
}

func (d *Diagram) Strands() int {
	return d.strands
}

func (d *Diagram) NumCrossings() int {
	return len(d.crossings)
}

func (d *Diagram) NumPositive() int {
	return len(d.crossings) - d.numNeg
}

func (d *Diagram) NumNegative() int {
	return d.numNeg
}

func (d *Diagram) Writhe() int {
	return d.NumPositive() - d.numNeg
}

func (d *Diagram) Crossing(i int) Crossing {
	return d.crossings[i]
}

// Crossings returns a copy of the crossing list.
func (d *Diagram) Crossings() []Crossing {
	return append([]Crossing(nil), d.crossings...)
}

// NumComponents returns the number of link components (cycles of the braid permutation).
func (d *Diagram) NumComponents() int {
	perm := make([]int, d.strands)
	for i := range perm {
		perm[i] = i
	}
	for _, c := range d.crossings {
		perm[c.Strand], perm[c.Strand+1] = perm[c.Strand+1], perm[c.Strand]
	}
	seen := make([]bool, d.strands)
	N := 0
	for i := range perm {
		if seen[i] {
			continue
		}
		N++
		for j := i; !seen[j]; j = perm[j] {
			seen[j] = true
		}
	}
	return N
}

// Word returns the braid word (letters only).
func (d *Diagram) Word() string {
	buf := make([]byte, len(d.crossings))
	for i, c := range d.crossings {
		buf[i] = c.Letter()
	}
	return string(buf)
}

// String returns the canonical link string: "braid" followed by the word, with an explicit
// strand count whenever it differs from the count the letters imply.
func (d *Diagram) String() string {
	var b strings.Builder
	b.WriteString(LinkPrefix)
	if d.strands != d.impliedStrands() {
		b.WriteString(strconv.Itoa(d.strands))
		b.WriteByte(':')
	}
	b.WriteString(d.Word())
	return b.String()
}

func (d *Diagram) impliedStrands() int {
	strands := 1
	for _, c := range d.crossings {
		if c.Strand+2 > strands {
			strands = c.Strand + 2
		}
	}
	return strands
}
