package braid

import (
	"context"
	"strconv"
)

// EnumOpts bounds a braid word enumeration.
type EnumOpts struct {
	Strands      int // braid group on this many strands (2..27)
	MaxCrossings int // longest word emitted
}

// Enumerate streams link strings breadth-first by crossing count: one word per cyclic class of
// cyclically reduced words in the generators of the braid group on opts.Strands strands.
//
// Rotating a braid word conjugates the braid, so the closures within a class are the same link.
// The outlet closes when the enumeration completes or ctx is done.
func Enumerate(ctx context.Context, opts EnumOpts) <-chan string {
	outlet := make(chan string, 1)

	go func() {
		defer close(outlet)
		if opts.Strands < 2 || opts.Strands > 27 {
			return
		}
		bw := &braidWalker{
			gens:   opts.Strands - 1,
			prefix: LinkPrefix + strconv.Itoa(opts.Strands) + ":",
		}
		bw.walkingQueue = [][]int8{nil}
		for n := 1; n <= opts.MaxCrossings && ctx.Err() == nil; n++ {
			for _, word := range bw.grow() {
				if !bw.isCanonical(word) {
					continue
				}
				select {
				case outlet <- bw.linkString(word):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return outlet
}

// braidWalker holds the freely reduced words of the current length.
//
// Letters are coded 0..gens-1 for a, b, ... and gens..2*gens-1 for A, B, ...
type braidWalker struct {
	gens         int
	prefix       string
	walkingQueue [][]int8
}

func (bw *braidWalker) inverse(x int8) int8 {
	if int(x) < bw.gens {
		return x + int8(bw.gens)
	}
	return x - int8(bw.gens)
}

// grow extends every queued word by one letter, keeping words freely reduced.
func (bw *braidWalker) grow() [][]int8 {
	var deferredQueue [][]int8
	for _, word := range bw.walkingQueue {
		for x := int8(0); int(x) < 2*bw.gens; x++ {
			if len(word) > 0 && word[len(word)-1] == bw.inverse(x) {
				continue
			}
			next := make([]int8, len(word)+1)
			copy(next, word)
			next[len(word)] = x
			deferredQueue = append(deferredQueue, next)
		}
	}
	bw.walkingQueue = deferredQueue
	return deferredQueue
}

// isCanonical reports whether word is cyclically reduced and least among its rotations.
func (bw *braidWalker) isCanonical(word []int8) bool {
	N := len(word)
	if N > 1 && word[0] == bw.inverse(word[N-1]) {
		return false
	}
	for r := 1; r < N; r++ {
		for i := 0; i < N; i++ {
			a, b := word[i], word[(i+r)%N]
			if a < b {
				break
			}
			if a > b {
				return false
			}
		}
	}
	return true
}

func (bw *braidWalker) linkString(word []int8) string {
	buf := make([]byte, 0, len(bw.prefix)+len(word))
	buf = append(buf, bw.prefix...)
	for _, x := range word {
		if int(x) < bw.gens {
			buf = append(buf, 'a'+byte(x))
		} else {
			buf = append(buf, 'A'+byte(int(x)-bw.gens))
		}
	}
	return string(buf)
}
