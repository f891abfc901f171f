// Package render turns reduced homology into generator tuples, polynomials, and message lines.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh/frobenius"
	"github.com/fine-structures/go-khoca/libkh/homology"
	"github.com/fine-structures/go-khoca/libkh/ring"
)

// Generators lists one summand per free rank and torsion factor:
// free summands ordered by (h, q), then torsion summands ordered by (h, q, order).
func Generators(hm *homology.Homology) []khoca.Generator {
	var free, torsion []khoca.Generator
	for _, b := range hm.Buckets() {
		g := khoca.Generator{Q: b.Q, H: b.H, Marked: hm.Reduced}
		for i := 0; i < b.Free; i++ {
			free = append(free, g)
		}
		for _, d := range b.Torsion {
			g.Torsion = d
			torsion = append(torsion, g)
		}
		for _, m := range b.UTorsion {
			g.Torsion = -int64(m)
			torsion = append(torsion, g)
		}
		for _, p := range b.Divisors {
			g.Torsion = -int64(p.Degree())
			g.Divisor = append([]int64(nil), p...)
			torsion = append(torsion, g)
		}
	}
	sort.SliceStable(torsion, func(i, j int) bool {
		return compareGenerators(torsion[i], torsion[j]) < 0
	})
	return append(free, torsion...)
}

// compareGenerators orders by (free first, h, q, u-torsion before Z-torsion, order).
func compareGenerators(a, b khoca.Generator) int {
	switch {
	case a.IsFree() != b.IsFree():
		if a.IsFree() {
			return -1
		}
		return 1
	case a.H != b.H:
		return cmpInt(int64(a.H), int64(b.H))
	case a.Q != b.Q:
		return cmpInt(int64(a.Q), int64(b.Q))
	case a.Torsion != b.Torsion:
		return cmpInt(a.Torsion, b.Torsion)
	}
	return ring.Poly(a.Divisor).Compare(ring.Poly(b.Divisor))
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Polynomial renders generators as "t^<h>q^<q>" terms, repeated summands collapsed into a count,
// free terms first and torsion terms suffixed with "[d]", "[u^m]" or "[p(u)]".  No generators renders as "0".
func Polynomial(gens []khoca.Generator) string {
	terms := redblacktree.NewWith(func(a, b interface{}) int {
		return compareGenerators(a.(khoca.Generator), b.(khoca.Generator))
	})
	for _, g := range gens {
		g.Marked = false
		n := 0
		if v, found := terms.Get(g); found {
			n = v.(int)
		}
		terms.Put(g, n+1)
	}
	if terms.Empty() {
		return "0"
	}

	var b strings.Builder
	it := terms.Iterator()
	for it.Next() {
		g, n := it.Key().(khoca.Generator), it.Value().(int)
		if b.Len() > 0 {
			b.WriteString(" + ")
		}
		if n > 1 {
			fmt.Fprintf(&b, "%d", n)
		}
		fmt.Fprintf(&b, "t^%dq^%d", g.H, g.Q)
		switch {
		case g.Torsion > 0:
			fmt.Fprintf(&b, "[%d]", g.Torsion)
		case len(g.Divisor) > 0:
			fmt.Fprintf(&b, "[%s]", ring.Poly(g.Divisor).Format("u"))
		case g.Torsion < 0:
			fmt.Fprintf(&b, "[u^%d]", -g.Torsion)
		}
	}
	return b.String()
}

// Euler renders the graded Euler characteristic sum (-1)^h q^q of the free summands, ascending in q.
func Euler(gens []khoca.Generator) string {
	chi := make(map[int]int64)
	for _, g := range gens {
		if !g.IsFree() {
			continue
		}
		if g.H%2 == 0 {
			chi[g.Q]++
		} else {
			chi[g.Q]--
		}
	}
	qs := make([]int, 0, len(chi))
	for q, c := range chi {
		if c != 0 {
			qs = append(qs, q)
		}
	}
	if len(qs) == 0 {
		return "0"
	}
	sort.Ints(qs)

	var b strings.Builder
	for _, q := range qs {
		c := chi[q]
		switch {
		case b.Len() == 0 && c < 0:
			b.WriteString("-")
		case b.Len() > 0 && c < 0:
			b.WriteString(" - ")
		case b.Len() > 0:
			b.WriteString(" + ")
		}
		if c < 0 {
			c = -c
		}
		mono := ""
		switch q {
		case 0:
		case 1:
			mono = "q"
		default:
			mono = fmt.Sprintf("q^%d", q)
		}
		switch {
		case mono == "":
			fmt.Fprintf(&b, "%d", c)
		case c == 1:
			b.WriteString(mono)
		default:
			fmt.Fprintf(&b, "%d%s", c, mono)
		}
	}
	return b.String()
}

// PresentationLines summarises a module presentation, one line per homological degree.
func PresentationLines(P *khoca.Presentation) []string {
	lines := make([]string, 0, len(P.Degrees))
	for _, deg := range P.Degrees {
		if len(deg.Q) == 0 {
			continue
		}
		qs := make([]string, len(deg.Q))
		for i, q := range deg.Q {
			qs[i] = fmt.Sprintf("q^%d", q)
		}
		lines = append(lines, fmt.Sprintf("t^%d: %d generators (%s), %d differential entries",
			deg.H, len(deg.Q), strings.Join(qs, " "), len(deg.Entries)))
	}
	return lines
}

// VariantText is the line reported for a variant in the result messages.
func VariantText(vr *khoca.VariantResult) string {
	if vr.Presentation != nil {
		return fmt.Sprintf("Presentation with %d generators", vr.Presentation.NumGenerators())
	}
	return vr.Polynomial
}

// Messages renders result lines grouped by reduced / unreduced, in the order given.
func Messages(variants []*khoca.VariantResult) []string {
	lines := []string{"Result:"}
	for _, reduced := range []bool{true, false} {
		header := false
		for _, vr := range variants {
			if vr.Variant.Reduced != reduced {
				continue
			}
			if !header {
				if reduced {
					lines = append(lines, "Reduced Homology:")
				} else {
					lines = append(lines, "Unreduced Homology:")
				}
				header = true
			}
			if vr.Variant.Equivariant {
				lines = append(lines, "Equivariant homology:")
			} else {
				lines = append(lines, "Non-equivariant homology:")
			}
			lines = append(lines, VariantText(vr))
			if vr.Presentation != nil {
				lines = append(lines, PresentationLines(vr.Presentation)...)
			}
		}
	}
	return lines
}

// AlgebraLine is the banner naming the Frobenius algebra in use.
func AlgebraLine(A *frobenius.Algebra) string {
	return fmt.Sprintf("Frobenius algebra: %v.", A)
}

// LiftLine names the equivariant lift used for equivariant variants.
func LiftLine(A *frobenius.Algebra) string {
	return fmt.Sprintf("Equivariant lift: %s.", A.LiftString())
}
