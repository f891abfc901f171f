package libkh

import (
	"context"
	"strings"
	"testing"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh/catalog"
	"github.com/stretchr/testify/require"
)

func TestParseRing(t *testing.T) {
	for spec, name := range map[string]string{
		"0": "Z",
		"Z": "Z",
		"Q": "Q",
		"2": "F_2",
		"5": "F_5",
	} {
		R, err := ParseRing(spec)
		require.NoError(t, err, spec)
		require.Equal(t, name, R.String(), spec)
	}
	for _, spec := range []string{"4", "-3", "R", "", "[2]"} {
		_, err := ParseRing(spec)
		require.Equal(t, khoca.KindUnsupportedRing, khoca.KindOf(err), spec)
	}
}

func TestParseAlgebra(t *testing.T) {
	for spec, coeffs := range map[string][]int64{
		"0.0":        {0, 0, 1},
		"-1.0":       {-1, 0, 1},
		"0.0.0":      {0, 0, 0, 1},
		"[0,0,1]":    {0, 0, 1},
		"[-1, 0, 1]": {-1, 0, 1},
		"5":          {5, 1},
	} {
		got, err := ParseAlgebra(spec)
		require.NoError(t, err, spec)
		require.Equal(t, coeffs, got, spec)
	}
	for _, spec := range []string{"", "[1]", "[]", "x.y"} {
		_, err := ParseAlgebra(spec)
		require.Equal(t, khoca.KindUnsupportedAlgebra, khoca.KindOf(err), spec)
	}
}

func TestParseRoot(t *testing.T) {
	root, err := ParseRoot("0")
	require.NoError(t, err)
	require.Equal(t, int64(0), root.Value)

	root, err = ParseRoot("-1")
	require.NoError(t, err)
	require.Equal(t, int64(-1), root.Value)

	root, err = ParseRoot("u")
	require.NoError(t, err)
	require.Equal(t, "u", root.Symbol)
	require.Equal(t, int64(0), root.Value)

	root, err = ParseRoot("h=1")
	require.NoError(t, err)
	require.Equal(t, "h", root.Symbol)
	require.Equal(t, int64(1), root.Value)

	_, err = ParseRoot("=1")
	require.Equal(t, khoca.KindUnsupportedAlgebra, khoca.KindOf(err))
}

func TestParseCommand(t *testing.T) {
	for spec, cmd := range map[string]khoca.Command{
		"calc0": khoca.CalcNonEquivariant,
		"calc1": khoca.CalcEquivariant,
		"calc2": khoca.CalcBoth,
		"CALC2": khoca.CalcBoth,
	} {
		got, err := ParseCommand(spec)
		require.NoError(t, err, spec)
		require.Equal(t, cmd, got, spec)
	}
	for _, spec := range []string{"calc3", "", "calc 0"} {
		_, err := ParseCommand(spec)
		require.Equal(t, khoca.KindUnsupportedCommand, khoca.KindOf(err), spec)
	}
}

func newCalc(t *testing.T, ringSpec, algebraSpec, rootSpec string) *Calculator {
	t.Helper()
	calc, err := NewCalculator(ringSpec, algebraSpec, rootSpec, khoca.DefaultOptions)
	require.NoError(t, err)
	return calc
}

func TestTrefoilMessages(t *testing.T) {
	calc := newCalc(t, "0", "0.0", "0")
	require.Equal(t, []string{
		"Frobenius algebra: Z[X] / (1*X^2).",
		"Equivariant lift: Z[u][X] / (1*X^2 + -u*X).",
	}, calc.Banner())

	res, err := calc.Compute(context.Background(), "braidaaa", "calc0")
	require.NoError(t, err)
	require.NoError(t, res.Err)
	require.Equal(t, "braidaaa", res.Link)
	require.NotEmpty(t, res.RunID)
	require.Equal(t, []string{
		"Result:",
		"Reduced Homology:",
		"Non-equivariant homology:",
		"t^0q^2 + t^2q^6 + t^3q^8",
		"Unreduced Homology:",
		"Non-equivariant homology:",
		"t^0q^1 + t^0q^3 + t^2q^5 + t^3q^9 + t^3q^7[2]",
	}, res.Messages)

	require.Equal(t, [][][4]int64{
		{{2, 0, 1, 0}, {6, 2, 1, 0}, {8, 3, 1, 0}},
		{{1, 0, 0, 0}, {3, 0, 0, 0}, {5, 2, 0, 0}, {9, 3, 0, 0}, {7, 3, 0, 2}},
	}, res.Tuples())

	// the prefix is optional and the result is keyed by the canonical link
	again, err := calc.Compute(context.Background(), "aaa", "calc0")
	require.NoError(t, err)
	require.Equal(t, "braidaaa", again.Link)
	require.Equal(t, res.Tuples(), again.Tuples())
	require.NotEqual(t, res.RunID, again.RunID)
}

func TestCalcBoth(t *testing.T) {
	calc := newCalc(t, "Q", "0.0", "0")

	res, err := calc.Compute(context.Background(), "braidaaa", "calc2")
	require.NoError(t, err)
	require.Equal(t, []string{
		"Result:",
		"Reduced Homology:",
		"Non-equivariant homology:",
		"t^0q^2 + t^2q^6 + t^3q^8",
		"Equivariant homology:",
		"t^0q^2 + t^3q^8[u^1]",
		"Unreduced Homology:",
		"Non-equivariant homology:",
		"t^0q^1 + t^0q^3 + t^2q^5 + t^3q^9",
		"Equivariant homology:",
		"t^0q^1 + t^0q^3 + t^3q^9[u^2]",
	}, res.Messages)

	only, err := calc.Compute(context.Background(), "braidaaa", "calc1")
	require.NoError(t, err)
	require.Len(t, only.Variants, 2)
	require.Equal(t, res.Variants[1].Polynomial, only.Variants[0].Polynomial)
	require.Equal(t, res.Variants[3].Polynomial, only.Variants[1].Polynomial)
}

func TestIntegralEquivariantIsPresented(t *testing.T) {
	calc := newCalc(t, "0", "0.0", "0")
	res, err := calc.Compute(context.Background(), "braidaaa", "calc1")
	require.NoError(t, err)
	for _, vr := range res.Variants {
		require.NotNil(t, vr.Presentation)
		require.Positive(t, vr.Presentation.NumGenerators())
	}

	opts := khoca.DefaultOptions
	opts.AllowPresentation = false
	strict, err := NewCalculator("0", "0.0", "0", opts)
	require.NoError(t, err)
	_, err = strict.Compute(context.Background(), "braidaaa", "calc1")
	require.Equal(t, khoca.KindUnsupportedRing, khoca.KindOf(err))
}

func TestErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewCalculator("4", "0.0", "0", khoca.DefaultOptions)
	require.Equal(t, khoca.KindUnsupportedRing, khoca.KindOf(err))

	_, err = NewCalculator("0", "[0,0,2]", "0", khoca.DefaultOptions)
	require.Equal(t, khoca.KindUnsupportedAlgebra, khoca.KindOf(err))

	_, err = NewCalculator("0", "-1.0", "2", khoca.DefaultOptions)
	require.Equal(t, khoca.KindUnsupportedAlgebra, khoca.KindOf(err))

	calc := newCalc(t, "0", "0.0", "0")
	for link, kind := range map[string]khoca.Kind{
		"braid":     khoca.KindMalformedDiagram,
		"braida1a":  khoca.KindMalformedDiagram,
		"knot3_1":   khoca.KindMalformedDiagram,
		"braid1:aa": khoca.KindMalformedDiagram,
	} {
		res, err := calc.Compute(ctx, link, "calc0")
		require.Equal(t, kind, khoca.KindOf(err), link)
		require.Equal(t, err, res.Err)
	}

	res, err := calc.Compute(ctx, "braidaaa", "calc9")
	require.Equal(t, khoca.KindUnsupportedCommand, khoca.KindOf(err))
	require.Empty(t, res.Variants)

	opts := khoca.DefaultOptions
	opts.MaxCrossings = 2
	small, err := NewCalculator("0", "0.0", "0", opts)
	require.NoError(t, err)
	_, err = small.Compute(ctx, "braidaaa", "calc0")
	require.Equal(t, khoca.KindResourceLimitExceeded, khoca.KindOf(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = calc.Compute(cancelled, "braidaBaBaB", "calc0")
	require.Equal(t, khoca.KindCancelled, khoca.KindOf(err))
}

func TestAttachCatalog(t *testing.T) {
	catCtx := khoca.NewCatalogContext()
	defer catCtx.Close()

	cat, err := catalog.OpenCatalog(catCtx, khoca.CatalogOpts{})
	require.NoError(t, err)
	defer cat.Close()

	calc := newCalc(t, "0", "0.0", "0")
	calc.AttachCatalog(cat)
	require.Equal(t, khoca.CatalogSelector{Ring: "Z", Algebra: "[0 0 1]", Root: "u=0"}, calc.Setup())

	res, err := calc.Compute(context.Background(), "braidaBaB", "calc0")
	require.NoError(t, err)
	require.EqualValues(t, 2, cat.NumEntries())

	key := khoca.CatalogKey{Ring: "Z", Algebra: "[0 0 1]", Root: "u=0", Link: "braidaBaB"}
	vr, found := cat.Lookup(key)
	require.True(t, found)
	require.Equal(t, res.Variants[1].Polynomial, vr.Polynomial)

	// a second calculator over the same setup reads the stored results
	other := newCalc(t, "Z", "[0,0,1]", "u")
	other.AttachCatalog(cat)
	again, err := other.Compute(context.Background(), "aBaB", "calc0")
	require.NoError(t, err)
	require.Equal(t, res.Messages, again.Messages)
	require.EqualValues(t, 2, cat.NumEntries())
}

func TestStream(t *testing.T) {
	calc := newCalc(t, "2", "0.0", "0")

	links := StreamLinks("braidaaa", "aaa", "braidaBaB", "braid", "braid2:aaa")
	results := calc.Stream(context.Background(), links, "calc0").PullAll()
	require.Len(t, results, 3)

	require.Equal(t, "braidaaa", results[0].Link)
	require.NoError(t, results[0].Err)
	require.Equal(t, "braidaBaB", results[1].Link)
	require.NoError(t, results[1].Err)
	require.Equal(t, "braid", results[2].Link)
	require.Equal(t, khoca.KindMalformedDiagram, khoca.KindOf(results[2].Err))

	catCtx := khoca.NewCatalogContext()
	defer catCtx.Close()
	cat, err := catalog.OpenCatalog(catCtx, khoca.CatalogOpts{})
	require.NoError(t, err)
	defer cat.Close()

	added := calc.Stream(context.Background(), StreamLinks("aa", "aaa", "braid"), "calc0").
		AddTo(cat, calc.Setup()).
		PullAll()
	require.Len(t, added, 2)
	require.EqualValues(t, 4, cat.NumEntries())

	count := 0
	for entry := range khoca.SelectFromCatalog(cat, calc.Setup()) {
		require.Equal(t, "F_2", entry.Key.Ring)
		count++
	}
	require.Equal(t, 4, count)
}

func TestRun(t *testing.T) {
	res, err := Run(context.Background(), khoca.Request{
		Ring:    "Q",
		Algebra: "-1.0",
		Root:    "1",
		Link:    "braidaaa",
		Command: "calc0",
	}, khoca.DefaultOptions)
	require.NoError(t, err)
	require.Equal(t, "t^0q^1 + t^0q^3", res.Variants[1].Polynomial)

	_, err = Run(context.Background(), khoca.Request{Ring: "6"}, khoca.DefaultOptions)
	require.Equal(t, khoca.KindUnsupportedRing, khoca.KindOf(err))
}

func TestLinkSet(t *testing.T) {
	set := NewLinkSet()
	defer set.Close()
	tryAdd := func(link string) bool {
		added, err := set.TryAdd(link)
		require.NoError(t, err)
		return added
	}
	require.True(t, tryAdd("braidaaa"))
	require.False(t, tryAdd("braidaaa"))
	require.True(t, tryAdd("braidaBaB"))

	set.Close()
	require.True(t, tryAdd("braidaaa"))
	set.Close()
	set.Close()
}

func TestResultMemo(t *testing.T) {
	memo := NewResultMemo().(*resultMemo)
	memo.poolSz = 32

	vr := &khoca.VariantResult{Polynomial: "t^0q^1"}
	keys := make([]khoca.CatalogKey, 0, 8)
	for _, link := range []string{"braida", "braidaa", "braidaaa", "braidaBaB", "braidaBaBaB"} {
		keys = append(keys, khoca.CatalogKey{Ring: "Z", Algebra: "[0 0 1]", Root: "u=0", Link: link})
	}
	for _, k := range keys {
		require.True(t, memo.TryAdd(k, vr))
		require.False(t, memo.TryAdd(k, vr))
	}
	for _, k := range keys {
		got, found := memo.Lookup(k)
		require.True(t, found)
		require.Same(t, vr, got)

		k.Variant.Reduced = true
		_, found = memo.Lookup(k)
		require.False(t, found)
	}
}

func TestUngradedLift(t *testing.T) {
	ctx := context.Background()

	// X^2 - 1 lifts to (X - u)(X + 1): singular at u = -1
	calc := newCalc(t, "Q", "-1.0", "1")
	res, err := calc.Compute(ctx, "braidaaa", "calc2")
	require.NoError(t, err)
	require.Len(t, res.Variants, 4)
	require.Equal(t, "t^0q^1 + t^0q^3", res.Variants[2].Polynomial)
	unreduced := res.Variants[3]
	require.True(t, unreduced.Variant.Equivariant)
	require.Contains(t, unreduced.Polynomial, "[u^2 + 2*u + 1]")

	free, torsion := 0, 0
	for _, g := range unreduced.Generators {
		if g.IsFree() {
			require.Equal(t, 0, g.H)
			free++
			continue
		}
		require.Equal(t, 3, g.H)
		require.Equal(t, int64(-2), g.Torsion)
		require.Equal(t, []int64{1, 2, 1}, g.Divisor)
		torsion++
	}
	require.Equal(t, 2, free)
	require.Equal(t, 1, torsion)

	only, err := newCalc(t, "Q", "-1.0", "1").Compute(ctx, "braidaaa", "calc0")
	require.NoError(t, err)
	require.Equal(t, only.Variants[0].Polynomial, res.Variants[0].Polynomial)
	require.Equal(t, only.Variants[1].Polynomial, res.Variants[2].Polynomial)

	// X^2 + X over F_2 lifts to (X - u)(X + 1): singular at u = 1
	calc = newCalc(t, "2", "0.1", "0")
	res, err = calc.Compute(ctx, "braidaaa", "calc1")
	require.NoError(t, err)
	require.Contains(t, res.Variants[1].Polynomial, "[u^2 + 1]")
}

func TestIntegralFiltered(t *testing.T) {
	calc := newCalc(t, "0", "-1.0", "1")
	res, err := calc.Compute(context.Background(), "braidaaa", "calc0")
	require.NoError(t, err)

	unreduced := res.Variants[1]
	require.True(t, strings.HasPrefix(unreduced.Polynomial, "t^0q^1 + t^0q^3"), unreduced.Polynomial)
	torsion := 0
	for _, g := range unreduced.Generators {
		if g.IsFree() {
			require.Equal(t, 0, g.H)
			continue
		}
		require.Zero(t, g.Torsion&(g.Torsion-1), "torsion %d", g.Torsion)
		torsion++
	}
	require.Equal(t, 2, torsion)
}

// Homology is a link invariant: braid words with isotopic closures give the same result.
func TestBraidInvariance(t *testing.T) {
	pairs := [][2]string{
		{"braidaBaB", "braidBaBa"},   // conjugation
		{"braidabab", "braidbaba"},   // conjugation
		{"braidaaa", "braid3:aaaB"},  // stabilization
		{"braidaaa", "braid3:aaab"},  // stabilization
		{"braidaba", "braidbab"},     // braid relation
		{"braidaaBaB", "braidBaBaa"}, // conjugation
	}
	setups := []struct {
		ring, algebra, root, cmd string
	}{
		{"0", "0.0", "0", "calc0"},
		{"Q", "0.0", "0", "calc2"},
		{"2", "0.0", "0", "calc2"},
		{"3", "0.0", "0", "calc2"},
		{"Q", "-1.0", "1", "calc0"},
		{"3", "-1.0", "1", "calc0"},
	}
	for _, s := range setups {
		calc := newCalc(t, s.ring, s.algebra, s.root)
		for _, pair := range pairs {
			a, err := calc.Compute(context.Background(), pair[0], s.cmd)
			require.NoError(t, err, pair[0])
			b, err := calc.Compute(context.Background(), pair[1], s.cmd)
			require.NoError(t, err, pair[1])
			require.Equal(t, a.Tuples(), b.Tuples(), "%v %v over %s", pair[0], pair[1], s.ring)
		}
	}
}
