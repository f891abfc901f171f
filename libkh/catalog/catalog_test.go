package catalog

import (
	"path/filepath"
	"testing"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/stretchr/testify/require"
)

var trefoil = &khoca.VariantResult{
	Variant: khoca.Variant{},
	Generators: []khoca.Generator{
		{Q: 1, H: 0},
		{Q: 3, H: 0},
		{Q: 5, H: 2},
		{Q: 9, H: 3},
		{Q: 7, H: 3, Torsion: 2},
	},
	Polynomial: "t^0q^1 + t^0q^3 + t^2q^5 + t^3q^9 + t^3q^7[2]",
}

var presented = &khoca.VariantResult{
	Variant: khoca.Variant{Equivariant: true},
	Generators: []khoca.Generator{
		{Q: -1, H: -2, Marked: true, Torsion: -3},
		{Q: 3, H: 0, Marked: true, Torsion: -2, Divisor: []int64{1, -2, 1}},
	},
	Presentation: &khoca.Presentation{
		Degrees: []khoca.PresentedDegree{
			{H: -1, Q: []int{-3, 1}, Entries: []khoca.PresentedEntry{
				{Row: 0, Col: 1, Coef: -2, UPower: 2},
				{Row: 0, Col: 0, Coefs: []int64{-1, 0, 3}},
			}},
			{H: 0, Q: []int{5}},
		},
	},
}

func key(link string, v khoca.Variant) khoca.CatalogKey {
	return khoca.CatalogKey{Ring: "0", Algebra: "0.0", Root: "0", Link: link, Variant: v}
}

func TestRoundTrip(t *testing.T) {
	ctx := khoca.NewCatalogContext()
	defer ctx.Close()

	cat, err := OpenCatalog(ctx, khoca.CatalogOpts{})
	require.NoError(t, err)
	defer cat.Close()

	k := key("braidaaa", trefoil.Variant)
	_, found := cat.Lookup(k)
	require.False(t, found)

	require.True(t, cat.TryAdd(k, trefoil))
	require.False(t, cat.TryAdd(k, trefoil))
	require.EqualValues(t, 1, cat.NumEntries())

	got, found := cat.Lookup(k)
	require.True(t, found)
	require.Equal(t, trefoil, got)

	pk := key("braidaBaB", presented.Variant)
	require.True(t, cat.TryAdd(pk, presented))
	got, found = cat.Lookup(pk)
	require.True(t, found)
	require.Equal(t, presented, got)

	// reduced variant of the same link is a distinct entry
	_, found = cat.Lookup(key("braidaaa", khoca.Variant{Reduced: true}))
	require.False(t, found)

	require.False(t, cat.TryAdd(khoca.CatalogKey{Link: "braidaaa"}, trefoil))
}

func TestSelect(t *testing.T) {
	ctx := khoca.NewCatalogContext()
	defer ctx.Close()

	cat, err := OpenCatalog(ctx, khoca.CatalogOpts{})
	require.NoError(t, err)
	defer cat.Close()

	for _, link := range []string{"braidaaa", "braidaBaB", "braidaa"} {
		require.True(t, cat.TryAdd(key(link, khoca.Variant{}), trefoil))
		require.True(t, cat.TryAdd(key(link, khoca.Variant{Reduced: true}), trefoil))
	}
	other := key("braidaaa", khoca.Variant{})
	other.Ring = "Q"
	require.True(t, cat.TryAdd(other, trefoil))

	var links []string
	for entry := range khoca.SelectFromCatalog(cat, khoca.CatalogSelector{Ring: "0", Algebra: "0.0", Root: "0"}) {
		links = append(links, entry.Key.Link+"/"+entry.Key.Variant.String())
		require.Equal(t, trefoil.Polynomial, entry.Result.Polynomial)
	}
	require.Equal(t, []string{
		"braidaBaB/unreduced/non-equivariant",
		"braidaBaB/reduced/non-equivariant",
		"braidaa/unreduced/non-equivariant",
		"braidaa/reduced/non-equivariant",
		"braidaaa/unreduced/non-equivariant",
		"braidaaa/reduced/non-equivariant",
	}, links)

	count := 0
	for range khoca.SelectFromCatalog(cat, khoca.CatalogSelector{}) {
		count++
	}
	require.Equal(t, 7, count)

	count = 0
	for entry := range khoca.SelectFromCatalog(cat, khoca.CatalogSelector{Ring: "Q"}) {
		require.Equal(t, "Q", entry.Key.Ring)
		count++
	}
	require.Equal(t, 1, count)
}

func TestPersist(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog")

	ctx := khoca.NewCatalogContext()
	cat, err := OpenCatalog(ctx, khoca.CatalogOpts{DbPathName: dbPath})
	require.NoError(t, err)
	require.True(t, cat.TryAdd(key("braidaaa", trefoil.Variant), trefoil))
	require.NoError(t, cat.Close())
	ctx.Close()
	<-ctx.Done()

	ctx = khoca.NewCatalogContext()
	defer ctx.Close()
	cat, err = OpenCatalog(ctx, khoca.CatalogOpts{DbPathName: dbPath})
	require.NoError(t, err)
	defer cat.Close()
	require.EqualValues(t, 1, cat.NumEntries())
	got, found := cat.Lookup(key("braidaaa", trefoil.Variant))
	require.True(t, found)
	require.Equal(t, trefoil, got)
}

func TestClosed(t *testing.T) {
	ctx := khoca.NewCatalogContext()
	defer ctx.Close()

	cat, err := OpenCatalog(ctx, khoca.CatalogOpts{})
	require.NoError(t, err)
	k := key("braidaaa", trefoil.Variant)
	require.True(t, cat.TryAdd(k, trefoil))
	require.NoError(t, cat.Close())

	_, found := cat.Lookup(k)
	require.False(t, found)
	require.False(t, cat.TryAdd(key("braidaBaB", trefoil.Variant), trefoil))
	count := 0
	for range khoca.SelectFromCatalog(cat, khoca.CatalogSelector{}) {
		count++
	}
	require.Zero(t, count)
	require.NoError(t, cat.Close())
}

func TestBadParams(t *testing.T) {
	ctx := khoca.NewCatalogContext()
	defer ctx.Close()
	_, err := OpenCatalog(ctx, khoca.CatalogOpts{ReadOnly: true})
	require.Equal(t, khoca.KindCatalog, khoca.KindOf(err))
}

func TestKeys(t *testing.T) {
	k := key("braidaBaB", khoca.Variant{Reduced: true, Equivariant: true})
	parsed, ok := parseEntryKey(formEntryKey(nil, k))
	require.True(t, ok)
	require.Equal(t, k, parsed)

	_, ok = parseEntryKey(gCatalogStateKey)
	require.False(t, ok)

	require.Equal(t, []byte{kEntryPrefix, 'Q', 0}, formSelectorPrefix(nil, khoca.CatalogSelector{Ring: "Q", Root: "1"}))
}
