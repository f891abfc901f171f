package khoca

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{nil, KindNone},
		{ErrMalformedDiagram, KindMalformedDiagram},
		{errors.Wrap(ErrUnsupportedRing, "ring \"4\""), KindUnsupportedRing},
		{errors.Wrapf(errors.Wrap(ErrResourceLimitExceeded, "inner"), "outer %d", 3), KindResourceLimitExceeded},
		{errors.WithStack(ErrCancelled), KindCancelled},
		{errors.New("something else"), KindUnknown},
	}
	for _, tc := range cases {
		require.Equal(t, tc.kind, KindOf(tc.err), "%v", tc.err)
	}
	require.Equal(t, "UnsupportedAlgebra", KindUnsupportedAlgebra.String())
}

func TestCommandVariants(t *testing.T) {
	require.Equal(t, []Variant{{Reduced: true}, {Reduced: false}}, CalcNonEquivariant.Variants())
	require.Equal(t, []Variant{{Reduced: true, Equivariant: true}, {Equivariant: true}}, CalcEquivariant.Variants())
	require.Len(t, CalcBoth.Variants(), 4)
	require.Equal(t, "calc2", CalcBoth.String())

	for code := byte(0); code < 4; code++ {
		require.Equal(t, code, VariantFromCode(code).Code())
	}
}

func TestGeneratorTuple(t *testing.T) {
	g := Generator{Q: 7, H: 3, Marked: false, Torsion: 2}
	require.Equal(t, [4]int64{7, 3, 0, 2}, g.Tuple())
	require.False(t, g.IsFree())

	vr := &VariantResult{Generators: []Generator{{Q: 2, H: 0, Marked: true}}}
	require.Equal(t, [][4]int64{{2, 0, 1, 0}}, vr.Tuples())
}

func TestOptions(t *testing.T) {
	opts, err := DecodeOptions(`
max_crossings = 12
workers = 3
allow_presentation = false
`)
	require.NoError(t, err)
	require.Equal(t, 12, opts.MaxCrossings)
	require.Equal(t, 3, opts.Workers)
	require.Equal(t, DefaultOptions.MaxGenerators, opts.MaxGenerators)
	require.False(t, opts.AllowPresentation)

	_, err = DecodeOptions("max_crossings = \"many\"")
	require.Error(t, err)

	dir := t.TempDir()
	pathname := filepath.Join(dir, "khoca.toml")
	require.NoError(t, os.WriteFile(pathname, []byte("max_generators = 1000\n"), 0644))
	opts, err = LoadOptions(pathname)
	require.NoError(t, err)
	require.EqualValues(t, 1000, opts.MaxGenerators)
	require.Equal(t, DefaultOptions.MaxCrossings, opts.MaxCrossings)
	require.Positive(t, opts.Workers)
}

func TestCatalogContextClose(t *testing.T) {
	ctx := NewCatalogContext()
	ctx.Close()
	<-ctx.Done()
	ctx.Close()
}
