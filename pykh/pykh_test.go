package pykh

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-python/gpython/py"
	"github.com/stretchr/testify/require"

	_ "github.com/go-python/gpython/stdlib"
)

func runSrc(t *testing.T, src string) {
	t.Helper()
	ctx := py.NewContext(py.DefaultContextOpts())
	defer func() {
		ctx.Close()
		<-ctx.Done()
	}()

	_, err := py.RunSrc(ctx, src, "<test>", nil)
	if err != nil {
		py.TracebackDump(err)
	}
	require.NoError(t, err)
}

func TestCalculator(t *testing.T) {
	runSrc(t, `
import _khoca
KH = _khoca.Calculator('0', '0.0', '0')
res, mess = KH('braidaaa', 'calc0', print_messages=True)
assert len(res) == 2
assert len(res[0]) == 3
assert len(res[1]) == 5
assert res[1][4][0] == 7
assert res[1][4][3] == 2
assert mess[0] == 'Result:'
assert mess[3] == 't^0q^2 + t^2q^6 + t^3q^8'
assert mess[6] == 't^0q^1 + t^0q^3 + t^2q^5 + t^3q^9 + t^3q^7[2]'

res = KH('aBaB', 'calc0')
assert len(res[1]) == 6

banner = KH.Banner()
assert banner[0] == 'Frobenius algebra: Z[X] / (1*X^2).'

lee = _khoca.Calculator('Q', [-1, 0, 1], 1)
res = lee('braidaaa', 'calc0')
assert len(res[1]) == 2
`)
}

func TestErrors(t *testing.T) {
	runSrc(t, `
import _khoca
KH = _khoca.Calculator(0, '0.0', 0)

failed = False
try:
    KH('braid', 'calc0')
except ValueError:
    failed = True
assert failed

failed = False
try:
    KH('braidaaa', 'calc7')
except ValueError:
    failed = True
assert failed

failed = False
try:
    _khoca.Calculator('4', '0.0', '0')
except NotImplementedError:
    failed = True
assert failed

small = _khoca.Calculator('0', '0.0', '0', max_crossings=2)
failed = False
try:
    small('braidaaa', 'calc0')
except MemoryError:
    failed = True
assert failed
`)
}

func TestCatalog(t *testing.T) {
	runSrc(t, `
import _khoca
ws = _khoca.GetWorkspace()
cat = ws.OpenCatalog()

KH = _khoca.Calculator('2', '0.0', '0')
KH.AttachCatalog(cat)
KH('braidaaa', 'calc0')
assert cat.NumEntries() == 2

batch = _khoca.Calculator('2', '0.0', '0')
n = batch.Stream(['aa', 'aaa', 'braidaBaB'], 'calc0', label='batch', catalog=cat)
assert n == 2
assert cat.NumEntries() == 6

hits = cat.Select('F_2')
assert len(hits) == 6
assert hits[0][0] == 'braidaBaB'
assert hits[0][1] == 'unreduced/non-equivariant'
cat.Close()
`)
}

func TestEnumBraids(t *testing.T) {
	runSrc(t, `
import _khoca
links = _khoca.EnumBraids(3, 2)
assert len(links) == 12
assert links[0] == 'braid3:a'

KH = _khoca.Calculator('2', '0.0', '0')
n = KH.Stream(links, 'calc0', file='')
assert n == 12
`)
}

func TestStreamReadOnly(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "catalog")
	outPath := filepath.Join(dir, "out", "results.txt")

	runSrc(t, fmt.Sprintf(`
import _khoca
ws = _khoca.GetWorkspace()
cat = ws.OpenCatalog(%[1]q)
KH = _khoca.Calculator('2', '0.0', '0')
KH.AttachCatalog(cat)
KH('braidaaa', 'calc0')
cat.Close()

ro = ws.OpenCatalog(%[1]q, read_only=True)
failed = False
try:
    KH.Stream(['aa', 'aaa'], 'calc0', file=%[2]q, catalog=ro)
except PermissionError:
    failed = True
assert failed
assert ro.NumEntries() == 2
ro.Close()
`, dbPath, outPath))

	// refused before anything was opened
	_, err := os.Stat(outPath)
	require.True(t, os.IsNotExist(err))
}
