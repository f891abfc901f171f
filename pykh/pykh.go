// Package pykh registers the gpython module "_khoca".
//
//	import _khoca
//	KH = _khoca.Calculator('0', '0.0', '0')
//	res, mess = KH('braidaaa', 'calc0', print_messages=True)
package pykh

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh"
	"github.com/fine-structures/go-khoca/libkh/braid"
	"github.com/fine-structures/go-khoca/libkh/catalog"
	"github.com/go-python/gpython/py"
)

var (
	LIB_VERSION = "v1.2024.1"
)

var (
	pyCalculatorType = py.NewType("Calculator", "computes Khovanov homology of braid closures for a fixed ring, Frobenius algebra, and root")
	pyCatalogType    = py.NewType("Catalog", "khoca.Catalog")
	pyWorkspaceType  = py.NewType("Workspace", "collects active session resources and catalogs")
)

var (
	gOptionsMu sync.Mutex
	gOptions   = khoca.DefaultOptions
)

// SetOptions sets the options new Calculators start from.
func SetOptions(opts khoca.Options) {
	gOptionsMu.Lock()
	gOptions = opts
	gOptionsMu.Unlock()
}

func currentOptions() khoca.Options {
	gOptionsMu.Lock()
	defer gOptionsMu.Unlock()
	return gOptions
}

// specString accepts an int, a str, or (for algebras) a list or tuple of ints.
func specString(obj py.Object, what string, allowList bool) (string, error) {
	var items py.Tuple
	switch v := obj.(type) {
	case py.String:
		return string(v), nil
	case py.Int:
		return fmt.Sprint(int64(v)), nil
	case py.Tuple:
		items = v
	case *py.List:
		items = py.Tuple(v.Items)
	}
	if items == nil || !allowList {
		return "", py.ExceptionNewf(py.TypeError, "%s must be declared by an integer or string (got %v)", what, obj.Type().Name)
	}
	coeffs := make([]string, len(items))
	for i, item := range items {
		c, err := py.GetInt(item)
		if err != nil {
			return "", err
		}
		coeffs[i] = fmt.Sprint(int64(c))
	}
	return "[" + strings.Join(coeffs, ", ") + "]", nil
}

func kindError(err error) error {
	switch khoca.KindOf(err) {
	case khoca.KindMalformedDiagram, khoca.KindUnsupportedCommand:
		return py.ExceptionNewf(py.ValueError, "%v", err)
	case khoca.KindUnsupportedRing, khoca.KindUnsupportedAlgebra:
		return py.ExceptionNewf(py.NotImplementedError, "%v", err)
	case khoca.KindResourceLimitExceeded:
		return py.ExceptionNewf(py.MemoryError, "%v", err)
	}
	return py.ExceptionNewf(py.RuntimeError, "%v", err)
}

type pyCalculator struct {
	*libkh.Calculator
}

func (calc pyCalculator) Type() *py.Type {
	return pyCalculatorType
}

func (calc pyCalculator) M__str__() (py.Object, error) {
	return py.String(calc.Banner()[0]), nil
}

func (calc pyCalculator) M__repr__() (py.Object, error) {
	return calc.M__str__()
}

// Calculator(ring, algebra, root, workers=0, max_crossings=0, max_generators=0, allow_presentation=True)
func py_NewCalculator(module py.Object, args py.Tuple, kwargs py.StringDict) (py.Object, error) {
	var ringObj, algebraObj, rootObj py.Object
	var workers, maxCrossings, maxGenerators, allowPresentation py.Object
	err := py.ParseTupleAndKeywords(args, kwargs, "OOO|OOOO",
		[]string{"ring", "algebra", "root", "workers", "max_crossings", "max_generators", "allow_presentation"},
		&ringObj, &algebraObj, &rootObj, &workers, &maxCrossings, &maxGenerators, &allowPresentation)
	if err != nil {
		return nil, err
	}

	ringSpec, err := specString(ringObj, "Coefficient ring", false)
	if err != nil {
		return nil, err
	}
	algebraSpec, err := specString(algebraObj, "Frobenius algebra", true)
	if err != nil {
		return nil, err
	}
	rootSpec, err := specString(rootObj, "Root", false)
	if err != nil {
		return nil, err
	}

	opts := currentOptions()
	for _, arg := range []struct {
		obj py.Object
		set func(n int64)
	}{
		{workers, func(n int64) { opts.Workers = int(n) }},
		{maxCrossings, func(n int64) { opts.MaxCrossings = int(n) }},
		{maxGenerators, func(n int64) { opts.MaxGenerators = n }},
	} {
		if arg.obj == nil {
			continue
		}
		n, err := py.GetInt(arg.obj)
		if err != nil {
			return nil, err
		}
		arg.set(int64(n))
	}
	if allowPresentation != nil {
		if opts.AllowPresentation, err = py.ObjectIsTrue(allowPresentation); err != nil {
			return nil, err
		}
	}

	calc, err := libkh.NewCalculator(ringSpec, algebraSpec, rootSpec, opts)
	if err != nil {
		return nil, kindError(err)
	}
	fmt.Fprintln(os.Stdout, calc.Banner()[0])
	return pyCalculator{calc}, nil
}

func exportTuples(res *khoca.Result) py.Object {
	variants := make([]py.Object, len(res.Variants))
	for i, vr := range res.Variants {
		gens := make([]py.Object, len(vr.Generators))
		for j, tuple := range vr.Tuples() {
			gens[j] = py.Tuple{py.Int(tuple[0]), py.Int(tuple[1]), py.Int(tuple[2]), py.Int(tuple[3])}
		}
		variants[i] = py.NewListFromItems(gens)
	}
	return py.NewListFromItems(variants)
}

func exportStrings(strs []string) py.Object {
	items := make([]py.Object, len(strs))
	for i, s := range strs {
		items[i] = py.String(s)
	}
	return py.NewListFromItems(items)
}

// KH(link, command, print_messages=False)
//
// Returns one list of (q, h, marked, torsion) tuples per computed variant, paired with the
// result messages when print_messages is set.
func (calc pyCalculator) M__call__(args py.Tuple, kwargs py.StringDict) (py.Object, error) {
	var linkObj, cmdObj, printObj py.Object
	err := py.ParseTupleAndKeywords(args, kwargs, "OO|O", []string{"link", "command", "print_messages"}, &linkObj, &cmdObj, &printObj)
	if err != nil {
		return nil, err
	}
	link, isStr := linkObj.(py.String)
	if !isStr {
		return nil, py.ExceptionNewf(py.TypeError, "link must be a string (got %v)", linkObj.Type().Name)
	}
	cmd, err := specString(cmdObj, "Command", false)
	if err != nil {
		return nil, err
	}
	printMessages := false
	if printObj != nil {
		if printMessages, err = py.ObjectIsTrue(printObj); err != nil {
			return nil, err
		}
	}

	res, err := calc.Compute(context.Background(), string(link), cmd)
	if err != nil {
		return nil, kindError(err)
	}
	tuples := exportTuples(res)
	if printMessages {
		return py.Tuple{tuples, exportStrings(res.Messages)}, nil
	}
	return tuples, nil
}

func py_Calculator_Banner(self py.Object, args py.Tuple) (py.Object, error) {
	calc := self.(pyCalculator)
	return exportStrings(calc.Banner()), nil
}

func py_Calculator_AttachCatalog(self py.Object, args py.Tuple) (py.Object, error) {
	calc := self.(pyCalculator)
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "AttachCatalog takes a Catalog")
	}
	cat, ok := args[0].(pyCatalog)
	if !ok {
		return nil, py.ExceptionNewf(py.TypeError, "expected Catalog object (got %v)", args[0].Type().Name)
	}
	calc.AttachCatalog(cat.Catalog)
	return py.None, nil
}

type echoToWriter struct {
	stdout *os.File
	to     io.WriteCloser
}

func (echo *echoToWriter) Write(buf []byte) (int, error) {
	if echo.to == nil {
		return echo.stdout.Write(buf)
	}
	return echo.to.Write(buf)
}

func (echo *echoToWriter) Close() error {
	if echo.to != nil {
		return echo.to.Close()
	}
	return nil
}

// KH.Stream(links, command, label='', file='', catalog=None)
//
// Computes each link in turn, printing each result's messages; returns the number of results
// printed.  When a catalog is given, results are added to it and only newly added results are counted.
func py_Calculator_Stream(self py.Object, args py.Tuple, kwargs py.StringDict) (py.Object, error) {
	calc := self.(pyCalculator)
	var linksObj, cmdObj, labelObj, fileObj, catObj py.Object
	err := py.ParseTupleAndKeywords(args, kwargs, "OO|OOO", []string{"links", "command", "label", "file", "catalog"},
		&linksObj, &cmdObj, &labelObj, &fileObj, &catObj)
	if err != nil {
		return nil, err
	}

	var items py.Tuple
	switch v := linksObj.(type) {
	case py.Tuple:
		items = v
	case *py.List:
		items = py.Tuple(v.Items)
	default:
		return nil, py.ExceptionNewf(py.TypeError, "links must be a list or tuple of strings")
	}
	links := make([]string, len(items))
	for i, item := range items {
		link, isStr := item.(py.String)
		if !isStr {
			return nil, py.ExceptionNewf(py.TypeError, "link %d is not a string", i)
		}
		links[i] = string(link)
	}
	cmd, err := specString(cmdObj, "Command", false)
	if err != nil {
		return nil, err
	}

	var label, pathname string
	if s, isStr := labelObj.(py.String); isStr {
		label = string(s)
	}
	if s, isStr := fileObj.(py.String); isStr {
		pathname = string(s)
	}

	cat, addTo := catObj.(pyCatalog)
	if addTo && cat.IsReadOnly() {
		return nil, py.ExceptionNewf(py.PermissionError, "catalog is in read-only mode")
	}

	writer := &echoToWriter{
		stdout: os.Stdout,
	}
	if len(pathname) > 0 {
		os.MkdirAll(filepath.Dir(pathname), 0700)

		file, err := os.OpenFile(pathname, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0600)
		if err != nil {
			return nil, py.ExceptionNewf(py.FileNotFoundError, "%v", err)
		}
		writer.to = file
	}

	stream := calc.Stream(context.Background(), libkh.StreamLinks(links...), cmd)
	if addTo {
		stream = stream.AddTo(cat, calc.Setup())
	}
	count := len(stream.Print(writer, label).PullAll())
	return py.Int(count), nil
}

// EnumBraids(strands, max_crossings) lists one braid word per conjugacy (rotation) class,
// shortest first.
func py_EnumBraids(module py.Object, args py.Tuple) (py.Object, error) {
	var strands, maxCrossings py.Object
	err := py.ParseTuple(args, "ii", &strands, &maxCrossings)
	if err != nil {
		return nil, err
	}

	opts := braid.EnumOpts{
		Strands:      int(strands.(py.Int)),
		MaxCrossings: int(maxCrossings.(py.Int)),
	}
	var links []py.Object
	for link := range braid.Enumerate(context.Background(), opts) {
		links = append(links, py.String(link))
	}
	return py.NewListFromItems(links), nil
}

const (
	kWorkspaceAttr = "_Workspace"
)

type Workspace struct {
	CatalogCtx khoca.CatalogContext
}

func (ws *Workspace) Close() {
	ws.CatalogCtx.Close()
	<-ws.CatalogCtx.Done()
}

func (ws *Workspace) Type() *py.Type {
	return pyWorkspaceType
}

func py_GetWorkspace(module py.Object, args py.Tuple) (py.Object, error) {
	wsObj, _ := py.GetAttrString(module, kWorkspaceAttr)
	if wsObj == nil {
		ws := &Workspace{
			CatalogCtx: khoca.NewCatalogContext(),
		}
		wsObj = ws
		py.SetAttrString(module, kWorkspaceAttr, wsObj)
	}
	return wsObj, nil
}

// ws.OpenCatalog(pathname='', read_only=False)
func py_Workspace_OpenCatalog(self py.Object, args py.Tuple, kwargs py.StringDict) (py.Object, error) {
	ws := self.(*Workspace)

	var pathObj, readOnlyObj py.Object
	err := py.ParseTupleAndKeywords(args, kwargs, "|OO", []string{"pathname", "read_only"}, &pathObj, &readOnlyObj)
	if err != nil {
		return nil, err
	}

	opts := khoca.CatalogOpts{}
	if s, isStr := pathObj.(py.String); isStr {
		opts.DbPathName = string(s)
	}
	if readOnlyObj != nil {
		if opts.ReadOnly, err = py.ObjectIsTrue(readOnlyObj); err != nil {
			return nil, err
		}
	}

	cat, err := catalog.OpenCatalog(ws.CatalogCtx, opts)
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return pyCatalog{cat}, nil
}

type pyCatalog struct {
	khoca.Catalog
}

func (cat pyCatalog) Type() *py.Type {
	return pyCatalogType
}

func py_Catalog_Close(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	if cat.Catalog != nil {
		cat.Close()
	}
	return py.None, nil
}

func py_Catalog_NumEntries(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	return py.Int(cat.NumEntries()), nil
}

// cat.Select(ring='', algebra='', root='') returns (link, variant, polynomial) tuples in key order.
func py_Catalog_Select(self py.Object, args py.Tuple, kwargs py.StringDict) (py.Object, error) {
	cat := self.(pyCatalog)
	var ringObj, algebraObj, rootObj py.Object
	err := py.ParseTupleAndKeywords(args, kwargs, "|OOO", []string{"ring", "algebra", "root"}, &ringObj, &algebraObj, &rootObj)
	if err != nil {
		return nil, err
	}
	sel := khoca.CatalogSelector{}
	for _, field := range []struct {
		obj py.Object
		dst *string
	}{
		{ringObj, &sel.Ring},
		{algebraObj, &sel.Algebra},
		{rootObj, &sel.Root},
	} {
		if s, isStr := field.obj.(py.String); isStr {
			*field.dst = string(s)
		}
	}

	var hits []py.Object
	for entry := range khoca.SelectFromCatalog(cat, sel) {
		hits = append(hits, py.Tuple{
			py.String(entry.Key.Link),
			py.String(entry.Key.Variant.String()),
			py.String(entry.Result.Polynomial),
		})
	}
	return py.NewListFromItems(hits), nil
}

func init() {

	/////////////////////////////////
	// Calculator
	{
		pyCalculatorType.Dict["Banner"] = py.MustNewMethod("Banner", py_Calculator_Banner, 0, "lines naming the Frobenius algebra and its equivariant lift")
		pyCalculatorType.Dict["AttachCatalog"] = py.MustNewMethod("AttachCatalog", py_Calculator_AttachCatalog, 0, "stores and looks up results in the given Catalog")
		pyCalculatorType.Dict["Stream"] = py.MustNewMethod("Stream", py_Calculator_Stream, 0, "computes and prints a batch of links")
	}

	/////////////////////////////////
	// Catalog
	{
		pyCatalogType.Dict["Select"] = py.MustNewMethod("Select", py_Catalog_Select, 0, "")
		pyCatalogType.Dict["NumEntries"] = py.MustNewMethod("NumEntries", py_Catalog_NumEntries, 0, "")
		pyCatalogType.Dict["Close"] = py.MustNewMethod("Close", py_Catalog_Close, 0, "")
	}

	/////////////////////////////////
	// Workspace
	{
		pyWorkspaceType.Dict["OpenCatalog"] = py.MustNewMethod("OpenCatalog", py_Workspace_OpenCatalog, 0, "")
	}

	{
		methods := []*py.Method{
			py.MustNewMethod("Calculator", py_NewCalculator, 0, "Calculator(ring, algebra, root)"),
			py.MustNewMethod("EnumBraids", py_EnumBraids, 0, "EnumBraids(strands, max_crossings)"),
			py.MustNewMethod("GetWorkspace", py_GetWorkspace, 0, ""),
		}

		globals := py.StringDict{
			"LIB_VERSION": py.String(LIB_VERSION),
			"PY_VERSION":  py.String("v3.4.0"),
		}

		py.RegisterModule(&py.ModuleImpl{
			Info: py.ModuleInfo{
				Name: "_khoca",
				Doc:  "Khovanov homology gpython module",
			},
			Methods: methods,
			Globals: globals,
			OnContextClosed: func(m *py.Module) {
				wsObj, _ := py.GetAttrString(m, kWorkspaceAttr)
				if wsObj != nil {
					wsObj.(*Workspace).Close()
				}
			},
		})
	}
}
