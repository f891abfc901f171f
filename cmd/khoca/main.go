package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh"
	"github.com/fine-structures/go-khoca/libkh/catalog"
	"github.com/fine-structures/go-khoca/pykh"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

var (
	configPath = flag.String("config", "", "TOML options file")
	ringSpec   = flag.String("ring", "0", "coefficient ring: 0 (integers), Q, or a prime")
	algSpec    = flag.String("algebra", "0.0", "Frobenius algebra: a0.a1...a(k-1) or [c0,...,ck]")
	rootSpec   = flag.String("root", "0", "root of the algebra polynomial")
)

// usage:
//
//	khoca [flags] [script.py]
//	khoca [flags] <link>... <calc0|calc1|calc2>
func main() {

	flag.Set("logtostderr", "true")
	flag.Set("v", "2")

	fset := flag.NewFlagSet("", flag.ContinueOnError)
	klog.InitFlags(fset)
	fset.Set("logtostderr", "true")
	fset.Set("v", "2")
	klog.SetFormatter(&klog.FmtConstWidth{
		FileNameCharWidth: 16,
		UseColor:          true,
	})

	flag.Parse()

	opts := khoca.DefaultOptions
	if *configPath != "" {
		var err error
		if opts, err = khoca.LoadOptions(*configPath); err != nil {
			klog.Fatal(err)
		}
	}
	pykh.SetOptions(opts)

	args := flag.Args()
	if len(args) >= 2 {
		err := calcLinks(opts, args[:len(args)-1], args[len(args)-1])
		if err != nil {
			klog.Error(err)
		}
		klog.Flush()
		if err != nil {
			os.Exit(1)
		}
		return
	}

	pathname := flag.Arg(0)
	go_gpython(pathname)

	klog.Flush()
}

// calcLinks computes each link and prints its messages.
func calcLinks(opts khoca.Options, links []string, command string) error {
	calc, err := libkh.NewCalculator(*ringSpec, *algSpec, *rootSpec, opts)
	if err != nil {
		klog.Error(err)
		return err
	}
	for _, line := range calc.Banner() {
		fmt.Println(line)
	}

	var cat khoca.Catalog
	if opts.UseCatalog {
		catCtx := khoca.NewCatalogContext()
		defer func() {
			catCtx.Close()
			<-catCtx.Done()
		}()
		if opts.CatalogPath != "" {
			os.MkdirAll(filepath.Dir(opts.CatalogPath), 0700)
		}
		cat, err = catalog.OpenCatalog(catCtx, khoca.CatalogOpts{
			DbPathName: opts.CatalogPath,
			ReadOnly:   opts.CatalogReadOnly,
		})
		if err != nil {
			klog.Error(err)
			return err
		}
		calc.AttachCatalog(cat)
	}

	stream := calc.Stream(context.Background(), libkh.StreamLinks(links...), command)
	failed := 0
	for res := range stream.Print(nopCloser{os.Stdout}, "").Outlet {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d links failed", failed, len(links))
	}
	return nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
