package main

import (
	"time"

	"github.com/go-python/gpython/py"
	"github.com/go-python/gpython/repl"
	"github.com/go-python/gpython/repl/cli"
	"github.com/plan-systems/klog"

	_ "github.com/fine-structures/go-khoca/pykh"
	_ "github.com/go-python/gpython/stdlib"
)

const kREPLStartup = `
import _khoca
print("_khoca", _khoca.LIB_VERSION)
`

// go_gpython runs the script at pathname, or an interactive session when pathname is empty.
func go_gpython(pathname string) {
	ctx := py.NewContext(py.DefaultContextOpts())

	var (
		err error
	)
	if len(pathname) == 0 {
		replCtx := repl.New(ctx)

		_, err = py.RunSrc(ctx, kREPLStartup, "<startup>", replCtx.Module)
		if err == nil {
			cli.RunREPL(replCtx)
		}

	} else {
		startTime := time.Now()
		klog.Infof("<<<>>>   executing '%s'   <<<>>>", pathname)

		_, err = py.RunFile(ctx, pathname, py.CompileOpts{}, nil)

		if err == nil {
			klog.Infof("<<<>>>   execution complete: %v   <<<>>>", time.Since(startTime))
		}
	}

	ctx.Close()
	<-ctx.Done()

	if err != nil {
		py.TracebackDump(err)
		klog.Fatal(err)
	}
}
