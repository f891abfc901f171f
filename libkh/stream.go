package libkh

import (
	"context"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh/braid"
	"github.com/plan-systems/klog"
)

// Run builds a one-off Calculator for req and computes req.Link.
func Run(ctx context.Context, req khoca.Request, opts khoca.Options) (*khoca.Result, error) {
	calc, err := NewCalculator(req.Ring, req.Algebra, req.Root, opts)
	if err != nil {
		return &khoca.Result{Link: req.Link, Err: err}, err
	}
	return calc.Compute(ctx, req.Link, req.Command)
}

// StreamLinks sends the given link strings on a closed channel.
func StreamLinks(links ...string) <-chan string {
	outlet := make(chan string, len(links))
	for _, link := range links {
		outlet <- link
	}
	close(outlet)
	return outlet
}

// Stream computes each link arriving on links and pushes its Result, in arrival order.
//
// Links with the same canonical form as an earlier link are skipped.
// A link that fails is still pushed, with Result.Err set.
// Once ctx is done, remaining links are drained without being computed.
func (calc *Calculator) Stream(ctx context.Context, links <-chan string, command string) *khoca.ResultStream {
	next := khoca.NewResultStream()

	go func() {
		seen := NewLinkSet()
		defer seen.Close()

		cmd, cmdErr := ParseCommand(command)
		for link := range links {
			if ctx.Err() != nil {
				continue
			}
			if cmdErr != nil {
				next.Push(&khoca.Result{Link: link, Err: cmdErr})
				continue
			}
			d, err := braid.Parse(link)
			if err != nil {
				next.Push(&khoca.Result{Link: link, Command: cmd, Err: err})
				continue
			}
			fresh, err := seen.TryAdd(d.String())
			if err != nil {
				next.Push(&khoca.Result{Link: link, Command: cmd, Err: err})
				continue
			}
			if !fresh {
				klog.V(2).Infof("skipping %q: already computed as %s", link, d.String())
				continue
			}
			res, err := calc.ComputeDiagram(ctx, d, cmd)
			if err != nil {
				klog.Warningf("%s: %v", res.RunID, err)
			}
			next.Push(res)
		}
		next.Close()
	}()

	return next
}
