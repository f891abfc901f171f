package khoca

import (
	"fmt"
	"io"
	"strings"
)

// ResultStream carries Results between pipeline stages.
type ResultStream struct {
	Outlet chan *Result
}

func NewResultStream() *ResultStream {
	stream := &ResultStream{
		Outlet: make(chan *Result, 1),
	}
	return stream
}

func (stream *ResultStream) Close() {
	if stream.Outlet != nil {
		close(stream.Outlet)
	}
}

func (stream *ResultStream) Push(res *Result) {
	stream.Outlet <- res
}

func (stream *ResultStream) PullAll() []*Result {
	var all []*Result
	for res := range stream.Outlet {
		all = append(all, res)
	}
	return all
}

// Print writes each result's messages to out, prefixed by label, and passes results along.
func (stream *ResultStream) Print(out io.WriteCloser, label string) *ResultStream {
	next := NewResultStream()

	go func() {
		buf := strings.Builder{}
		buf.Grow(256)

		count := 0
		for res := range stream.Outlet {
			count++
			if len(label) > 0 {
				buf.WriteString(label)
				buf.WriteByte(',')
			}
			fmt.Fprintf(&buf, "%06d,%s\n", count, res.Link)
			if res.Err != nil {
				fmt.Fprintf(&buf, "error: %v\n", res.Err)
			}
			for _, line := range res.Messages {
				buf.WriteString(line)
				buf.WriteByte('\n')
			}
			out.Write([]byte(buf.String()))
			buf.Reset()
			next.Outlet <- res
		}
		out.Close()
		next.Close()
	}()

	return next
}

// AddTo offers every variant of each result to target, passing along results that added anything.
func (stream *ResultStream) AddTo(target ResultAdder, setup CatalogSelector) *ResultStream {
	next := NewResultStream()

	go func() {
		for res := range stream.Outlet {
			added := false
			if res.Err == nil {
				for _, vr := range res.Variants {
					key := CatalogKey{
						Ring:    setup.Ring,
						Algebra: setup.Algebra,
						Root:    setup.Root,
						Link:    res.Link,
						Variant: vr.Variant,
					}
					if target.TryAdd(key, vr) {
						added = true
					}
				}
			}
			if added {
				next.Outlet <- res
			}
		}
		next.Close()
	}()

	return next
}

// SelectFromCatalog streams every catalog entry meeting sel.
func SelectFromCatalog(cat Catalog, sel CatalogSelector) <-chan CatalogEntry {
	onHit := make(chan CatalogEntry, 4)
	go func() {
		cat.Select(sel, onHit)
		close(onHit)
	}()
	return onHit
}
