// Package libkh wires the Khovanov homology pipeline together:
//
//	braid word -> cube of resolutions -> chain complex -> homology -> rendered result
//
// A Calculator is fixed to one coefficient ring, Frobenius algebra, and root, and is safe for concurrent use.
package libkh

import (
	"context"
	"fmt"

	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh/braid"
	"github.com/fine-structures/go-khoca/libkh/complex"
	"github.com/fine-structures/go-khoca/libkh/cube"
	"github.com/fine-structures/go-khoca/libkh/frobenius"
	"github.com/fine-structures/go-khoca/libkh/homology"
	"github.com/fine-structures/go-khoca/libkh/render"
	"github.com/fine-structures/go-khoca/libkh/ring"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

type Calculator struct {
	opts  khoca.Options
	R     ring.Ring
	A     *frobenius.Algebra
	setup khoca.CatalogSelector
	cache ResultCache
}

// NewCalculator parses the ring, algebra and root specs (see ParseRing, ParseAlgebra, ParseRoot).
func NewCalculator(ringSpec, algebraSpec, rootSpec string, opts khoca.Options) (*Calculator, error) {
	opts.Normalize()

	R, err := ParseRing(ringSpec)
	if err != nil {
		return nil, err
	}
	coeffs, err := ParseAlgebra(algebraSpec)
	if err != nil {
		return nil, err
	}
	root, err := ParseRoot(rootSpec)
	if err != nil {
		return nil, err
	}
	A, err := frobenius.New(R, coeffs, root)
	if err != nil {
		return nil, err
	}

	calc := &Calculator{
		opts:  opts,
		R:     R,
		A:     A,
		cache: NewResultMemo(),
	}
	calc.setup = khoca.CatalogSelector{
		Ring:    R.String(),
		Algebra: fmt.Sprint(A.Polynomial()),
		Root:    fmt.Sprintf("%s=%d", A.Root().Symbol, A.Root().Value),
	}
	return calc, nil
}

func (calc *Calculator) Options() khoca.Options {
	return calc.opts
}

// Setup names the ring, algebra and root in the normalised form used for catalog keys.
func (calc *Calculator) Setup() khoca.CatalogSelector {
	return calc.setup
}

func (calc *Calculator) Algebra() *frobenius.Algebra {
	return calc.A
}

// Banner returns the lines announcing this calculator's algebra and its equivariant lift.
func (calc *Calculator) Banner() []string {
	return []string{
		render.AlgebraLine(calc.A),
		render.LiftLine(calc.A),
	}
}

// AttachCatalog routes result lookups and stores through cat in place of the in-process memo.
func (calc *Calculator) AttachCatalog(cat khoca.Catalog) {
	calc.cache = cat
}

func (calc *Calculator) key(link string, v khoca.Variant) khoca.CatalogKey {
	return khoca.CatalogKey{
		Ring:    calc.setup.Ring,
		Algebra: calc.setup.Algebra,
		Root:    calc.setup.Root,
		Link:    link,
		Variant: v,
	}
}

// Compute parses link and command and computes every variant the command selects.
// Errors are returned and also recorded in the Result.
func (calc *Calculator) Compute(ctx context.Context, link, command string) (*khoca.Result, error) {
	res := &khoca.Result{Link: link}

	cmd, err := ParseCommand(command)
	if err == nil {
		res.Command = cmd
		var d *braid.Diagram
		if d, err = braid.Parse(link); err == nil {
			return calc.ComputeDiagram(ctx, d, cmd)
		}
	}
	res.Err = err
	return res, err
}

// ComputeDiagram computes every variant cmd selects for d.
func (calc *Calculator) ComputeDiagram(ctx context.Context, d *braid.Diagram, cmd khoca.Command) (*khoca.Result, error) {
	job := &job{
		calc:  calc,
		ctx:   ctx,
		runID: uuid.New(),
		d:     d,
		link:  d.String(),
		cmd:   cmd,
	}
	res := &khoca.Result{
		Link:    job.link,
		Command: cmd,
		RunID:   job.runID.String(),
	}

	klog.V(1).Infof("%v: %s %s over %v with %v", job.runID, job.link, cmd, calc.R, calc.A)

	for _, v := range cmd.Variants() {
		vr, err := job.variant(v)
		if err != nil {
			res.Err = errors.WithMessagef(err, "%s %v", job.link, v)
			return res, res.Err
		}
		res.Variants = append(res.Variants, vr)
	}
	res.Messages = render.Messages(res.Variants)
	return res, nil
}

// job holds the intermediate products shared by the variants of one computation.
type job struct {
	calc    *Calculator
	ctx     context.Context
	runID   uuid.UUID
	d       *braid.Diagram
	link    string
	cmd     khoca.Command
	cube    *cube.Cube
	general [2]*complex.Complex // equivariant complexes, by reduced
}

func (job *job) variant(v khoca.Variant) (*khoca.VariantResult, error) {
	calc := job.calc
	key := calc.key(job.link, v)
	if vr, found := calc.cache.Lookup(key); found {
		klog.V(1).Infof("%v: %v found in cache", job.runID, v)
		return vr, nil
	}

	cx, err := job.complex(v)
	if err != nil {
		return nil, err
	}
	hm, err := homology.Reduce(job.ctx, cx, homology.Opts{
		Workers:           calc.opts.Workers,
		AllowPresentation: calc.opts.AllowPresentation,
	})
	if err != nil {
		return nil, err
	}

	vr := &khoca.VariantResult{
		Variant:      v,
		Generators:   render.Generators(hm),
		Presentation: hm.Presentation,
	}
	vr.Polynomial = render.Polynomial(vr.Generators)
	klog.V(1).Infof("%v: %v (%v mode): %s", job.runID, v, hm.Mode, render.VariantText(vr))

	calc.cache.TryAdd(key, vr)
	return vr, nil
}

func (job *job) complex(v khoca.Variant) (*complex.Complex, error) {
	calc := job.calc
	if job.cube == nil {
		// size the estimate for the largest variant this command computes
		reduced := true
		for _, vi := range job.cmd.Variants() {
			reduced = reduced && vi.Reduced
		}
		c, err := cube.Build(job.ctx, job.d, cube.Opts{
			Workers:       calc.opts.Workers,
			MaxCrossings:  calc.opts.MaxCrossings,
			MaxGenerators: calc.opts.MaxGenerators,
			Rank:          calc.A.Rank(),
			Reduced:       reduced,
		})
		if err != nil {
			return nil, err
		}
		job.cube = c
	}

	ri := 0
	if v.Reduced {
		ri = 1
	}

	// When both theories are wanted, the non-equivariant complex is the specialised equivariant one.
	wantGeneral := v.Equivariant || job.cmd == khoca.CalcBoth
	if !wantGeneral {
		return complex.Assemble(job.ctx, job.cube, calc.A, complex.Opts{
			Reduced: v.Reduced,
			Workers: calc.opts.Workers,
		})
	}

	if job.general[ri] == nil {
		cx, err := complex.Assemble(job.ctx, job.cube, calc.A, complex.Opts{
			Reduced:     v.Reduced,
			Equivariant: true,
			Workers:     calc.opts.Workers,
		})
		if err != nil {
			return nil, err
		}
		job.general[ri] = cx
	}
	if v.Equivariant {
		return job.general[ri], nil
	}
	return job.general[ri].Specialize(calc.A.Root().Value)
}
