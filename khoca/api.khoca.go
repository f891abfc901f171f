package khoca

import "fmt"

// Variant selects one of the four homology theories computed for a link diagram.
type Variant struct {
	Reduced     bool // one circle carries the base point and a rank-1 module
	Equivariant bool // homology over R[u] rather than over R
}

func (v Variant) String() string {
	str := "unreduced"
	if v.Reduced {
		str = "reduced"
	}
	if v.Equivariant {
		return str + "/equivariant"
	}
	return str + "/non-equivariant"
}

// Code packs a Variant into two bits (bit 0 reduced, bit 1 equivariant).
func (v Variant) Code() byte {
	code := byte(0)
	if v.Reduced {
		code |= 1
	}
	if v.Equivariant {
		code |= 2
	}
	return code
}

func VariantFromCode(code byte) Variant {
	return Variant{
		Reduced:     code&1 != 0,
		Equivariant: code&2 != 0,
	}
}

// Command selects which variants a calculation produces.
type Command int32

const (
	CalcNonEquivariant Command = 0 // "calc0"
	CalcEquivariant    Command = 1 // "calc1"
	CalcBoth           Command = 2 // "calc2"
)

func (cmd Command) String() string {
	return fmt.Sprintf("calc%d", int32(cmd))
}

// Variants lists the variants computed by a command in the order they are reported:
// reduced before unreduced and, within each, non-equivariant before equivariant.
func (cmd Command) Variants() []Variant {
	var out []Variant
	for _, reduced := range []bool{true, false} {
		if cmd == CalcNonEquivariant || cmd == CalcBoth {
			out = append(out, Variant{Reduced: reduced})
		}
		if cmd == CalcEquivariant || cmd == CalcBoth {
			out = append(out, Variant{Reduced: reduced, Equivariant: true})
		}
	}
	return out
}

// Generator is one cyclic summand of a homology group.
//
// Torsion is 0 for a free summand, d > 1 for a summand R/(d), and -m for a summand R[u]/(u^m).
// A summand R[u]/(p) with p not a monomial has Torsion -deg(p) and carries p in Divisor,
// coefficients in ascending powers of u.
type Generator struct {
	Q       int
	H       int
	Marked  bool
	Torsion int64
	Divisor []int64
}

func (g Generator) IsFree() bool {
	return g.Torsion == 0
}

// Tuple returns the (q, h, marked, torsion) encoding of this summand.
func (g Generator) Tuple() [4]int64 {
	marked := int64(0)
	if g.Marked {
		marked = 1
	}
	return [4]int64{int64(g.Q), int64(g.H), marked, g.Torsion}
}

// PresentedEntry is one nonzero entry Coef*u^UPower of a residual differential.
// An entry that is not a monomial has Coefs set instead, in ascending powers of u.
type PresentedEntry struct {
	Row    int
	Col    int
	Coef   int64
	UPower int
	Coefs  []int64
}

// PresentedDegree is the residual chain group in homological degree H along with the
// differential leaving it.
type PresentedDegree struct {
	H       int
	Q       []int            // quantum grading of each residual generator
	Entries []PresentedEntry // d: degree H -> degree H+1
}

// Presentation is a finite presentation of a homology that could not be fully decomposed.
type Presentation struct {
	Degrees []PresentedDegree
}

// NumGenerators returns the total number of residual generators.
func (p *Presentation) NumGenerators() int {
	N := 0
	for _, deg := range p.Degrees {
		N += len(deg.Q)
	}
	return N
}

// VariantResult is the computed homology of one variant.
type VariantResult struct {
	Variant      Variant
	Generators   []Generator
	Polynomial   string
	Presentation *Presentation // set when only a presentation was computed
}

func (vr *VariantResult) Tuples() [][4]int64 {
	tuples := make([][4]int64, len(vr.Generators))
	for i, g := range vr.Generators {
		tuples[i] = g.Tuple()
	}
	return tuples
}

// Result is the full outcome of one calculation.
type Result struct {
	Link     string
	Command  Command
	Variants []*VariantResult
	Messages []string
	RunID    string // identifies the computation in log lines
	Err      error
}

// Tuples returns one tuple list per variant in report order.
func (res *Result) Tuples() [][][4]int64 {
	out := make([][][4]int64, len(res.Variants))
	for i, vr := range res.Variants {
		out[i] = vr.Tuples()
	}
	return out
}

// Request names everything needed to run a calculation from strings.
type Request struct {
	Ring    string // "0" or "Z", "Q", or a prime p
	Algebra string // "a0.a1...a(k-1)" or "[c0,c1,...,ck]"
	Root    string // integer value, or "u" / "u=a"
	Link    string // "braid<word>"
	Command string // "calc0", "calc1", "calc2"
}

// CatalogKey identifies one cached VariantResult.
type CatalogKey struct {
	Ring    string
	Algebra string
	Root    string
	Link    string
	Variant Variant
}

// CatalogEntry pairs a key with its stored result.
type CatalogEntry struct {
	Key    CatalogKey
	Result *VariantResult
}

// CatalogSelector selects entries by setup; empty fields match anything after them.
type CatalogSelector struct {
	Ring    string
	Algebra string
	Root    string
}

// OnEntryHit is used to return catalog entries meeting a selection.
type OnEntryHit chan<- CatalogEntry

// CatalogContext is a container for open / active Catalog instances.
type CatalogContext interface {

	// Attaches the given Catalog to this context.
	AttachCatalog(cat Catalog)

	// Detaches the given Catalog from this context.
	DetachCatalog(cat Catalog)

	// Closes all open catalogs to be closed then closes.
	Close()

	// Signals when Close() completed and all open Catalogs have been closed
	Done() <-chan struct{}
}

// CatalogOpts specifies params for opening a Catalog
type CatalogOpts struct {
	DbPathName string // omit for in-memory db
	ReadOnly   bool   // open in read-only mode
}

// ResultAdder accepts computed results.
type ResultAdder interface {

	// Tries to add the given result under the given key.
	// If true is returned, the key did not exist and was added.
	TryAdd(key CatalogKey, vr *VariantResult) bool
}

// Catalog wraps a database of computed homologies.
type Catalog interface {
	ResultAdder

	// Returns true if this catalog was opened for read-only access.
	IsReadOnly() bool

	// Lookup returns the stored result for key, if present.
	Lookup(key CatalogKey) (*VariantResult, bool)

	// NumEntries returns the number of stored results.
	NumEntries() int64

	// Select sends each entry meeting the selection criteria to onHit.
	Select(sel CatalogSelector, onHit OnEntryHit)

	Close() error
}
