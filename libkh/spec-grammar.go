package libkh

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/fine-structures/go-khoca/khoca"
	"github.com/fine-structures/go-khoca/libkh/frobenius"
	"github.com/fine-structures/go-khoca/libkh/ring"
	"github.com/pkg/errors"
)

// RingExpr is "0" (or "Z"), "Q", or a prime.
type RingExpr struct {
	Int   *int64  `parser:"  @Int"`
	Ident *string `parser:"| @Ident"`
}

// AlgebraExpr is either the dotted non-leading coefficients "a0.a1...a(k-1)" of the monic
// X^k + a(k-1) X^(k-1) + ... + a0, or the full coefficient list "[c0, c1, ..., ck]".
type AlgebraExpr struct {
	Full   *CoeffList `parser:"  @@"`
	Dotted []int64    `parser:"| @Int ( \".\" @Int )*"`
}

type CoeffList struct {
	Coeffs []int64 `parser:"\"[\" ( @Int ( \",\" @Int )* )? \"]\""`
}

// RootExpr is a root value "a", or a named indeterminate "u" or "u=a".
type RootExpr struct {
	Value *int64     `parser:"  @Int"`
	Named *NamedRoot `parser:"| @@"`
}

type NamedRoot struct {
	Symbol string `parser:"@Ident"`
	Value  int64  `parser:"( \"=\" @Int )?"`
}

// CommandExpr is "calc0", "calc1", or "calc2".
type CommandExpr struct {
	Name string `parser:"@Ident"`
}

var sSpecLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `-?[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[\[\],.=]`},
	{Name: "whitespace", Pattern: `[ \t]+`},
})

var (
	sParseRingExpr    = participle.MustBuild[RingExpr](participle.Lexer(sSpecLexer))
	sParseAlgebraExpr = participle.MustBuild[AlgebraExpr](participle.Lexer(sSpecLexer))
	sParseRootExpr    = participle.MustBuild[RootExpr](participle.Lexer(sSpecLexer))
	sParseCommandExpr = participle.MustBuild[CommandExpr](participle.Lexer(sSpecLexer))
)

// ParseRing reads a coefficient ring spec.
func ParseRing(spec string) (ring.Ring, error) {
	expr, err := sParseRingExpr.ParseString("", spec)
	if err != nil {
		return nil, errors.Wrapf(khoca.ErrUnsupportedRing, "parsing ring %q: %v", spec, err)
	}
	if expr.Int != nil {
		return ring.Parse(fmt.Sprint(*expr.Int))
	}
	return ring.Parse(*expr.Ident)
}

// ParseAlgebra reads a Frobenius algebra spec into the full (monic) coefficient list, low to high.
func ParseAlgebra(spec string) ([]int64, error) {
	expr, err := sParseAlgebraExpr.ParseString("", spec)
	if err != nil {
		return nil, errors.Wrapf(khoca.ErrUnsupportedAlgebra, "parsing algebra %q: %v", spec, err)
	}
	if expr.Full != nil {
		if len(expr.Full.Coeffs) < 2 {
			return nil, errors.Wrapf(khoca.ErrUnsupportedAlgebra, "algebra %q has degree < 1", spec)
		}
		return expr.Full.Coeffs, nil
	}
	return append(append([]int64(nil), expr.Dotted...), 1), nil
}

// ParseRoot reads the equivariant root spec.
func ParseRoot(spec string) (frobenius.Root, error) {
	expr, err := sParseRootExpr.ParseString("", spec)
	if err != nil {
		return frobenius.Root{}, errors.Wrapf(khoca.ErrUnsupportedAlgebra, "parsing root %q: %v", spec, err)
	}
	if expr.Value != nil {
		return frobenius.Root{Value: *expr.Value}, nil
	}
	return frobenius.Root{Symbol: expr.Named.Symbol, Value: expr.Named.Value}, nil
}

// ParseCommand reads "calc0", "calc1", or "calc2".
func ParseCommand(spec string) (khoca.Command, error) {
	expr, err := sParseCommandExpr.ParseString("", spec)
	if err == nil {
		for _, cmd := range []khoca.Command{khoca.CalcNonEquivariant, khoca.CalcEquivariant, khoca.CalcBoth} {
			if strings.EqualFold(expr.Name, cmd.String()) {
				return cmd, nil
			}
		}
		err = errors.New("unknown command")
	}
	return 0, errors.Wrapf(khoca.ErrUnsupportedCommand, "%q: %v", spec, err)
}
