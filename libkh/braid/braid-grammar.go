package braid

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/fine-structures/go-khoca/khoca"
	"github.com/pkg/errors"
)

// LinkPrefix introduces a braid link string, e.g. "braidaBaB".
const LinkPrefix = "braid"

// BraidExpr is a braid word with an optional leading strand count, e.g. "3:aBa".
type BraidExpr struct {
	Strands *int     `parser:"( @Int \":\" )?"`
	Letters []string `parser:"@Letter*"`
}

var sBraidLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `:`},
	{Name: "Letter", Pattern: `[A-Za-z]`},
	{Name: "whitespace", Pattern: `[ \t]+`},
})

var sParseBraidExpr = participle.MustBuild[BraidExpr](
	participle.Lexer(sBraidLexer),
)

// Parse reads a link string "braid<word>".  The prefix may be omitted.
//
// An empty word does not describe a diagram; use Trivial for the unknot.
func Parse(link string) (*Diagram, error) {
	word := strings.TrimPrefix(strings.TrimSpace(link), LinkPrefix)

	expr, err := sParseBraidExpr.ParseString("", word)
	if err != nil {
		return nil, errors.Wrapf(khoca.ErrMalformedDiagram, "parsing %q: %v", link, err)
	}
	if len(expr.Letters) == 0 {
		return nil, errors.Wrapf(khoca.ErrMalformedDiagram, "%q has an empty braid word", link)
	}

	crossings := make([]Crossing, len(expr.Letters))
	strands := 1
	for i, letter := range expr.Letters {
		r := letter[0]
		var c Crossing
		switch {
		case r >= 'a' && r <= 'z':
			c = Crossing{Strand: int(r - 'a'), Sign: 1}
		case r >= 'A' && r <= 'Z':
			c = Crossing{Strand: int(r - 'A'), Sign: -1}
		}
		if c.Strand+2 > strands {
			strands = c.Strand + 2
		}
		crossings[i] = c
	}

	if expr.Strands != nil {
		if *expr.Strands < strands {
			return nil, errors.Wrapf(khoca.ErrMalformedDiagram, "%q declares %d strands but uses %d", link, *expr.Strands, strands)
		}
		strands = *expr.Strands
	}

	return New(strands, crossings)
}
