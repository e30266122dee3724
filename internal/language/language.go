// Package language parses graph traversal scripts written in a small
// Groovy-flavoured dialect: statements separated by newlines or semicolons,
// variables, for/if, closures, list/map/range literals and chained method
// calls such as g.v(1).outE('knows').inV.name.
package language

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses src into a Program.
func Parse(src string) (*Program, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	stmts, err := p.parseStmts(EOF)
	if err != nil {
		return nil, err
	}
	return &Program{Source: src, Stmts: stmts}, nil
}

func parseIntLit(tok Token) (Expr, error) {
	n, err := strconv.ParseInt(tok.Text, 10, 64)
	if err != nil {
		return nil, newSyntaxError(tok.Pos, "integer literal %s out of range", tok.Text)
	}
	return &IntLit{At: tok.Pos, Value: n}, nil
}

func parseFloatLit(tok Token) (Expr, error) {
	text, single := strings.CutSuffix(tok.Text, "f")
	bits := 64
	if single {
		bits = 32
	}
	f, err := strconv.ParseFloat(text, bits)
	if err != nil {
		return nil, newSyntaxError(tok.Pos, "invalid float literal %s", tok.Text)
	}
	return &FloatLit{At: tok.Pos, Value: f, Single: single}, nil
}

func unexpected(tok Token, want string) error {
	got := tok.Kind.String()
	if tok.Kind == Identifier || tok.Kind == Int || tok.Kind == Float {
		got = fmt.Sprintf("%s %q", got, tok.Text)
	}
	return newSyntaxError(tok.Pos, "unexpected %s, expecting %s", got, want)
}
