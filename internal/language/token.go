package language

import "fmt"

// Kind classifies a token.
type Kind int

const (
	EOF Kind = iota
	Newline
	Identifier
	Int
	Float
	String

	// keywords
	KwFor
	KwIn
	KwIf
	KwElse
	KwDef
	KwTrue
	KwFalse
	KwNull
	KwNew

	// punctuation and operators
	Semicolon
	Comma
	Dot
	DotDot
	Colon
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	Arrow
	Assign
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	Shr
	Shl
	Plus
	Minus
	Star
	Slash
	Percent
	Not
	And
	Or
)

var kindNames = map[Kind]string{
	EOF: "end of input", Newline: "newline", Identifier: "identifier", Int: "integer",
	Float: "float", String: "string",
	KwFor: "for", KwIn: "in", KwIf: "if", KwElse: "else", KwDef: "def",
	KwTrue: "true", KwFalse: "false", KwNull: "null", KwNew: "new",
	Semicolon: ";", Comma: ",", Dot: ".", DotDot: "..", Colon: ":",
	LParen: "(", RParen: ")", LBracket: "[", RBracket: "]", LBrace: "{", RBrace: "}",
	Arrow: "->", Assign: "=", Eq: "==", Ne: "!=", Lt: "<", Le: "<=", Gt: ">", Ge: ">=",
	Shr: ">>", Shl: "<<", Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%",
	Not: "!", And: "&&", Or: "||",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var keywords = map[string]Kind{
	"for": KwFor, "in": KwIn, "if": KwIf, "else": KwElse, "def": KwDef,
	"true": KwTrue, "false": KwFalse, "null": KwNull, "new": KwNew,
}

// Position is a 1-based line and column in the script source.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// Token is a lexical token.
type Token struct {
	Kind Kind
	Text string // raw identifier/number text or decoded string value
	Pos  Position
}

// continues reports whether a line ending after k cannot end a statement.
func (k Kind) continues() bool {
	switch k {
	case Comma, Dot, DotDot, Colon, LParen, LBracket, LBrace, Arrow, Assign,
		Eq, Ne, Lt, Le, Gt, Ge, Shr, Shl, Plus, Minus, Star, Slash, Percent,
		Not, And, Or, KwIn, KwElse:
		return true
	}
	return false
}
