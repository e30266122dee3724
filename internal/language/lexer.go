package language

import (
	"strings"
	"unicode/utf8"
)

var doubleOps = map[string]Kind{
	"->": Arrow, "==": Eq, "!=": Ne, "<=": Le, ">=": Ge, ">>": Shr, "<<": Shl, "&&": And, "||": Or,
}

var singleOps = map[byte]Kind{
	';': Semicolon, ',': Comma, '.': Dot, ':': Colon, '(': LParen, ')': RParen,
	'[': LBracket, ']': RBracket, '{': LBrace, '}': RBrace, '=': Assign,
	'<': Lt, '>': Gt, '+': Plus, '-': Minus, '*': Star, '/': Slash, '%': Percent, '!': Not,
}

type lexer struct {
	src    string
	off    int
	line   int
	col    int
	nest   []Kind // open ( [ and {
	tokens []Token
}

// Lex splits src into tokens. Newlines are reported only where they can
// terminate a statement.
func Lex(src string) ([]Token, error) {
	lx := &lexer{src: src, line: 1, col: 1}
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == Newline && !lx.newlineSignificant() {
			continue
		}
		lx.tokens = append(lx.tokens, tok)
		if tok.Kind == EOF {
			return lx.tokens, nil
		}
	}
}

func (lx *lexer) newlineSignificant() bool {
	if n := len(lx.nest); n > 0 && lx.nest[n-1] != LBrace || len(lx.tokens) == 0 {
		return false
	}
	last := lx.tokens[len(lx.tokens)-1]
	if last.Kind == Newline || last.Kind == Semicolon || last.Kind.continues() {
		return false
	}
	// a following line starting with ".step" continues the chain
	rest := strings.TrimLeft(lx.src[lx.off:], " \t\r\n")
	return !(strings.HasPrefix(rest, ".") && !strings.HasPrefix(rest, ".."))
}

func (lx *lexer) errorf(pos Position, format string, args ...any) error {
	return newSyntaxError(pos, format, args...)
}

func (lx *lexer) peekByte(n int) byte {
	if lx.off+n < len(lx.src) {
		return lx.src[lx.off+n]
	}
	return 0
}

func (lx *lexer) advance(n int) {
	for i := 0; i < n && lx.off < len(lx.src); i++ {
		if lx.src[lx.off] == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
		lx.off++
	}
}

func (lx *lexer) skipSpaceAndComments() error {
	for lx.off < len(lx.src) {
		c := lx.src[lx.off]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			lx.advance(1)
		case c == '/' && lx.peekByte(1) == '/':
			for lx.off < len(lx.src) && lx.src[lx.off] != '\n' {
				lx.advance(1)
			}
		case c == '/' && lx.peekByte(1) == '*':
			start := Position{lx.line, lx.col}
			end := strings.Index(lx.src[lx.off+2:], "*/")
			if end < 0 {
				return lx.errorf(start, "unterminated comment")
			}
			lx.advance(end + 4)
		default:
			return nil
		}
	}
	return nil
}

func (lx *lexer) next() (Token, error) {
	if err := lx.skipSpaceAndComments(); err != nil {
		return Token{}, err
	}
	pos := Position{lx.line, lx.col}
	if lx.off >= len(lx.src) {
		return Token{Kind: EOF, Pos: pos}, nil
	}
	c := lx.src[lx.off]
	switch {
	case c == '\n':
		lx.advance(1)
		return Token{Kind: Newline, Pos: pos}, nil
	case c == '\'' || c == '"':
		return lx.lexString(pos, c)
	case isDigit(c):
		return lx.lexNumber(pos)
	case c == '_' || c == '$' || isLetter(c):
		return lx.lexIdent(pos), nil
	}

	two := ""
	if lx.off+2 <= len(lx.src) {
		two = lx.src[lx.off : lx.off+2]
	}
	switch two {
	case "..":
		lx.advance(2)
		return Token{Kind: DotDot, Text: two, Pos: pos}, nil
	case "->", "==", "!=", "<=", ">=", ">>", "<<", "&&", "||":
		lx.advance(2)
		return Token{Kind: doubleOps[two], Text: two, Pos: pos}, nil
	}

	if k, ok := singleOps[c]; ok {
		switch k {
		case LParen, LBracket, LBrace:
			lx.nest = append(lx.nest, k)
		case RParen, RBracket, RBrace:
			if n := len(lx.nest); n > 0 {
				lx.nest = lx.nest[:n-1]
			}
		}
		lx.advance(1)
		return Token{Kind: k, Text: string(c), Pos: pos}, nil
	}
	r, _ := utf8.DecodeRuneInString(lx.src[lx.off:])
	return Token{}, lx.errorf(pos, "unexpected character %q", r)
}

func (lx *lexer) lexIdent(pos Position) Token {
	start := lx.off
	for lx.off < len(lx.src) {
		c := lx.src[lx.off]
		if c == '_' || c == '$' || isLetter(c) || isDigit(c) {
			lx.advance(1)
			continue
		}
		break
	}
	text := lx.src[start:lx.off]
	if k, ok := keywords[text]; ok {
		return Token{Kind: k, Text: text, Pos: pos}
	}
	return Token{Kind: Identifier, Text: text, Pos: pos}
}

func (lx *lexer) lexNumber(pos Position) (Token, error) {
	start := lx.off
	kind := Int
	for isDigit(lx.peekByte(0)) {
		lx.advance(1)
	}
	if lx.peekByte(0) == '.' && isDigit(lx.peekByte(1)) {
		kind = Float
		lx.advance(1)
		for isDigit(lx.peekByte(0)) {
			lx.advance(1)
		}
	}
	if c := lx.peekByte(0); c == 'e' || c == 'E' {
		n := 1
		if s := lx.peekByte(1); s == '+' || s == '-' {
			n = 2
		}
		if isDigit(lx.peekByte(n)) {
			kind = Float
			lx.advance(n)
			for isDigit(lx.peekByte(0)) {
				lx.advance(1)
			}
		}
	}
	text := lx.src[start:lx.off]
	switch lx.peekByte(0) {
	case 'f', 'F':
		lx.advance(1)
		return Token{Kind: Float, Text: text + "f", Pos: pos}, nil
	case 'd', 'D':
		lx.advance(1)
		return Token{Kind: Float, Text: text, Pos: pos}, nil
	case 'l', 'L', 'i', 'I', 'g', 'G':
		if kind == Float {
			return Token{}, lx.errorf(pos, "invalid integer suffix on %s", text)
		}
		lx.advance(1)
	}
	if c := lx.peekByte(0); isLetter(c) || c == '_' {
		return Token{}, lx.errorf(Position{lx.line, lx.col}, "invalid character %q in number", c)
	}
	return Token{Kind: kind, Text: text, Pos: pos}, nil
}

func (lx *lexer) lexString(pos Position, quote byte) (Token, error) {
	lx.advance(1)
	var b strings.Builder
	for {
		if lx.off >= len(lx.src) {
			return Token{}, lx.errorf(pos, "unterminated string")
		}
		c := lx.src[lx.off]
		switch {
		case c == quote:
			lx.advance(1)
			return Token{Kind: String, Text: b.String(), Pos: pos}, nil
		case c == '\n':
			return Token{}, lx.errorf(pos, "unterminated string")
		case c == '\\':
			esc := lx.peekByte(1)
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '\'', '"', '$':
				b.WriteByte(esc)
			default:
				return Token{}, lx.errorf(Position{lx.line, lx.col}, "invalid escape \\%c", esc)
			}
			lx.advance(2)
		default:
			r, size := utf8.DecodeRuneInString(lx.src[lx.off:])
			b.WriteRune(r)
			lx.advance(size)
		}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
