package language

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) cur() Token { return p.toks[p.pos] }

func (p *parser) peek(n int) Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Kind != EOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(k Kind) bool {
	if p.cur().Kind == k {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(k Kind) (Token, error) {
	t := p.cur()
	if t.Kind != k {
		return t, unexpected(t, k.String())
	}
	return p.next(), nil
}

func (p *parser) skipSeparators() {
	for p.cur().Kind == Newline || p.cur().Kind == Semicolon {
		p.next()
	}
}

func (p *parser) parseStmts(end Kind) ([]Stmt, error) {
	var stmts []Stmt
	for {
		p.skipSeparators()
		if p.cur().Kind == end {
			return stmts, nil
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
		switch p.cur().Kind {
		case Newline, Semicolon:
		case end:
			return stmts, nil
		default:
			return nil, unexpected(p.cur(), "; or newline")
		}
	}
}

func (p *parser) parseStmt() (Stmt, error) {
	switch p.cur().Kind {
	case KwFor:
		return p.parseFor()
	case KwIf:
		return p.parseIf()
	case KwDef:
		at := p.next().Pos
		name, err := p.expect(Identifier)
		if err != nil {
			return nil, err
		}
		target := &Ident{At: name.Pos, Name: name.Text}
		if !p.accept(Assign) {
			return &AssignStmt{At: at, Target: target, Value: &NullLit{At: name.Pos}, Def: true}, nil
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &AssignStmt{At: at, Target: target, Value: val, Def: true}, nil
	}

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != Assign {
		return &ExprStmt{X: x}, nil
	}
	at := p.next().Pos
	switch x.(type) {
	case *Ident, *Member:
	default:
		return nil, newSyntaxError(at, "invalid assignment target")
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &AssignStmt{At: at, Target: x, Value: val}, nil
}

func (p *parser) parseFor() (Stmt, error) {
	at := p.next().Pos
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}
	p.accept(KwDef)
	name, err := p.expect(Identifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KwIn); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	return &ForStmt{At: at, Var: name.Text, Iter: iter, Body: body}, nil
}

func (p *parser) parseIf() (*IfStmt, error) {
	at := p.next().Pos
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}
	then, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	s := &IfStmt{At: at, Cond: cond, Then: then}

	// else may sit on the following line
	save := p.pos
	for p.cur().Kind == Newline {
		p.next()
	}
	if !p.accept(KwElse) {
		p.pos = save
		return s, nil
	}
	if p.cur().Kind == KwIf {
		s.Else, err = p.parseIf()
	} else {
		s.Else, err = p.parseBody()
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// parseBody parses a braced block or a single statement.
func (p *parser) parseBody() (*Block, error) {
	at := p.cur().Pos
	if p.accept(LBrace) {
		stmts, err := p.parseStmts(RBrace)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RBrace); err != nil {
			return nil, err
		}
		return &Block{At: at, Stmts: stmts}, nil
	}
	s, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &Block{At: at, Stmts: []Stmt{s}}, nil
}

func (p *parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *parser) parseBinaryLevel(operand func() (Expr, error), ops ...Kind) (Expr, error) {
	x, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.cur()
		if !kindIn(tok.Kind, ops) {
			return x, nil
		}
		p.next()
		y, err := operand()
		if err != nil {
			return nil, err
		}
		x = &Binary{At: tok.Pos, Op: tok.Kind, X: x, Y: y}
	}
}

func (p *parser) parseOr() (Expr, error) { return p.parseBinaryLevel(p.parseAnd, Or) }
func (p *parser) parseAnd() (Expr, error) {
	return p.parseBinaryLevel(p.parseComparison, And)
}

func (p *parser) parseComparison() (Expr, error) {
	x, err := p.parseRange()
	if err != nil {
		return nil, err
	}
	tok := p.cur()
	if !kindIn(tok.Kind, []Kind{Eq, Ne, Lt, Le, Gt, Ge}) {
		return x, nil
	}
	p.next()
	y, err := p.parseRange()
	if err != nil {
		return nil, err
	}
	return &Binary{At: tok.Pos, Op: tok.Kind, X: x, Y: y}, nil
}

func (p *parser) parseRange() (Expr, error) {
	x, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	tok := p.cur()
	if tok.Kind != DotDot {
		return x, nil
	}
	p.next()
	y, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	return &RangeExpr{At: tok.Pos, From: x, To: y}, nil
}

func (p *parser) parseShift() (Expr, error) { return p.parseBinaryLevel(p.parseAdditive, Shr, Shl) }
func (p *parser) parseAdditive() (Expr, error) {
	return p.parseBinaryLevel(p.parseMultiplicative, Plus, Minus)
}
func (p *parser) parseMultiplicative() (Expr, error) {
	return p.parseBinaryLevel(p.parseUnary, Star, Slash, Percent)
}

func (p *parser) parseUnary() (Expr, error) {
	tok := p.cur()
	if tok.Kind != Minus && tok.Kind != Not {
		return p.parsePostfix()
	}
	p.next()
	// a signed literal reaches math.MinInt64, which has no positive form
	if tok.Kind == Minus && p.cur().Kind == Int && !continuesPostfix(p.peek(1).Kind) {
		lit := p.next()
		lit.Text = "-" + lit.Text
		lit.Pos = tok.Pos
		return parseIntLit(lit)
	}
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	// fold negative literals so that -1 stays a literal
	if tok.Kind == Minus {
		switch lit := x.(type) {
		case *IntLit:
			return &IntLit{At: tok.Pos, Value: -lit.Value}, nil
		case *FloatLit:
			return &FloatLit{At: tok.Pos, Value: -lit.Value, Single: lit.Single}, nil
		}
	}
	return &Unary{At: tok.Pos, Op: tok.Kind, X: x}, nil
}

func continuesPostfix(k Kind) bool { return k == Dot || k == LBracket || k == LParen }

func (p *parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case Dot:
			p.next()
			name := p.cur()
			if name.Kind != Identifier && keywordText(name.Kind) == "" {
				return nil, unexpected(name, "member name")
			}
			p.next()
			text := name.Text
			if text == "" {
				text = keywordText(name.Kind)
			}
			switch p.cur().Kind {
			case LParen, LBrace:
				args, err := p.parseCallArgs()
				if err != nil {
					return nil, err
				}
				x = &Call{At: name.Pos, Recv: x, Name: text, Args: args}
			default:
				x = &Member{At: name.Pos, X: x, Name: text}
			}
		case LBracket:
			at := p.next().Pos
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RBracket); err != nil {
				return nil, err
			}
			x = &Index{At: at, X: x, Index: idx}
		default:
			return x, nil
		}
	}
}

// parseCallArgs parses "(args)" and/or a trailing closure.
func (p *parser) parseCallArgs() ([]Expr, error) {
	var args []Expr
	if p.accept(LParen) {
		var named *MapLit
		for p.cur().Kind != RParen {
			if isMapKey(p.cur().Kind) && p.peek(1).Kind == Colon {
				if named == nil {
					named = &MapLit{At: p.cur().Pos}
					args = append(args, named)
				}
				e, err := p.parseMapEntry()
				if err != nil {
					return nil, err
				}
				named.Entries = append(named.Entries, e)
			} else {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
			}
			if !p.accept(Comma) {
				break
			}
		}
		if _, err := p.expect(RParen); err != nil {
			return nil, err
		}
	}
	if p.cur().Kind == LBrace {
		c, err := p.parseClosure()
		if err != nil {
			return nil, err
		}
		args = append(args, c)
	}
	if args == nil {
		args = []Expr{}
	}
	return args, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case Int:
		p.next()
		return parseIntLit(tok)
	case Float:
		p.next()
		return parseFloatLit(tok)
	case String:
		p.next()
		return &StringLit{At: tok.Pos, Value: tok.Text}, nil
	case KwTrue, KwFalse:
		p.next()
		return &BoolLit{At: tok.Pos, Value: tok.Kind == KwTrue}, nil
	case KwNull:
		p.next()
		return &NullLit{At: tok.Pos}, nil
	case Identifier:
		p.next()
		if p.cur().Kind == LParen {
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			return &Call{At: tok.Pos, Name: tok.Text, Args: args}, nil
		}
		return &Ident{At: tok.Pos, Name: tok.Text}, nil
	case LParen:
		p.next()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RParen); err != nil {
			return nil, err
		}
		return x, nil
	case LBracket:
		return p.parseListOrMap()
	case LBrace:
		return p.parseClosure()
	case KwNew:
		p.next()
		typ, err := p.expect(Identifier)
		if err != nil {
			return nil, err
		}
		if p.cur().Kind != LParen {
			return nil, unexpected(p.cur(), "(")
		}
		args, err := p.parseCallArgs()
		if err != nil {
			return nil, err
		}
		return &NewExpr{At: tok.Pos, Type: typ.Text, Args: args}, nil
	}
	return nil, unexpected(tok, "expression")
}

func (p *parser) parseListOrMap() (Expr, error) {
	at := p.next().Pos
	if p.accept(RBracket) {
		return &ListLit{At: at, Elems: []Expr{}}, nil
	}
	if p.cur().Kind == Colon && p.peek(1).Kind == RBracket {
		p.next()
		p.next()
		return &MapLit{At: at}, nil
	}
	if isMapKey(p.cur().Kind) && p.peek(1).Kind == Colon {
		m := &MapLit{At: at}
		for {
			e, err := p.parseMapEntry()
			if err != nil {
				return nil, err
			}
			m.Entries = append(m.Entries, e)
			if !p.accept(Comma) || p.cur().Kind == RBracket {
				break
			}
		}
		if _, err := p.expect(RBracket); err != nil {
			return nil, err
		}
		return m, nil
	}
	l := &ListLit{At: at}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		l.Elems = append(l.Elems, e)
		if !p.accept(Comma) || p.cur().Kind == RBracket {
			break
		}
	}
	if _, err := p.expect(RBracket); err != nil {
		return nil, err
	}
	return l, nil
}

func (p *parser) parseMapEntry() (MapEntry, error) {
	k := p.next()
	key := k.Text
	if key == "" {
		key = keywordText(k.Kind)
	}
	if _, err := p.expect(Colon); err != nil {
		return MapEntry{}, err
	}
	v, err := p.parseExpr()
	if err != nil {
		return MapEntry{}, err
	}
	return MapEntry{Key: key, Value: v}, nil
}

func (p *parser) parseClosure() (*ClosureLit, error) {
	at := p.next().Pos
	c := &ClosureLit{At: at}
	if n, ok := p.closureParams(); ok {
		for i := 0; i < n; i++ {
			c.Params = append(c.Params, p.next().Text)
			p.accept(Comma)
		}
		p.next() // ->
	}
	stmts, err := p.parseStmts(RBrace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RBrace); err != nil {
		return nil, err
	}
	c.Body = &Block{At: at, Stmts: stmts}
	return c, nil
}

// closureParams reports whether the tokens ahead form "a, b ->" and how
// many parameters they name.
func (p *parser) closureParams() (int, bool) {
	i, n := 0, 0
	for {
		switch p.peek(i).Kind {
		case Arrow:
			return n, true
		case Identifier:
			n++
			i++
			switch p.peek(i).Kind {
			case Comma:
				i++
			case Arrow:
			default:
				return 0, false
			}
		default:
			return 0, false
		}
	}
}

func isMapKey(k Kind) bool {
	return k == Identifier || k == String || k == Int || keywordText(k) != ""
}

func keywordText(k Kind) string {
	for text, kw := range keywords {
		if kw == k {
			return text
		}
	}
	return ""
}

func kindIn(k Kind, ks []Kind) bool {
	for _, x := range ks {
		if x == k {
			return true
		}
	}
	return false
}
