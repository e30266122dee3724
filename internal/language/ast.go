package language

// Program is a parsed script. It is immutable and may be shared between
// concurrent evaluations.
type Program struct {
	Source string
	Stmts  []Stmt
}

type Node interface {
	Pos() Position
}

// Stmt is one statement of a program or block.
type Stmt interface {
	Node
	stmt()
}

// Expr is an expression.
type Expr interface {
	Node
	expr()
}

type (
	// ExprStmt evaluates X; its value becomes the block's value when last.
	ExprStmt struct {
		X Expr
	}

	// AssignStmt binds Value to Target, an *Ident or a *Member.
	AssignStmt struct {
		At     Position
		Target Expr
		Value  Expr
		Def    bool
	}

	ForStmt struct {
		At   Position
		Var  string
		Iter Expr
		Body *Block
	}

	IfStmt struct {
		At   Position
		Cond Expr
		Then *Block
		Else Stmt // *Block, *IfStmt or nil
	}

	Block struct {
		At    Position
		Stmts []Stmt
	}
)

func (s *ExprStmt) Pos() Position   { return s.X.Pos() }
func (s *AssignStmt) Pos() Position { return s.At }
func (s *ForStmt) Pos() Position    { return s.At }
func (s *IfStmt) Pos() Position     { return s.At }
func (s *Block) Pos() Position      { return s.At }

func (*ExprStmt) stmt()   {}
func (*AssignStmt) stmt() {}
func (*ForStmt) stmt()    {}
func (*IfStmt) stmt()     {}
func (*Block) stmt()      {}

type (
	IntLit struct {
		At    Position
		Value int64
	}

	// FloatLit is a decimal literal; Single marks an f suffix.
	FloatLit struct {
		At     Position
		Value  float64
		Single bool
	}

	StringLit struct {
		At    Position
		Value string
	}

	BoolLit struct {
		At    Position
		Value bool
	}

	NullLit struct {
		At Position
	}

	Ident struct {
		At   Position
		Name string
	}

	ListLit struct {
		At    Position
		Elems []Expr
	}

	MapEntry struct {
		Key   string
		Value Expr
	}

	MapLit struct {
		At      Position
		Entries []MapEntry
	}

	// RangeExpr is the inclusive range From..To.
	RangeExpr struct {
		At       Position
		From, To Expr
	}

	Binary struct {
		At   Position
		Op   Kind
		X, Y Expr
	}

	Unary struct {
		At Position
		Op Kind
		X  Expr
	}

	// Member is a property or zero-argument step access without parentheses.
	Member struct {
		At   Position
		X    Expr
		Name string
	}

	// Call is a method call on Recv, or a call of a named closure when Recv
	// is nil. A trailing closure is the last element of Args.
	Call struct {
		At   Position
		Recv Expr
		Name string
		Args []Expr
	}

	Index struct {
		At    Position
		X     Expr
		Index Expr
	}

	ClosureLit struct {
		At     Position
		Params []string
		Body   *Block
	}

	NewExpr struct {
		At   Position
		Type string
		Args []Expr
	}
)

func (e *IntLit) Pos() Position     { return e.At }
func (e *FloatLit) Pos() Position   { return e.At }
func (e *StringLit) Pos() Position  { return e.At }
func (e *BoolLit) Pos() Position    { return e.At }
func (e *NullLit) Pos() Position    { return e.At }
func (e *Ident) Pos() Position      { return e.At }
func (e *ListLit) Pos() Position    { return e.At }
func (e *MapLit) Pos() Position     { return e.At }
func (e *RangeExpr) Pos() Position  { return e.At }
func (e *Binary) Pos() Position     { return e.At }
func (e *Unary) Pos() Position      { return e.At }
func (e *Member) Pos() Position     { return e.At }
func (e *Call) Pos() Position       { return e.At }
func (e *Index) Pos() Position      { return e.At }
func (e *ClosureLit) Pos() Position { return e.At }
func (e *NewExpr) Pos() Position    { return e.At }

func (*IntLit) expr()     {}
func (*FloatLit) expr()   {}
func (*StringLit) expr()  {}
func (*BoolLit) expr()    {}
func (*NullLit) expr()    {}
func (*Ident) expr()      {}
func (*ListLit) expr()    {}
func (*MapLit) expr()     {}
func (*RangeExpr) expr()  {}
func (*Binary) expr()     {}
func (*Unary) expr()      {}
func (*Member) expr()     {}
func (*Call) expr()       {}
func (*Index) expr()      {}
func (*ClosureLit) expr() {}
func (*NewExpr) expr()    {}
