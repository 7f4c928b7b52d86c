package ast

// ColumnRef represents a column reference (possibly qualified).
type ColumnRef struct {
	Table  string // optional table/alias qualifier
	Column string
}

func (*ColumnRef) exprNode() {}

// AttrRef represents a requester-attribute placeholder inside a policy
// predicate template. It only ever appears in rule predicates built by the
// policy loader; the authorization stage substitutes it with a literal
// before any tree reaches the emitter.
type AttrRef struct {
	Name string
}

func (*AttrRef) exprNode() {}

// Literal represents a literal value.
type Literal struct {
	Type  LiteralType
	Value string
}

func (*Literal) exprNode() {}

// LiteralType represents the type of a literal.
type LiteralType int

// Literal value types.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
	LiteralNull
)

// Null returns a NULL literal.
func Null() *Literal {
	return &Literal{Type: LiteralNull, Value: "NULL"}
}

// Bool returns a boolean literal.
func Bool(v bool) *Literal {
	if v {
		return &Literal{Type: LiteralBool, Value: "true"}
	}
	return &Literal{Type: LiteralBool, Value: "false"}
}

// BinaryExpr represents a binary expression. Op is the SQL operator text
// (already validated against the operator whitelist by the restriction
// stage), including AND and OR.
type BinaryExpr struct {
	Left  Expr
	Op    string
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr represents a unary expression (NOT, -, +).
type UnaryExpr struct {
	Op   string
	Expr Expr
}

func (*UnaryExpr) exprNode() {}

// FuncCall represents a whitelisted function call.
type FuncCall struct {
	Name     string
	Distinct bool
	Args     []Expr
	Star     bool // COUNT(*)
	Window   *WindowSpec
}

func (*FuncCall) exprNode() {}

// WindowSpec represents an inline OVER clause with the default frame.
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []OrderByItem
}

// CaseExpr represents a CASE expression.
//
// FromPolicy marks mask expressions synthesized by the authorization stage
// for column-level rules; marked expressions are skipped on re-authorization.
type CaseExpr struct {
	Operand    Expr
	Whens      []WhenClause
	Else       Expr
	FromPolicy bool
}

func (*CaseExpr) exprNode() {}

// WhenClause represents a WHEN arm in a CASE expression.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CastExpr represents a CAST expression with a plain type name.
type CastExpr struct {
	Expr     Expr
	TypeName string
}

func (*CastExpr) exprNode() {}

// InExpr represents an IN expression over a value list or a subquery.
type InExpr struct {
	Expr   Expr
	Not    bool
	Values []Expr
	Query  *SelectStmt
}

func (*InExpr) exprNode() {}

// BetweenExpr represents a BETWEEN expression.
type BetweenExpr struct {
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

func (*BetweenExpr) exprNode() {}

// IsNullExpr represents an IS [NOT] NULL expression.
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

func (*IsNullExpr) exprNode() {}

// IsBoolExpr represents an IS [NOT] TRUE/FALSE expression.
type IsBoolExpr struct {
	Expr  Expr
	Not   bool
	Value bool
}

func (*IsBoolExpr) exprNode() {}

// LikeExpr represents a LIKE or ILIKE expression.
type LikeExpr struct {
	Expr            Expr
	Not             bool
	Pattern         Expr
	CaseInsensitive bool
}

func (*LikeExpr) exprNode() {}

// SubqueryExpr represents a scalar subquery.
type SubqueryExpr struct {
	Select *SelectStmt
}

func (*SubqueryExpr) exprNode() {}

// ExistsExpr represents an EXISTS expression.
type ExistsExpr struct {
	Not    bool
	Select *SelectStmt
}

func (*ExistsExpr) exprNode() {}
