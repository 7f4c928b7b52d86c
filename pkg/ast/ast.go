// Package ast defines the restricted SQL abstract syntax tree.
//
// The node set is closed: every type in this package belongs to the
// whitelist of constructs allowed past the restriction stage. Code outside
// pkg/restrict (and pkg/policy, which builds rule predicates through the
// same validated path) must not construct trees from arbitrary input.
package ast

import "github.com/Hacker0x01/h1ql/pkg/token"

// Statement represents a restricted SQL statement.
type Statement interface {
	stmtNode()
}

// Expr represents a restricted expression.
type Expr interface {
	exprNode()
}

// TableRef represents a table reference in a FROM clause.
type TableRef interface {
	tableRefNode()
}

// NodeInfo provides common fields for nodes that track source positions.
type NodeInfo struct {
	Span token.Span
}

// GetSpan returns the node's source span.
func (n *NodeInfo) GetSpan() token.Span {
	return n.Span
}

// ---------- Statement types ----------

// SelectStmt represents a complete SELECT statement with optional WITH clause.
type SelectStmt struct {
	NodeInfo
	With *WithClause
	Body *SelectBody
}

func (*SelectStmt) stmtNode() {}

// WithClause represents a WITH clause. RECURSIVE never survives restriction.
type WithClause struct {
	CTEs []*CTE
}

// CTE represents a common table expression.
type CTE struct {
	Name    string
	Columns []string
	Select  *SelectStmt
}

// SelectBody represents the body of a SELECT with possible set operations.
type SelectBody struct {
	Left  *SelectCore
	Op    SetOpType
	All   bool
	Right *SelectBody
}

// SetOpType represents the type of set operation.
type SetOpType string

// Set operations permitted in restricted queries.
const (
	SetOpNone      SetOpType = ""
	SetOpUnion     SetOpType = "UNION"
	SetOpIntersect SetOpType = "INTERSECT"
	SetOpExcept    SetOpType = "EXCEPT"
)

// SelectCore represents a single SELECT core.
type SelectCore struct {
	Distinct bool
	Columns  []SelectItem
	From     *FromClause
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderByItem
	Limit    Expr
	Offset   Expr
}

// SelectItem represents an item in the SELECT list.
type SelectItem struct {
	Star      bool   // SELECT *
	TableStar string // SELECT t.*
	Expr      Expr
	Alias     string
}

// FromClause represents a FROM clause. Multiple items form an implicit
// cross join (comma syntax).
type FromClause struct {
	Items []TableRef
}

// OrderByItem represents an item in an ORDER BY clause.
type OrderByItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool // nil means dialect default
}
