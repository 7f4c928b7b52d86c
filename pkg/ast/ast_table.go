package ast

// TableName represents a (possibly schema-qualified) physical table
// reference, or a reference to a name bound earlier in the query (CTE).
type TableName struct {
	NodeInfo
	Schema string
	Name   string
	Alias  string
}

func (*TableName) tableRefNode() {}

// EffectiveAlias returns the name sibling column references resolve against.
func (t *TableName) EffectiveAlias() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// DerivedTable represents a subquery in a FROM clause.
//
// FromPolicy marks derived tables synthesized by the authorization stage to
// enforce row-level rules. A marked table is never wrapped again and its body
// is never re-inspected, which makes authorization idempotent.
type DerivedTable struct {
	NodeInfo
	Select     *SelectStmt
	Alias      string
	FromPolicy bool
}

func (*DerivedTable) tableRefNode() {}

// JoinTable represents a join between two table references.
type JoinTable struct {
	NodeInfo
	Left  TableRef
	Type  JoinType
	Right TableRef
	On    Expr
	Using []string
}

func (*JoinTable) tableRefNode() {}

// JoinType represents the type of join; the value is the SQL keyword.
type JoinType string

// Join types permitted in restricted queries.
const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
)
