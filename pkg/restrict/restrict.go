// Package restrict transforms the external parser's generic tree into the
// restricted AST.
//
// The transformer is fail-closed: every node kind must be explicitly mapped
// to a whitelisted ast node, and any kind without a mapping is rejected with
// an UnsupportedConstructError naming it. Traversal is depth-first and
// left-to-right in a fixed clause order, so the first offending construct
// reported is stable across runs on identical input. Rejection is total:
// no partial restricted AST is ever returned.
package restrict

import (
	"fmt"
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v6"

	"github.com/Hacker0x01/h1ql/pkg/ast"
	"github.com/Hacker0x01/h1ql/pkg/parse"
	"github.com/Hacker0x01/h1ql/pkg/token"
)

// Restrictor validates generic parse trees against the safe SQL subset.
// The zero value is not usable; construct with New.
type Restrictor struct {
	funcs map[string]struct{}
}

// Option configures a Restrictor.
type Option func(*Restrictor)

// WithFunctions extends the function whitelist beyond DefaultFunctions.
func WithFunctions(names ...string) Option {
	return func(r *Restrictor) {
		for _, name := range names {
			r.funcs[strings.ToLower(name)] = struct{}{}
		}
	}
}

// New creates a Restrictor with the default whitelists.
func New(opts ...Option) *Restrictor {
	r := &Restrictor{funcs: make(map[string]struct{}, len(DefaultFunctions))}
	for _, name := range DefaultFunctions {
		r.funcs[name] = struct{}{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Restrict converts one parsed statement into the restricted AST.
// The input parse result is never mutated.
func (r *Restrictor) Restrict(res *parse.Result) (*ast.SelectStmt, error) {
	run := &restriction{funcs: r.funcs, index: res.Index}

	if len(res.Stmts) == 0 {
		return nil, &UnsupportedConstructError{Kind: "empty statement"}
	}
	if len(res.Stmts) > 1 {
		return nil, run.unsupported("multiple statements", int(res.Stmts[1].GetStmtLocation()))
	}

	raw := res.Stmts[0]
	sel := raw.GetStmt().GetSelectStmt()
	if sel == nil {
		return nil, run.unsupported(stmtKind(raw.GetStmt()), int(raw.GetStmtLocation()))
	}

	stmt, err := run.selectStmt(sel, int(raw.GetStmtLocation()))
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

// restriction carries per-invocation state for one restriction pass.
type restriction struct {
	funcs map[string]struct{}
	index *token.Index
}

func (run *restriction) unsupported(kind string, offset int) error {
	var span token.Span
	if run.index != nil && offset >= 0 {
		span = run.index.SpanAt(offset)
	}
	return &UnsupportedConstructError{Kind: kind, Span: span}
}

// selectStmt transforms a full SELECT statement, including WITH and set
// operations. loc is the closest known source offset for error reporting.
func (run *restriction) selectStmt(sel *pgquery.SelectStmt, loc int) (*ast.SelectStmt, error) {
	out := &ast.SelectStmt{}
	if run.index != nil {
		out.Span = run.index.SpanAt(max(loc, 0))
	}

	if with := sel.GetWithClause(); with != nil {
		clause, err := run.withClause(with)
		if err != nil {
			return nil, err
		}
		out.With = clause
	}

	body, err := run.selectBody(sel, loc)
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

func (run *restriction) withClause(with *pgquery.WithClause) (*ast.WithClause, error) {
	if with.GetRecursive() {
		return nil, run.unsupported("WITH RECURSIVE", int(with.GetLocation()))
	}
	out := &ast.WithClause{}
	for _, node := range with.GetCtes() {
		cte := node.GetCommonTableExpr()
		if cte == nil {
			return nil, run.unsupported(nodeKind(node), int(with.GetLocation()))
		}
		if cte.GetSearchClause() != nil || cte.GetCycleClause() != nil {
			return nil, run.unsupported("CTE SEARCH/CYCLE clause", int(cte.GetLocation()))
		}
		inner := cte.GetCtequery().GetSelectStmt()
		if inner == nil {
			return nil, run.unsupported(nodeKind(cte.GetCtequery()), int(cte.GetLocation()))
		}
		sel, err := run.selectStmt(inner, int(cte.GetLocation()))
		if err != nil {
			return nil, err
		}
		var cols []string
		for _, cn := range cte.GetAliascolnames() {
			cols = append(cols, cn.GetString_().GetSval())
		}
		out.CTEs = append(out.CTEs, &ast.CTE{
			Name:    cte.GetCtename(),
			Columns: cols,
			Select:  sel,
		})
	}
	return out, nil
}

func (run *restriction) selectBody(sel *pgquery.SelectStmt, loc int) (*ast.SelectBody, error) {
	if sel.GetOp() == pgquery.SetOperation_SETOP_NONE {
		core, err := run.selectCore(sel, loc)
		if err != nil {
			return nil, err
		}
		return &ast.SelectBody{Left: core}, nil
	}

	var op ast.SetOpType
	switch sel.GetOp() {
	case pgquery.SetOperation_SETOP_UNION:
		op = ast.SetOpUnion
	case pgquery.SetOperation_SETOP_INTERSECT:
		op = ast.SetOpIntersect
	case pgquery.SetOperation_SETOP_EXCEPT:
		op = ast.SetOpExcept
	default:
		return nil, run.unsupported(fmt.Sprintf("set operation %s", sel.GetOp()), loc)
	}

	left, err := run.selectBody(sel.GetLarg(), loc)
	if err != nil {
		return nil, err
	}
	right, err := run.selectBody(sel.GetRarg(), loc)
	if err != nil {
		return nil, err
	}

	// Set operation trees arrive left-deep; the body is a flat chain, so
	// splice the arms together. The flat chain only keeps groupings that
	// paren-free SQL reproduces: INTERSECT binds tighter than UNION and
	// EXCEPT, which associate left. Anything else has no representation.
	if chainMinPrec(left) < setOpPrec(op) {
		return nil, run.unsupported("nested set operation grouping", loc)
	}
	if right.Op != ast.SetOpNone && chainMinPrec(right) <= setOpPrec(op) {
		return nil, run.unsupported("nested set operation grouping", loc)
	}

	tail := left
	for tail.Op != ast.SetOpNone {
		tail = tail.Right
	}
	tail.Op = op
	tail.All = sel.GetAll()
	tail.Right = right
	return left, nil
}

func setOpPrec(op ast.SetOpType) int {
	if op == ast.SetOpIntersect {
		return 2
	}
	return 1
}

// chainMinPrec returns the loosest-binding operator in a body chain; a
// single-arm chain binds tighter than any operator.
func chainMinPrec(body *ast.SelectBody) int {
	prec := 3
	for ; body.Op != ast.SetOpNone; body = body.Right {
		prec = min(prec, setOpPrec(body.Op))
	}
	return prec
}

// selectCore transforms one SELECT core in clause order: projection, FROM,
// WHERE, GROUP BY, HAVING, ORDER BY, LIMIT, OFFSET.
func (run *restriction) selectCore(sel *pgquery.SelectStmt, loc int) (*ast.SelectCore, error) {
	switch {
	case sel.GetIntoClause() != nil:
		return nil, run.unsupported("SELECT INTO", loc)
	case len(sel.GetValuesLists()) > 0:
		return nil, run.unsupported("VALUES list", loc)
	case len(sel.GetLockingClause()) > 0:
		return nil, run.unsupported("row locking clause (FOR UPDATE/SHARE)", loc)
	case len(sel.GetWindowClause()) > 0:
		return nil, run.unsupported("named WINDOW clause", loc)
	case sel.GetLimitOption() == pgquery.LimitOption_LIMIT_OPTION_WITH_TIES:
		return nil, run.unsupported("FETCH WITH TIES", loc)
	case sel.GetGroupDistinct():
		return nil, run.unsupported("GROUP BY DISTINCT", loc)
	}

	out := &ast.SelectCore{}

	// Plain DISTINCT parses as a single empty node; DISTINCT ON carries
	// expressions and is rejected.
	if distinct := sel.GetDistinctClause(); len(distinct) > 0 {
		for _, d := range distinct {
			if d.GetNode() != nil {
				return nil, run.unsupported("DISTINCT ON", loc)
			}
		}
		out.Distinct = true
	}

	for _, target := range sel.GetTargetList() {
		item, err := run.selectItem(target)
		if err != nil {
			return nil, err
		}
		out.Columns = append(out.Columns, item)
	}

	if from := sel.GetFromClause(); len(from) > 0 {
		out.From = &ast.FromClause{}
		for _, item := range from {
			ref, err := run.tableRef(item)
			if err != nil {
				return nil, err
			}
			out.From.Items = append(out.From.Items, ref)
		}
	}

	if where := sel.GetWhereClause(); where != nil {
		expr, err := run.expr(where)
		if err != nil {
			return nil, err
		}
		out.Where = expr
	}

	for _, g := range sel.GetGroupClause() {
		expr, err := run.expr(g)
		if err != nil {
			return nil, err
		}
		out.GroupBy = append(out.GroupBy, expr)
	}

	if having := sel.GetHavingClause(); having != nil {
		expr, err := run.expr(having)
		if err != nil {
			return nil, err
		}
		out.Having = expr
	}

	for _, s := range sel.GetSortClause() {
		item, err := run.orderByItem(s)
		if err != nil {
			return nil, err
		}
		out.OrderBy = append(out.OrderBy, item)
	}

	if limit := sel.GetLimitCount(); limit != nil {
		expr, err := run.expr(limit)
		if err != nil {
			return nil, err
		}
		out.Limit = expr
	}
	if offset := sel.GetLimitOffset(); offset != nil {
		expr, err := run.expr(offset)
		if err != nil {
			return nil, err
		}
		out.Offset = expr
	}

	return out, nil
}

func (run *restriction) selectItem(node *pgquery.Node) (ast.SelectItem, error) {
	target := node.GetResTarget()
	if target == nil {
		return ast.SelectItem{}, run.unsupported(nodeKind(node), -1)
	}

	// Star projections parse as column references whose last field is A_Star.
	if col := target.GetVal().GetColumnRef(); col != nil {
		fields := col.GetFields()
		if n := len(fields); n > 0 && fields[n-1].GetAStar() != nil {
			switch n {
			case 1:
				return ast.SelectItem{Star: true}, nil
			case 2:
				return ast.SelectItem{TableStar: fields[0].GetString_().GetSval()}, nil
			default:
				return ast.SelectItem{}, run.unsupported("qualified star projection", int(col.GetLocation()))
			}
		}
	}

	expr, err := run.expr(target.GetVal())
	if err != nil {
		return ast.SelectItem{}, err
	}
	return ast.SelectItem{Expr: expr, Alias: target.GetName()}, nil
}

func (run *restriction) orderByItem(node *pgquery.Node) (ast.OrderByItem, error) {
	sortBy := node.GetSortBy()
	if sortBy == nil {
		return ast.OrderByItem{}, run.unsupported(nodeKind(node), -1)
	}
	if sortBy.GetSortbyDir() == pgquery.SortByDir_SORTBY_USING {
		return ast.OrderByItem{}, run.unsupported("ORDER BY USING operator", int(sortBy.GetLocation()))
	}

	expr, err := run.expr(sortBy.GetNode())
	if err != nil {
		return ast.OrderByItem{}, err
	}

	item := ast.OrderByItem{
		Expr: expr,
		Desc: sortBy.GetSortbyDir() == pgquery.SortByDir_SORTBY_DESC,
	}
	switch sortBy.GetSortbyNulls() {
	case pgquery.SortByNulls_SORTBY_NULLS_FIRST:
		v := true
		item.NullsFirst = &v
	case pgquery.SortByNulls_SORTBY_NULLS_LAST:
		v := false
		item.NullsFirst = &v
	}
	return item, nil
}

func (run *restriction) tableRef(node *pgquery.Node) (ast.TableRef, error) {
	switch n := node.GetNode().(type) {
	case *pgquery.Node_RangeVar:
		return run.rangeVar(n.RangeVar)
	case *pgquery.Node_RangeSubselect:
		return run.rangeSubselect(n.RangeSubselect)
	case *pgquery.Node_JoinExpr:
		return run.joinExpr(n.JoinExpr)
	default:
		return nil, run.unsupported(nodeKind(node), -1)
	}
}

func (run *restriction) rangeVar(rv *pgquery.RangeVar) (ast.TableRef, error) {
	if rv.GetCatalogname() != "" {
		return nil, run.unsupported("catalog-qualified table reference", int(rv.GetLocation()))
	}
	out := &ast.TableName{
		Schema: rv.GetSchemaname(),
		Name:   rv.GetRelname(),
		Alias:  rv.GetAlias().GetAliasname(),
	}
	if len(rv.GetAlias().GetColnames()) > 0 {
		return nil, run.unsupported("column alias list on table reference", int(rv.GetLocation()))
	}
	if run.index != nil {
		out.Span = run.index.SpanAt(int(rv.GetLocation()))
	}
	return out, nil
}

func (run *restriction) rangeSubselect(rs *pgquery.RangeSubselect) (ast.TableRef, error) {
	if rs.GetLateral() {
		return nil, run.unsupported("LATERAL subquery", -1)
	}
	inner := rs.GetSubquery().GetSelectStmt()
	if inner == nil {
		return nil, run.unsupported(nodeKind(rs.GetSubquery()), -1)
	}
	sel, err := run.selectStmt(inner, -1)
	if err != nil {
		return nil, err
	}
	if len(rs.GetAlias().GetColnames()) > 0 {
		return nil, run.unsupported("column alias list on subquery", -1)
	}
	return &ast.DerivedTable{
		Select: sel,
		Alias:  rs.GetAlias().GetAliasname(),
	}, nil
}

func (run *restriction) joinExpr(je *pgquery.JoinExpr) (ast.TableRef, error) {
	if je.GetIsNatural() {
		return nil, run.unsupported("NATURAL join", -1)
	}
	if je.GetAlias() != nil || je.GetJoinUsingAlias() != nil {
		return nil, run.unsupported("aliased join expression", -1)
	}

	var joinType ast.JoinType
	switch je.GetJointype() {
	case pgquery.JoinType_JOIN_INNER:
		joinType = ast.JoinInner
		if je.GetQuals() == nil && len(je.GetUsingClause()) == 0 {
			joinType = ast.JoinCross
		}
	case pgquery.JoinType_JOIN_LEFT:
		joinType = ast.JoinLeft
	case pgquery.JoinType_JOIN_RIGHT:
		joinType = ast.JoinRight
	case pgquery.JoinType_JOIN_FULL:
		joinType = ast.JoinFull
	default:
		return nil, run.unsupported(fmt.Sprintf("join type %s", je.GetJointype()), -1)
	}

	left, err := run.tableRef(je.GetLarg())
	if err != nil {
		return nil, err
	}
	right, err := run.tableRef(je.GetRarg())
	if err != nil {
		return nil, err
	}

	out := &ast.JoinTable{Left: left, Type: joinType, Right: right}
	for _, u := range je.GetUsingClause() {
		out.Using = append(out.Using, u.GetString_().GetSval())
	}
	if quals := je.GetQuals(); quals != nil {
		on, err := run.expr(quals)
		if err != nil {
			return nil, err
		}
		out.On = on
	}
	return out, nil
}

// stmtKind names a statement-level node for error reporting.
func stmtKind(node *pgquery.Node) string {
	switch node.GetNode().(type) {
	case *pgquery.Node_InsertStmt:
		return "INSERT statement"
	case *pgquery.Node_UpdateStmt:
		return "UPDATE statement"
	case *pgquery.Node_DeleteStmt:
		return "DELETE statement"
	case *pgquery.Node_MergeStmt:
		return "MERGE statement"
	case *pgquery.Node_TruncateStmt:
		return "TRUNCATE statement"
	case *pgquery.Node_CopyStmt:
		return "COPY statement"
	case *pgquery.Node_CallStmt:
		return "CALL statement"
	case *pgquery.Node_GrantStmt:
		return "GRANT statement"
	case *pgquery.Node_TransactionStmt:
		return "transaction control statement"
	case *pgquery.Node_ExplainStmt:
		return "EXPLAIN statement"
	case *pgquery.Node_PrepareStmt:
		return "PREPARE statement"
	case *pgquery.Node_ExecuteStmt:
		return "EXECUTE statement"
	case *pgquery.Node_VariableSetStmt:
		return "SET statement"
	case *pgquery.Node_CreateStmt, *pgquery.Node_IndexStmt, *pgquery.Node_AlterTableStmt,
		*pgquery.Node_DropStmt, *pgquery.Node_CreateTableAsStmt, *pgquery.Node_ViewStmt:
		return "DDL statement"
	default:
		return nodeKind(node)
	}
}

// nodeKind derives a bare construct name from the generic node's wrapper
// type, e.g. "*pg_query.Node_XmlExpr" becomes "XmlExpr". It keeps rejection
// messages exhaustive without enumerating every node kind by hand.
func nodeKind(node *pgquery.Node) string {
	if node == nil || node.GetNode() == nil {
		return "empty node"
	}
	name := fmt.Sprintf("%T", node.GetNode())
	if i := strings.LastIndex(name, "Node_"); i >= 0 {
		return name[i+len("Node_"):]
	}
	return strings.TrimPrefix(name, "*")
}
