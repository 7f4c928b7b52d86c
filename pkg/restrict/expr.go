package restrict

import (
	"fmt"
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v6"

	"github.com/Hacker0x01/h1ql/pkg/ast"
)

// frameOptionNonDefault is set on a window definition whenever the query
// spells out an explicit frame clause.
const frameOptionNonDefault = 0x1

func (run *restriction) expr(node *pgquery.Node) (ast.Expr, error) {
	switch n := node.GetNode().(type) {
	case *pgquery.Node_ColumnRef:
		return run.columnRef(n.ColumnRef)
	case *pgquery.Node_AConst:
		return run.constant(n.AConst)
	case *pgquery.Node_AExpr:
		return run.aExpr(n.AExpr)
	case *pgquery.Node_BoolExpr:
		return run.boolExpr(n.BoolExpr)
	case *pgquery.Node_FuncCall:
		return run.funcCall(n.FuncCall)
	case *pgquery.Node_TypeCast:
		return run.typeCast(n.TypeCast)
	case *pgquery.Node_CaseExpr:
		return run.caseExpr(n.CaseExpr)
	case *pgquery.Node_NullTest:
		return run.nullTest(n.NullTest)
	case *pgquery.Node_BooleanTest:
		return run.booleanTest(n.BooleanTest)
	case *pgquery.Node_SubLink:
		return run.subLink(n.SubLink)
	case *pgquery.Node_CoalesceExpr:
		return run.coalesce(n.CoalesceExpr)
	case *pgquery.Node_ParamRef:
		return nil, run.unsupported("query parameter", int(n.ParamRef.GetLocation()))
	default:
		return nil, run.unsupported(nodeKind(node), -1)
	}
}

func (run *restriction) columnRef(col *pgquery.ColumnRef) (ast.Expr, error) {
	fields := col.GetFields()
	for _, f := range fields {
		if f.GetAStar() != nil {
			return nil, run.unsupported("star outside projection list", int(col.GetLocation()))
		}
	}
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		s := f.GetString_()
		if s == nil {
			return nil, run.unsupported(nodeKind(f), int(col.GetLocation()))
		}
		names = append(names, s.GetSval())
	}
	switch len(names) {
	case 1:
		return &ast.ColumnRef{Column: names[0]}, nil
	case 2:
		return &ast.ColumnRef{Table: names[0], Column: names[1]}, nil
	case 3:
		return &ast.ColumnRef{Table: names[0] + "." + names[1], Column: names[2]}, nil
	default:
		return nil, run.unsupported("column reference with more than three parts", int(col.GetLocation()))
	}
}

func (run *restriction) constant(c *pgquery.A_Const) (ast.Expr, error) {
	if c.GetIsnull() {
		return ast.Null(), nil
	}
	switch v := c.GetVal().(type) {
	case *pgquery.A_Const_Ival:
		return &ast.Literal{Type: ast.LiteralNumber, Value: fmt.Sprintf("%d", v.Ival.GetIval())}, nil
	case *pgquery.A_Const_Fval:
		return &ast.Literal{Type: ast.LiteralNumber, Value: v.Fval.GetFval()}, nil
	case *pgquery.A_Const_Boolval:
		return ast.Bool(v.Boolval.GetBoolval()), nil
	case *pgquery.A_Const_Sval:
		return &ast.Literal{Type: ast.LiteralString, Value: v.Sval.GetSval()}, nil
	default:
		return nil, run.unsupported("bit-string literal", int(c.GetLocation()))
	}
}

func (run *restriction) aExpr(ae *pgquery.A_Expr) (ast.Expr, error) {
	loc := int(ae.GetLocation())
	op := operatorName(ae.GetName())

	switch ae.GetKind() {
	case pgquery.A_Expr_Kind_AEXPR_OP:
		if op == "!=" {
			op = "<>"
		}
		if ae.GetLexpr() == nil {
			if _, ok := unaryOps[op]; !ok {
				return nil, run.unsupported(fmt.Sprintf("operator %q", op), loc)
			}
			operand, err := run.expr(ae.GetRexpr())
			if err != nil {
				return nil, err
			}
			return &ast.UnaryExpr{Op: op, Expr: operand}, nil
		}
		if _, ok := binaryOps[op]; !ok {
			return nil, run.unsupported(fmt.Sprintf("operator %q", op), loc)
		}
		left, err := run.expr(ae.GetLexpr())
		if err != nil {
			return nil, err
		}
		right, err := run.expr(ae.GetRexpr())
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Left: left, Op: op, Right: right}, nil

	case pgquery.A_Expr_Kind_AEXPR_IN:
		left, err := run.expr(ae.GetLexpr())
		if err != nil {
			return nil, err
		}
		items := ae.GetRexpr().GetList().GetItems()
		if items == nil {
			return nil, run.unsupported("IN without value list", loc)
		}
		out := &ast.InExpr{Expr: left, Not: op == "<>"}
		for _, item := range items {
			v, err := run.expr(item)
			if err != nil {
				return nil, err
			}
			out.Values = append(out.Values, v)
		}
		return out, nil

	case pgquery.A_Expr_Kind_AEXPR_LIKE, pgquery.A_Expr_Kind_AEXPR_ILIKE:
		left, err := run.expr(ae.GetLexpr())
		if err != nil {
			return nil, err
		}
		pattern, err := run.expr(ae.GetRexpr())
		if err != nil {
			return nil, err
		}
		return &ast.LikeExpr{
			Expr:            left,
			Not:             strings.HasPrefix(op, "!"),
			Pattern:         pattern,
			CaseInsensitive: ae.GetKind() == pgquery.A_Expr_Kind_AEXPR_ILIKE,
		}, nil

	case pgquery.A_Expr_Kind_AEXPR_BETWEEN, pgquery.A_Expr_Kind_AEXPR_NOT_BETWEEN:
		left, err := run.expr(ae.GetLexpr())
		if err != nil {
			return nil, err
		}
		bounds := ae.GetRexpr().GetList().GetItems()
		if len(bounds) != 2 {
			return nil, run.unsupported("malformed BETWEEN bounds", loc)
		}
		low, err := run.expr(bounds[0])
		if err != nil {
			return nil, err
		}
		high, err := run.expr(bounds[1])
		if err != nil {
			return nil, err
		}
		return &ast.BetweenExpr{
			Expr: left,
			Not:  ae.GetKind() == pgquery.A_Expr_Kind_AEXPR_NOT_BETWEEN,
			Low:  low,
			High: high,
		}, nil

	case pgquery.A_Expr_Kind_AEXPR_NULLIF:
		return run.whitelistedCall("nullif", loc, ae.GetLexpr(), ae.GetRexpr())

	default:
		return nil, run.unsupported(fmt.Sprintf("expression kind %s", ae.GetKind()), loc)
	}
}

func (run *restriction) boolExpr(be *pgquery.BoolExpr) (ast.Expr, error) {
	args := be.GetArgs()
	loc := int(be.GetLocation())

	if be.GetBoolop() == pgquery.BoolExprType_NOT_EXPR {
		if len(args) != 1 {
			return nil, run.unsupported("malformed NOT expression", loc)
		}
		operand, err := run.expr(args[0])
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: "NOT", Expr: operand}, nil
	}

	var op string
	switch be.GetBoolop() {
	case pgquery.BoolExprType_AND_EXPR:
		op = "AND"
	case pgquery.BoolExprType_OR_EXPR:
		op = "OR"
	default:
		return nil, run.unsupported(fmt.Sprintf("boolean operator %s", be.GetBoolop()), loc)
	}
	if len(args) < 2 {
		return nil, run.unsupported("malformed boolean expression", loc)
	}

	// The generic AST flattens chained AND/OR into argument lists;
	// rebuild a left-associated tree.
	out, err := run.expr(args[0])
	if err != nil {
		return nil, err
	}
	for _, arg := range args[1:] {
		right, err := run.expr(arg)
		if err != nil {
			return nil, err
		}
		out = &ast.BinaryExpr{Left: out, Op: op, Right: right}
	}
	return out, nil
}

func (run *restriction) funcCall(fc *pgquery.FuncCall) (ast.Expr, error) {
	loc := int(fc.GetLocation())

	name, err := run.functionName(fc.GetFuncname(), loc)
	if err != nil {
		return nil, err
	}
	if _, ok := run.funcs[name]; !ok {
		return nil, run.unsupported(fmt.Sprintf("function %q", name), loc)
	}

	switch {
	case fc.GetAggFilter() != nil:
		return nil, run.unsupported("aggregate FILTER clause", loc)
	case fc.GetAggWithinGroup() || len(fc.GetAggOrder()) > 0:
		return nil, run.unsupported("ordered-set aggregate", loc)
	case fc.GetFuncVariadic():
		return nil, run.unsupported("VARIADIC argument", loc)
	}

	out := &ast.FuncCall{
		Name:     name,
		Distinct: fc.GetAggDistinct(),
		Star:     fc.GetAggStar(),
	}
	for _, arg := range fc.GetArgs() {
		expr, err := run.expr(arg)
		if err != nil {
			return nil, err
		}
		out.Args = append(out.Args, expr)
	}

	if over := fc.GetOver(); over != nil {
		window, err := run.windowSpec(over)
		if err != nil {
			return nil, err
		}
		out.Window = window
	}
	return out, nil
}

func (run *restriction) functionName(fields []*pgquery.Node, loc int) (string, error) {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.GetString_().GetSval())
	}
	if len(names) > 1 && names[0] == "pg_catalog" {
		names = names[1:]
	}
	if len(names) != 1 {
		return "", run.unsupported("schema-qualified function", loc)
	}
	return strings.ToLower(names[0]), nil
}

func (run *restriction) windowSpec(def *pgquery.WindowDef) (*ast.WindowSpec, error) {
	loc := int(def.GetLocation())
	if def.GetName() != "" || def.GetRefname() != "" {
		return nil, run.unsupported("named window reference", loc)
	}
	if def.GetFrameOptions()&frameOptionNonDefault != 0 {
		return nil, run.unsupported("window frame specification", loc)
	}

	out := &ast.WindowSpec{}
	for _, p := range def.GetPartitionClause() {
		expr, err := run.expr(p)
		if err != nil {
			return nil, err
		}
		out.PartitionBy = append(out.PartitionBy, expr)
	}
	for _, s := range def.GetOrderClause() {
		item, err := run.orderByItem(s)
		if err != nil {
			return nil, err
		}
		out.OrderBy = append(out.OrderBy, item)
	}
	return out, nil
}

func (run *restriction) typeCast(tc *pgquery.TypeCast) (ast.Expr, error) {
	loc := int(tc.GetLocation())
	typeName := tc.GetTypeName()

	switch {
	case typeName == nil:
		return nil, run.unsupported("cast without type", loc)
	case len(typeName.GetTypmods()) > 0:
		return nil, run.unsupported("parameterized type in cast", loc)
	case len(typeName.GetArrayBounds()) > 0:
		return nil, run.unsupported("array type in cast", loc)
	case typeName.GetSetof() || typeName.GetPctType():
		return nil, run.unsupported("complex type in cast", loc)
	}

	names := make([]string, 0, len(typeName.GetNames()))
	for _, n := range typeName.GetNames() {
		names = append(names, n.GetString_().GetSval())
	}
	if len(names) > 1 && names[0] == "pg_catalog" {
		names = names[1:]
	}
	if len(names) != 1 {
		return nil, run.unsupported("schema-qualified type in cast", loc)
	}

	expr, err := run.expr(tc.GetArg())
	if err != nil {
		return nil, err
	}
	return &ast.CastExpr{Expr: expr, TypeName: strings.ToLower(names[0])}, nil
}

func (run *restriction) caseExpr(ce *pgquery.CaseExpr) (ast.Expr, error) {
	out := &ast.CaseExpr{}
	if arg := ce.GetArg(); arg != nil {
		operand, err := run.expr(arg)
		if err != nil {
			return nil, err
		}
		out.Operand = operand
	}
	for _, w := range ce.GetArgs() {
		when := w.GetCaseWhen()
		if when == nil {
			return nil, run.unsupported(nodeKind(w), int(ce.GetLocation()))
		}
		cond, err := run.expr(when.GetExpr())
		if err != nil {
			return nil, err
		}
		result, err := run.expr(when.GetResult())
		if err != nil {
			return nil, err
		}
		out.Whens = append(out.Whens, ast.WhenClause{Condition: cond, Result: result})
	}
	if def := ce.GetDefresult(); def != nil {
		elseExpr, err := run.expr(def)
		if err != nil {
			return nil, err
		}
		out.Else = elseExpr
	}
	return out, nil
}

func (run *restriction) nullTest(nt *pgquery.NullTest) (ast.Expr, error) {
	expr, err := run.expr(nt.GetArg())
	if err != nil {
		return nil, err
	}
	return &ast.IsNullExpr{
		Expr: expr,
		Not:  nt.GetNulltesttype() == pgquery.NullTestType_IS_NOT_NULL,
	}, nil
}

func (run *restriction) booleanTest(bt *pgquery.BooleanTest) (ast.Expr, error) {
	expr, err := run.expr(bt.GetArg())
	if err != nil {
		return nil, err
	}
	switch bt.GetBooltesttype() {
	case pgquery.BoolTestType_IS_TRUE:
		return &ast.IsBoolExpr{Expr: expr, Value: true}, nil
	case pgquery.BoolTestType_IS_NOT_TRUE:
		return &ast.IsBoolExpr{Expr: expr, Not: true, Value: true}, nil
	case pgquery.BoolTestType_IS_FALSE:
		return &ast.IsBoolExpr{Expr: expr, Value: false}, nil
	case pgquery.BoolTestType_IS_NOT_FALSE:
		return &ast.IsBoolExpr{Expr: expr, Not: true, Value: false}, nil
	default:
		return nil, run.unsupported("IS UNKNOWN test", int(bt.GetLocation()))
	}
}

func (run *restriction) subLink(sl *pgquery.SubLink) (ast.Expr, error) {
	loc := int(sl.GetLocation())
	inner := sl.GetSubselect().GetSelectStmt()
	if inner == nil {
		return nil, run.unsupported(nodeKind(sl.GetSubselect()), loc)
	}
	sel, err := run.selectStmt(inner, loc)
	if err != nil {
		return nil, err
	}

	switch sl.GetSubLinkType() {
	case pgquery.SubLinkType_EXISTS_SUBLINK:
		return &ast.ExistsExpr{Select: sel}, nil

	case pgquery.SubLinkType_EXPR_SUBLINK:
		return &ast.SubqueryExpr{Select: sel}, nil

	case pgquery.SubLinkType_ANY_SUBLINK:
		op := operatorName(sl.GetOperName())
		if op != "" && op != "=" {
			return nil, run.unsupported(fmt.Sprintf("quantified comparison %q ANY", op), loc)
		}
		test, err := run.expr(sl.GetTestexpr())
		if err != nil {
			return nil, err
		}
		return &ast.InExpr{Expr: test, Query: sel}, nil

	case pgquery.SubLinkType_ALL_SUBLINK:
		if op := operatorName(sl.GetOperName()); op != "<>" {
			return nil, run.unsupported(fmt.Sprintf("quantified comparison %q ALL", op), loc)
		}
		test, err := run.expr(sl.GetTestexpr())
		if err != nil {
			return nil, err
		}
		return &ast.InExpr{Expr: test, Not: true, Query: sel}, nil

	default:
		return nil, run.unsupported(fmt.Sprintf("subquery link %s", sl.GetSubLinkType()), loc)
	}
}

func (run *restriction) coalesce(ce *pgquery.CoalesceExpr) (ast.Expr, error) {
	nodes := ce.GetArgs()
	args := make([]*pgquery.Node, 0, len(nodes))
	args = append(args, nodes...)
	return run.whitelistedCall("coalesce", int(ce.GetLocation()), args...)
}

// whitelistedCall builds a FuncCall for constructs the generic AST models
// as dedicated nodes (COALESCE, NULLIF). The whitelist still applies.
func (run *restriction) whitelistedCall(name string, loc int, args ...*pgquery.Node) (ast.Expr, error) {
	if _, ok := run.funcs[name]; !ok {
		return nil, run.unsupported(fmt.Sprintf("function %q", name), loc)
	}
	out := &ast.FuncCall{Name: name}
	for _, arg := range args {
		expr, err := run.expr(arg)
		if err != nil {
			return nil, err
		}
		out.Args = append(out.Args, expr)
	}
	return out, nil
}

// operatorName extracts the operator text from a qualified operator list.
func operatorName(fields []*pgquery.Node) string {
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1].GetString_().GetSval()
}
