package ast

// RewriteExpr rewrites an expression bottom-up: children are rewritten
// first, then f is applied to the rebuilt node. The input is not mutated.
//
// Rewriting stays within the current expression: nested SELECT statements
// (scalar/EXISTS/IN subqueries) are not descended into, since they carry
// their own name scopes, and neither are policy-synthesized CASE masks,
// whose inner column reference must stay as-is.
func RewriteExpr(e Expr, f func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}
	switch expr := e.(type) {
	case *BinaryExpr:
		return f(&BinaryExpr{
			Left:  RewriteExpr(expr.Left, f),
			Op:    expr.Op,
			Right: RewriteExpr(expr.Right, f),
		})
	case *UnaryExpr:
		return f(&UnaryExpr{Op: expr.Op, Expr: RewriteExpr(expr.Expr, f)})
	case *FuncCall:
		out := &FuncCall{Name: expr.Name, Distinct: expr.Distinct, Star: expr.Star}
		for _, arg := range expr.Args {
			out.Args = append(out.Args, RewriteExpr(arg, f))
		}
		if expr.Window != nil {
			w := &WindowSpec{}
			for _, part := range expr.Window.PartitionBy {
				w.PartitionBy = append(w.PartitionBy, RewriteExpr(part, f))
			}
			for _, o := range expr.Window.OrderBy {
				item := OrderByItem{Expr: RewriteExpr(o.Expr, f), Desc: o.Desc}
				if o.NullsFirst != nil {
					v := *o.NullsFirst
					item.NullsFirst = &v
				}
				w.OrderBy = append(w.OrderBy, item)
			}
			out.Window = w
		}
		return f(out)
	case *CaseExpr:
		if expr.FromPolicy {
			return f(expr)
		}
		out := &CaseExpr{Operand: RewriteExpr(expr.Operand, f)}
		for _, w := range expr.Whens {
			out.Whens = append(out.Whens, WhenClause{
				Condition: RewriteExpr(w.Condition, f),
				Result:    RewriteExpr(w.Result, f),
			})
		}
		out.Else = RewriteExpr(expr.Else, f)
		return f(out)
	case *CastExpr:
		return f(&CastExpr{Expr: RewriteExpr(expr.Expr, f), TypeName: expr.TypeName})
	case *InExpr:
		out := &InExpr{Expr: RewriteExpr(expr.Expr, f), Not: expr.Not, Query: expr.Query}
		for _, v := range expr.Values {
			out.Values = append(out.Values, RewriteExpr(v, f))
		}
		return f(out)
	case *BetweenExpr:
		return f(&BetweenExpr{
			Expr: RewriteExpr(expr.Expr, f),
			Not:  expr.Not,
			Low:  RewriteExpr(expr.Low, f),
			High: RewriteExpr(expr.High, f),
		})
	case *IsNullExpr:
		return f(&IsNullExpr{Expr: RewriteExpr(expr.Expr, f), Not: expr.Not})
	case *IsBoolExpr:
		return f(&IsBoolExpr{Expr: RewriteExpr(expr.Expr, f), Not: expr.Not, Value: expr.Value})
	case *LikeExpr:
		return f(&LikeExpr{
			Expr:            RewriteExpr(expr.Expr, f),
			Not:             expr.Not,
			Pattern:         RewriteExpr(expr.Pattern, f),
			CaseInsensitive: expr.CaseInsensitive,
		})
	default:
		// Leaves (ColumnRef, AttrRef, Literal) and nested selects.
		return f(e)
	}
}
