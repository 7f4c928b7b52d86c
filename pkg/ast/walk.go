package ast

// Inspect traverses a statement depth-first, calling f for every node
// (statements, table references, expressions). If f returns false the
// children of the current node are skipped.
func Inspect(s *SelectStmt, f func(node any) bool) {
	inspectStmt(s, f)
}

func inspectStmt(s *SelectStmt, f func(any) bool) {
	if s == nil || !f(s) {
		return
	}
	if s.With != nil {
		for _, cte := range s.With.CTEs {
			inspectStmt(cte.Select, f)
		}
	}
	inspectBody(s.Body, f)
}

func inspectBody(b *SelectBody, f func(any) bool) {
	if b == nil {
		return
	}
	inspectCore(b.Left, f)
	inspectBody(b.Right, f)
}

func inspectCore(c *SelectCore, f func(any) bool) {
	if c == nil {
		return
	}
	for _, item := range c.Columns {
		inspectExpr(item.Expr, f)
	}
	if c.From != nil {
		for _, item := range c.From.Items {
			inspectTableRef(item, f)
		}
	}
	inspectExpr(c.Where, f)
	for _, g := range c.GroupBy {
		inspectExpr(g, f)
	}
	inspectExpr(c.Having, f)
	for _, o := range c.OrderBy {
		inspectExpr(o.Expr, f)
	}
	inspectExpr(c.Limit, f)
	inspectExpr(c.Offset, f)
}

func inspectTableRef(t TableRef, f func(any) bool) {
	if t == nil || !f(t) {
		return
	}
	switch ref := t.(type) {
	case *DerivedTable:
		inspectStmt(ref.Select, f)
	case *JoinTable:
		inspectTableRef(ref.Left, f)
		inspectTableRef(ref.Right, f)
		inspectExpr(ref.On, f)
	}
}

func inspectExpr(e Expr, f func(any) bool) {
	if e == nil || !f(e) {
		return
	}
	switch expr := e.(type) {
	case *BinaryExpr:
		inspectExpr(expr.Left, f)
		inspectExpr(expr.Right, f)
	case *UnaryExpr:
		inspectExpr(expr.Expr, f)
	case *FuncCall:
		for _, arg := range expr.Args {
			inspectExpr(arg, f)
		}
		if expr.Window != nil {
			for _, p := range expr.Window.PartitionBy {
				inspectExpr(p, f)
			}
			for _, o := range expr.Window.OrderBy {
				inspectExpr(o.Expr, f)
			}
		}
	case *CaseExpr:
		inspectExpr(expr.Operand, f)
		for _, w := range expr.Whens {
			inspectExpr(w.Condition, f)
			inspectExpr(w.Result, f)
		}
		inspectExpr(expr.Else, f)
	case *CastExpr:
		inspectExpr(expr.Expr, f)
	case *InExpr:
		inspectExpr(expr.Expr, f)
		for _, v := range expr.Values {
			inspectExpr(v, f)
		}
		inspectStmt(expr.Query, f)
	case *BetweenExpr:
		inspectExpr(expr.Expr, f)
		inspectExpr(expr.Low, f)
		inspectExpr(expr.High, f)
	case *IsNullExpr:
		inspectExpr(expr.Expr, f)
	case *IsBoolExpr:
		inspectExpr(expr.Expr, f)
	case *LikeExpr:
		inspectExpr(expr.Expr, f)
		inspectExpr(expr.Pattern, f)
	case *SubqueryExpr:
		inspectStmt(expr.Select, f)
	case *ExistsExpr:
		inspectStmt(expr.Select, f)
	}
}

// InspectExpr traverses a single expression depth-first.
func InspectExpr(e Expr, f func(node any) bool) {
	inspectExpr(e, f)
}
