package ast

// CloneStatement returns a deep copy of a SELECT statement. Transformation
// stages clone their input and rewrite the copy, keeping every stage pure.
func CloneStatement(s *SelectStmt) *SelectStmt {
	if s == nil {
		return nil
	}
	out := &SelectStmt{NodeInfo: s.NodeInfo}
	if s.With != nil {
		w := &WithClause{CTEs: make([]*CTE, len(s.With.CTEs))}
		for i, cte := range s.With.CTEs {
			w.CTEs[i] = &CTE{
				Name:    cte.Name,
				Columns: append([]string(nil), cte.Columns...),
				Select:  CloneStatement(cte.Select),
			}
		}
		out.With = w
	}
	out.Body = cloneBody(s.Body)
	return out
}

func cloneBody(b *SelectBody) *SelectBody {
	if b == nil {
		return nil
	}
	return &SelectBody{
		Left:  cloneCore(b.Left),
		Op:    b.Op,
		All:   b.All,
		Right: cloneBody(b.Right),
	}
}

func cloneCore(c *SelectCore) *SelectCore {
	if c == nil {
		return nil
	}
	out := &SelectCore{
		Distinct: c.Distinct,
		Where:    CloneExpr(c.Where),
		Having:   CloneExpr(c.Having),
		Limit:    CloneExpr(c.Limit),
		Offset:   CloneExpr(c.Offset),
	}
	for _, item := range c.Columns {
		out.Columns = append(out.Columns, SelectItem{
			Star:      item.Star,
			TableStar: item.TableStar,
			Expr:      CloneExpr(item.Expr),
			Alias:     item.Alias,
		})
	}
	if c.From != nil {
		out.From = &FromClause{}
		for _, item := range c.From.Items {
			out.From.Items = append(out.From.Items, CloneTableRef(item))
		}
	}
	for _, g := range c.GroupBy {
		out.GroupBy = append(out.GroupBy, CloneExpr(g))
	}
	out.OrderBy = cloneOrderBy(c.OrderBy)
	return out
}

func cloneOrderBy(items []OrderByItem) []OrderByItem {
	var out []OrderByItem
	for _, o := range items {
		item := OrderByItem{Expr: CloneExpr(o.Expr), Desc: o.Desc}
		if o.NullsFirst != nil {
			v := *o.NullsFirst
			item.NullsFirst = &v
		}
		out = append(out, item)
	}
	return out
}

// CloneTableRef returns a deep copy of a table reference.
func CloneTableRef(t TableRef) TableRef {
	switch ref := t.(type) {
	case nil:
		return nil
	case *TableName:
		cp := *ref
		return &cp
	case *DerivedTable:
		return &DerivedTable{
			NodeInfo:   ref.NodeInfo,
			Select:     CloneStatement(ref.Select),
			Alias:      ref.Alias,
			FromPolicy: ref.FromPolicy,
		}
	case *JoinTable:
		return &JoinTable{
			NodeInfo: ref.NodeInfo,
			Left:     CloneTableRef(ref.Left),
			Type:     ref.Type,
			Right:    CloneTableRef(ref.Right),
			On:       CloneExpr(ref.On),
			Using:    append([]string(nil), ref.Using...),
		}
	}
	return t
}

// CloneExpr returns a deep copy of an expression.
func CloneExpr(e Expr) Expr {
	switch expr := e.(type) {
	case nil:
		return nil
	case *ColumnRef:
		cp := *expr
		return &cp
	case *AttrRef:
		cp := *expr
		return &cp
	case *Literal:
		cp := *expr
		return &cp
	case *BinaryExpr:
		return &BinaryExpr{Left: CloneExpr(expr.Left), Op: expr.Op, Right: CloneExpr(expr.Right)}
	case *UnaryExpr:
		return &UnaryExpr{Op: expr.Op, Expr: CloneExpr(expr.Expr)}
	case *FuncCall:
		out := &FuncCall{Name: expr.Name, Distinct: expr.Distinct, Star: expr.Star}
		for _, arg := range expr.Args {
			out.Args = append(out.Args, CloneExpr(arg))
		}
		if expr.Window != nil {
			w := &WindowSpec{OrderBy: cloneOrderBy(expr.Window.OrderBy)}
			for _, p := range expr.Window.PartitionBy {
				w.PartitionBy = append(w.PartitionBy, CloneExpr(p))
			}
			out.Window = w
		}
		return out
	case *CaseExpr:
		out := &CaseExpr{
			Operand:    CloneExpr(expr.Operand),
			Else:       CloneExpr(expr.Else),
			FromPolicy: expr.FromPolicy,
		}
		for _, w := range expr.Whens {
			out.Whens = append(out.Whens, WhenClause{
				Condition: CloneExpr(w.Condition),
				Result:    CloneExpr(w.Result),
			})
		}
		return out
	case *CastExpr:
		return &CastExpr{Expr: CloneExpr(expr.Expr), TypeName: expr.TypeName}
	case *InExpr:
		out := &InExpr{Expr: CloneExpr(expr.Expr), Not: expr.Not, Query: CloneStatement(expr.Query)}
		for _, v := range expr.Values {
			out.Values = append(out.Values, CloneExpr(v))
		}
		return out
	case *BetweenExpr:
		return &BetweenExpr{
			Expr: CloneExpr(expr.Expr),
			Not:  expr.Not,
			Low:  CloneExpr(expr.Low),
			High: CloneExpr(expr.High),
		}
	case *IsNullExpr:
		return &IsNullExpr{Expr: CloneExpr(expr.Expr), Not: expr.Not}
	case *IsBoolExpr:
		return &IsBoolExpr{Expr: CloneExpr(expr.Expr), Not: expr.Not, Value: expr.Value}
	case *LikeExpr:
		return &LikeExpr{
			Expr:            CloneExpr(expr.Expr),
			Not:             expr.Not,
			Pattern:         CloneExpr(expr.Pattern),
			CaseInsensitive: expr.CaseInsensitive,
		}
	case *SubqueryExpr:
		return &SubqueryExpr{Select: CloneStatement(expr.Select)}
	case *ExistsExpr:
		return &ExistsExpr{Not: expr.Not, Select: CloneStatement(expr.Select)}
	}
	return e
}
