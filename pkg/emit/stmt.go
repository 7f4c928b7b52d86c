package emit

import "github.com/Hacker0x01/h1ql/pkg/ast"

// Emit renders an authorized statement to query text.
func Emit(stmt *ast.SelectStmt) string {
	p := &printer{}
	p.formatSelectStmt(stmt)
	return p.String()
}

func (p *printer) formatSelectStmt(stmt *ast.SelectStmt) {
	if stmt == nil {
		return
	}
	if stmt.With != nil {
		p.keyword("WITH")
		p.space()
		p.formatList(len(stmt.With.CTEs), func(i int) {
			cte := stmt.With.CTEs[i]
			p.ident(cte.Name)
			if len(cte.Columns) > 0 {
				p.write(" (")
				p.formatList(len(cte.Columns), func(j int) { p.ident(cte.Columns[j]) }, ", ")
				p.write(")")
			}
			p.write(" AS (")
			p.formatSelectStmt(cte.Select)
			p.write(")")
		}, ", ")
		p.space()
	}
	p.formatSelectBody(stmt.Body)
}

func (p *printer) formatSelectBody(body *ast.SelectBody) {
	if body == nil {
		return
	}
	p.formatSelectCore(body.Left)
	if body.Op != ast.SetOpNone {
		p.space()
		p.keyword(string(body.Op))
		if body.All {
			p.space()
			p.keyword("ALL")
		}
		p.space()
		p.formatSelectBody(body.Right)
	}
}

func (p *printer) formatSelectCore(core *ast.SelectCore) {
	if core == nil {
		return
	}
	p.keyword("SELECT")
	if core.Distinct {
		p.space()
		p.keyword("DISTINCT")
	}
	p.space()
	p.formatList(len(core.Columns), func(i int) { p.formatSelectItem(core.Columns[i]) }, ", ")

	if core.From != nil {
		p.space()
		p.keyword("FROM")
		p.space()
		p.formatList(len(core.From.Items), func(i int) { p.formatTableRef(core.From.Items[i]) }, ", ")
	}
	if core.Where != nil {
		p.space()
		p.keyword("WHERE")
		p.space()
		p.formatExpr(core.Where)
	}
	if len(core.GroupBy) > 0 {
		p.space()
		p.keyword("GROUP BY")
		p.space()
		p.formatList(len(core.GroupBy), func(i int) { p.formatExpr(core.GroupBy[i]) }, ", ")
	}
	if core.Having != nil {
		p.space()
		p.keyword("HAVING")
		p.space()
		p.formatExpr(core.Having)
	}
	if len(core.OrderBy) > 0 {
		p.space()
		p.keyword("ORDER BY")
		p.space()
		p.formatList(len(core.OrderBy), func(i int) { p.formatOrderByItem(core.OrderBy[i]) }, ", ")
	}
	if core.Limit != nil {
		p.space()
		p.keyword("LIMIT")
		p.space()
		p.formatExpr(core.Limit)
	}
	if core.Offset != nil {
		p.space()
		p.keyword("OFFSET")
		p.space()
		p.formatExpr(core.Offset)
	}
}

func (p *printer) formatSelectItem(item ast.SelectItem) {
	switch {
	case item.Star:
		p.write("*")
	case item.TableStar != "":
		p.ident(item.TableStar)
		p.write(".*")
	default:
		p.formatExpr(item.Expr)
		if item.Alias != "" {
			p.space()
			p.keyword("AS")
			p.space()
			p.ident(item.Alias)
		}
	}
}

func (p *printer) formatOrderByItem(item ast.OrderByItem) {
	p.formatExpr(item.Expr)
	if item.Desc {
		p.space()
		p.keyword("DESC")
	}
	if item.NullsFirst != nil {
		p.space()
		if *item.NullsFirst {
			p.keyword("NULLS FIRST")
		} else {
			p.keyword("NULLS LAST")
		}
	}
}

func (p *printer) formatTableRef(ref ast.TableRef) {
	switch t := ref.(type) {
	case *ast.TableName:
		if t.Schema != "" {
			p.ident(t.Schema)
			p.write(".")
		}
		p.ident(t.Name)
		if t.Alias != "" {
			p.space()
			p.keyword("AS")
			p.space()
			p.ident(t.Alias)
		}
	case *ast.DerivedTable:
		p.write("(")
		p.formatSelectStmt(t.Select)
		p.write(")")
		if t.Alias != "" {
			p.space()
			p.keyword("AS")
			p.space()
			p.ident(t.Alias)
		}
	case *ast.JoinTable:
		p.formatJoinOperand(t.Left, false)
		p.space()
		p.keyword(string(t.Type))
		p.space()
		p.keyword("JOIN")
		p.space()
		p.formatJoinOperand(t.Right, true)
		if t.On != nil {
			p.space()
			p.keyword("ON")
			p.space()
			p.formatExpr(t.On)
		}
		if len(t.Using) > 0 {
			p.space()
			p.keyword("USING")
			p.write(" (")
			p.formatList(len(t.Using), func(i int) { p.ident(t.Using[i]) }, ", ")
			p.write(")")
		}
	}
}

// formatJoinOperand parenthesizes nested joins on the right-hand side so
// the emitted text preserves the tree's association.
func (p *printer) formatJoinOperand(ref ast.TableRef, right bool) {
	if _, nested := ref.(*ast.JoinTable); nested && right {
		p.write("(")
		p.formatTableRef(ref)
		p.write(")")
		return
	}
	p.formatTableRef(ref)
}
