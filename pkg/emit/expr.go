package emit

import (
	"fmt"
	"strings"

	"github.com/Hacker0x01/h1ql/pkg/ast"
)

func (p *printer) formatExpr(e ast.Expr) {
	switch expr := e.(type) {
	case nil:
		return
	case *ast.Literal:
		p.formatLiteral(expr)
	case *ast.ColumnRef:
		p.formatColumnRef(expr)
	case *ast.BinaryExpr:
		p.write("(")
		p.formatExpr(expr.Left)
		p.space()
		p.keyword(expr.Op)
		p.space()
		p.formatExpr(expr.Right)
		p.write(")")
	case *ast.UnaryExpr:
		p.write("(")
		p.keyword(expr.Op)
		if expr.Op == "NOT" {
			p.space()
		}
		p.formatExpr(expr.Expr)
		p.write(")")
	case *ast.FuncCall:
		p.formatFuncCall(expr)
	case *ast.CaseExpr:
		p.formatCaseExpr(expr)
	case *ast.CastExpr:
		p.keyword("CAST")
		p.write("(")
		p.formatExpr(expr.Expr)
		p.space()
		p.keyword("AS")
		p.space()
		p.write(expr.TypeName)
		p.write(")")
	case *ast.InExpr:
		p.write("(")
		p.formatExpr(expr.Expr)
		p.space()
		if expr.Not {
			p.keyword("NOT")
			p.space()
		}
		p.keyword("IN")
		p.write(" (")
		if expr.Query != nil {
			p.formatSelectStmt(expr.Query)
		} else {
			p.formatList(len(expr.Values), func(i int) { p.formatExpr(expr.Values[i]) }, ", ")
		}
		p.write("))")
	case *ast.BetweenExpr:
		p.write("(")
		p.formatExpr(expr.Expr)
		p.space()
		if expr.Not {
			p.keyword("NOT")
			p.space()
		}
		p.keyword("BETWEEN")
		p.space()
		p.formatExpr(expr.Low)
		p.space()
		p.keyword("AND")
		p.space()
		p.formatExpr(expr.High)
		p.write(")")
	case *ast.IsNullExpr:
		p.write("(")
		p.formatExpr(expr.Expr)
		p.space()
		p.keyword("IS")
		p.space()
		if expr.Not {
			p.keyword("NOT")
			p.space()
		}
		p.keyword("NULL")
		p.write(")")
	case *ast.IsBoolExpr:
		p.write("(")
		p.formatExpr(expr.Expr)
		p.space()
		p.keyword("IS")
		p.space()
		if expr.Not {
			p.keyword("NOT")
			p.space()
		}
		if expr.Value {
			p.keyword("TRUE")
		} else {
			p.keyword("FALSE")
		}
		p.write(")")
	case *ast.LikeExpr:
		p.write("(")
		p.formatExpr(expr.Expr)
		p.space()
		if expr.Not {
			p.keyword("NOT")
			p.space()
		}
		if expr.CaseInsensitive {
			p.keyword("ILIKE")
		} else {
			p.keyword("LIKE")
		}
		p.space()
		p.formatExpr(expr.Pattern)
		p.write(")")
	case *ast.SubqueryExpr:
		p.write("(")
		p.formatSelectStmt(expr.Select)
		p.write(")")
	case *ast.ExistsExpr:
		if expr.Not {
			p.keyword("NOT")
			p.space()
		}
		p.keyword("EXISTS")
		p.write(" (")
		p.formatSelectStmt(expr.Select)
		p.write(")")
	case *ast.AttrRef:
		// Attribute placeholders exist only inside rule predicates and are
		// substituted during authorization; one reaching the emitter is an
		// invariant violation, never a renderable construct.
		panic(fmt.Sprintf("emit: unsubstituted attribute placeholder %q", expr.Name))
	}
}

func (p *printer) formatCaseExpr(expr *ast.CaseExpr) {
	p.keyword("CASE")
	if expr.Operand != nil {
		p.space()
		p.formatExpr(expr.Operand)
	}
	for _, when := range expr.Whens {
		p.space()
		p.keyword("WHEN")
		p.space()
		p.formatExpr(when.Condition)
		p.space()
		p.keyword("THEN")
		p.space()
		p.formatExpr(when.Result)
	}
	if expr.Else != nil {
		p.space()
		p.keyword("ELSE")
		p.space()
		p.formatExpr(expr.Else)
	}
	p.space()
	p.keyword("END")
}

func (p *printer) formatLiteral(lit *ast.Literal) {
	switch lit.Type {
	case ast.LiteralString:
		p.stringLiteral(lit.Value)
	case ast.LiteralNull:
		p.keyword("NULL")
	default:
		p.write(lit.Value)
	}
}

func (p *printer) formatColumnRef(col *ast.ColumnRef) {
	if col.Table != "" {
		// A qualifier may itself be schema-qualified.
		for _, part := range strings.Split(col.Table, ".") {
			p.ident(part)
			p.write(".")
		}
	}
	p.ident(col.Column)
}

func (p *printer) formatFuncCall(fc *ast.FuncCall) {
	p.write(fc.Name)
	p.write("(")
	if fc.Star {
		p.write("*")
	} else {
		if fc.Distinct {
			p.keyword("DISTINCT")
			p.space()
		}
		p.formatList(len(fc.Args), func(i int) { p.formatExpr(fc.Args[i]) }, ", ")
	}
	p.write(")")

	if fc.Window != nil {
		p.space()
		p.keyword("OVER")
		p.write(" (")
		if len(fc.Window.PartitionBy) > 0 {
			p.keyword("PARTITION BY")
			p.space()
			p.formatList(len(fc.Window.PartitionBy), func(i int) { p.formatExpr(fc.Window.PartitionBy[i]) }, ", ")
		}
		if len(fc.Window.OrderBy) > 0 {
			if len(fc.Window.PartitionBy) > 0 {
				p.space()
			}
			p.keyword("ORDER BY")
			p.space()
			p.formatList(len(fc.Window.OrderBy), func(i int) { p.formatOrderByItem(fc.Window.OrderBy[i]) }, ", ")
		}
		p.write(")")
	}
}
