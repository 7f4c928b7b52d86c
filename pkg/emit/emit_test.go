package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Hacker0x01/h1ql/pkg/ast"
)

func simpleSelect(items []ast.SelectItem, from ast.TableRef, where ast.Expr) *ast.SelectStmt {
	core := &ast.SelectCore{Columns: items, Where: where}
	if from != nil {
		core.From = &ast.FromClause{Items: []ast.TableRef{from}}
	}
	return &ast.SelectStmt{Body: &ast.SelectBody{Left: core}}
}

func TestEmitIdentifierQuoting(t *testing.T) {
	tests := []struct {
		name string
		stmt *ast.SelectStmt
		want string
	}{
		{
			name: "bare lowercase identifiers stay bare",
			stmt: simpleSelect(
				[]ast.SelectItem{{Expr: &ast.ColumnRef{Column: "team_id"}}},
				&ast.TableName{Name: "reports"}, nil),
			want: "SELECT team_id FROM reports",
		},
		{
			name: "reserved words are quoted",
			stmt: simpleSelect(
				[]ast.SelectItem{{Expr: &ast.ColumnRef{Column: "user"}}},
				&ast.TableName{Name: "order"}, nil),
			want: `SELECT "user" FROM "order"`,
		},
		{
			name: "mixed case is quoted",
			stmt: simpleSelect(
				[]ast.SelectItem{{Expr: &ast.ColumnRef{Column: "TeamID"}}},
				&ast.TableName{Name: "Reports"}, nil),
			want: `SELECT "TeamID" FROM "Reports"`,
		},
		{
			name: "embedded quotes are doubled",
			stmt: simpleSelect(
				[]ast.SelectItem{{Expr: &ast.ColumnRef{Column: `we"ird`}}},
				&ast.TableName{Name: "t"}, nil),
			want: `SELECT "we""ird" FROM t`,
		},
		{
			name: "qualifier parts are quoted independently",
			stmt: simpleSelect(
				[]ast.SelectItem{{Expr: &ast.ColumnRef{Table: "public.Reports", Column: "id"}}},
				&ast.TableName{Schema: "public", Name: "Reports"}, nil),
			want: `SELECT public."Reports".id FROM public."Reports"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Emit(tt.stmt))
		})
	}
}

func TestEmitStringLiteralEscaping(t *testing.T) {
	stmt := simpleSelect(
		[]ast.SelectItem{{Expr: &ast.Literal{Type: ast.LiteralString, Value: "it's"}}},
		nil, nil)
	assert.Equal(t, "SELECT 'it''s'", Emit(stmt))
}

func TestEmitPolicyWrapperShape(t *testing.T) {
	inner := simpleSelect(
		[]ast.SelectItem{{Star: true}},
		&ast.TableName{Name: "teams"},
		&ast.BinaryExpr{
			Left:  &ast.ColumnRef{Column: "visible"},
			Op:    "=",
			Right: ast.Bool(true),
		})
	stmt := simpleSelect(
		[]ast.SelectItem{{Expr: &ast.ColumnRef{Column: "id"}}},
		&ast.DerivedTable{Select: inner, Alias: "teams", FromPolicy: true},
		nil)
	assert.Equal(t,
		"SELECT id FROM (SELECT * FROM teams WHERE (visible = true)) AS teams",
		Emit(stmt))
}

func TestEmitMaskShape(t *testing.T) {
	mask := &ast.CaseExpr{
		Whens: []ast.WhenClause{{
			Condition: &ast.BinaryExpr{
				Left:  &ast.ColumnRef{Column: "team_id"},
				Op:    "=",
				Right: &ast.Literal{Type: ast.LiteralNumber, Value: "42"},
			},
			Result: &ast.ColumnRef{Column: "reporter_email"},
		}},
		Else:       ast.Null(),
		FromPolicy: true,
	}
	stmt := simpleSelect([]ast.SelectItem{{Expr: mask}}, &ast.TableName{Name: "reports"}, nil)
	assert.Equal(t,
		"SELECT CASE WHEN (team_id = 42) THEN reporter_email ELSE NULL END FROM reports",
		Emit(stmt))
}

func TestEmitNestedJoinGrouping(t *testing.T) {
	join := &ast.JoinTable{
		Left: &ast.TableName{Name: "a"},
		Type: ast.JoinInner,
		Right: &ast.JoinTable{
			Left:  &ast.TableName{Name: "b"},
			Type:  ast.JoinLeft,
			Right: &ast.TableName{Name: "c"},
			On: &ast.BinaryExpr{
				Left:  &ast.ColumnRef{Table: "b", Column: "id"},
				Op:    "=",
				Right: &ast.ColumnRef{Table: "c", Column: "b_id"},
			},
		},
		On: &ast.BinaryExpr{
			Left:  &ast.ColumnRef{Table: "a", Column: "id"},
			Op:    "=",
			Right: &ast.ColumnRef{Table: "b", Column: "a_id"},
		},
	}
	stmt := simpleSelect([]ast.SelectItem{{Star: true}}, join, nil)
	assert.Equal(t,
		"SELECT * FROM a INNER JOIN (b LEFT JOIN c ON (b.id = c.b_id)) ON (a.id = b.a_id)",
		Emit(stmt))
}

func TestEmitParenthesizesCompoundExpressions(t *testing.T) {
	expr := &ast.BinaryExpr{
		Left: &ast.BinaryExpr{
			Left:  &ast.ColumnRef{Column: "a"},
			Op:    "OR",
			Right: &ast.ColumnRef{Column: "b"},
		},
		Op: "AND",
		Right: &ast.UnaryExpr{
			Op:   "NOT",
			Expr: &ast.ColumnRef{Column: "c"},
		},
	}
	stmt := simpleSelect([]ast.SelectItem{{Expr: expr}}, nil, nil)
	assert.Equal(t, "SELECT ((a OR b) AND (NOT c))", Emit(stmt))
}

func TestEmitIsByteIdentical(t *testing.T) {
	stmt := simpleSelect(
		[]ast.SelectItem{{Expr: &ast.FuncCall{Name: "count", Star: true}, Alias: "n"}},
		&ast.TableName{Name: "reports", Alias: "r"},
		&ast.IsNullExpr{Expr: &ast.ColumnRef{Table: "r", Column: "closed_at"}, Not: true})
	first := Emit(stmt)
	assert.Equal(t, "SELECT count(*) AS n FROM reports AS r WHERE (r.closed_at IS NOT NULL)", first)
	for range 5 {
		assert.Equal(t, first, Emit(stmt))
	}
}
