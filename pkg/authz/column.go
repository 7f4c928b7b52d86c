package authz

import (
	"strings"

	"github.com/Hacker0x01/h1ql/pkg/ast"
	"github.com/Hacker0x01/h1ql/pkg/policy"
)

// maskColumn applies the column rule governing a reference, if any.
func (r *run) maskColumn(ref *ast.ColumnRef, frame *scope) (ast.Expr, error) {
	rule, _, err := r.ruleFor(ref, frame)
	if err != nil || rule == nil {
		return ref, err
	}

	pred, err := bindAttributes(ast.CloneExpr(rule.Predicate), r.req, rule.Resource.String())
	if err != nil {
		return nil, err
	}
	pred = qualifyColumns(pred, ref.Table)

	if granted, ok := foldPredicate(pred); ok {
		if granted {
			return ref, nil
		}
		r.logger.Debug("masked column", "resource", rule.Resource.String(), "requester", r.req.Subject)
		return ast.Null(), nil
	}
	if rule.Redaction == policy.RedactionOmit {
		return nil, &ContextError{
			Resource: rule.Resource.String(),
			Reason:   "omit redaction predicate is not statically decidable",
		}
	}

	r.logger.Debug("masked column", "resource", rule.Resource.String(), "requester", r.req.Subject)
	return &ast.CaseExpr{
		Whens:      []ast.WhenClause{{Condition: pred, Result: ref}},
		Else:       ast.Null(),
		FromPolicy: true,
	}, nil
}

// ruleFor attributes a column reference to the binding it resolves through
// and returns that binding's rule for the column.
//
// Qualified references resolve through the frame chain by alias.
// Unqualified references are only attributed when no other visible source
// could supply the column: if any rule matches the bare name but the
// innermost populated frame leaves the source ambiguous, the query is
// rejected rather than risking an unmasked read.
func (r *run) ruleFor(ref *ast.ColumnRef, frame *scope) (*policy.ColumnRule, *binding, error) {
	if ref.Table != "" {
		b := frame.resolve(ref.Table)
		if b == nil {
			// Schema-qualified references carry the qualifier verbatim.
			if i := strings.LastIndex(ref.Table, "."); i >= 0 {
				b = frame.resolve(ref.Table[i+1:])
			}
		}
		if b == nil || b.entry == nil {
			return nil, nil, nil
		}
		return b.entry.ColumnRule(ref.Column), b, nil
	}

	var matches []*binding
	var inner *scope
	for cur := frame; cur != nil; cur = cur.parent {
		if inner == nil && len(cur.bindings) > 0 {
			inner = cur
		}
		for _, b := range cur.bindings {
			if b.entry != nil && b.entry.ColumnRule(ref.Column) != nil {
				matches = append(matches, b)
			}
		}
	}
	if len(matches) == 0 {
		return nil, nil, nil
	}
	if len(matches) == 1 && inner != nil && len(inner.bindings) == 1 && inner.bindings[0] == matches[0] {
		return matches[0].entry.ColumnRule(ref.Column), matches[0], nil
	}
	return nil, nil, &ContextError{
		Resource: matches[0].entry.Resource.WithColumn(ref.Column).String(),
		Reason:   "unqualified reference to a rule-governed column is ambiguous; qualify it",
	}
}

// qualifyColumns pins the row columns of a rule predicate to the same
// qualifier the governed reference used, so the predicate resolves against
// the right table inside multi-table queries.
func qualifyColumns(pred ast.Expr, qualifier string) ast.Expr {
	if qualifier == "" {
		return pred
	}
	return ast.RewriteExpr(pred, func(e ast.Expr) ast.Expr {
		ref, ok := e.(*ast.ColumnRef)
		if !ok || ref.Table != "" {
			return e
		}
		return &ast.ColumnRef{Table: qualifier, Column: ref.Column}
	})
}
