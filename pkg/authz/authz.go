// Package authz rewrites restricted SQL trees so that every table and
// column access satisfies the rules registered for it.
//
// Row rules wrap each physical table reference in a filtering derived
// table; column rules replace references with masking expressions or drop
// them from projections. The stage is fail-closed: a table with no policy
// entry is denied, and a reference whose governing rule cannot be
// attributed with certainty is rejected rather than passed through.
// Authorizing an already-authorized tree is a no-op.
package authz

import (
	"log/slog"

	"github.com/Hacker0x01/h1ql/pkg/ast"
	"github.com/Hacker0x01/h1ql/pkg/policy"
)

// Requester identifies who is asking and carries the attributes rule
// predicates consume.
type Requester struct {
	Subject    string
	Attributes map[string]any
}

// Attr returns a requester attribute by name.
func (r Requester) Attr(name string) (any, bool) {
	v, ok := r.Attributes[name]
	return v, ok
}

// Authorizer applies policy snapshots to restricted statements.
type Authorizer struct {
	logger *slog.Logger
}

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithLogger sets the logger used for rewrite tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authorizer) {
		a.logger = logger
	}
}

// New creates an Authorizer.
func New(opts ...Option) *Authorizer {
	a := &Authorizer{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authorize returns a copy of stmt rewritten to satisfy snap for req.
// The input statement is not modified.
func (a *Authorizer) Authorize(stmt *ast.SelectStmt, snap *policy.Snapshot, req Requester) (*ast.SelectStmt, error) {
	out := ast.CloneStatement(stmt)
	r := &run{snap: snap, req: req, logger: a.logger}
	if err := r.selectStmt(out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// run carries one authorization pass. The tree it works on is a private
// clone, so rewrites mutate in place.
type run struct {
	snap   *policy.Snapshot
	req    Requester
	logger *slog.Logger
}

func (r *run) selectStmt(stmt *ast.SelectStmt, outer *scope) error {
	sc := newScope(outer)
	if stmt.With != nil {
		// Later CTEs may reference earlier ones, so each declaration
		// lands in scope before the next body is authorized.
		for _, cte := range stmt.With.CTEs {
			if err := r.selectStmt(cte.Select, sc); err != nil {
				return err
			}
			sc.declare(&binding{alias: cte.Name, cte: true})
		}
	}
	return r.selectBody(stmt.Body, sc)
}

func (r *run) selectBody(body *ast.SelectBody, sc *scope) error {
	if err := r.selectCore(body.Left, sc); err != nil {
		return err
	}
	if body.Right != nil {
		return r.selectBody(body.Right, sc)
	}
	return nil
}

func (r *run) selectCore(core *ast.SelectCore, sc *scope) error {
	frame := newScope(sc)

	if core.From != nil {
		for i, item := range core.From.Items {
			replaced, err := r.tableRef(item, sc, frame)
			if err != nil {
				return err
			}
			core.From.Items[i] = replaced
		}
	}

	if err := r.projection(core, frame); err != nil {
		return err
	}

	var err error
	if core.Where, err = r.rewriteExpr(core.Where, frame); err != nil {
		return err
	}
	for i, g := range core.GroupBy {
		if core.GroupBy[i], err = r.rewriteExpr(g, frame); err != nil {
			return err
		}
	}
	if core.Having, err = r.rewriteExpr(core.Having, frame); err != nil {
		return err
	}
	for i := range core.OrderBy {
		if core.OrderBy[i].Expr, err = r.rewriteExpr(core.OrderBy[i].Expr, frame); err != nil {
			return err
		}
	}
	if core.Limit, err = r.rewriteExpr(core.Limit, frame); err != nil {
		return err
	}
	if core.Offset, err = r.rewriteExpr(core.Offset, frame); err != nil {
		return err
	}
	return nil
}

// projection rewrites the SELECT list. Star expansion over a table with
// column rules cannot be masked column by column, so it is denied.
// Omit-redacted columns drop out of the list when their rule does not
// grant them.
func (r *run) projection(core *ast.SelectCore, frame *scope) error {
	kept := make([]ast.SelectItem, 0, len(core.Columns))
	for _, item := range core.Columns {
		switch {
		case item.Star:
			for _, b := range frame.bindings {
				if b.entry != nil && len(b.entry.ColumnRules) > 0 {
					return &ContextError{
						Resource: b.entry.Resource.String(),
						Reason:   "star expansion would expose a rule-governed column; list columns explicitly",
					}
				}
			}
		case item.TableStar != "":
			if b := frame.resolve(item.TableStar); b != nil && b.entry != nil && len(b.entry.ColumnRules) > 0 {
				return &ContextError{
					Resource: b.entry.Resource.String(),
					Reason:   "star expansion would expose a rule-governed column; list columns explicitly",
				}
			}
		default:
			if ref, ok := item.Expr.(*ast.ColumnRef); ok {
				drop, err := r.dropOmitted(ref, frame)
				if err != nil {
					return err
				}
				if drop {
					r.logger.Debug("omitted column from projection",
						"column", ref.Column, "requester", r.req.Subject)
					continue
				}
			}
			var err error
			if item.Expr, err = r.rewriteExpr(item.Expr, frame); err != nil {
				return err
			}
		}
		kept = append(kept, item)
	}
	if len(core.Columns) > 0 && len(kept) == 0 {
		return &ContextError{Reason: "every projected column is omitted by a rule"}
	}
	core.Columns = kept
	return nil
}

// dropOmitted reports whether a bare projected column falls under an omit
// rule that does not grant it for this requester.
func (r *run) dropOmitted(ref *ast.ColumnRef, frame *scope) (bool, error) {
	rule, _, err := r.ruleFor(ref, frame)
	if err != nil || rule == nil || rule.Redaction != policy.RedactionOmit {
		return false, err
	}
	pred, err := bindAttributes(ast.CloneExpr(rule.Predicate), r.req, rule.Resource.String())
	if err != nil {
		return false, err
	}
	granted, ok := foldPredicate(pred)
	if !ok {
		return false, &ContextError{
			Resource: rule.Resource.String(),
			Reason:   "omit redaction predicate is not statically decidable",
		}
	}
	return !granted, nil
}

func (r *run) tableRef(item ast.TableRef, sc, frame *scope) (ast.TableRef, error) {
	switch t := item.(type) {
	case *ast.TableName:
		return r.tableName(t, sc, frame)

	case *ast.DerivedTable:
		if !t.FromPolicy {
			// Without LATERAL a derived table cannot be correlated, so
			// its body resolves against the statement scope only.
			if err := r.selectStmt(t.Select, sc); err != nil {
				return nil, err
			}
		}
		frame.declare(&binding{alias: t.Alias})
		return t, nil

	case *ast.JoinTable:
		start := len(frame.bindings)
		var err error
		if t.Left, err = r.tableRef(t.Left, sc, frame); err != nil {
			return nil, err
		}
		if t.Right, err = r.tableRef(t.Right, sc, frame); err != nil {
			return nil, err
		}
		for _, name := range t.Using {
			for _, b := range frame.bindings[start:] {
				if b.entry != nil && b.entry.ColumnRule(name) != nil {
					return nil, &ContextError{
						Resource: b.entry.Resource.WithColumn(name).String(),
						Reason:   "USING over a rule-governed column cannot be masked",
					}
				}
			}
		}
		if t.On, err = r.rewriteExpr(t.On, frame); err != nil {
			return nil, err
		}
		return t, nil
	}
	return item, nil
}

func (r *run) tableName(t *ast.TableName, sc, frame *scope) (ast.TableRef, error) {
	if t.Schema == "" {
		if cte := sc.resolveCTE(t.Name); cte != nil {
			frame.declare(&binding{alias: t.EffectiveAlias()})
			return t, nil
		}
	}

	entry, ok := r.snap.Lookup(t.Schema, t.Name)
	if !ok {
		res := policy.Resource{Schema: t.Schema, Table: t.Name}
		return nil, &ContextError{Resource: res.String(), Reason: "no policy entry for table"}
	}
	frame.declare(&binding{alias: t.EffectiveAlias(), entry: entry})

	if len(entry.RowRules) == 0 {
		return t, nil
	}
	return r.wrapRowRules(t, entry)
}

// wrapRowRules replaces a physical table reference with a derived table
// that filters its rows, keeping the original name visible to the rest of
// the query through the wrapper alias.
func (r *run) wrapRowRules(t *ast.TableName, entry *policy.TableEntry) (ast.TableRef, error) {
	var where ast.Expr
	for _, rule := range entry.RowRules {
		pred, err := bindAttributes(ast.CloneExpr(rule.Predicate), r.req, rule.Resource.String())
		if err != nil {
			return nil, err
		}
		if where == nil {
			where = pred
		} else {
			where = &ast.BinaryExpr{Left: where, Op: "AND", Right: pred}
		}
	}
	// A rule-governed table is always wrapped, even when the combined
	// predicate folds to a constant: the emitted text must never scan the
	// bare resource directly.
	if granted, ok := foldPredicate(where); ok {
		where = ast.Bool(granted)
	}

	r.logger.Debug("wrapped table with row rules",
		"resource", entry.Resource.String(),
		"rules", len(entry.RowRules),
		"requester", r.req.Subject)

	inner := &ast.SelectStmt{
		Body: &ast.SelectBody{
			Left: &ast.SelectCore{
				Columns: []ast.SelectItem{{Star: true}},
				From: &ast.FromClause{
					Items: []ast.TableRef{&ast.TableName{Schema: t.Schema, Name: t.Name}},
				},
				Where: where,
			},
		},
	}
	return &ast.DerivedTable{
		Select:     inner,
		Alias:      t.EffectiveAlias(),
		FromPolicy: true,
	}, nil
}

// rewriteExpr applies column rules to every reference in an expression and
// authorizes nested subqueries against the enclosing frame.
func (r *run) rewriteExpr(e ast.Expr, frame *scope) (ast.Expr, error) {
	if e == nil {
		return nil, nil
	}
	var rerr error
	out := ast.RewriteExpr(e, func(e ast.Expr) ast.Expr {
		if rerr != nil {
			return e
		}
		switch n := e.(type) {
		case *ast.ColumnRef:
			replaced, err := r.maskColumn(n, frame)
			if err != nil {
				rerr = err
				return e
			}
			return replaced
		case *ast.SubqueryExpr:
			rerr = r.selectStmt(n.Select, frame)
		case *ast.ExistsExpr:
			rerr = r.selectStmt(n.Select, frame)
		case *ast.InExpr:
			if n.Query != nil {
				rerr = r.selectStmt(n.Query, frame)
			}
		}
		return e
	})
	if rerr != nil {
		return nil, rerr
	}
	return out, nil
}
