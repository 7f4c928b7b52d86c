package policy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Hacker0x01/h1ql/pkg/ast"
	"github.com/Hacker0x01/h1ql/pkg/parse"
	"github.com/Hacker0x01/h1ql/pkg/restrict"
)

// Predicate templates are SQL boolean expressions with
// {{ requester.attr }} placeholders. They are parsed exactly once, at load
// time, through the same parser and restriction stage as user queries, so
// a policy file cannot smuggle a construct past the whitelist.
var attrPattern = regexp.MustCompile(`\{\{\s*requester\.([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

const (
	attrSentinelPrefix = "__h1ql_attr_"
	attrSentinelSuffix = "__"
)

// parsePredicate compiles a predicate template into a restricted
// expression whose placeholders are ast.AttrRef nodes, and returns the
// sorted set of requester attributes the predicate consumes.
func parsePredicate(raw string, r *restrict.Restrictor) (ast.Expr, []string, error) {
	// ${1} keeps the trailing sentinel underscores out of the capture
	// group name; $1__ would be read as a group named "1__".
	substituted := attrPattern.ReplaceAllString(raw, "'"+attrSentinelPrefix+"${1}"+attrSentinelSuffix+"'")
	if strings.Contains(substituted, "{{") || strings.Contains(substituted, "}}") {
		return nil, nil, fmt.Errorf("unrecognized template placeholder in %q", raw)
	}

	parsed, err := parse.Parse("SELECT 1 WHERE " + substituted)
	if err != nil {
		return nil, nil, err
	}
	stmt, err := r.Restrict(parsed)
	if err != nil {
		return nil, nil, err
	}
	where := stmt.Body.Left.Where
	if where == nil {
		return nil, nil, fmt.Errorf("predicate %q is empty", raw)
	}
	if err := rejectSubqueries(where); err != nil {
		return nil, nil, err
	}

	attrs := map[string]struct{}{}
	expr := ast.RewriteExpr(where, func(e ast.Expr) ast.Expr {
		lit, ok := e.(*ast.Literal)
		if !ok || lit.Type != ast.LiteralString {
			return e
		}
		name, ok := sentinelAttr(lit.Value)
		if !ok {
			return e
		}
		attrs[name] = struct{}{}
		return &ast.AttrRef{Name: name}
	})

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return expr, names, nil
}

// rejectSubqueries keeps rule predicates self-contained. A predicate that
// reads other tables would itself need authorization, and placeholders
// inside a nested scope would escape substitution.
func rejectSubqueries(e ast.Expr) error {
	var found bool
	ast.InspectExpr(e, func(node any) bool {
		switch n := node.(type) {
		case *ast.SubqueryExpr, *ast.ExistsExpr:
			found = true
			return false
		case *ast.InExpr:
			if n.Query != nil {
				found = true
				return false
			}
		}
		return true
	})
	if found {
		return fmt.Errorf("subqueries are not allowed in rule predicates")
	}
	return nil
}

func sentinelAttr(value string) (string, bool) {
	if !strings.HasPrefix(value, attrSentinelPrefix) || !strings.HasSuffix(value, attrSentinelSuffix) {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(value, attrSentinelPrefix), attrSentinelSuffix)
	if name == "" {
		return "", false
	}
	return name, true
}
