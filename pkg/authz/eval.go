package authz

import (
	"fmt"
	"strconv"

	"github.com/Hacker0x01/h1ql/pkg/ast"
)

// bindAttributes replaces requester-attribute placeholders in a rule
// predicate with literal values. The input predicate is not mutated.
func bindAttributes(pred ast.Expr, req Requester, resource string) (ast.Expr, error) {
	var bindErr error
	out := ast.RewriteExpr(pred, func(e ast.Expr) ast.Expr {
		ref, ok := e.(*ast.AttrRef)
		if !ok {
			return e
		}
		val, present := req.Attr(ref.Name)
		if !present {
			if bindErr == nil {
				bindErr = &ContextError{Resource: resource, MissingAttribute: ref.Name}
			}
			return e
		}
		lit, err := literalFor(val)
		if err != nil {
			if bindErr == nil {
				bindErr = &ContextError{
					Resource: resource,
					Reason:   fmt.Sprintf("requester attribute %q: %v", ref.Name, err),
				}
			}
			return e
		}
		return lit
	})
	if bindErr != nil {
		return nil, bindErr
	}
	return out, nil
}

func literalFor(v any) (*ast.Literal, error) {
	switch val := v.(type) {
	case nil:
		return ast.Null(), nil
	case bool:
		return ast.Bool(val), nil
	case string:
		return &ast.Literal{Type: ast.LiteralString, Value: val}, nil
	case int:
		return &ast.Literal{Type: ast.LiteralNumber, Value: strconv.Itoa(val)}, nil
	case int32:
		return &ast.Literal{Type: ast.LiteralNumber, Value: strconv.FormatInt(int64(val), 10)}, nil
	case int64:
		return &ast.Literal{Type: ast.LiteralNumber, Value: strconv.FormatInt(val, 10)}, nil
	case uint:
		return &ast.Literal{Type: ast.LiteralNumber, Value: strconv.FormatUint(uint64(val), 10)}, nil
	case uint32:
		return &ast.Literal{Type: ast.LiteralNumber, Value: strconv.FormatUint(uint64(val), 10)}, nil
	case uint64:
		return &ast.Literal{Type: ast.LiteralNumber, Value: strconv.FormatUint(val, 10)}, nil
	case float32:
		return &ast.Literal{Type: ast.LiteralNumber, Value: strconv.FormatFloat(float64(val), 'g', -1, 32)}, nil
	case float64:
		return &ast.Literal{Type: ast.LiteralNumber, Value: strconv.FormatFloat(val, 'g', -1, 64)}, nil
	default:
		return nil, fmt.Errorf("unsupported attribute type %T", v)
	}
}

// tri is a three-valued logic result for static predicate evaluation.
// NULL behaves as unknown, which never grants.
type tri int

const (
	triUnknown tri = iota
	triFalse
	triTrue
)

// foldPredicate statically evaluates a bound predicate when it involves
// only literals. granted is true only for a definite TRUE result; ok is
// false when the predicate depends on row data.
func foldPredicate(e ast.Expr) (granted, ok bool) {
	t, ok := foldTri(e)
	if !ok {
		return false, false
	}
	return t == triTrue, true
}

func foldTri(e ast.Expr) (tri, bool) {
	switch n := e.(type) {
	case *ast.Literal:
		switch n.Type {
		case ast.LiteralBool:
			if n.Value == "true" {
				return triTrue, true
			}
			return triFalse, true
		case ast.LiteralNull:
			return triUnknown, true
		}
		return triUnknown, false
	case *ast.UnaryExpr:
		if n.Op != "NOT" {
			return triUnknown, false
		}
		t, ok := foldTri(n.Expr)
		if !ok {
			return triUnknown, false
		}
		switch t {
		case triTrue:
			return triFalse, true
		case triFalse:
			return triTrue, true
		default:
			return triUnknown, true
		}
	case *ast.BinaryExpr:
		switch n.Op {
		case "AND":
			l, lok := foldTri(n.Left)
			r, rok := foldTri(n.Right)
			if (lok && l == triFalse) || (rok && r == triFalse) {
				return triFalse, true
			}
			if lok && rok {
				if l == triTrue && r == triTrue {
					return triTrue, true
				}
				return triUnknown, true
			}
			return triUnknown, false
		case "OR":
			l, lok := foldTri(n.Left)
			r, rok := foldTri(n.Right)
			if (lok && l == triTrue) || (rok && r == triTrue) {
				return triTrue, true
			}
			if lok && rok {
				if l == triFalse && r == triFalse {
					return triFalse, true
				}
				return triUnknown, true
			}
			return triUnknown, false
		case "=", "<>":
			return foldCompare(n)
		}
		return triUnknown, false
	case *ast.IsNullExpr:
		lit, ok := n.Expr.(*ast.Literal)
		if !ok {
			return triUnknown, false
		}
		isNull := lit.Type == ast.LiteralNull
		if n.Not {
			isNull = !isNull
		}
		if isNull {
			return triTrue, true
		}
		return triFalse, true
	}
	return triUnknown, false
}

func foldCompare(n *ast.BinaryExpr) (tri, bool) {
	left, lok := n.Left.(*ast.Literal)
	right, rok := n.Right.(*ast.Literal)
	if !lok || !rok {
		return triUnknown, false
	}
	if left.Type == ast.LiteralNull || right.Type == ast.LiteralNull {
		return triUnknown, true
	}
	if left.Type != right.Type {
		return triUnknown, false
	}

	var equal bool
	switch left.Type {
	case ast.LiteralNumber:
		lv, lerr := strconv.ParseFloat(left.Value, 64)
		rv, rerr := strconv.ParseFloat(right.Value, 64)
		if lerr != nil || rerr != nil {
			return triUnknown, false
		}
		equal = lv == rv
	default:
		equal = left.Value == right.Value
	}
	if n.Op == "<>" {
		equal = !equal
	}
	if equal {
		return triTrue, true
	}
	return triFalse, true
}
