// Package policy holds the authorization rule model and its immutable
// registry snapshots.
//
// A snapshot is built once at load time and never mutated; reload replaces
// the whole snapshot atomically. Per-request lookup is a pure map read.
package policy

import (
	"strings"

	"github.com/Hacker0x01/h1ql/pkg/ast"
)

// Resource identifies a protected table or column.
type Resource struct {
	Schema string
	Table  string
	Column string
}

// ParseResource parses "table", "schema.table", or "schema.table.column".
func ParseResource(s string) Resource {
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 2:
		return Resource{Schema: parts[0], Table: parts[1]}
	case 3:
		return Resource{Schema: parts[0], Table: parts[1], Column: parts[2]}
	default:
		return Resource{Table: s}
	}
}

// WithColumn returns the column resource under this table resource.
func (r Resource) WithColumn(column string) Resource {
	r.Column = column
	return r
}

// String renders the qualified resource name.
func (r Resource) String() string {
	var b strings.Builder
	if r.Schema != "" {
		b.WriteString(r.Schema)
		b.WriteString(".")
	}
	b.WriteString(r.Table)
	if r.Column != "" {
		b.WriteString(".")
		b.WriteString(r.Column)
	}
	return b.String()
}

// Key returns the case-insensitive lookup key for the resource.
func (r Resource) Key() string {
	return strings.ToLower(r.String())
}

// Redaction selects how a column-level rule hides a value when its
// predicate does not hold.
type Redaction int

const (
	// RedactionMaskNull replaces the value with NULL. A masked value is
	// indistinguishable from a genuine NULL to downstream aggregates;
	// that ambiguity is inherited from the rule model as specified.
	RedactionMaskNull Redaction = iota
	// RedactionOmit drops the column from projection lists entirely.
	RedactionOmit
)

func (r Redaction) String() string {
	if r == RedactionOmit {
		return "omit"
	}
	return "mask"
}

// RowRule filters the rows of a table visible to a requester.
// Predicate is an expression over row attributes and requester-attribute
// placeholders, validated through the restriction stage at load time.
type RowRule struct {
	Name       string
	Resource   Resource
	Predicate  ast.Expr
	Attributes []string // requester attributes the predicate consumes
	Raw        string
}

// ColumnRule masks a single column unless its predicate holds.
type ColumnRule struct {
	Column     string
	Resource   Resource
	Predicate  ast.Expr
	Redaction  Redaction
	Attributes []string
	Raw        string
}

// TableEntry is the ordered set of rules registered for one table.
// Rules are immutable once registered.
type TableEntry struct {
	Resource    Resource
	Public      bool
	RowRules    []*RowRule
	ColumnRules []*ColumnRule
}

// ColumnRule returns the rule registered for the named column, if any.
func (e *TableEntry) ColumnRule(column string) *ColumnRule {
	for _, rule := range e.ColumnRules {
		if strings.EqualFold(rule.Column, column) {
			return rule
		}
	}
	return nil
}
