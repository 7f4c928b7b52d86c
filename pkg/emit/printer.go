// Package emit renders authorized ASTs to executable query text.
//
// Emission is canonical: one rendering per node kind, explicit parentheses
// around every compound expression so the text's precedence always matches
// the tree, and deterministic aliasing. Structurally identical trees emit
// byte-identical text. The emitter never consults policy or requester
// state; every security decision is already baked into the tree.
package emit

import (
	"bytes"
	"regexp"
	"strings"
)

type printer struct {
	out bytes.Buffer
}

func (p *printer) write(s string) {
	p.out.WriteString(s)
}

func (p *printer) space() {
	p.out.WriteByte(' ')
}

func (p *printer) keyword(s string) {
	p.out.WriteString(strings.ToUpper(s))
}

func (p *printer) String() string {
	return p.out.String()
}

// formatList renders count items separated by sep.
func (p *printer) formatList(count int, format func(i int), sep string) {
	for i := 0; i < count; i++ {
		if i > 0 {
			p.write(sep)
		}
		format(i)
	}
}

var bareIdent = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)

// reservedWords forces quoting for identifiers that would otherwise be
// parsed as keywords.
var reservedWords = map[string]struct{}{
	"all": {}, "and": {}, "as": {}, "asc": {}, "between": {}, "by": {},
	"case": {}, "cast": {}, "cross": {}, "desc": {}, "distinct": {},
	"else": {}, "end": {}, "except": {}, "exists": {}, "false": {},
	"from": {}, "full": {}, "group": {}, "having": {}, "ilike": {},
	"in": {}, "inner": {}, "intersect": {}, "is": {}, "join": {},
	"left": {}, "like": {}, "limit": {}, "not": {}, "null": {},
	"offset": {}, "on": {}, "or": {}, "order": {}, "right": {},
	"select": {}, "table": {}, "then": {}, "true": {}, "union": {},
	"user": {}, "using": {}, "when": {}, "where": {}, "with": {},
}

// ident renders an identifier, quoting when it is not a bare lowercase
// name or collides with a keyword.
func (p *printer) ident(name string) {
	if bareIdent.MatchString(name) {
		if _, reserved := reservedWords[name]; !reserved {
			p.write(name)
			return
		}
	}
	p.write(`"` + strings.ReplaceAll(name, `"`, `""`) + `"`)
}

// stringLiteral renders a single-quoted string literal.
func (p *printer) stringLiteral(v string) {
	p.write("'" + strings.ReplaceAll(v, "'", "''") + "'")
}
