package authz

import (
	"strings"

	"github.com/Hacker0x01/h1ql/pkg/policy"
)

// binding associates a name visible to the query with the policy entry
// governing it. A nil entry marks an opaque source: a CTE, an
// already-authorized wrapper, or a derived table whose body has been
// authorized on its own.
type binding struct {
	alias string
	entry *policy.TableEntry
	cte   bool
}

// scope tracks the names visible at one nesting level. Statement scopes
// hold CTE declarations; each SELECT core gets a child scope holding its
// FROM bindings. Bindings keep declaration order so resolution stays
// deterministic.
type scope struct {
	parent   *scope
	bindings []*binding
	byAlias  map[string]*binding
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, byAlias: map[string]*binding{}}
}

func (s *scope) declare(b *binding) {
	s.bindings = append(s.bindings, b)
	// Duplicate aliases at one level are a query error left to the
	// database; the last declaration wins here.
	s.byAlias[strings.ToLower(b.alias)] = b
}

// resolve finds the FROM binding for a column qualifier, innermost first.
func (s *scope) resolve(alias string) *binding {
	key := strings.ToLower(alias)
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.byAlias[key]; ok && !b.cte {
			return b
		}
	}
	return nil
}

// resolveCTE finds a CTE declaration shadowing a physical table name.
func (s *scope) resolveCTE(name string) *binding {
	key := strings.ToLower(name)
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.byAlias[key]; ok && b.cte {
			return b
		}
	}
	return nil
}
