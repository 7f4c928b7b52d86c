package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hacker0x01/h1ql/pkg/ast"
	"github.com/Hacker0x01/h1ql/pkg/restrict"
)

func TestLoadMap(t *testing.T) {
	cfg := map[string]any{
		"version": 1,
		"resources": []any{
			map[string]any{
				"table": "teams",
				"rows": []any{
					map[string]any{"name": "visible_teams", "predicate": "visible = true"},
				},
			},
			map[string]any{
				"table":  "reports",
				"public": true,
				"columns": []any{
					map[string]any{
						"column":    "reporter_email",
						"predicate": "team_id = {{ requester.team_id }}",
						"redaction": "mask",
					},
				},
			},
		},
	}

	snap, err := LoadMap(cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.Version())
	assert.Equal(t, 2, snap.Len())

	teams, ok := snap.Lookup("", "teams")
	require.True(t, ok)
	assert.False(t, teams.Public)
	require.Len(t, teams.RowRules, 1)
	assert.Equal(t, "visible_teams", teams.RowRules[0].Name)
	assert.Empty(t, teams.RowRules[0].Attributes)

	reports, ok := snap.Lookup("public", "reports")
	require.True(t, ok)
	assert.True(t, reports.Public)
	rule := reports.ColumnRule("REPORTER_EMAIL")
	require.NotNil(t, rule)
	assert.Equal(t, RedactionMaskNull, rule.Redaction)
	assert.Equal(t, []string{"team_id"}, rule.Attributes)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := `version: 1
resources:
  - table: teams
    rows:
      - name: visible_teams
        predicate: visible = true
  - table: analytics.events
    public: true
    columns:
      - column: ip_address
        predicate: "{{ requester.role }} = 'admin'"
        redaction: omit
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	snap, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())

	events, ok := snap.Lookup("analytics", "events")
	require.True(t, ok)
	rule := events.ColumnRule("ip_address")
	require.NotNil(t, rule)
	assert.Equal(t, RedactionOmit, rule.Redaction)
	assert.Equal(t, []string{"role"}, rule.Attributes)
}

func TestLoadConflicts(t *testing.T) {
	tests := []struct {
		name   string
		cfg    map[string]any
		reason string
	}{
		{
			name:   "wrong version",
			cfg:    map[string]any{"version": 2},
			reason: "unsupported policy version",
		},
		{
			name: "missing table name",
			cfg: map[string]any{
				"version":   1,
				"resources": []any{map[string]any{"public": true}},
			},
			reason: "resource without table name",
		},
		{
			name: "duplicate resource",
			cfg: map[string]any{
				"version": 1,
				"resources": []any{
					map[string]any{"table": "teams", "public": true},
					map[string]any{"table": "Teams", "public": true},
				},
			},
			reason: "duplicate resource entry",
		},
		{
			name: "public with row rules",
			cfg: map[string]any{
				"version": 1,
				"resources": []any{
					map[string]any{
						"table":  "teams",
						"public": true,
						"rows": []any{
							map[string]any{"name": "r", "predicate": "visible = true"},
						},
					},
				},
			},
			reason: "cannot also carry row rules",
		},
		{
			name: "non-public without row rules",
			cfg: map[string]any{
				"version": 1,
				"resources": []any{
					map[string]any{"table": "teams"},
				},
			},
			reason: "no row rule that could grant access",
		},
		{
			name: "duplicate row rule name",
			cfg: map[string]any{
				"version": 1,
				"resources": []any{
					map[string]any{
						"table": "teams",
						"rows": []any{
							map[string]any{"name": "r", "predicate": "visible = true"},
							map[string]any{"name": "r", "predicate": "visible = false"},
						},
					},
				},
			},
			reason: `duplicate row rule "r"`,
		},
		{
			name: "invalid predicate",
			cfg: map[string]any{
				"version": 1,
				"resources": []any{
					map[string]any{
						"table": "teams",
						"rows": []any{
							map[string]any{"name": "r", "predicate": "visible = (SELECT 1 FOR UPDATE)"},
						},
					},
				},
			},
			reason: "invalid predicate",
		},
		{
			name: "unknown redaction",
			cfg: map[string]any{
				"version": 1,
				"resources": []any{
					map[string]any{
						"table":  "reports",
						"public": true,
						"columns": []any{
							map[string]any{"column": "email", "predicate": "true", "redaction": "scramble"},
						},
					},
				},
			},
			reason: `unknown redaction "scramble"`,
		},
		{
			name: "duplicate column rule",
			cfg: map[string]any{
				"version": 1,
				"resources": []any{
					map[string]any{
						"table":  "reports",
						"public": true,
						"columns": []any{
							map[string]any{"column": "email", "predicate": "true"},
							map[string]any{"column": "Email", "predicate": "false"},
						},
					},
				},
			},
			reason: "multiple rules for one column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMap(tt.cfg)
			require.Error(t, err)
			var conflict *ConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestParsePredicate(t *testing.T) {
	r := restrict.New()

	t.Run("plain comparison", func(t *testing.T) {
		expr, attrs, err := parsePredicate("visible = true", r)
		require.NoError(t, err)
		assert.Empty(t, attrs)
		bin, ok := expr.(*ast.BinaryExpr)
		require.True(t, ok)
		assert.Equal(t, "=", bin.Op)
	})

	t.Run("requester attribute becomes AttrRef", func(t *testing.T) {
		expr, attrs, err := parsePredicate("team_id = {{ requester.team_id }}", r)
		require.NoError(t, err)
		assert.Equal(t, []string{"team_id"}, attrs)
		bin, ok := expr.(*ast.BinaryExpr)
		require.True(t, ok)
		ref, ok := bin.Right.(*ast.AttrRef)
		require.True(t, ok)
		assert.Equal(t, "team_id", ref.Name)
	})

	t.Run("attributes deduplicated and sorted", func(t *testing.T) {
		_, attrs, err := parsePredicate(
			"owner_id = {{ requester.id }} OR ({{ requester.role }} = 'admin' AND reviewer_id = {{ requester.id }})", r)
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "role"}, attrs)
	})

	t.Run("no sentinel literal survives substitution", func(t *testing.T) {
		expr, attrs, err := parsePredicate("{{ requester.role }} = 'admin'", r)
		require.NoError(t, err)
		assert.Equal(t, []string{"role"}, attrs)
		ast.InspectExpr(expr, func(node any) bool {
			if lit, ok := node.(*ast.Literal); ok {
				assert.NotContains(t, lit.Value, attrSentinelPrefix)
			}
			return true
		})
		bin, ok := expr.(*ast.BinaryExpr)
		require.True(t, ok)
		ref, ok := bin.Left.(*ast.AttrRef)
		require.True(t, ok)
		assert.Equal(t, "role", ref.Name)
	})

	t.Run("unrecognized placeholder", func(t *testing.T) {
		_, _, err := parsePredicate("team_id = {{ session.team }}", r)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unrecognized template placeholder")
	})

	t.Run("mutating construct rejected", func(t *testing.T) {
		_, _, err := parsePredicate("id IN (SELECT id FROM t FOR UPDATE)", r)
		require.Error(t, err)
	})
}

func TestSnapshotLookup(t *testing.T) {
	snap, err := LoadMap(map[string]any{
		"version": 1,
		"resources": []any{
			map[string]any{"table": "teams", "public": true},
			map[string]any{"table": "analytics.events", "public": true},
			map[string]any{"table": "public.reports", "public": true},
		},
	})
	require.NoError(t, err)

	tests := []struct {
		schema, table string
		found         bool
	}{
		{"", "teams", true},
		{"public", "teams", true},
		{"analytics", "events", true},
		{"", "events", false},
		{"", "reports", true},
		{"public", "reports", true},
		{"other", "teams", false},
		{"", "unknown", false},
	}
	for _, tt := range tests {
		_, ok := snap.Lookup(tt.schema, tt.table)
		assert.Equal(t, tt.found, ok, "lookup %q.%q", tt.schema, tt.table)
	}

	entries := snap.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "analytics.events", entries[0].Resource.String())
}

func TestStoreReplace(t *testing.T) {
	first, err := LoadMap(map[string]any{
		"version":   1,
		"resources": []any{map[string]any{"table": "teams", "public": true}},
	})
	require.NoError(t, err)
	second, err := LoadMap(map[string]any{
		"version":   1,
		"resources": []any{map[string]any{"table": "reports", "public": true}},
	})
	require.NoError(t, err)

	store := NewStore(first, nil)
	held := store.Current()
	assert.Equal(t, first.Version(), held.Version())

	store.Replace(second)
	assert.Equal(t, second.Version(), store.Current().Version())

	// A snapshot taken before the swap stays usable.
	_, ok := held.Lookup("", "teams")
	assert.True(t, ok)
}
