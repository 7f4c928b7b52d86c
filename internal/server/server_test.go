package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hacker0x01/h1ql/pkg/adapter"
	"github.com/Hacker0x01/h1ql/pkg/h1ql"
	"github.com/Hacker0x01/h1ql/pkg/policy"
)

func testServer(t *testing.T, exec adapter.Adapter) *httptest.Server {
	t.Helper()
	snap, err := policy.LoadMap(map[string]any{
		"version": 1,
		"resources": []any{
			map[string]any{
				"table": "teams",
				"rows": []any{
					map[string]any{"name": "visible_teams", "predicate": "visible = true"},
				},
			},
		},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(New(h1ql.New(h1ql.StaticSnapshot(snap)), exec, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRewriteEndpoint(t *testing.T) {
	srv := testServer(t, nil)

	resp := postJSON(t, srv.URL+"/v1/rewrite", map[string]any{
		"sql":       "SELECT id FROM teams",
		"requester": map[string]any{"subject": "user:7"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		SQL             string `json:"sql"`
		SnapshotVersion string `json:"snapshot_version"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "SELECT id FROM (SELECT * FROM teams WHERE (visible = true)) AS teams", out.SQL)
	assert.NotEmpty(t, out.SnapshotVersion)
}

func TestRewriteEndpointErrors(t *testing.T) {
	srv := testServer(t, nil)

	tests := []struct {
		name   string
		sql    string
		status int
		stage  string
	}{
		{"parse error", "SELECT FROM WHERE", http.StatusBadRequest, "parse"},
		{"restricted construct", "DELETE FROM teams", http.StatusBadRequest, "restrict"},
		{"denied table", "SELECT id FROM secrets", http.StatusForbidden, "authorize"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/v1/rewrite", map[string]any{
				"sql":       tt.sql,
				"requester": map[string]any{"subject": "user:7"},
			})
			require.Equal(t, tt.status, resp.StatusCode)

			var out struct {
				Error struct {
					Stage   string `json:"stage"`
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.Equal(t, tt.stage, out.Error.Stage)
			assert.NotEmpty(t, out.Error.Message)
		})
	}

	t.Run("missing sql", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/v1/rewrite", map[string]any{
			"requester": map[string]any{"subject": "user:7"},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

// mockAdapter serves canned rows through the standard interface.
type mockAdapter struct {
	adapter.BaseSQLAdapter
}

func (m *mockAdapter) Connect(context.Context, adapter.Config) error { return nil }

func TestQueryEndpoint(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	mock.ExpectQuery("SELECT id FROM (SELECT * FROM teams WHERE (visible = true)) AS teams").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	exec := &mockAdapter{BaseSQLAdapter: adapter.BaseSQLAdapter{DB: db}}
	srv := testServer(t, exec)

	resp := postJSON(t, srv.URL+"/v1/query", map[string]any{
		"sql":       "SELECT id FROM teams",
		"requester": map[string]any{"subject": "user:7"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		SQL     string  `json:"sql"`
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, []string{"id"}, out.Columns)
	assert.Len(t, out.Rows, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryEndpointWithoutExecutor(t *testing.T) {
	srv := testServer(t, nil)

	resp := postJSON(t, srv.URL+"/v1/query", map[string]any{
		"sql":       "SELECT id FROM teams",
		"requester": map[string]any{"subject": "user:7"},
	})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t, nil)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
