package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseRequester(t *testing.T) {
	req, err := parseRequester("user:7", []string{
		"team_id=42",
		"role=admin",
		"active=true",
		"score=1.5",
	})
	if err != nil {
		t.Fatalf("parseRequester() error = %v", err)
	}

	if req.Subject != "user:7" {
		t.Errorf("Subject = %q, want %q", req.Subject, "user:7")
	}
	if got := req.Attributes["team_id"]; got != int64(42) {
		t.Errorf("team_id = %v (%T), want int64(42)", got, got)
	}
	if got := req.Attributes["role"]; got != "admin" {
		t.Errorf("role = %v, want admin", got)
	}
	if got := req.Attributes["active"]; got != true {
		t.Errorf("active = %v, want true", got)
	}
	if got := req.Attributes["score"]; got != 1.5 {
		t.Errorf("score = %v, want 1.5", got)
	}
}

func TestParseRequesterMalformed(t *testing.T) {
	for _, attr := range []string{"team_id", "=42"} {
		if _, err := parseRequester("u", []string{attr}); err == nil {
			t.Errorf("parseRequester(%q) should fail", attr)
		}
	}
}

func TestParseRequesterValueWithEquals(t *testing.T) {
	req, err := parseRequester("u", []string{"token=a=b"})
	if err != nil {
		t.Fatalf("parseRequester() error = %v", err)
	}
	if got := req.Attributes["token"]; got != "a=b" {
		t.Errorf("token = %v, want a=b", got)
	}
}

func TestRenderResultsTable(t *testing.T) {
	buf := new(bytes.Buffer)
	err := renderResults(buf, []string{"id", "name"}, [][]any{
		{int64(1), "alpha"},
		{int64(2), nil},
	}, "table")
	if err != nil {
		t.Fatalf("renderResults() error = %v", err)
	}

	output := buf.String()
	for _, expected := range []string{"ID", "NAME", "alpha", "NULL", "(2 rows)"} {
		if !strings.Contains(output, expected) {
			t.Errorf("table output should contain %q, got: %s", expected, output)
		}
	}
}

func TestRenderResultsTableEmpty(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := renderResults(buf, []string{"id"}, nil, "table"); err != nil {
		t.Fatalf("renderResults() error = %v", err)
	}
	if !strings.Contains(buf.String(), "(0 rows)") {
		t.Errorf("empty table output = %q", buf.String())
	}
}

func TestRenderResultsJSON(t *testing.T) {
	buf := new(bytes.Buffer)
	err := renderResults(buf, []string{"id", "name"}, [][]any{
		{int64(1), "alpha"},
	}, "json")
	if err != nil {
		t.Fatalf("renderResults() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, `"id": 1`) || !strings.Contains(output, `"name": "alpha"`) {
		t.Errorf("json output = %q", output)
	}
}

func TestRenderResultsCSV(t *testing.T) {
	buf := new(bytes.Buffer)
	err := renderResults(buf, []string{"id", "name"}, [][]any{
		{int64(1), "alpha"},
	}, "csv")
	if err != nil {
		t.Fatalf("renderResults() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[0] != "id,name" || lines[1] != "1,alpha" {
		t.Errorf("csv output = %q", buf.String())
	}
}

func TestRenderResultsUnknownFormat(t *testing.T) {
	if err := renderResults(new(bytes.Buffer), nil, nil, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
