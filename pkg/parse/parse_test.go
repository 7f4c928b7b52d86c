package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Select(t *testing.T) {
	res, err := Parse("SELECT id FROM teams")
	require.NoError(t, err)
	require.Len(t, res.Stmts, 1)
	assert.NotNil(t, res.Stmts[0].GetStmt().GetSelectStmt())
}

func TestParse_MultiStatement(t *testing.T) {
	res, err := Parse("SELECT 1; SELECT 2")
	require.NoError(t, err)
	assert.Len(t, res.Stmts, 2)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"dangling keyword", "SELECT FROM WHERE"},
		{"unbalanced paren", "SELECT (1"},
		{"garbage", "NOT A QUERY AT ALL %%%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.input)
			assert.Nil(t, res)
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.NotEmpty(t, parseErr.Message)
		})
	}
}
