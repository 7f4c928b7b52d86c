// Package parse adapts the external SQL parser for the pipeline.
//
// Grammar ownership stays with github.com/pganalyze/pg_query_go; this
// package only invokes it, attaches position information to failures, and
// hands the generic parse tree to the restriction stage untouched.
package parse

import (
	"errors"
	"fmt"

	pgquery "github.com/pganalyze/pg_query_go/v6"
	pgparser "github.com/pganalyze/pg_query_go/v6/parser"

	"github.com/Hacker0x01/h1ql/pkg/token"
)

// ParseError represents a failure reported by the external parser.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("parse error at %s: %s", e.Pos, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Result holds the generic parse tree for one input text, together with
// the source and an offset index so later stages can report positions.
type Result struct {
	Source string
	Index  *token.Index
	Stmts  []*pgquery.RawStmt
}

// Parse runs the external parser over raw query text.
// Failures are returned as *ParseError; the parse tree is never partial.
func Parse(src string) (*Result, error) {
	index := token.NewIndex(src)

	parsed, err := pgquery.Parse(src)
	if err != nil {
		return nil, wrapError(err, index)
	}

	return &Result{
		Source: src,
		Index:  index,
		Stmts:  parsed.GetStmts(),
	}, nil
}

func wrapError(err error, index *token.Index) error {
	var pgErr *pgparser.Error
	if errors.As(err, &pgErr) {
		// Cursorpos is a 1-based byte position into the input.
		return &ParseError{
			Pos:     index.Position(pgErr.Cursorpos - 1),
			Message: pgErr.Message,
		}
	}
	return &ParseError{Message: err.Error()}
}
