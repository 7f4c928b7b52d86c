// Package token provides source positions and spans for error reporting.
package token

import "fmt"

// Position represents a location in query source text.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

// String renders the position as "line L, column C".
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Span represents a range in query source text.
type Span struct {
	Start Position
	End   Position
}

// IsValid returns true if the start position is valid.
func (s Span) IsValid() bool {
	return s.Start.IsValid()
}

// Contains returns true if the span contains the given offset.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}
