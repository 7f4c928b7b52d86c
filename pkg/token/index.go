package token

import "sort"

// Index maps byte offsets in source text to line/column positions.
// The external parser reports locations as byte offsets only; the index
// recovers human-readable positions for error reporting.
type Index struct {
	src        string
	lineStarts []int
}

// NewIndex builds an offset index for the given source text.
func NewIndex(src string) *Index {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Index{src: src, lineStarts: starts}
}

// Source returns the indexed source text.
func (ix *Index) Source() string {
	return ix.src
}

// Position converts a byte offset into a Position.
// Offsets outside the source yield an invalid position.
func (ix *Index) Position(offset int) Position {
	if offset < 0 || offset > len(ix.src) {
		return Position{}
	}
	line := sort.Search(len(ix.lineStarts), func(i int) bool {
		return ix.lineStarts[i] > offset
	})
	start := ix.lineStarts[line-1]
	return Position{
		Line:   line,
		Column: offset - start + 1,
		Offset: offset,
	}
}

// SpanAt returns a single-offset span at the given byte offset.
func (ix *Index) SpanAt(offset int) Span {
	pos := ix.Position(offset)
	return Span{Start: pos, End: pos}
}
