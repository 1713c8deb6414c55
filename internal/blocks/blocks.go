// Package blocks defines the document block model consumed by the extraction
// engine. Blocks are produced by an upstream extractor and are read-only here:
// every pipeline stage treats the block slice as immutable input.
package blocks

import (
	"encoding/json"
	"slices"
	"strings"
)

// Type identifies the structural role of a block in the source document.
type Type string

// Valid block types.
const (
	TypeParagraph   Type = "paragraph"
	TypeTableCell   Type = "table_cell"
	TypeImageAnchor Type = "image_anchor"
	TypeTextbox     Type = "textbox"
)

var types = []Type{
	TypeParagraph,
	TypeTableCell,
	TypeImageAnchor,
	TypeTextbox,
}

// UnmarshalJSON validates that the decoded string is a known block type.
func (t *Type) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Type(raw)
	if !slices.Contains(types, v) {
		return ErrInvalidType
	}
	*t = v
	return nil
}

// Block is the smallest addressable unit of parsed document content.
type Block struct {
	ID         string `json:"id"`
	OrderIndex int    `json:"order_index"`
	Type       Type   `json:"type"`
	Text       string `json:"text"`
}

// HasText reports whether the block carries non-whitespace text.
func (b Block) HasText() bool {
	return strings.TrimSpace(b.Text) != ""
}

// Index provides positional lookup over one immutable block slice.
// Positions are slice offsets, which follow document order; block ids map
// back to positions for id-based boundary arithmetic.
type Index struct {
	all []Block
	pos map[string]int
}

// NewIndex builds an Index over blks. The slice is referenced, not copied;
// callers must not mutate it afterward.
func NewIndex(blks []Block) *Index {
	pos := make(map[string]int, len(blks))
	for i, b := range blks {
		pos[b.ID] = i
	}
	return &Index{all: blks, pos: pos}
}

// Len returns the number of indexed blocks.
func (x *Index) Len() int {
	return len(x.all)
}

// At returns the block at position i.
func (x *Index) At(i int) Block {
	return x.all[i]
}

// Position returns the slice position of the block with the given id.
func (x *Index) Position(id string) (int, bool) {
	i, ok := x.pos[id]
	return i, ok
}

// Slice returns the blocks in positions [start, end] inclusive.
func (x *Index) Slice(start, end int) []Block {
	return x.all[start : end+1]
}
