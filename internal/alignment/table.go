// Package alignment turns the tabular alignment returned by the collation
// engine into a rendered table with per-position variant/invariant
// classification and gap markers.
package alignment

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Cell is the token list of one witness at one alignment position. A nil
// cell is a gap: JSON null decodes to nil, while an empty array decodes to a
// present cell with no tokens.
type Cell []string

// Gap reports whether the witness has no content at this position.
func (c Cell) Gap() bool {
	return c == nil
}

// Joined returns the tokens separated by single spaces. The second result is
// false for a gap.
func (c Cell) Joined() (string, bool) {
	if c.Gap() {
		return "", false
	}
	return strings.Join(c, " "), true
}

// Row holds one cell per witness, in sigil order.
type Row []Cell

// Table is the engine's application/json response.
type Table struct {
	Sigils    []string `json:"sigils"`
	Positions []Row    `json:"table"`
}

// Decode parses an alignment table response body.
func Decode(data []byte) (Table, error) {
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("alignment: decode table: %w", err)
	}
	return t, nil
}

// Status classifies an alignment position.
type Status int

const (
	Invariant Status = iota
	Variant
)

func (s Status) String() string {
	if s == Variant {
		return "variant"
	}
	return "invariant"
}

// Classify returns Invariant when every witness holding content at the
// position has the same joined text, Variant otherwise. Positions where at
// most one witness has content, including all-gap positions, are invariant.
func Classify(row Row) Status {
	var (
		first string
		seen  bool
	)
	for _, cell := range row {
		text, ok := cell.Joined()
		if !ok {
			continue
		}
		if !seen {
			first, seen = text, true
			continue
		}
		if text != first {
			return Variant
		}
	}
	return Invariant
}
