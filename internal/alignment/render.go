package alignment

// RenderedCell is one witness's entry at one position.
type RenderedCell struct {
	Text string
	// Status is the classification of the whole position, shared by every
	// witness's cell in that column.
	Status Status
	Gap    bool
}

// Classes returns the markup classes for the cell, e.g. "invariant gap".
func (c RenderedCell) Classes() string {
	if c.Gap {
		return c.Status.String() + " gap"
	}
	return c.Status.String()
}

// RenderedRow is the sequence of cells for one witness.
type RenderedRow struct {
	Sigil string
	Cells []RenderedCell
}

// RenderedTable has one row per sigil and one cell per alignment position
// in every row.
type RenderedTable struct {
	Status []Status
	Rows   []RenderedRow
}

// Positions returns the number of alignment positions.
func (r RenderedTable) Positions() int {
	return len(r.Status)
}

// Render maps a decoded table to its rendered form. It performs no I/O and
// no escaping; the writers in this package escape on output.
//
// Rows are expected to carry exactly one cell per sigil. A row that is
// shorter renders its missing cells as gaps.
func Render(t Table) RenderedTable {
	status := make([]Status, len(t.Positions))
	for p, row := range t.Positions {
		status[p] = Classify(row)
	}

	rows := make([]RenderedRow, len(t.Sigils))
	for w, sigil := range t.Sigils {
		cells := make([]RenderedCell, len(t.Positions))
		for p, row := range t.Positions {
			var cell Cell
			if w < len(row) {
				cell = row[w]
			}
			text, ok := cell.Joined()
			cells[p] = RenderedCell{Text: text, Status: status[p], Gap: !ok}
		}
		rows[w] = RenderedRow{Sigil: sigil, Cells: cells}
	}
	return RenderedTable{Status: status, Rows: rows}
}
