package alignment

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	columnGap  = "  "
	sigilTitle = "sigil"

	// A gap where the other witnesses disagree gets its own glyph so the
	// variant marker survives without color.
	gapGlyph        = "–"
	variantGapGlyph = "∅"
)

var (
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	sigilStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	invariantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	variantStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	gapStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	variantGapStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Underline(true)
)

// Sanitize makes witness text safe to print on a terminal: escape sequences
// are removed and remaining control characters become spaces.
func Sanitize(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

// Terminal lays the table out for a terminal of the given width. Positions
// that do not fit are wrapped into further blocks, each repeating the sigil
// column. A width of zero or less disables wrapping.
func Terminal(table RenderedTable, width int) string {
	if len(table.Rows) == 0 {
		return ""
	}
	sigils := make([]string, len(table.Rows))
	sigilWidth := lipgloss.Width(sigilTitle)
	for i, row := range table.Rows {
		sigils[i] = Sanitize(row.Sigil)
		sigilWidth = max(sigilWidth, lipgloss.Width(sigils[i]))
	}

	positions := table.Positions()
	texts := make([][]string, len(table.Rows))
	widths := make([]int, positions)
	for p := 0; p < positions; p++ {
		widths[p] = max(1, len(strconv.Itoa(p+1)))
	}
	for w, row := range table.Rows {
		texts[w] = make([]string, positions)
		for p := 0; p < positions && p < len(row.Cells); p++ {
			cell := row.Cells[p]
			text := Sanitize(cell.Text)
			if cell.Gap {
				text = gapText(cell.Status)
			}
			texts[w][p] = text
			widths[p] = max(widths[p], lipgloss.Width(text))
		}
	}

	var blocks []string
	for start := 0; start < positions || (start == 0 && positions == 0); {
		end := start
		used := sigilWidth
		for end < positions {
			next := used + len(columnGap) + widths[end]
			if width > 0 && end > start && next > width {
				break
			}
			used = next
			end++
		}
		blocks = append(blocks, renderBlock(table, sigils, texts, widths, sigilWidth, start, end))
		if end == start {
			break
		}
		start = end
	}
	return strings.Join(blocks, "\n\n")
}

func renderBlock(table RenderedTable, sigils []string, texts [][]string, widths []int, sigilWidth, start, end int) string {
	lines := make([]string, 0, len(table.Rows)+1)

	header := []string{headerStyle.Width(sigilWidth).Render(sigilTitle)}
	for p := start; p < end; p++ {
		header = append(header, headerStyle.Width(widths[p]).Render(strconv.Itoa(p+1)))
	}
	lines = append(lines, strings.Join(header, columnGap))

	for w, row := range table.Rows {
		parts := []string{sigilStyle.Width(sigilWidth).Render(sigils[w])}
		for p := start; p < end; p++ {
			style := invariantStyle
			if p < len(row.Cells) {
				cell := row.Cells[p]
				style = cellStyle(cell)
			}
			parts = append(parts, style.Width(widths[p]).Render(texts[w][p]))
		}
		lines = append(lines, strings.Join(parts, columnGap))
	}
	return strings.Join(lines, "\n")
}

func gapText(status Status) string {
	if status == Variant {
		return variantGapGlyph
	}
	return gapGlyph
}

// cellStyle keeps the gap and variant markers independent of each other.
func cellStyle(cell RenderedCell) lipgloss.Style {
	switch {
	case cell.Gap && cell.Status == Variant:
		return variantGapStyle
	case cell.Gap:
		return gapStyle
	case cell.Status == Variant:
		return variantStyle
	}
	return invariantStyle
}

// Legend explains the cell styles used by Terminal.
func Legend() string {
	return strings.Join([]string{
		variantStyle.Render("variant"),
		invariantStyle.Render("invariant"),
		gapStyle.Render(gapGlyph + " gap"),
		variantGapStyle.Render(variantGapGlyph + " gap at a variant"),
	}, "  ")
}
