// Package panel owns the five output regions a collation run populates.
package panel

import (
	"fmt"
	"strings"

	"github.com/kingrea/collate/internal/alignment"
)

// ID names one output region.
type ID int

const (
	Graph ID = iota
	Table
	Dot
	GraphML
	TEI
)

// IDs lists every panel in display order.
func IDs() []ID {
	return []ID{Graph, Table, Dot, GraphML, TEI}
}

// Title is the heading shown above the panel.
func (id ID) Title() string {
	switch id {
	case Graph:
		return "Variant graph (SVG)"
	case Table:
		return "Alignment table"
	case Dot:
		return "Graphviz DOT"
	case GraphML:
		return "GraphML"
	case TEI:
		return "TEI parallel segmentation"
	}
	return fmt.Sprintf("panel %d", int(id))
}

// FileName is the export file name for the panel.
func (id ID) FileName() string {
	switch id {
	case Graph:
		return "variant-graph.svg"
	case Table:
		return "alignment-table.html"
	case Dot:
		return "variant-graph.dot"
	case GraphML:
		return "variant-graph.graphml"
	case TEI:
		return "tei-ps.xml"
	}
	return fmt.Sprintf("panel-%d.txt", int(id))
}

var names = map[string]ID{
	"graph":   Graph,
	"svg":     Graph,
	"table":   Table,
	"dot":     Dot,
	"graphml": GraphML,
	"tei":     TEI,
}

// ParseID resolves a short panel name such as "table" or "tei".
func ParseID(name string) (ID, error) {
	id, ok := names[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("panel: unknown panel %q (want graph, table, dot, graphml or tei)", name)
	}
	return id, nil
}

func (id ID) valid() bool {
	return id >= Graph && id <= TEI
}

// Kind tells hosts how to present a piece of content.
type Kind int

const (
	KindText Kind = iota
	KindGraphic
	KindTable
)

// Content is one piece of output appended to a panel.
type Content struct {
	Kind Kind
	// MediaType is the representation the content came from.
	MediaType string
	// Text holds raw text or the graphic document. It is unescaped; hosts
	// escape it for their surface.
	Text  string
	Table alignment.RenderedTable
}

// Text builds text content.
func Text(mediaType, body string) Content {
	return Content{Kind: KindText, MediaType: mediaType, Text: body}
}

// Graphic builds graphic content such as an SVG document.
func Graphic(mediaType, document string) Content {
	return Content{Kind: KindGraphic, MediaType: mediaType, Text: document}
}

// RenderedTable builds table content.
func RenderedTable(mediaType string, table alignment.RenderedTable) Content {
	return Content{Kind: KindTable, MediaType: mediaType, Table: table}
}

// Manager holds the content of every panel. It is not safe for concurrent
// use; a single controlling goroutine owns it.
type Manager struct {
	panels map[ID][]Content
}

// NewManager returns a manager with all panels empty.
func NewManager() *Manager {
	return &Manager{panels: make(map[ID][]Content, len(IDs()))}
}

// ClearAll empties every panel. Calling it on empty panels is a no-op.
func (m *Manager) ClearAll() {
	for id := range m.panels {
		delete(m.panels, id)
	}
}

// Populate appends content to the panel.
func (m *Manager) Populate(id ID, content Content) error {
	if !id.valid() {
		return fmt.Errorf("panel: unknown panel %d", int(id))
	}
	m.panels[id] = append(m.panels[id], content)
	return nil
}

// Contents returns the content appended to the panel since the last clear.
func (m *Manager) Contents(id ID) []Content {
	out := make([]Content, len(m.panels[id]))
	copy(out, m.panels[id])
	return out
}

// Populated reports whether the panel holds any content.
func (m *Manager) Populated(id ID) bool {
	return len(m.panels[id]) > 0
}

// Empty reports whether every panel is empty.
func (m *Manager) Empty() bool {
	for _, contents := range m.panels {
		if len(contents) > 0 {
			return false
		}
	}
	return true
}
