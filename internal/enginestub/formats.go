package enginestub

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/kingrea/collate/internal/alignment"
)

type graphNode struct {
	id    int
	label string
}

type graphEdge struct {
	from, to int
	sigils   []string
}

type variantGraph struct {
	nodes []graphNode
	edges []graphEdge
}

// buildGraph turns the table into a variant graph: one node per distinct
// reading at each position, plus start and end nodes, with edges labelled by
// the witnesses that pass along them.
func buildGraph(table alignment.Table) variantGraph {
	g := variantGraph{nodes: []graphNode{{id: 0, label: "#start"}}}
	edgeIndex := map[[2]int]int{}
	addEdge := func(from, to int, sigil string) {
		key := [2]int{from, to}
		if i, ok := edgeIndex[key]; ok {
			g.edges[i].sigils = append(g.edges[i].sigils, sigil)
			return
		}
		edgeIndex[key] = len(g.edges)
		g.edges = append(g.edges, graphEdge{from: from, to: to, sigils: []string{sigil}})
	}

	last := make([]int, len(table.Sigils))
	for _, row := range table.Positions {
		readings := map[string]int{}
		for w, cell := range row {
			if w >= len(last) {
				break
			}
			text, ok := cell.Joined()
			if !ok {
				continue
			}
			id, seen := readings[text]
			if !seen {
				id = len(g.nodes)
				readings[text] = id
				g.nodes = append(g.nodes, graphNode{id: id, label: text})
			}
			addEdge(last[w], id, table.Sigils[w])
			last[w] = id
		}
	}
	end := len(g.nodes)
	g.nodes = append(g.nodes, graphNode{id: end, label: "#end"})
	for w, from := range last {
		addEdge(from, end, table.Sigils[w])
	}
	return g
}

func renderDOT(g variantGraph) string {
	var b strings.Builder
	b.WriteString("digraph G {\n")
	for _, n := range g.nodes {
		fmt.Fprintf(&b, "  v%d [label = %s];\n", n.id, dotQuote(n.label))
	}
	for _, e := range g.edges {
		fmt.Fprintf(&b, "  v%d -> v%d [label = %s];\n", e.from, e.to, dotQuote(strings.Join(e.sigils, ", ")))
	}
	b.WriteString("}\n")
	return b.String()
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// dotQuote writes a DOT string ID. DOT only defines escapes for the quote
// and the backslash; everything else is passed through.
func dotQuote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

func renderGraphML(g variantGraph) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<graphml xmlns="http://graphml.graphdrawing.org/xmlns">` + "\n")
	b.WriteString(`  <key id="d0" for="node" attr.name="reading" attr.type="string"/>` + "\n")
	b.WriteString(`  <key id="d1" for="edge" attr.name="witnesses" attr.type="string"/>` + "\n")
	b.WriteString(`  <graph id="g0" edgedefault="directed">` + "\n")
	for _, n := range g.nodes {
		fmt.Fprintf(&b, "    <node id=\"n%d\"><data key=\"d0\">%s</data></node>\n", n.id, escapeXML(n.label))
	}
	for i, e := range g.edges {
		fmt.Fprintf(&b, "    <edge id=\"e%d\" source=\"n%d\" target=\"n%d\"><data key=\"d1\">%s</data></edge>\n",
			i, e.from, e.to, escapeXML(strings.Join(e.sigils, ", ")))
	}
	b.WriteString("  </graph>\n</graphml>\n")
	return b.String()
}

func renderSVG(table alignment.Table) string {
	const (
		rowHeight = 24
		colWidth  = 96
		margin    = 8
	)
	width := margin*2 + colWidth*(len(table.Positions)+1)
	height := margin*2 + rowHeight*len(table.Sigils)

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`+"\n", width, height)
	for w, sigil := range table.Sigils {
		y := margin + rowHeight*(w+1) - 6
		fmt.Fprintf(&b, "  <text x=\"%d\" y=\"%d\" font-weight=\"bold\">%s</text>\n", margin, y, escapeXML(sigil))
		for p, row := range table.Positions {
			if w >= len(row) {
				continue
			}
			text, ok := row[w].Joined()
			if !ok {
				continue
			}
			x := margin + colWidth*(p+1)
			fmt.Fprintf(&b, "  <text x=\"%d\" y=\"%d\">%s</text>\n", x, y, escapeXML(text))
		}
	}
	b.WriteString("</svg>\n")
	return b.String()
}

func renderTEI(table alignment.Table) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<TEI xmlns="http://www.tei-c.org/ns/1.0"><text><body><p>`)
	for p, row := range table.Positions {
		if p > 0 {
			b.WriteString(" ")
		}
		if alignment.Classify(row) == alignment.Invariant && !hasGap(row) {
			text, _ := row[0].Joined()
			b.WriteString(escapeXML(text))
			continue
		}
		b.WriteString("<app>")
		readings := map[string][]string{}
		var order []string
		for w, cell := range row {
			if w >= len(table.Sigils) {
				break
			}
			text, _ := cell.Joined()
			if _, ok := readings[text]; !ok {
				order = append(order, text)
			}
			readings[text] = append(readings[text], "#"+table.Sigils[w])
		}
		for _, text := range order {
			fmt.Fprintf(&b, "<rdg wit=\"%s\">%s</rdg>", escapeXML(strings.Join(readings[text], " ")), escapeXML(text))
		}
		b.WriteString("</app>")
	}
	b.WriteString("</p></body></text></TEI>\n")
	return b.String()
}

func hasGap(row alignment.Row) bool {
	for _, cell := range row {
		if cell.Gap() {
			return true
		}
	}
	return len(row) == 0
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
