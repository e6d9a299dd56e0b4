// Package collate builds collation requests from witness contents and
// dispatches them to the collation engine, one request per output
// representation.
package collate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/kingrea/collate/internal/panel"
)

// ErrTooFewWitnesses is returned when fewer than two witnesses have content.
var ErrTooFewWitnesses = errors.New("collate: at least two witnesses are required")

// Representation is a media type the engine can answer with.
type Representation string

const (
	SVG     Representation = "image/svg+xml"
	JSON    Representation = "application/json"
	DOT     Representation = "text/plain"
	GraphML Representation = "application/graphml+xml"
	TEI     Representation = "application/tei+xml"
)

// Representations lists the representations requested on every submission.
func Representations() []Representation {
	return []Representation{SVG, JSON, DOT, GraphML, TEI}
}

// Panel is the output region this representation is written to.
func (r Representation) Panel() panel.ID {
	switch r {
	case SVG:
		return panel.Graph
	case JSON:
		return panel.Table
	case DOT:
		return panel.Dot
	case GraphML:
		return panel.GraphML
	case TEI:
		return panel.TEI
	}
	return panel.ID(-1)
}

// Witness is one entry of the request body.
type Witness struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Request is the body POSTed to the engine.
type Request struct {
	Witnesses []Witness `json:"witnesses"`
}

// Sigil returns the positional label for the witness at index: W1, W2, ...
func Sigil(index int) string {
	return "W" + strconv.Itoa(index+1)
}

// BuildRequest assigns sigils to contents in order. contents must already be
// trimmed and non-empty, as returned by witness.Store.Snapshot.
func BuildRequest(contents []string) (Request, error) {
	if len(contents) <= 1 {
		return Request{}, ErrTooFewWitnesses
	}
	req := Request{Witnesses: make([]Witness, len(contents))}
	for i, content := range contents {
		req.Witnesses[i] = Witness{ID: Sigil(i), Content: content}
	}
	return req, nil
}

// Encode serializes the request body.
func (r Request) Encode() ([]byte, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("collate: encode request: %w", err)
	}
	return body, nil
}
