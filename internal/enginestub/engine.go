// Package enginestub is an offline stand-in for the collation engine. It
// honors the engine's HTTP contract (one endpoint, five negotiated
// representations) but aligns witnesses naively, token index by token
// index. It exists for tests and demos without a running engine.
package enginestub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kingrea/collate/internal/alignment"
	"github.com/kingrea/collate/internal/collate"
	"github.com/kingrea/collate/internal/logging"
)

// MaxBodyBytes limits request payloads to 1 MB.
const MaxBodyBytes int64 = 1 << 20

type failure struct {
	status int
	body   string
}

// Engine serves collation requests.
type Engine struct {
	logger *logging.Logger

	mu       sync.Mutex
	delays   map[collate.Representation]time.Duration
	failures map[collate.Representation]failure
	requests map[collate.Representation]int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger overrides the default discarding logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithDelay holds answers for rep by d.
func WithDelay(rep collate.Representation, d time.Duration) Option {
	return func(e *Engine) {
		e.delays[rep] = d
	}
}

// WithFailure makes every answer for rep fail with status and body.
func WithFailure(rep collate.Representation, status int, body string) Option {
	return func(e *Engine) {
		e.failures[rep] = failure{status: status, body: body}
	}
}

// New returns a stub engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:   logging.NewNop(),
		delays:   map[collate.Representation]time.Duration{},
		failures: map[collate.Representation]failure{},
		requests: map[collate.Representation]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Handler mounts the engine at basePath (e.g. "/collate"). Requests are
// accepted on basePath + "/".
func (e *Engine) Handler(basePath string) http.Handler {
	base := "/" + strings.Trim(basePath, "/")
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if base == "/" {
		r.Post("/", e.handleCollate)
	} else {
		r.Route(base, func(r chi.Router) {
			r.Post("/", e.handleCollate)
		})
	}
	return r
}

// Requests reports how many requests were answered for rep.
func (e *Engine) Requests(rep collate.Representation) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests[rep]
}

func (e *Engine) handleCollate(w http.ResponseWriter, r *http.Request) {
	rep, ok := negotiate(r.Header.Get("Accept"))
	if !ok {
		http.Error(w, fmt.Sprintf("unsupported representation %q", r.Header.Get("Accept")), http.StatusNotAcceptable)
		return
	}
	e.mu.Lock()
	e.requests[rep]++
	delay := e.delays[rep]
	fail, failing := e.failures[rep]
	e.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if failing {
		http.Error(w, fail.body, fail.status)
		return
	}

	var req collate.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid collation request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Witnesses) == 0 {
		http.Error(w, "no witnesses given", http.StatusBadRequest)
		return
	}

	table := Align(req)
	body, err := render(rep, table)
	if err != nil {
		e.logger.Error("render failed", "representation", string(rep), "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	e.logger.Debug("collated", "representation", string(rep), "witnesses", len(req.Witnesses))
	w.Header().Set("Content-Type", contentType(rep))
	_, _ = w.Write(body)
}

func negotiate(accept string) (collate.Representation, bool) {
	accept = strings.TrimSpace(accept)
	if accept == "" || accept == "*/*" {
		return collate.JSON, true
	}
	for _, rep := range collate.Representations() {
		if accept == string(rep) {
			return rep, true
		}
	}
	return "", false
}

func contentType(rep collate.Representation) string {
	switch rep {
	case collate.JSON:
		return "application/json; charset=utf-8"
	case collate.DOT:
		return "text/plain; charset=utf-8"
	}
	return string(rep)
}

// Align places the i-th whitespace token of every witness at position i.
// Witnesses shorter than the longest one get gaps at the tail.
func Align(req collate.Request) alignment.Table {
	tokens := make([][]string, len(req.Witnesses))
	table := alignment.Table{Sigils: make([]string, len(req.Witnesses))}
	longest := 0
	for i, w := range req.Witnesses {
		table.Sigils[i] = w.ID
		tokens[i] = strings.Fields(w.Content)
		longest = max(longest, len(tokens[i]))
	}
	table.Positions = make([]alignment.Row, longest)
	for p := range table.Positions {
		row := make(alignment.Row, len(tokens))
		for w := range tokens {
			if p < len(tokens[w]) {
				row[w] = alignment.Cell{tokens[w][p]}
			}
		}
		table.Positions[p] = row
	}
	return table
}

func render(rep collate.Representation, table alignment.Table) ([]byte, error) {
	switch rep {
	case collate.JSON:
		return json.Marshal(table)
	case collate.SVG:
		return []byte(renderSVG(table)), nil
	case collate.DOT:
		return []byte(renderDOT(buildGraph(table))), nil
	case collate.GraphML:
		return []byte(renderGraphML(buildGraph(table))), nil
	case collate.TEI:
		return []byte(renderTEI(table)), nil
	}
	return nil, fmt.Errorf("unsupported representation %q", rep)
}
