package collate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kingrea/collate/internal/alignment"
	"github.com/kingrea/collate/internal/logging"
	"github.com/kingrea/collate/internal/panel"
)

// Observer is notified about dispatch activity. RequestFinished is called
// from task goroutines, so implementations must be safe for concurrent use.
type Observer interface {
	SubmissionStarted(generation uint64)
	RequestFinished(rep Representation, elapsed time.Duration, err error)
	StaleResult(rep Representation)
}

type nopObserver struct{}

func (nopObserver) SubmissionStarted(uint64) {}

func (nopObserver) RequestFinished(Representation, time.Duration, error) {}

func (nopObserver) StaleResult(Representation) {}

// Result is the outcome of one representation task.
type Result struct {
	Generation     uint64
	Representation Representation
	Response       Response
	Err            error
	Elapsed        time.Duration
}

// Task fetches one representation for one submission.
type Task struct {
	Generation     uint64
	Representation Representation

	fetcher  Fetcher
	observer Observer
	body     []byte
}

// Run performs the request. It touches no shared state besides the
// observer and may be called from any goroutine.
func (t Task) Run(ctx context.Context) Result {
	start := time.Now()
	resp, err := t.fetcher.Fetch(ctx, t.Representation, t.body)
	elapsed := time.Since(start)
	t.observer.RequestFinished(t.Representation, elapsed, err)
	return Result{
		Generation:     t.Generation,
		Representation: t.Representation,
		Response:       resp,
		Err:            err,
		Elapsed:        elapsed,
	}
}

// Submission is one collation run: a shared request body and one task per
// representation.
type Submission struct {
	Generation uint64
	Request    Request
	Body       []byte
	Tasks      []Task
}

// Dispatcher turns witness snapshots into collation runs and routes their
// results into panels. Submit, Deliver and Reset must be called from one
// controlling goroutine; only Task.Run may happen elsewhere.
type Dispatcher struct {
	fetcher    Fetcher
	panels     *panel.Manager
	observer   Observer
	logger     *logging.Logger
	generation uint64
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithObserver installs an activity observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher wires a dispatcher to its engine and output panels.
func NewDispatcher(fetcher Fetcher, panels *panel.Manager, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		fetcher:  fetcher,
		panels:   panels,
		observer: nopObserver{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Generation returns the current submission generation.
func (d *Dispatcher) Generation() uint64 {
	return d.generation
}

// Submit starts a collation run for contents. With fewer than two contents
// it does nothing and returns a nil submission. Otherwise it starts a new
// generation, clears every panel and returns the tasks to run; the caller
// decides how to run them and hands each Result back to Deliver.
func (d *Dispatcher) Submit(contents []string) (*Submission, error) {
	if len(contents) <= 1 {
		return nil, nil
	}
	req, err := BuildRequest(contents)
	if err != nil {
		return nil, err
	}
	body, err := req.Encode()
	if err != nil {
		return nil, err
	}

	d.generation++
	d.panels.ClearAll()
	d.observer.SubmissionStarted(d.generation)
	d.logger.Info("collation submitted", "generation", d.generation, "witnesses", len(req.Witnesses))

	reps := Representations()
	sub := &Submission{
		Generation: d.generation,
		Request:    req,
		Body:       body,
		Tasks:      make([]Task, len(reps)),
	}
	for i, rep := range reps {
		sub.Tasks[i] = Task{
			Generation:     d.generation,
			Representation: rep,
			fetcher:        d.fetcher,
			observer:       d.observer,
			body:           body,
		}
	}
	return sub, nil
}

// Reset starts a new generation without issuing requests and clears every
// panel, so results still in flight are discarded on arrival.
func (d *Dispatcher) Reset() {
	d.generation++
	d.panels.ClearAll()
}

// Deliver routes a finished task into its panel. Results from a superseded
// generation are dropped. A failed or undecodable result is returned as an
// error for the host to show; it leaves every panel untouched.
func (d *Dispatcher) Deliver(res Result) error {
	if res.Generation != d.generation {
		d.observer.StaleResult(res.Representation)
		d.logger.Debug("stale result discarded",
			"representation", string(res.Representation),
			"generation", res.Generation,
			"current", d.generation)
		return nil
	}
	if res.Err != nil {
		d.logger.Warn("representation failed", "representation", string(res.Representation), "error", res.Err)
		return res.Err
	}
	content, err := decode(res.Representation, res.Response.Body)
	if err != nil {
		d.logger.Warn("representation undecodable", "representation", string(res.Representation), "error", err)
		return fmt.Errorf("collate: %s: %w", res.Representation, err)
	}
	d.logger.Debug("representation delivered",
		"representation", string(res.Representation),
		"elapsed", res.Elapsed,
		"bytes", len(res.Response.Body))
	return d.panels.Populate(res.Representation.Panel(), content)
}

func decode(rep Representation, body []byte) (panel.Content, error) {
	switch rep {
	case JSON:
		table, err := alignment.Decode(body)
		if err != nil {
			return panel.Content{}, err
		}
		return panel.RenderedTable(string(rep), alignment.Render(table)), nil
	case SVG:
		return panel.Graphic(string(rep), string(body)), nil
	case DOT, GraphML, TEI:
		return panel.Text(string(rep), string(body)), nil
	}
	return panel.Content{}, fmt.Errorf("unsupported representation %q", rep)
}

// Collate runs a full submission and waits for it. The tasks run
// concurrently under one errgroup scope while results are delivered on the
// calling goroutine in completion order. Each failure is passed to
// onFailure as soon as it is delivered and does not stop the other tasks.
// It returns the number of failed representations, or ErrTooFewWitnesses
// when nothing was submitted.
func (d *Dispatcher) Collate(ctx context.Context, contents []string, onFailure func(error)) (int, error) {
	sub, err := d.Submit(contents)
	if err != nil {
		return 0, err
	}
	if sub == nil {
		return 0, ErrTooFewWitnesses
	}

	results := make(chan Result, len(sub.Tasks))
	var g errgroup.Group
	for _, task := range sub.Tasks {
		g.Go(func() error {
			results <- task.Run(ctx)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	failures := 0
	for res := range results {
		if err := d.Deliver(res); err != nil {
			failures++
			if onFailure != nil {
				onFailure(err)
			}
		}
	}
	return failures, nil
}
