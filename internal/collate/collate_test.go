package collate_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/collate/internal/alignment"
	"github.com/kingrea/collate/internal/collate"
	"github.com/kingrea/collate/internal/enginestub"
	"github.com/kingrea/collate/internal/panel"
)

type recordingFetcher struct {
	mu     sync.Mutex
	calls  map[collate.Representation][]byte
	answer func(rep collate.Representation, body []byte) (collate.Response, error)
}

func newRecordingFetcher() *recordingFetcher {
	f := &recordingFetcher{calls: map[collate.Representation][]byte{}}
	f.answer = func(rep collate.Representation, body []byte) (collate.Response, error) {
		table := enginestub.Align(mustDecodeRequest(body))
		if rep == collate.JSON {
			data, _ := json.Marshal(table)
			return collate.Response{Representation: rep, Body: data}, nil
		}
		return collate.Response{Representation: rep, Body: []byte(string(rep) + " body")}, nil
	}
	return f
}

func (f *recordingFetcher) Fetch(_ context.Context, rep collate.Representation, body []byte) (collate.Response, error) {
	f.mu.Lock()
	f.calls[rep] = body
	f.mu.Unlock()
	return f.answer(rep, body)
}

func (f *recordingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func mustDecodeRequest(body []byte) collate.Request {
	var req collate.Request
	if err := json.Unmarshal(body, &req); err != nil {
		panic(err)
	}
	return req
}

func runAll(t *testing.T, d *collate.Dispatcher, sub *collate.Submission) []error {
	t.Helper()
	var errs []error
	for _, task := range sub.Tasks {
		if err := d.Deliver(task.Run(context.Background())); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func TestBuildRequestAssignsSigils(t *testing.T) {
	req, err := collate.BuildRequest([]string{"the black cat", "the white cat", "a cat"})
	require.NoError(t, err)
	body, err := req.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"witnesses":[
		{"id":"W1","content":"the black cat"},
		{"id":"W2","content":"the white cat"},
		{"id":"W3","content":"a cat"}]}`, string(body))
}

func TestBuildRequestNeedsTwoWitnesses(t *testing.T) {
	_, err := collate.BuildRequest([]string{"only"})
	assert.ErrorIs(t, err, collate.ErrTooFewWitnesses)
}

func TestRepresentationsMapToDistinctPanels(t *testing.T) {
	seen := map[panel.ID]collate.Representation{}
	for _, rep := range collate.Representations() {
		id := rep.Panel()
		_, dup := seen[id]
		assert.False(t, dup, "panel %s used twice", id.Title())
		seen[id] = rep
	}
	assert.Len(t, seen, len(panel.IDs()))
}

func TestSubmitWithFewerThanTwoIsNoop(t *testing.T) {
	for _, contents := range [][]string{nil, {}, {"a b c"}} {
		panels := panel.NewManager()
		require.NoError(t, panels.Populate(panel.Dot, panel.Text("text/plain", "previous")))
		fetcher := newRecordingFetcher()
		d := collate.NewDispatcher(fetcher, panels)

		sub, err := d.Submit(contents)
		require.NoError(t, err)
		assert.Nil(t, sub)
		assert.Zero(t, d.Generation())
		assert.Zero(t, fetcher.count())
		assert.Len(t, panels.Contents(panel.Dot), 1, "panels must be left unchanged")
	}
}

func TestSubmitSharesOneBodyAcrossRepresentations(t *testing.T) {
	fetcher := newRecordingFetcher()
	panels := panel.NewManager()
	d := collate.NewDispatcher(fetcher, panels)

	sub, err := d.Submit([]string{"the black cat", "the white cat"})
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.Len(t, sub.Tasks, 5)

	assert.Empty(t, runAll(t, d, sub))
	require.Equal(t, 5, fetcher.count())
	for _, rep := range collate.Representations() {
		assert.Equal(t, sub.Body, fetcher.calls[rep], rep)
	}
}

func TestDeliverRoutesEachRepresentationToItsPanel(t *testing.T) {
	panels := panel.NewManager()
	d := collate.NewDispatcher(newRecordingFetcher(), panels)

	sub, err := d.Submit([]string{"the black cat", "the white cat"})
	require.NoError(t, err)
	require.Empty(t, runAll(t, d, sub))

	for _, id := range panel.IDs() {
		assert.Len(t, panels.Contents(id), 1, id.Title())
	}
	graph := panels.Contents(panel.Graph)[0]
	assert.Equal(t, panel.KindGraphic, graph.Kind)
	assert.Equal(t, "image/svg+xml body", graph.Text)

	table := panels.Contents(panel.Table)[0]
	require.Equal(t, panel.KindTable, table.Kind)
	assert.Equal(t, []alignment.Status{alignment.Invariant, alignment.Variant, alignment.Invariant}, table.Table.Status)
	require.Len(t, table.Table.Rows, 2)
	assert.Equal(t, "W1", table.Table.Rows[0].Sigil)
	assert.Equal(t, "W2", table.Table.Rows[1].Sigil)

	assert.Equal(t, "text/plain body", panels.Contents(panel.Dot)[0].Text)
	assert.Equal(t, "application/graphml+xml body", panels.Contents(panel.GraphML)[0].Text)
	assert.Equal(t, "application/tei+xml body", panels.Contents(panel.TEI)[0].Text)
}

func TestSubmitClearsPreviousResults(t *testing.T) {
	panels := panel.NewManager()
	d := collate.NewDispatcher(newRecordingFetcher(), panels)

	sub, err := d.Submit([]string{"a", "b"})
	require.NoError(t, err)
	require.Empty(t, runAll(t, d, sub))
	assert.False(t, panels.Empty())

	_, err = d.Submit([]string{"c", "d"})
	require.NoError(t, err)
	assert.True(t, panels.Empty())
}

func TestFailureIsIsolatedToOneRepresentation(t *testing.T) {
	fetcher := newRecordingFetcher()
	base := fetcher.answer
	boom := &collate.ResponseError{Representation: collate.DOT, StatusCode: 500, Status: "500 Internal Server Error", Body: "dot failed"}
	fetcher.answer = func(rep collate.Representation, body []byte) (collate.Response, error) {
		if rep == collate.DOT {
			return collate.Response{}, boom
		}
		return base(rep, body)
	}
	panels := panel.NewManager()
	d := collate.NewDispatcher(fetcher, panels)

	sub, err := d.Submit([]string{"a", "b"})
	require.NoError(t, err)
	errs := runAll(t, d, sub)

	require.Len(t, errs, 1)
	var respErr *collate.ResponseError
	require.ErrorAs(t, errs[0], &respErr)
	assert.Equal(t, "dot failed", respErr.Body)
	assert.False(t, panels.Populated(panel.Dot))
	for _, id := range []panel.ID{panel.Graph, panel.Table, panel.GraphML, panel.TEI} {
		assert.True(t, panels.Populated(id), id.Title())
	}
}

func TestStaleResultsAreDiscarded(t *testing.T) {
	panels := panel.NewManager()
	d := collate.NewDispatcher(newRecordingFetcher(), panels)

	first, err := d.Submit([]string{"old one", "old two"})
	require.NoError(t, err)
	second, err := d.Submit([]string{"new one", "new two"})
	require.NoError(t, err)
	assert.Greater(t, second.Generation, first.Generation)

	// the superseded run completes after the new one started
	for _, task := range first.Tasks {
		assert.NoError(t, d.Deliver(task.Run(context.Background())))
	}
	assert.True(t, panels.Empty())

	require.Empty(t, runAll(t, d, second))
	table := panels.Contents(panel.Table)
	require.Len(t, table, 1)
	assert.Equal(t, "new", table[0].Table.Rows[0].Cells[0].Text)
}

func TestStaleFailuresAreNotSurfaced(t *testing.T) {
	fetcher := newRecordingFetcher()
	fetcher.answer = func(collate.Representation, []byte) (collate.Response, error) {
		return collate.Response{}, errors.New("connection refused")
	}
	d := collate.NewDispatcher(fetcher, panel.NewManager())
	sub, err := d.Submit([]string{"a", "b"})
	require.NoError(t, err)
	d.Reset()
	assert.Empty(t, runAll(t, d, sub))
}

func TestResetClearsPanels(t *testing.T) {
	panels := panel.NewManager()
	d := collate.NewDispatcher(newRecordingFetcher(), panels)
	sub, err := d.Submit([]string{"a", "b"})
	require.NoError(t, err)
	require.Empty(t, runAll(t, d, sub))

	d.Reset()
	assert.True(t, panels.Empty())
	assert.Equal(t, sub.Generation+1, d.Generation())
}

func TestMalformedTableIsReported(t *testing.T) {
	fetcher := newRecordingFetcher()
	base := fetcher.answer
	fetcher.answer = func(rep collate.Representation, body []byte) (collate.Response, error) {
		if rep == collate.JSON {
			return collate.Response{Representation: rep, Body: []byte("<html>oops</html>")}, nil
		}
		return base(rep, body)
	}
	panels := panel.NewManager()
	d := collate.NewDispatcher(fetcher, panels)
	sub, err := d.Submit([]string{"a", "b"})
	require.NoError(t, err)

	errs := runAll(t, d, sub)
	require.Len(t, errs, 1)
	assert.False(t, panels.Populated(panel.Table))
}

type countingObserver struct {
	mu          sync.Mutex
	submissions int
	finished    int
	stale       int
}

func (o *countingObserver) SubmissionStarted(uint64) { o.mu.Lock(); o.submissions++; o.mu.Unlock() }

func (o *countingObserver) RequestFinished(collate.Representation, time.Duration, error) {
	o.mu.Lock()
	o.finished++
	o.mu.Unlock()
}

func (o *countingObserver) StaleResult(collate.Representation) { o.mu.Lock(); o.stale++; o.mu.Unlock() }

func TestObserverSeesActivity(t *testing.T) {
	obs := &countingObserver{}
	d := collate.NewDispatcher(newRecordingFetcher(), panel.NewManager(), collate.WithObserver(obs))
	sub, err := d.Submit([]string{"a", "b"})
	require.NoError(t, err)
	d.Reset()
	runAll(t, d, sub)

	assert.Equal(t, 1, obs.submissions)
	assert.Equal(t, 5, obs.finished)
	assert.Equal(t, 5, obs.stale)
}

func TestClientNegotiatesRepresentation(t *testing.T) {
	var (
		mu      sync.Mutex
		accepts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		accepts = append(accepts, r.Header.Get("Accept"))
		mu.Unlock()
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/collate/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"witnesses":[]}`, string(body))
		w.Header().Set("Content-Type", r.Header.Get("Accept"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client, err := collate.NewClient(srv.URL + "/collate")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/collate/", client.Endpoint())

	resp, err := client.Fetch(context.Background(), collate.TEI, []byte(`{"witnesses":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, string(collate.TEI), resp.ContentType)
	assert.Equal(t, []string{string(collate.TEI)}, accepts)
}

func TestClientReturnsResponseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := collate.NewClient(srv.URL)
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), collate.SVG, []byte(`{}`))

	var respErr *collate.ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusServiceUnavailable, respErr.StatusCode)
	assert.Contains(t, respErr.Body, "engine overloaded")
	assert.Contains(t, err.Error(), "engine overloaded")
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client, err := collate.NewClient(srv.URL, collate.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), collate.SVG, []byte(`{}`))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := collate.NewClient("ftp://example.org")
	assert.Error(t, err)
	_, err = collate.NewClient("://nope")
	assert.Error(t, err)
}

func TestCollateAgainstStubEngine(t *testing.T) {
	engine := enginestub.New(
		enginestub.WithDelay(collate.SVG, 30*time.Millisecond),
		enginestub.WithFailure(collate.TEI, http.StatusInternalServerError, "tei exploded"),
	)
	srv := httptest.NewServer(engine.Handler("/collate"))
	defer srv.Close()

	client, err := collate.NewClient(srv.URL + "/collate")
	require.NoError(t, err)
	panels := panel.NewManager()
	d := collate.NewDispatcher(client, panels)

	var failures []error
	n, err := d.Collate(context.Background(), []string{"the black cat", "the white cat"}, func(err error) {
		failures = append(failures, err)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error(), "tei exploded")

	assert.False(t, panels.Populated(panel.TEI))
	for _, id := range []panel.ID{panel.Graph, panel.Table, panel.Dot, panel.GraphML} {
		assert.True(t, panels.Populated(id), id.Title())
	}
	rendered := panels.Contents(panel.Table)[0].Table
	assert.Equal(t, []alignment.Status{alignment.Invariant, alignment.Variant, alignment.Invariant}, rendered.Status)
	for _, rep := range collate.Representations() {
		assert.Equal(t, 1, engine.Requests(rep), rep)
	}
}

func TestCollateSkipsSingleWitness(t *testing.T) {
	fetcher := newRecordingFetcher()
	d := collate.NewDispatcher(fetcher, panel.NewManager())
	n, err := d.Collate(context.Background(), []string{"a b c"}, nil)
	assert.ErrorIs(t, err, collate.ErrTooFewWitnesses)
	assert.Zero(t, n)
	assert.Zero(t, fetcher.count())
}
