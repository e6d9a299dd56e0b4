package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/collate/internal/collate"
	"github.com/kingrea/collate/internal/config"
	"github.com/kingrea/collate/internal/enginestub"
	"github.com/kingrea/collate/internal/panel"
	"github.com/kingrea/collate/internal/session"
)

func newRunSession(t *testing.T, engine *enginestub.Engine) *session.Session {
	t.Helper()
	srv := httptest.NewServer(engine.Handler("/collate"))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	require.NoError(t, config.InitCollateDir(dir))
	cfg, err := config.NewConfig(dir)
	require.NoError(t, err)
	client, err := collate.NewClient(srv.URL + "/collate")
	require.NoError(t, err)
	return session.New(cfg, client)
}

var catWitnesses = []string{"the black cat", "the white cat"}

func TestCollateOnceExportsEveryPanel(t *testing.T) {
	sess := newRunSession(t, enginestub.New())
	out := filepath.Join(t.TempDir(), "out")
	var stdout, stderr bytes.Buffer

	err := collateOnce(context.Background(), sess, catWitnesses, runOptions{out: out}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "wrote 5 panels")
	assert.Empty(t, stderr.String())
	for _, id := range panel.IDs() {
		assert.FileExists(t, filepath.Join(out, id.FileName()))
	}
}

func TestCollateOncePrintsOnePanel(t *testing.T) {
	sess := newRunSession(t, enginestub.New())
	dot := panel.Dot
	var stdout, stderr bytes.Buffer

	err := collateOnce(context.Background(), sess, catWitnesses, runOptions{only: &dot}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "digraph G {")
}

func TestCollateOnceWritesSurvivorsAndReportsFailures(t *testing.T) {
	engine := enginestub.New(enginestub.WithFailure(collate.TEI, http.StatusInternalServerError, "tei exploded"))
	sess := newRunSession(t, engine)
	out := filepath.Join(t.TempDir(), "out")
	var stdout, stderr bytes.Buffer

	err := collateOnce(context.Background(), sess, catWitnesses, runOptions{out: out}, &stdout, &stderr)
	require.EqualError(t, err, "1 of 5 representations failed")
	assert.Contains(t, stderr.String(), "tei exploded")
	assert.Contains(t, stdout.String(), "wrote 4 panels")
	assert.NoFileExists(t, filepath.Join(out, panel.TEI.FileName()))
}

func TestCollateOnceReportsTotalFailure(t *testing.T) {
	var opts []enginestub.Option
	for _, rep := range collate.Representations() {
		opts = append(opts, enginestub.WithFailure(rep, http.StatusBadGateway, "engine down"))
	}
	sess := newRunSession(t, enginestub.New(opts...))
	var stdout, stderr bytes.Buffer

	err := collateOnce(context.Background(), sess, catWitnesses, runOptions{}, &stdout, &stderr)
	require.EqualError(t, err, "all 5 representations failed")
	assert.Equal(t, 5, strings.Count(stderr.String(), "engine down"))
	assert.Empty(t, stdout.String())
}

func TestCollateOnceMissingPanelNamesFailures(t *testing.T) {
	engine := enginestub.New(enginestub.WithFailure(collate.DOT, http.StatusInternalServerError, "dot exploded"))
	sess := newRunSession(t, engine)
	dot := panel.Dot
	var stdout, stderr bytes.Buffer

	err := collateOnce(context.Background(), sess, catWitnesses, runOptions{only: &dot}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no result")
	assert.Contains(t, err.Error(), "1 of 5 representations failed")
}

func TestReadWitnessesFromFilesAndStdin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("the black cat\n"), 0o644))

	got, err := readWitnesses([]string{path, "-"}, strings.NewReader("the white cat"))
	require.NoError(t, err)
	assert.Equal(t, []string{"the black cat\n", "the white cat"}, got)
}

func TestReadWitnessesRejectsSecondStdin(t *testing.T) {
	_, err := readWitnesses([]string{"-", "-"}, strings.NewReader("x"))
	require.Error(t, err)
}

func TestReadWitnessesRejectsEmptyWitness(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blank.txt")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	_, err := readWitnesses([]string{path}, nil)
	require.ErrorContains(t, err, "empty")
}

func TestReadWitnessesMissingFile(t *testing.T) {
	_, err := readWitnesses([]string{filepath.Join(t.TempDir(), "nope")}, nil)
	require.ErrorIs(t, err, os.ErrNotExist)
}
