// Package session bundles the state of one interactive collation session so
// hosts (the terminal UI and the one-shot CLI) share a single context object
// instead of reaching for globals.
package session

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/kingrea/collate/internal/collate"
	"github.com/kingrea/collate/internal/config"
	"github.com/kingrea/collate/internal/examples"
	"github.com/kingrea/collate/internal/logbook"
	"github.com/kingrea/collate/internal/logging"
	"github.com/kingrea/collate/internal/panel"
	"github.com/kingrea/collate/internal/witness"
)

// NoPreset selects the empty starting state in SelectPreset.
const NoPreset = -1

// Session carries shared runtime dependencies into every host.
type Session struct {
	Config     *config.Config
	Store      *witness.Store
	Panels     *panel.Manager
	Dispatcher *collate.Dispatcher
	Presets    []examples.Preset
	Logger     *logging.Logger
	Logbook    *logbook.Logbook

	observer collate.Observer
	clock    func() time.Time
}

// Option customizes a Session.
type Option func(*Session)

// WithLogger routes diagnostics to l.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.Logger = l
		}
	}
}

// WithLogbook records user-facing events in lb.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(s *Session) {
		s.Logbook = lb
	}
}

// WithObserver forwards dispatch activity, e.g. to a metrics recorder.
func WithObserver(o collate.Observer) Option {
	return func(s *Session) {
		s.observer = o
	}
}

// WithPresets replaces the built-in presets.
func WithPresets(presets []examples.Preset) Option {
	return func(s *Session) {
		if presets != nil {
			s.Presets = presets
		}
	}
}

// WithClock lets tests pin export folder names.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New builds a session with two empty witnesses and empty panels.
func New(cfg *config.Config, fetcher collate.Fetcher, opts ...Option) *Session {
	s := &Session{
		Config:  cfg,
		Store:   witness.NewStore(),
		Panels:  panel.NewManager(),
		Presets: examples.Builtin(),
		Logger:  logging.NewNop(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.Dispatcher = collate.NewDispatcher(fetcher, s.Panels,
		collate.WithLogger(s.Logger),
		collate.WithObserver(s.observer),
	)
	return s
}

// Submit snapshots the witness list and starts a collation run. A nil
// submission means there was nothing to collate.
func (s *Session) Submit() (*collate.Submission, error) {
	sub, err := s.Dispatcher.Submit(s.Store.Snapshot())
	if err != nil {
		return nil, err
	}
	if sub != nil {
		s.Logbook.Info("collating %d witnesses (run %d)", len(sub.Request.Witnesses), sub.Generation)
	}
	return sub, nil
}

// Deliver hands a finished task to the dispatcher and journals failures.
func (s *Session) Deliver(res collate.Result) error {
	err := s.Dispatcher.Deliver(res)
	if err != nil {
		s.Logbook.Error("%s", err.Error())
	}
	return err
}

// SelectPreset loads preset index into the witness list and submits it.
// NoPreset restores two empty witnesses instead. Results of any earlier run
// are cleared and its late answers discarded either way.
func (s *Session) SelectPreset(index int) (*collate.Submission, error) {
	if index == NoPreset {
		s.ResetWitnesses()
		return nil, nil
	}
	if index < 0 || index >= len(s.Presets) {
		return nil, fmt.Errorf("session: preset %d out of range [0,%d)", index, len(s.Presets))
	}
	preset := s.Presets[index]
	s.Dispatcher.Reset()
	s.Store.ReplaceAll(preset.Witnesses)
	s.Logbook.Info("loaded example %q", preset.Title())
	return s.Submit()
}

// ResetWitnesses restores two empty witnesses and clears every panel.
func (s *Session) ResetWitnesses() {
	s.Dispatcher.Reset()
	s.Store.Reset()
	s.Logbook.Info("witnesses reset")
}

// FocusIndex is the witness entry that should receive input focus, or -1
// when every entry already has content.
func (s *Session) FocusIndex() int {
	return witness.FirstEmptyIndex(s.Store.Entries())
}

// Export writes every populated panel below the exports directory into a
// folder named after the current time and returns the folder and files.
func (s *Session) Export() (string, []string, error) {
	if s.Panels.Empty() {
		return "", nil, fmt.Errorf("session: nothing to export")
	}
	root := filepath.Join(config.CollateDir, "exports")
	if s.Config != nil {
		root = s.Config.ExportsDir()
	}
	dir := filepath.Join(root, s.clock().Format("20060102-150405"))
	files, err := s.Panels.Export(dir)
	if err != nil {
		return dir, files, err
	}
	s.Logbook.Info("exported %d panels to %s", len(files), dir)
	return dir, files, nil
}
