package panel

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kingrea/collate/internal/alignment"
)

// WriteTo writes the panel's contents to w: tables as HTML fragments, text
// and graphics verbatim.
func (m *Manager) WriteTo(id ID, w io.Writer) error {
	for _, content := range m.panels[id] {
		switch content.Kind {
		case KindTable:
			if err := alignment.WriteHTML(w, content.Table); err != nil {
				return err
			}
		default:
			if _, err := io.WriteString(w, content.Text); err != nil {
				return fmt.Errorf("panel: write %s: %w", id.Title(), err)
			}
		}
	}
	return nil
}

// Export writes every populated panel into dir, one file per panel, and
// returns the paths written.
func (m *Manager) Export(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("panel: ensure export dir: %w", err)
	}
	var written []string
	for _, id := range IDs() {
		if !m.Populated(id) {
			continue
		}
		path := filepath.Join(dir, id.FileName())
		if err := m.exportOne(id, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func (m *Manager) exportOne(id ID, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("panel: create %s: %w", path, err)
	}
	if err := m.WriteTo(id, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("panel: close %s: %w", path, err)
	}
	return nil
}
