// Package examples provides preset witness sets the user can load with one
// keystroke. Presets come from a YAML file or, when none exists, from a
// small built-in list.
package examples

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TitleLimit is the number of characters kept from the first witness when
// deriving a preset title.
const TitleLimit = 80

// Preset is one example witness set.
type Preset struct {
	Witnesses []string `yaml:"witnesses"`
}

// Title is the preset's first witness, cut after TitleLimit characters with
// an ellipsis appended.
func (p Preset) Title() string {
	if len(p.Witnesses) == 0 {
		return ""
	}
	return Truncate(p.Witnesses[0], TitleLimit)
}

// Truncate keeps the first limit characters of s and appends "…" when
// anything was cut.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

type file struct {
	Examples []Preset `yaml:"examples"`
}

// Load reads presets from path. A missing file yields the built-in presets.
func Load(path string) ([]Preset, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Builtin(), nil
		}
		return nil, fmt.Errorf("examples: read %s: %w", path, err)
	}
	var parsed file
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("examples: parse %s: %w", path, err)
	}
	for i, p := range parsed.Examples {
		if len(p.Witnesses) == 0 {
			return nil, fmt.Errorf("examples: examples[%d]: at least one witness is required", i)
		}
	}
	return parsed.Examples, nil
}

// Builtin returns the presets offered when no presets file exists.
func Builtin() []Preset {
	return []Preset{
		{Witnesses: []string{
			"the black cat",
			"the white cat",
		}},
		{Witnesses: []string{
			"The black dog chased a red cat.",
			"A black dog chases a red cat.",
			"A red cat chases the yellow dog",
		}},
		{Witnesses: []string{
			"The quick brown fox jumps over the lazy dog.",
			"The brown fox jumps over the dog.",
			"The quick brown fox jumped over the lazy dogs.",
		}},
		{Witnesses: []string{
			"Causa materialis est illud ex quo aliquid fit et quod manet in eo, sicut aes in statua et argentum in phiala et ea quae sunt horum genera.",
			"Causa materialis est id ex quo fit aliquid et manet in eo, ut aes statuae et argentum phialae et horum genera.",
		}},
	}
}
