// Package lab defines the static lab descriptor and manifest discovery.
package lab

import (
	"path/filepath"
	"strings"
)

// Difficulty tiers accepted in lab manifests
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
	DifficultyMaster = "master"
)

var difficulties = map[string]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
	DifficultyMaster: true,
}

// ValidDifficulty reports whether s is one of the accepted tiers
func ValidDifficulty(s string) bool {
	return difficulties[strings.ToLower(strings.TrimSpace(s))]
}

// Lab is the immutable descriptor of a single training environment.
// Instances are created by discovery and held read-only afterwards.
type Lab struct {
	ID          string
	Name        string
	Description string
	Story       string
	Difficulty  string
	Dir         string
	ComposeFile string
	EntryURL    string
	FlagSHA256  string
}

// Project returns the compose project name for this lab. Characters
// outside [a-z0-9-_] are replaced so the name is always a valid
// docker compose project identifier.
func (l *Lab) Project() string {
	var b strings.Builder
	b.Grow(len("webverse_") + len(l.ID))
	b.WriteString("webverse_")
	for _, r := range strings.ToLower(l.ID) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ComposePath returns the absolute path of the lab's compose file
func (l *Lab) ComposePath() string {
	if filepath.IsAbs(l.ComposeFile) {
		return l.ComposeFile
	}
	return filepath.Join(l.Dir, l.ComposeFile)
}

// manifest mirrors the lab.yml schema
type manifest struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Story       string `yaml:"story"`
	Difficulty  string `yaml:"difficulty"`
	ComposeFile string `yaml:"compose_file"`
	Entrypoint  struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"entrypoint"`
	FlagSHA256 string `yaml:"flag_sha256"`
}
