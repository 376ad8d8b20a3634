package lab

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	wverrors "github.com/webverselabs/webverse/internal/webverse/errors"
	"github.com/webverselabs/webverse/internal/webverse/utils"
	"github.com/webverselabs/webverse/internal/log"
)

const manifestFile = "lab.yml"

// Registry holds discovered labs, keyed by id. Discovery scans the
// built-in labs directory first, then the user labs directory; the
// first manifest claiming an id wins.
type Registry struct {
	mu   sync.RWMutex
	dirs []string
	labs map[string]*Lab
}

// NewRegistry creates a registry over the given directories
func NewRegistry(dirs ...string) *Registry {
	return &Registry{
		dirs: dirs,
		labs: map[string]*Lab{},
	}
}

// Refresh rescans all directories and replaces the registry contents
func (r *Registry) Refresh() error {
	labs := map[string]*Lab{}
	for _, dir := range r.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return wverrors.Wrapf(err, "read labs dir %s", dir)
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			l, err := loadManifest(filepath.Join(dir, e.Name()))
			if err != nil {
				log.Error("Skipping lab %s: %v", e.Name(), err)
				continue
			}
			if l == nil {
				continue
			}
			if _, exists := labs[l.ID]; exists {
				continue
			}
			labs[l.ID] = l
		}
	}

	r.mu.Lock()
	r.labs = labs
	r.mu.Unlock()
	return nil
}

// Get returns the lab with the given id
func (r *Registry) Get(id string) (*Lab, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.labs[id]
	if !ok {
		return nil, wverrors.Wrapf(wverrors.ErrLabNotFound, "%q", id)
	}
	return l, nil
}

// List returns all labs sorted by id
func (r *Registry) List() []*Lab {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Lab, 0, len(r.labs))
	for _, l := range r.labs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns all known lab ids sorted
func (r *Registry) IDs() []string {
	labs := r.List()
	ids := make([]string, 0, len(labs))
	for _, l := range labs {
		ids = append(ids, l.ID)
	}
	return ids
}

// loadManifest parses a single lab directory. A directory without a
// manifest is silently skipped (nil, nil); a directory with a broken
// manifest is an error so discovery can warn about it.
func loadManifest(dir string) (*Lab, error) {
	path := filepath.Join(dir, manifestFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var m manifest
	if err := utils.ParseYamlFromFile(path, &m); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(m.ID)
	if id == "" {
		id = filepath.Base(dir)
	}
	name := strings.TrimSpace(m.Name)
	if name == "" {
		name = id
	}

	difficulty := strings.ToLower(strings.TrimSpace(m.Difficulty))
	if !ValidDifficulty(difficulty) {
		return nil, wverrors.Wrapf(wverrors.ErrInvalidManifest, "difficulty %q", m.Difficulty)
	}

	composeFile := strings.TrimSpace(m.ComposeFile)
	if composeFile == "" {
		composeFile = "docker-compose.yml"
	}

	l := &Lab{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(m.Description),
		Story:       strings.TrimSpace(m.Story),
		Difficulty:  difficulty,
		Dir:         dir,
		ComposeFile: composeFile,
		EntryURL:    strings.TrimSpace(m.Entrypoint.BaseURL),
		FlagSHA256:  strings.ToLower(strings.TrimSpace(m.FlagSHA256)),
	}

	if _, err := os.Stat(l.ComposePath()); err != nil {
		return nil, wverrors.Wrapf(wverrors.ErrMissingComposeFile, "%s", l.ComposePath())
	}

	return l, nil
}
