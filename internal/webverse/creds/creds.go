// Package creds persists the local account credential on disk.
package creds

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/webverselabs/webverse/internal/webverse/utils"
	"github.com/webverselabs/webverse/internal/log"
)

const fileName = "credentials.yaml"

type credentialsFile struct {
	SavedAt     time.Time `yaml:"savedAt"`
	Username    string    `yaml:"username"`
	AccessToken string    `yaml:"accessToken"`
}

// Store reads and writes the credential file under the data directory.
// The file holds one bearer token; an absent or empty file means the
// device is not authenticated.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a store rooted at dataDir
func New(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, fileName)}
}

func (s *Store) read() credentialsFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	var file credentialsFile
	if err := utils.ParseYamlFromFile(s.path, &file); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Debug("Credential file unreadable: %v", err)
		}
		return credentialsFile{}
	}
	return file
}

// Token returns the persisted bearer token, or empty
func (s *Store) Token() string {
	return strings.TrimSpace(s.read().AccessToken)
}

// Username returns the persisted account name, or empty
func (s *Store) Username() string {
	return strings.TrimSpace(s.read().Username)
}

// Authenticated reports whether a credential is present
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// Save replaces the stored credential
func (s *Store) Save(username, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return err
	}
	file := credentialsFile{
		SavedAt:     time.Now(),
		Username:    username,
		AccessToken: token,
	}
	return utils.WriteYamlToFile(s.path, file, 0600)
}

// Clear removes the stored credential. Missing file is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
