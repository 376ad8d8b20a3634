package creds

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStore_RoundTrip(t *testing.T) {
	s := New(t.TempDir())

	if s.Authenticated() {
		t.Error("Fresh store should not be authenticated")
	}

	if err := s.Save("alex", "token-123"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if !s.Authenticated() {
		t.Error("Store should be authenticated after save")
	}
	if got := s.Token(); got != "token-123" {
		t.Errorf("Token() = %q", got)
	}
	if got := s.Username(); got != "alex" {
		t.Errorf("Username() = %q", got)
	}
}

func TestStore_Clear(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Save("alex", "token-123"); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if s.Authenticated() {
		t.Error("Store should not be authenticated after clear")
	}

	// Clearing twice is fine
	if err := s.Clear(); err != nil {
		t.Errorf("Second Clear() should be a no-op, got %v", err)
	}
}

func TestStore_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Save("alex", "token-123"); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(filepath.Join(dir, "credentials.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("Credential file should be 0600, got %o", perm)
	}
}

func TestStore_CorruptFileReadsAsLoggedOut(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "credentials.yaml"), []byte("{not yaml"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := New(dir)
	if s.Authenticated() {
		t.Error("Corrupt credential file must read as logged out")
	}
}
