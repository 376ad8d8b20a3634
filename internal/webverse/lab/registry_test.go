package lab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	wverrors "github.com/webverselabs/webverse/internal/webverse/errors"
)

// writeLab creates a lab directory with a manifest and compose file
func writeLab(t *testing.T, root, dirName, manifest string) {
	t.Helper()
	dir := filepath.Join(root, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "lab.yml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "docker-compose.yml"), []byte("services: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRefresh_DiscoversLabs(t *testing.T) {
	root := t.TempDir()
	writeLab(t, root, "sqli", `
id: sql-injection-101
name: SQL Injection 101
difficulty: easy
entrypoint:
  base_url: http://localhost:3000
`)
	writeLab(t, root, "xss", `
id: xss-basics
name: XSS Basics
difficulty: medium
`)

	r := NewRegistry(root)
	if err := r.Refresh(); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	want := []string{"sql-injection-101", "xss-basics"}
	if diff := cmp.Diff(want, r.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}

	l, err := r.Get("sql-injection-101")
	if err != nil {
		t.Fatal(err)
	}
	if l.EntryURL != "http://localhost:3000" {
		t.Errorf("Unexpected entry URL: %q", l.EntryURL)
	}
	if l.Difficulty != DifficultyEasy {
		t.Errorf("Unexpected difficulty: %q", l.Difficulty)
	}
}

func TestRefresh_FirstIDWinsAcrossDirectories(t *testing.T) {
	builtin := t.TempDir()
	user := t.TempDir()
	writeLab(t, builtin, "sqli", "id: sqli\nname: Builtin\ndifficulty: easy\n")
	writeLab(t, user, "sqli", "id: sqli\nname: Installed\ndifficulty: hard\n")

	r := NewRegistry(builtin, user)
	if err := r.Refresh(); err != nil {
		t.Fatal(err)
	}

	l, err := r.Get("sqli")
	if err != nil {
		t.Fatal(err)
	}
	if l.Name != "Builtin" {
		t.Errorf("Expected the first directory to win, got %q", l.Name)
	}
}

func TestRefresh_SkipsInvalidDifficulty(t *testing.T) {
	root := t.TempDir()
	writeLab(t, root, "bad", "id: bad\ndifficulty: impossible\n")
	writeLab(t, root, "good", "id: good\ndifficulty: easy\n")

	r := NewRegistry(root)
	if err := r.Refresh(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"good"}, r.IDs()); diff != "" {
		t.Errorf("Broken manifest should be skipped (-want +got):\n%s", diff)
	}
}

func TestRefresh_SkipsMissingComposeFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "nocompose")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "lab.yml"), []byte("id: nocompose\ndifficulty: easy\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(root)
	if err := r.Refresh(); err != nil {
		t.Fatal(err)
	}
	if len(r.IDs()) != 0 {
		t.Errorf("Lab without compose file should be skipped, got %v", r.IDs())
	}
}

func TestRefresh_MissingDirectoryIsNotAnError(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := r.Refresh(); err != nil {
		t.Fatalf("Missing labs dir should be skipped, got %v", err)
	}
}

func TestGet_UnknownLab(t *testing.T) {
	r := NewRegistry(t.TempDir())
	if err := r.Refresh(); err != nil {
		t.Fatal(err)
	}
	_, err := r.Get("nope")
	if !wverrors.Is(err, wverrors.ErrLabNotFound) {
		t.Fatalf("Expected ErrLabNotFound, got %v", err)
	}
}

func TestRefresh_IDDefaultsToDirectoryName(t *testing.T) {
	root := t.TempDir()
	writeLab(t, root, "implied-id", "difficulty: easy\n")

	r := NewRegistry(root)
	if err := r.Refresh(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get("implied-id"); err != nil {
		t.Errorf("Manifest without id should fall back to the directory name: %v", err)
	}
}

func TestProject_SanitizesID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"sql-injection-101", "webverse_sql-injection-101"},
		{"Weird Lab!", "webverse_weird_lab_"},
		{"under_score", "webverse_under_score"},
	}
	for _, tt := range tests {
		l := &Lab{ID: tt.id}
		if got := l.Project(); got != tt.want {
			t.Errorf("Project(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
