package labwatch

import (
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"manifest write", fsnotify.Event{Name: "/labs/sqli/lab.yml", Op: fsnotify.Write}, true},
		{"manifest yaml variant", fsnotify.Event{Name: "/labs/sqli/lab.yaml", Op: fsnotify.Write}, true},
		{"new lab directory", fsnotify.Event{Name: "/labs/newlab", Op: fsnotify.Create}, true},
		{"removed lab directory", fsnotify.Event{Name: "/labs/oldlab", Op: fsnotify.Remove}, true},
		{"hidden file churn", fsnotify.Event{Name: "/labs/.lab.yml.swp", Op: fsnotify.Create}, false},
		{"unrelated write", fsnotify.Event{Name: "/labs/sqli/app.log", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relevant(tt.ev); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.ev, got, tt.want)
			}
		})
	}
}
