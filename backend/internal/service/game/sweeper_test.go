package game

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"game-hub-app/backend/internal/config"
)

func TestSweepOnceRemovesOnlyStaleEntries(t *testing.T) {
	root := t.TempDir()

	stale := filepath.Join(root, "stale-extract")
	fresh := filepath.Join(root, "fresh")
	for _, dir := range []string{stale, fresh} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	old := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	sweeper := NewSweeper(config.UploadConfig{
		ScratchRoot:   root,
		SweepInterval: time.Minute,
		SweepMaxAge:   2 * time.Hour,
	})

	removed := sweeper.SweepOnce(time.Now())
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("stale entry should be gone")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh entry should survive: %v", err)
	}
}

func TestSweepOnceMissingRootIsNoop(t *testing.T) {
	sweeper := NewSweeper(config.UploadConfig{
		ScratchRoot:   filepath.Join(t.TempDir(), "never-created"),
		SweepInterval: time.Minute,
		SweepMaxAge:   time.Hour,
	})

	if removed := sweeper.SweepOnce(time.Now()); removed != 0 {
		t.Fatalf("expected 0 removals, got %d", removed)
	}
}
