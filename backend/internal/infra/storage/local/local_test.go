package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func TestStoreFile(t *testing.T) {
	root := t.TempDir()
	backend, err := New(root)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}

	src := filepath.Join(t.TempDir(), "game.html")
	writeFile(t, src, "<html></html>")

	stored, err := backend.StoreFile(context.Background(), src, "games/my-game", "index.html")
	if err != nil {
		t.Fatalf("StoreFile returned error: %v", err)
	}

	want := filepath.Join(root, "games", "my-game", "index.html")
	if stored.Location != want {
		t.Fatalf("unexpected location: %s", stored.Location)
	}
	if stored.URL != "/static/games/my-game/index.html" {
		t.Fatalf("unexpected url: %s", stored.URL)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
}

func TestStoreTree_AndDelete(t *testing.T) {
	root := t.TempDir()
	backend, err := New(root)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}

	srcDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "index.html"), "<html></html>")
	writeFile(t, filepath.Join(srcDir, "assets", "style.css"), "body{}")

	tree, err := backend.StoreTree(context.Background(), srcDir, "games/my-game", "index.html")
	if err != nil {
		t.Fatalf("StoreTree returned error: %v", err)
	}
	if len(tree.Handles) != 2 {
		t.Fatalf("expected 2 handles, got %d", len(tree.Handles))
	}
	if tree.EntryLocation != filepath.Join(root, "games", "my-game", "index.html") {
		t.Fatalf("unexpected entry location: %s", tree.EntryLocation)
	}

	backend.DeleteHandles(context.Background(), tree.Handles)
	for _, handle := range tree.Handles {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(handle))); !os.IsNotExist(err) {
			t.Fatalf("handle %s not deleted", handle)
		}
	}

	backend.DeleteNamespace(context.Background(), "games/my-game")
	if _, err := os.Stat(filepath.Join(root, "games", "my-game")); !os.IsNotExist(err) {
		t.Fatal("namespace dir not deleted")
	}
}

func TestStoreTree_MissingEntry(t *testing.T) {
	backend, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}

	srcDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "readme.txt"), "no entry here")

	if _, err := backend.StoreTree(context.Background(), srcDir, "games/x", "index.html"); err == nil {
		t.Fatal("expected error for missing entry file")
	}
}

func TestDeleteHandles_IgnoresMissing(t *testing.T) {
	backend, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	// 删除不存在的句柄不应 panic 或报错。
	backend.DeleteHandles(context.Background(), []string{"games/ghost/index.html"})
}

func TestSafeJoin_RejectsTraversal(t *testing.T) {
	backend, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	if _, ok := backend.safeJoin("../outside"); ok {
		t.Fatal("expected traversal to be rejected")
	}
	if _, ok := backend.safeJoin("games/ok/file.html"); !ok {
		t.Fatal("expected normal key to be accepted")
	}
}
