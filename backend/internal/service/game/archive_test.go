package game

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func buildZip(t *testing.T, files map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range files {
		entry, err := writer.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}

	path := filepath.Join(t.TempDir(), "payload.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write zip file: %v", err)
	}
	return path
}

func TestFindEntryFileRootIndex(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"index.html": "<html></html>",
		"other.html": "<html></html>",
	})

	entry, ok := findEntryFile(root)
	if !ok {
		t.Fatal("expected entry file to be found")
	}
	if entry != "index.html" {
		t.Fatalf("expected index.html, got %q", entry)
	}
}

func TestFindEntryFileSubdirIndex(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"zeta/index.html":  "<html></html>",
		"alpha/index.html": "<html></html>",
		"readme.txt":       "notes",
	})

	entry, ok := findEntryFile(root)
	if !ok {
		t.Fatal("expected entry file to be found")
	}
	// 子目录平局按字典序决出，alpha 先于 zeta。
	if entry != "alpha/index.html" {
		t.Fatalf("expected alpha/index.html, got %q", entry)
	}
}

func TestFindEntryFileAnyHTMLFallback(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"game.html":  "<html></html>",
		"styles.css": "body{}",
	})

	entry, ok := findEntryFile(root)
	if !ok {
		t.Fatal("expected entry file to be found")
	}
	if entry != "game.html" {
		t.Fatalf("expected game.html, got %q", entry)
	}
}

func TestFindEntryFileNotFound(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"styles.css":      "body{}",
		"deep/far/a.html": "<html></html>", // 两层深，不在搜索范围内
	})

	if _, ok := findEntryFile(root); ok {
		t.Fatal("expected no entry file")
	}
}

func TestExtractZipPreservesTree(t *testing.T) {
	src := buildZip(t, map[string]string{
		"index.html":     "<html>main</html>",
		"assets/app.js":  "console.log(1)",
		"assets/app.css": "body{}",
	})

	dest := filepath.Join(t.TempDir(), "out")
	if err := extractZip(src, dest, 1<<20); err != nil {
		t.Fatalf("extract: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dest, "assets", "app.js"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(content) != "console.log(1)" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	src := buildZip(t, map[string]string{
		"../evil.html": "<html></html>",
	})

	dest := filepath.Join(t.TempDir(), "out")
	err := extractZip(src, dest, 1<<20)
	if err == nil {
		t.Fatal("expected traversal entry to be rejected")
	}
	if !strings.Contains(err.Error(), "escapes") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtractZipEnforcesLimit(t *testing.T) {
	src := buildZip(t, map[string]string{
		"index.html": strings.Repeat("a", 4096),
	})

	dest := filepath.Join(t.TempDir(), "out")
	if err := extractZip(src, dest, 1024); err == nil {
		t.Fatal("expected extraction limit to trip")
	}
}
