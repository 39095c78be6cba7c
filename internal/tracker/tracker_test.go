package tracker

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, rel string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(rel), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestModifiedReportsNewAndChangedFiles(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	writeFile(t, dir, "main.go", base)
	writeFile(t, dir, "pkg/util.go", base)
	writeFile(t, dir, "README.md", base)

	tr := &Tracker{}
	snap, err := tr.Take(context.Background(), dir)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer snap.Close()

	writeFile(t, dir, "pkg/util.go", base.Add(30*time.Minute))
	writeFile(t, dir, "pkg/new.go", base.Add(40*time.Minute))
	writeFile(t, dir, "main.go", base.Add(10*time.Minute))

	got, err := snap.Modified()
	if err != nil {
		t.Fatalf("Modified: %v", err)
	}
	want := []string{"main.go", "pkg/util.go", "pkg/new.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Modified() = %v, want %v", got, want)
	}
}

func TestModifiedSkipsNoise(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("# build output\n/build/\n*.tmp\n!keep.tmp\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := &Tracker{Ignore: []string{"*.log"}}
	snap, err := tr.Take(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	defer snap.Close()

	later := base.Add(time.Minute)
	for _, rel := range []string{
		".env",
		"~$draft.docx",
		".git/index",
		"node_modules/left-pad/index.js",
		"__pycache__/mod.pyc",
		"venv/bin/python",
		"build/app",
		"scratch.tmp",
		"server.log",
		"notes.txt",
	} {
		writeFile(t, dir, rel, later)
	}

	got, err := snap.Modified()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"notes.txt"}) {
		t.Errorf("Modified() = %v, want only notes.txt", got)
	}
}

func TestMissingDirectoryIsEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	tr := &Tracker{Watch: true}
	snap, err := tr.Take(context.Background(), dir)
	if err != nil {
		t.Fatalf("Take on missing dir: %v", err)
	}
	got, err := snap.Modified()
	if err != nil || len(got) != 0 {
		t.Errorf("Modified() = %v, %v; want empty", got, err)
	}
	if err := snap.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestWatchedSnapshotCloses(t *testing.T) {
	dir := t.TempDir()
	tr := &Tracker{Watch: true}
	snap, err := tr.Take(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "a.txt", time.Now().Add(time.Minute))

	got, err := snap.Modified()
	if err != nil || !reflect.DeepEqual(got, []string{"a.txt"}) {
		t.Errorf("Modified() = %v, %v", got, err)
	}
	if err := snap.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := snap.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestFormat(t *testing.T) {
	files := []string{"a", "b", "c", "d"}
	if got := Format(files, 10); got != "a, b, c, d" {
		t.Errorf("Format all: %q", got)
	}
	if got := Format(files, 2); got != "a, b, ... and 2 more" {
		t.Errorf("Format truncated: %q", got)
	}
	if got := Format(nil, 2); got != "" {
		t.Errorf("Format empty: %q", got)
	}
}
