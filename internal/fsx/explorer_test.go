package fsx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestExplorer(t *testing.T) (*Explorer, string) {
	t.Helper()
	base := t.TempDir()
	temp := filepath.Join(base, "temp_downloads")
	if err := os.MkdirAll(temp, 0o755); err != nil {
		t.Fatal(err)
	}
	return NewExplorer(NewGuard(base, temp), temp), base
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListDirectory_pagination(t *testing.T) {
	e, base := newTestExplorer(t)
	dir := filepath.Join(base, "many")
	for i := 0; i < 45; i++ {
		writeFile(t, filepath.Join(dir, fmt.Sprintf("f%02d.txt", i)), "x")
	}

	sizes := []int{20, 20, 5}
	for page := 1; page <= 3; page++ {
		l, err := e.ListDirectory(dir, page, 20)
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if len(l.Items) != sizes[page-1] {
			t.Fatalf("page %d: %d items, want %d", page, len(l.Items), sizes[page-1])
		}
		if l.TotalPages != 3 || l.Total != 45 {
			t.Fatalf("page %d: total=%d totalPages=%d", page, l.Total, l.TotalPages)
		}
	}
}

func TestListDirectory_sortDirsFirstThenCaseInsensitive(t *testing.T) {
	e, base := newTestExplorer(t)
	dir := filepath.Join(base, "mix")
	writeFile(t, filepath.Join(dir, "Zeta.txt"), "x")
	writeFile(t, filepath.Join(dir, "alpha.txt"), "x")
	os.MkdirAll(filepath.Join(dir, "zdir"), 0o755)
	os.MkdirAll(filepath.Join(dir, "Adir"), 0o755)

	l, err := e.ListDirectory(dir, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, it := range l.Items {
		names = append(names, it.Name)
	}
	want := []string{"Adir", "zdir", "alpha.txt", "Zeta.txt"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}
}

func TestListDirectory_errors(t *testing.T) {
	e, base := newTestExplorer(t)
	if _, err := e.ListDirectory(filepath.Join(base, "nope"), 1, 20); err == nil {
		t.Fatal("expected error for missing path")
	}
	f := filepath.Join(base, "plain.txt")
	writeFile(t, f, "x")
	if _, err := e.ListDirectory(f, 1, 20); err == nil {
		t.Fatal("expected error for non-directory")
	}
	if _, err := e.ListDirectory("/etc", 1, 20); err != ErrNotAllowed {
		t.Fatalf("expected ErrNotAllowed, got %v", err)
	}
}

func TestListDirectory_parentOnlyAboveBase(t *testing.T) {
	e, base := newTestExplorer(t)
	sub := filepath.Join(base, "sub")
	os.MkdirAll(sub, 0o755)

	l, err := e.ListDirectory(base, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if l.ParentPath != "" {
		t.Fatalf("base dir listing has parent %q", l.ParentPath)
	}
	l, err = e.ListDirectory(sub, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if l.ParentPath != base {
		t.Fatalf("parent = %q, want %q", l.ParentPath, base)
	}
}

func TestFileInfo(t *testing.T) {
	e, base := newTestExplorer(t)
	f := filepath.Join(base, "doc.txt")
	writeFile(t, f, "hello world")

	entry, err := e.FileInfo(f)
	if err != nil {
		t.Fatal(err)
	}
	if !entry.IsFile || entry.Size != 11 {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.ContentHash == "" {
		t.Fatal("small file should have a content hash")
	}
	if entry.MimeType == "" {
		t.Fatal("expected a mime type")
	}

	dir := filepath.Join(base, "d")
	writeFile(t, filepath.Join(dir, "a"), "x")
	os.MkdirAll(filepath.Join(dir, "sub"), 0o755)
	entry, err = e.FileInfo(dir)
	if err != nil {
		t.Fatal(err)
	}
	if entry.FileCount != 1 || entry.DirCount != 1 {
		t.Fatalf("counts = %d files, %d dirs", entry.FileCount, entry.DirCount)
	}
	if entry.ContentHash != "" {
		t.Fatal("directories have no content hash")
	}
}

func TestSearch(t *testing.T) {
	e, base := newTestExplorer(t)
	writeFile(t, filepath.Join(base, "a", "Config.yaml"), "x")
	writeFile(t, filepath.Join(base, "b", "notes.txt"), "x")
	os.MkdirAll(filepath.Join(base, "configs"), 0o755)

	matches, err := e.Search(context.Background(), base, "config", SearchAll)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches: %+v", len(matches), matches)
	}

	matches, _ = e.Search(context.Background(), base, "config", SearchDirs)
	if len(matches) != 1 || !matches[0].IsDir {
		t.Fatalf("dirs-only: %+v", matches)
	}

	matches, _ = e.Search(context.Background(), base, "config", SearchFiles)
	if len(matches) != 1 || matches[0].IsDir {
		t.Fatalf("files-only: %+v", matches)
	}
}

func TestSearch_cancelled(t *testing.T) {
	e, base := newTestExplorer(t)
	writeFile(t, filepath.Join(base, "x.txt"), "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Search(ctx, base, "x", SearchAll); err == nil {
		t.Fatal("expected context error")
	}
}

func TestCreateDeleteRename(t *testing.T) {
	e, base := newTestExplorer(t)

	dir := filepath.Join(base, "newdir")
	if err := e.CreateDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if err := e.CreateDirectory(dir); err == nil {
		t.Fatal("creating an existing directory must fail")
	}

	f := filepath.Join(base, "victim.txt")
	writeFile(t, f, "x")
	if err := e.DeletePath(f); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(f); !os.IsNotExist(err) {
		t.Fatal("file still there")
	}
	writeFile(t, filepath.Join(dir, "inner.txt"), "x")
	if err := e.DeletePath(dir); err != nil {
		t.Fatal(err)
	}

	if err := e.DeletePath("/etc/passwd"); err != ErrNotAllowed {
		t.Fatalf("guard must reject, got %v", err)
	}
}

func TestRename_noOverwrite(t *testing.T) {
	e, base := newTestExplorer(t)
	a := filepath.Join(base, "a.txt")
	b := filepath.Join(base, "b.txt")
	writeFile(t, a, "content a")
	writeFile(t, b, "content b")

	if _, err := e.Rename(a, "b.txt"); err == nil {
		t.Fatal("rename onto an existing name must fail")
	}
	// Neither path was modified.
	for path, want := range map[string]string{a: "content a", b: "content b"} {
		got, err := os.ReadFile(path)
		if err != nil || string(got) != want {
			t.Fatalf("%s = %q, %v", path, got, err)
		}
	}

	newPath, err := e.Rename(a, "c.txt")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(newPath) != "c.txt" {
		t.Fatalf("newPath = %s", newPath)
	}
	if _, err := e.Rename(b, "../escape.txt"); err == nil {
		t.Fatal("separator in new name must fail")
	}
}

func TestCleanTemp(t *testing.T) {
	e, base := newTestExplorer(t)
	temp := filepath.Join(base, "temp_downloads")
	writeFile(t, filepath.Join(temp, "one.zip"), "12345")
	writeFile(t, filepath.Join(temp, "sub", "two.zip"), "123")

	files, bytes, err := e.CleanTemp()
	if err != nil {
		t.Fatal(err)
	}
	if files != 2 || bytes != 8 {
		t.Fatalf("files=%d bytes=%d", files, bytes)
	}
	entries, err := os.ReadDir(temp)
	if err != nil {
		t.Fatal("temp dir was not recreated")
	}
	if len(entries) != 0 {
		t.Fatal("temp dir not empty")
	}
}

func TestTree_depthBounded(t *testing.T) {
	e, base := newTestExplorer(t)
	deep := filepath.Join(base, "l1", "l2", "l3", "l4")
	writeFile(t, filepath.Join(deep, "too-deep.txt"), "x")

	out, err := e.Tree(context.Background(), base)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"l1/", "l2/", "l3/"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in tree:\n%s", want, out)
		}
	}
	if strings.Contains(out, "too-deep.txt") {
		t.Fatalf("depth bound breached:\n%s", out)
	}
}
