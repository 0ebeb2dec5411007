package walker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func collect(t *testing.T, root string, opts Options) ([]FileInfo, error) {
	t.Helper()
	files, errs := Walk(context.Background(), root, opts)
	var got []FileInfo
	for f := range files {
		got = append(got, f)
	}
	return got, <-errs
}

func relPaths(files []FileInfo) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.RelPath)
	}
	return out
}

func TestWalkOrderAndSeq(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"b.txt":     "b",
		"a.txt":     "a",
		"sub/c.txt": "c",
		"sub/d/e":   "",
	})

	got, err := collect(t, root, Options{})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	want := []string{"a.txt", "b.txt", "sub/c.txt", "sub/d/e"}
	if diff := cmp.Diff(want, relPaths(got)); diff != "" {
		t.Errorf("walk order mismatch (-want +got):\n%s", diff)
	}
	for i, f := range got {
		if f.Seq != i {
			t.Errorf("file %s has Seq %d, want %d", f.RelPath, f.Seq, i)
		}
		if f.Path != filepath.Join(root, filepath.FromSlash(f.RelPath)) {
			t.Errorf("file %s has Path %s", f.RelPath, f.Path)
		}
	}
}

func TestWalkIgnores(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		IgnoreFile:         "# comment\n.git\n*.log\n",
		".git/config":      "x",
		"app.log":          "x",
		"keep.txt":         "x",
		"vendor/lib/x.txt": "x",
		"nested/debug.log": "x",
		"nested/keep.conf": "x",
	})

	got, err := collect(t, root, Options{Ignore: []string{"vendor"}})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	want := []string{"keep.txt", "nested/keep.conf"}
	if diff := cmp.Diff(want, relPaths(got)); diff != "" {
		t.Errorf("ignored files mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFiles(t, root, map[string]string{"real.txt": "x"})
	writeFiles(t, outside, map[string]string{"other.txt": "y", "dir/inner.txt": "z"})

	links := map[string]string{
		"link.txt":     filepath.Join(outside, "other.txt"),
		"linkdir":      filepath.Join(outside, "dir"),
		"dangling.txt": filepath.Join(outside, "missing.txt"),
	}
	for name, target := range links {
		if err := os.Symlink(target, filepath.Join(root, name)); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}
	}

	got, err := collect(t, root, Options{})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if diff := cmp.Diff([]string{"link.txt", "real.txt"}, relPaths(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	for _, f := range got {
		if f.RelPath == "link.txt" && f.Size != 1 {
			t.Errorf("link.txt size = %d, want the target's size 1", f.Size)
		}
	}
}

func TestWalkSkipsRootIgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		IgnoreFile:          "build\n",
		"keep.txt":          "x",
		"sub/" + IgnoreFile: "data",
	})

	got, err := collect(t, root, Options{})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	want := []string{"keep.txt", "sub/" + IgnoreFile}
	if diff := cmp.Diff(want, relPaths(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	_, err := collect(t, filepath.Join(t.TempDir(), "missing"), Options{})
	if err == nil {
		t.Fatal("Walk() on a missing root returned no error")
	}
}

func TestWalkRootIsFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"f.txt": "x"})
	_, err := collect(t, filepath.Join(root, "f.txt"), Options{})
	if err == nil {
		t.Fatal("Walk() on a file returned no error")
	}
}

func TestWalkCancelled(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d"} {
		files[name] = "x"
	}
	writeFiles(t, root, files)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch, errs := Walk(ctx, root, Options{})
	n := 0
	for range ch {
		n++
	}
	if err := <-errs; !errors.Is(err, context.Canceled) {
		t.Errorf("Walk() error = %v, want context.Canceled", err)
	}
	if n != 0 {
		t.Errorf("Walk() sent %d files after cancellation", n)
	}
}
