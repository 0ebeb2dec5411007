package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, root, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOrdersEntries(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, root, "a.txt", []byte("hello\r\nhallo\n"))
	b := writeFile(t, root, "b/b.txt", []byte("world"))
	writeFile(t, root, "c.txt", nil)

	for _, workers := range []int{1, 4} {
		entries, stats, err := Load(context.Background(), root, Options{Workers: workers})
		if err != nil {
			t.Fatalf("Load(workers=%d) error = %v", workers, err)
		}
		want := []Entry{
			{Text: "hello", Source: a},
			{Text: "hallo", Source: a},
			{Text: "world", Source: b},
		}
		if diff := cmp.Diff(want, entries); diff != "" {
			t.Errorf("Load(workers=%d) entries mismatch (-want +got):\n%s", workers, diff)
		}
		if diff := cmp.Diff(&Stats{Files: 3, Lines: 3}, stats); diff != "" {
			t.Errorf("Load(workers=%d) stats mismatch (-want +got):\n%s", workers, diff)
		}
	}
}

func TestLoadManyFilesKeepsWalkOrder(t *testing.T) {
	root := t.TempDir()
	var want []Entry
	for i := 0; i < 40; i++ {
		name := filepath.Join("d", string(rune('a'+i/26)), string(rune('a'+i%26))+".txt")
		path := writeFile(t, root, name, []byte(name+"\nsecond "+name+"\n"))
		want = append(want, Entry{Text: name, Source: path}, Entry{Text: "second " + name, Source: path})
	}

	entries, _, err := Load(context.Background(), root, Options{Workers: 8})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadKeepsLinesVerbatim(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "f", []byte("  padded  \n\n\tx\r\ndup\ndup\n"))

	entries, _, err := Load(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := FromStrings(path, "  padded  ", "", "\tx", "dup", "dup")
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadInvalidUTF8(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "bad.txt", []byte("ok\nbad \xff byte\nok again\n"))

	_, _, err := Load(context.Background(), root, Options{})
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("Load() error = %v, want *DecodeError", err)
	}
	if decErr.Path != path || decErr.Line != 2 {
		t.Errorf("DecodeError = %+v, want path %s line 2", decErr, path)
	}
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("error %v does not wrap ErrInvalidUTF8", err)
	}

	entries, stats, err := Load(context.Background(), root, Options{SkipInvalid: true})
	if err != nil {
		t.Fatalf("Load(SkipInvalid) error = %v", err)
	}
	if diff := cmp.Diff(FromStrings(path, "ok", "ok again"), entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if stats.SkippedLines != 1 {
		t.Errorf("SkippedLines = %d, want 1", stats.SkippedLines)
	}
}

func TestLoadDecodesBOMs(t *testing.T) {
	root := t.TempDir()
	utf8BOM := writeFile(t, root, "a.txt", append([]byte{0xEF, 0xBB, 0xBF}, "héllo\n"...))

	// "hi\nyo" in UTF-16LE with BOM.
	le := []byte{0xFF, 0xFE}
	for _, r := range "hi\nyo" {
		le = append(le, byte(r), 0)
	}
	utf16 := writeFile(t, root, "b.txt", le)

	entries, _, err := Load(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []Entry{
		{Text: "héllo", Source: utf8BOM},
		{Text: "hi", Source: utf16},
		{Text: "yo", Source: utf16},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadNormalize(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "f", []byte("e\u0301\n"))

	entries, _, err := Load(context.Background(), root, Options{Normalize: true})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(FromStrings(path, "\u00e9"), entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingRoot(t *testing.T) {
	_, _, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{})
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("Load() error = %v, want one naming the missing path", err)
	}
}

func TestLoadProgress(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a", []byte("x\n"))
	writeFile(t, root, "b", []byte("y\n"))

	var calls []int
	_, _, err := Load(context.Background(), root, Options{
		Workers:    1,
		OnProgress: func(n int) { calls = append(calls, n) },
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]int{1, 2}, calls); diff != "" {
		t.Errorf("progress calls mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadReadsSymlinkedFiles(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, root, "a.txt", []byte("hallo\n"))
	target := writeFile(t, t.TempDir(), "real.txt", []byte("hello\n"))
	link := filepath.Join(root, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	entries, _, err := Load(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []Entry{{Text: "hallo", Source: a}, {Text: "hello", Source: link}}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("Load() entries mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadExcludesIgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".neardupignore", []byte("# comment\nbuild\n"))
	writeFile(t, root, "build/out.txt", []byte("generated\n"))
	keep := writeFile(t, root, "keep.txt", []byte("kept\n"))

	entries, _, err := Load(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]Entry{{Text: "kept", Source: keep}}, entries); diff != "" {
		t.Errorf("Load() entries mismatch (-want +got):\n%s", diff)
	}
}
