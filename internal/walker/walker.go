package walker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFile is read from the walk root when present.
const IgnoreFile = ".neardupignore"

// FileInfo holds metadata about a discovered file.
type FileInfo struct {
	// Seq is the position of the file in walk order, starting at 0.
	Seq     int
	Path    string
	RelPath string
	Size    int64
}

// Options controls which files Walk emits.
type Options struct {
	// Ignore holds extra patterns on top of the root's ignore file.
	Ignore []string
}

// Walk traverses the directory tree rooted at root and sends every regular
// file on the returned channel in lexical walk order. Directories and files
// matching an ignore pattern are skipped, as are symlinks. Any filesystem
// error stops the walk and is reported on the error channel.
func Walk(ctx context.Context, root string, opts Options) (<-chan FileInfo, <-chan error) {
	files := make(chan FileInfo, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		info, err := os.Stat(root)
		if err != nil {
			errs <- err
			return
		}
		if !info.IsDir() {
			errs <- fmt.Errorf("%s: not a directory", root)
			return
		}

		ignores, err := loadIgnorePatterns(root)
		if err != nil {
			errs <- err
			return
		}
		ignores = append(ignores, opts.Ignore...)

		seq := 0
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if path == root {
				return nil
			}

			rel, _ := filepath.Rel(root, path)
			rel = filepath.ToSlash(rel)
			if rel == IgnoreFile {
				return nil
			}
			if matchesIgnore(d.Name(), rel, ignores) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			fi, err := regularFile(path, d)
			if err != nil {
				return err
			}
			if fi == nil {
				return nil
			}

			select {
			case files <- FileInfo{Seq: seq, Path: path, RelPath: rel, Size: fi.Size()}:
				seq++
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errs <- err
		}
	}()

	return files, errs
}

// regularFile returns the info of a regular file, following a symlink that
// points at one. Links to directories, dangling links and other non-regular
// files yield nil. WalkDir never descends into a linked directory.
func regularFile(path string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			return nil, nil
		}
		return fi, nil
	}
	if !d.Type().IsRegular() {
		return nil, nil
	}
	return d.Info()
}

// loadIgnorePatterns reads IgnoreFile from the root. A missing file means no
// patterns.
func loadIgnorePatterns(root string) ([]string, error) {
	f, err := os.Open(filepath.Join(root, IgnoreFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", IgnoreFile, err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}

// matchesIgnore checks if a name or relative path matches any ignore pattern.
func matchesIgnore(name, relPath string, patterns []string) bool {
	for _, p := range patterns {
		// Exact name match (e.g. ".git").
		if name == p {
			return true
		}
		// Path prefix match (e.g. "third_party/vendor").
		if relPath == p || strings.HasPrefix(relPath, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
		// Glob match against the relative path or the name.
		if matched, _ := filepath.Match(p, relPath); matched {
			return true
		}
		if matched, _ := filepath.Match(p, name); matched {
			return true
		}
	}
	return false
}
