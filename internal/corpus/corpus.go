// Package corpus loads every line of every file under a directory into an
// ordered slice of entries.
package corpus

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"neardup/internal/logging"
	"neardup/internal/walker"
)

// Entry is one line of text and the file it came from.
type Entry struct {
	Text   string
	Source string
}

// Stats reports loading results.
type Stats struct {
	Files        int
	Lines        int
	SkippedLines int
}

// ProgressFunc is called after each file is read.
type ProgressFunc func(filesRead int)

// Options configures Load.
type Options struct {
	Workers int
	Ignore  []string
	// SkipInvalid drops lines that are not valid UTF-8 instead of failing.
	SkipInvalid bool
	// Normalize converts every line to Unicode NFC.
	Normalize  bool
	OnProgress ProgressFunc
	Logger     logging.Logger
}

// fileLines is the decoded content of one file.
type fileLines struct {
	seq     int
	path    string
	lines   []string
	skipped int
}

// Load walks root and returns one Entry per line, ordered by walk order and
// then by line number. Files are read in parallel. Any read or decode error
// aborts the load.
func Load(ctx context.Context, root string, opts Options) ([]Entry, *Stats, error) {
	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	g, ctx := errgroup.WithContext(ctx)

	// Stage 1: Walk
	fileCh, walkErrCh := walker.Walk(ctx, root, walker.Options{Ignore: opts.Ignore})

	// Stage 2: Read + decode (N workers)
	var mu sync.Mutex
	byseq := make(map[int]fileLines)
	var filesRead atomic.Int64
	for range numWorkers {
		g.Go(func() error {
			for fi := range fileCh {
				fl, err := readFile(fi, opts, log)
				if err != nil {
					return err
				}
				if fl.skipped > 0 {
					log.Warn("Skipped lines with invalid UTF-8", "file", fi.Path, "count", fl.skipped)
				}
				mu.Lock()
				byseq[fi.Seq] = fl
				mu.Unlock()

				n := filesRead.Add(1)
				if opts.OnProgress != nil {
					opts.OnProgress(int(n))
				}
			}
			return nil
		})
	}

	err := g.Wait()
	// Drain so the walker goroutine can finish after a worker failure.
	for range fileCh {
	}
	walkErr := <-walkErrCh
	if err != nil {
		return nil, nil, err
	}
	if walkErr != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	var stats Stats
	var entries []Entry
	for seq := 0; seq < len(byseq); seq++ {
		fl, ok := byseq[seq]
		if !ok {
			return nil, nil, fmt.Errorf("walk %s: missing file #%d", root, seq)
		}
		stats.Files++
		stats.SkippedLines += fl.skipped
		for _, line := range fl.lines {
			entries = append(entries, Entry{Text: line, Source: fl.path})
		}
	}
	stats.Lines = len(entries)

	log.Debug("Corpus loaded",
		"root", root,
		"files", stats.Files,
		"lines", stats.Lines,
		"skipped_lines", stats.SkippedLines,
	)
	return entries, &stats, nil
}

func readFile(fi walker.FileInfo, opts Options, log logging.Logger) (fileLines, error) {
	f, err := os.Open(fi.Path)
	if err != nil {
		return fileLines{}, err
	}
	defer f.Close()

	r, encoding, err := textReader(f)
	if err != nil {
		return fileLines{}, fmt.Errorf("read %s: %w", fi.Path, err)
	}
	if encoding != "utf-8" {
		log.Debug("Decoding file", "file", fi.Path, "encoding", encoding)
	}
	lines, skipped, err := readLines(r, fi.Path, lineOptions{
		skipInvalid: opts.SkipInvalid,
		normalize:   opts.Normalize,
	})
	if err != nil {
		return fileLines{}, err
	}
	return fileLines{seq: fi.Seq, path: fi.Path, lines: lines, skipped: skipped}, nil
}

// FromStrings builds entries from in-memory lines sharing one source.
func FromStrings(source string, lines ...string) []Entry {
	entries := make([]Entry, len(lines))
	for i, line := range lines {
		entries[i] = Entry{Text: line, Source: source}
	}
	return entries
}
