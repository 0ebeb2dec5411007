// Package audit runs a complete near-duplicate scan: it loads the corpus
// under a root directory, compares every pair of lines, sorts the matches and
// optionally records the run in the history database.
package audit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"neardup/internal/logging"
	"neardup/internal/similarity"
	"neardup/internal/store"
)

// DefaultThreshold is the maximum distance used when none is given.
const DefaultThreshold = 5

// ErrNoRoot is returned by Validate when Config.Root is empty.
var ErrNoRoot = errors.New("root directory is required")

// Progress phases passed to ProgressFunc.
const (
	PhaseRead = "Reading files"
	PhaseScan = "Comparing lines"
)

// ProgressFunc observes a phase. total is zero while it is still unknown.
type ProgressFunc func(phase string, done, total int64)

// Config holds the scan configuration.
type Config struct {
	Root      string
	Threshold int
	// Workers bounds both file reading and pair comparison. Zero means one
	// per CPU.
	Workers     int
	Ignore      []string
	SkipInvalid bool
	Normalize   bool
	// DBPath enables run history when set.
	DBPath     string
	OnProgress ProgressFunc
	Logger     logging.Logger
}

// Validate checks the configuration before any work starts.
func (c Config) Validate() error {
	if c.Root == "" {
		return ErrNoRoot
	}
	if c.Threshold < 0 {
		return fmt.Errorf("distance %d: %w", c.Threshold, similarity.ErrNegativeThreshold)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

// Result is the outcome of a successful run.
type Result struct {
	// Matches are sorted by ascending distance.
	Matches []similarity.Match
	Stats   Stats
	// RunID is the history ID, zero when history is disabled.
	RunID int64
}

// Auditor is the public API for running scans.
type Auditor struct {
	store  store.Store
	config Config
	log    logging.Logger
}

// New creates an Auditor. The history database is opened when cfg.DBPath is
// set.
func New(cfg Config) (*Auditor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	a := &Auditor{config: cfg, log: log}
	if cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		s, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = s
	}
	return a, nil
}

// Run scans the configured root. On error no partial result is returned.
func (a *Auditor) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	matches, stats, err := runPipeline(ctx, a.config, a.log)
	if err != nil {
		return nil, err
	}

	res := &Result{Matches: matches, Stats: *stats}
	if a.store != nil {
		id, err := a.store.SaveRun(runRecord(a.config, started, res.Stats), MatchRecords(matches))
		if err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
		res.RunID = id
	}

	a.log.Info("Scan complete",
		"root", a.config.Root,
		"distance", a.config.Threshold,
		"files", stats.Files,
		"lines", stats.Lines,
		"pairs", stats.Pairs,
		"matches", stats.Matches,
		"elapsed", time.Since(started).Round(time.Millisecond).String(),
		"run_id", res.RunID,
	)
	return res, nil
}

// Close releases resources.
func (a *Auditor) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func runRecord(cfg Config, started time.Time, st Stats) store.RunRecord {
	root := cfg.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return store.RunRecord{
		Root:         root,
		Threshold:    cfg.Threshold,
		StartedAt:    started,
		Duration:     st.LoadTime + st.ScanTime,
		Files:        st.Files,
		Lines:        st.Lines,
		SkippedLines: st.SkippedLines,
		Pairs:        st.Pairs,
	}
}

// MatchRecords converts matches into history rows.
func MatchRecords(matches []similarity.Match) []store.MatchRecord {
	out := make([]store.MatchRecord, len(matches))
	for i, m := range matches {
		out[i] = store.MatchRecord{
			Str1:     m.TextA,
			Str2:     m.TextB,
			File1:    m.SourceA,
			File2:    m.SourceB,
			Distance: m.Distance,
		}
	}
	return out
}

// MatchesFromRecords converts history rows back into matches.
func MatchesFromRecords(records []store.MatchRecord) []similarity.Match {
	out := make([]similarity.Match, len(records))
	for i, r := range records {
		out[i] = similarity.Match{
			TextA:    r.Str1,
			TextB:    r.Str2,
			SourceA:  r.File1,
			SourceB:  r.File2,
			Distance: r.Distance,
		}
	}
	return out
}
