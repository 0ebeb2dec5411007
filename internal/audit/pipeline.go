package audit

import (
	"context"
	"time"

	"neardup/internal/corpus"
	"neardup/internal/logging"
	"neardup/internal/report"
	"neardup/internal/similarity"
)

// Stats reports scan results.
type Stats struct {
	Files        int
	Lines        int
	SkippedLines int
	Pairs        int64
	Matches      int
	LoadTime     time.Duration
	ScanTime     time.Duration
}

func runPipeline(ctx context.Context, cfg Config, log logging.Logger) ([]similarity.Match, *Stats, error) {
	progress := cfg.OnProgress
	if progress == nil {
		progress = func(string, int64, int64) {}
	}

	// Stage 1: Walk + read
	start := time.Now()
	entries, cs, err := corpus.Load(ctx, cfg.Root, corpus.Options{
		Workers:     cfg.Workers,
		Ignore:      cfg.Ignore,
		SkipInvalid: cfg.SkipInvalid,
		Normalize:   cfg.Normalize,
		Logger:      log,
		OnProgress: func(filesRead int) {
			progress(PhaseRead, int64(filesRead), 0)
		},
	})
	if err != nil {
		return nil, nil, err
	}
	stats := Stats{
		Files:        cs.Files,
		Lines:        cs.Lines,
		SkippedLines: cs.SkippedLines,
		Pairs:        similarity.PairCount(len(entries)),
		LoadTime:     time.Since(start),
	}
	progress(PhaseRead, int64(cs.Files), int64(cs.Files))

	// Stage 2: Compare all pairs
	start = time.Now()
	matches, err := similarity.Scan(ctx, entries, cfg.Threshold,
		similarity.WithWorkers(cfg.Workers),
		similarity.WithLogger(log),
		similarity.WithProgress(func(done, total int64) {
			progress(PhaseScan, done, total)
		}),
	)
	if err != nil {
		return nil, nil, err
	}
	stats.ScanTime = time.Since(start)

	// Stage 3: Sort
	report.Sort(matches)
	stats.Matches = len(matches)
	return matches, &stats, nil
}
