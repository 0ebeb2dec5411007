package store

import "time"

// RunRecord describes one completed scan.
type RunRecord struct {
	ID           int64
	Root         string
	Threshold    int
	StartedAt    time.Time
	Duration     time.Duration
	Files        int
	Lines        int
	SkippedLines int
	Pairs        int64
	MatchCount   int
}

// MatchRecord is one stored near-duplicate pair.
type MatchRecord struct {
	ID       int64
	RunID    int64
	Str1     string
	Str2     string
	File1    string
	File2    string
	Distance int
}
