// Package report sorts scan matches and renders them as console text, a JSON
// report file or markdown.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"neardup/internal/similarity"
)

// Format selects a rendering.
type Format string

const (
	FormatConsole  Format = "console"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatConsole, FormatJSON, FormatMarkdown:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q (want console, json or markdown)", s)
}

// Record is the JSON shape of one match. Field names are fixed for existing
// consumers of the report files.
type Record struct {
	Str1     string `json:"str1"`
	Str2     string `json:"str2"`
	File1    string `json:"file1"`
	File2    string `json:"file2"`
	Distance int    `json:"distance"`
}

// Sort orders matches by ascending distance. Equal distances keep their
// relative order.
func Sort(matches []similarity.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
}

// Records converts matches to their JSON shape. The result is never nil.
func Records(matches []similarity.Match) []Record {
	records := make([]Record, len(matches))
	for i, m := range matches {
		records[i] = Record{
			Str1:     m.TextA,
			Str2:     m.TextB,
			File1:    m.SourceA,
			File2:    m.SourceB,
			Distance: m.Distance,
		}
	}
	return records
}

// WriteJSON writes matches as a compact JSON array.
func WriteJSON(w io.Writer, matches []similarity.Match) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(Records(matches))
}

// FileName returns the report file name for a run started at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("levenshtein_report_%d.json", t.Unix())
}

// WriteJSONFile writes the report into dir under FileName(now) and returns
// its path. The file only appears once it has been fully written.
func WriteJSONFile(dir string, matches []similarity.Match, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, FileName(now))

	tmp, err := os.CreateTemp(dir, ".levenshtein_report_*.tmp")
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return "", fmt.Errorf("create report file: %w", err)
	}
	if err := WriteJSON(tmp, matches); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write report file %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write report file %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("write report file %s: %w", path, err)
	}
	return path, nil
}

// ReadJSON decodes a report written by WriteJSON.
func ReadJSON(r io.Reader) ([]similarity.Match, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	matches := make([]similarity.Match, len(records))
	for i, rec := range records {
		matches[i] = similarity.Match{
			TextA:    rec.Str1,
			TextB:    rec.Str2,
			SourceA:  rec.File1,
			SourceB:  rec.File2,
			Distance: rec.Distance,
		}
	}
	return matches, nil
}
