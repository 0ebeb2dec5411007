package corpus

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidUTF8 is wrapped by DecodeError.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// DecodeError reports a line that is not valid UTF-8.
type DecodeError struct {
	Path string
	Line int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, ErrInvalidUTF8)
}

func (e *DecodeError) Unwrap() error { return ErrInvalidUTF8 }

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// textReader returns a reader producing UTF-8 for r. A UTF-8 BOM is dropped
// and BOM-marked UTF-16 is transcoded; everything else passes through as is.
func textReader(r io.Reader) (io.Reader, string, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(3)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, "", err
	}

	switch {
	case bytes.HasPrefix(head, bomUTF8):
		if _, err := br.Discard(len(bomUTF8)); err != nil {
			return nil, "", err
		}
		return br, "utf-8-bom", nil
	case bytes.HasPrefix(head, bomUTF16LE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		return transform.NewReader(br, dec), "utf-16le", nil
	case bytes.HasPrefix(head, bomUTF16BE):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		return transform.NewReader(br, dec), "utf-16be", nil
	}
	return br, "utf-8", nil
}

// lineOptions controls readLines.
type lineOptions struct {
	skipInvalid bool
	normalize   bool
}

// readLines splits r into lines with "\n" or "\r\n" endings removed. A final
// line without a terminator is kept; an empty trailing segment is not.
// It returns the lines and the number of lines skipped as invalid.
func readLines(r io.Reader, path string, opts lineOptions) ([]string, int, error) {
	br := bufio.NewReader(r)
	var lines []string
	skipped := 0
	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			lineNo++
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			switch {
			case !utf8.ValidString(line):
				if !opts.skipInvalid {
					return nil, skipped, &DecodeError{Path: path, Line: lineNo}
				}
				skipped++
			case opts.normalize:
				lines = append(lines, norm.NFC.String(line))
			default:
				lines = append(lines, line)
			}
		}
		if errors.Is(err, io.EOF) {
			return lines, skipped, nil
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("read %s: %w", path, err)
		}
	}
}
