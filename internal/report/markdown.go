package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"neardup/internal/similarity"
)

// Markdown builds a markdown table of the matches.
func Markdown(matches []similarity.Match) string {
	var sb strings.Builder
	sb.WriteString("# " + consoleBanner + "\n\n")
	if len(matches) == 0 {
		sb.WriteString("No similar lines found.\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "%d similar pairs.\n\n", len(matches))
	sb.WriteString("| Distance | Line | Source | Line | Source |\n")
	sb.WriteString("|---:|---|---|---|---|\n")
	for _, m := range matches {
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s |\n",
			m.Distance, cell(m.TextA), cell(m.SourceA), cell(m.TextB), cell(m.SourceB))
	}
	return sb.String()
}

// cell makes text safe inside a table cell.
func cell(s string) string {
	if s == "" {
		return "*(empty)*"
	}
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "`", "'")
	return "`" + s + "`"
}

// MarkdownOptions configures WriteMarkdown.
type MarkdownOptions struct {
	// Style is a glamour standard style such as "dark", "light" or "notty".
	// Empty writes the raw markdown.
	Style    string
	WordWrap int
}

// WriteMarkdown writes the markdown table, rendered by glamour when a style
// is set.
func WriteMarkdown(w io.Writer, matches []similarity.Match, opts MarkdownOptions) error {
	md := Markdown(matches)
	if opts.Style == "" {
		_, err := io.WriteString(w, md)
		return err
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(opts.Style),
		glamour.WithWordWrap(opts.WordWrap),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
