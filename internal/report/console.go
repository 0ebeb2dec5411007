package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"

	"neardup/internal/similarity"
)

const (
	consoleBanner     = "Levenshtein Distance Report"
	consoleTerminator = "End of Report"
)

// Palette styles the console report. The zero value renders plain text.
type Palette struct {
	Enabled  bool
	Heading  lipgloss.Style
	TextA    lipgloss.Style
	TextB    lipgloss.Style
	Distance lipgloss.Style
	Deleted  lipgloss.Style
	Inserted lipgloss.Style
	Dim      lipgloss.Style
}

// ColorPalette mirrors the classic report colors: first line red, second
// line blue, distance green, all bold.
func ColorPalette() Palette {
	base := lipgloss.NewStyle().TabWidth(lipgloss.NoTabConversion)
	return Palette{
		Enabled:  true,
		Heading:  base.Bold(true).Underline(true),
		TextA:    base.Bold(true).Foreground(lipgloss.Color("1")),
		TextB:    base.Bold(true).Foreground(lipgloss.Color("4")),
		Distance: base.Bold(true).Foreground(lipgloss.Color("2")),
		Deleted:  base.Foreground(lipgloss.Color("1")).Strikethrough(true),
		Inserted: base.Foreground(lipgloss.Color("2")).Underline(true),
		Dim:      base.Foreground(lipgloss.Color("241")),
	}
}

func (p Palette) render(s lipgloss.Style, text string) string {
	if !p.Enabled {
		return text
	}
	return s.Render(text)
}

// ConsoleOptions configures WriteConsole.
type ConsoleOptions struct {
	Palette Palette
	// Explain adds a character diff under every match.
	Explain bool
}

// WriteConsole writes the banner, one line per match and the terminator.
func WriteConsole(w io.Writer, matches []similarity.Match, opts ConsoleOptions) error {
	bw := bufio.NewWriter(w)
	p := opts.Palette

	fmt.Fprintln(bw, p.render(p.Heading, consoleBanner))
	for _, m := range matches {
		fmt.Fprintf(bw, "Similar: %s (from %s) <-> %s (from %s) : %s\n",
			p.render(p.TextA, m.TextA),
			m.SourceA,
			p.render(p.TextB, m.TextB),
			m.SourceB,
			p.render(p.Distance, strconv.Itoa(m.Distance)),
		)
		if opts.Explain {
			fmt.Fprintf(bw, "    %s %s\n", p.render(p.Dim, "diff:"), Explain(m.TextA, m.TextB, p))
		}
	}
	fmt.Fprintln(bw, p.render(p.Heading, consoleTerminator))
	return bw.Flush()
}

// Explain renders the character edits turning a into b. Without colors,
// deletions are shown as [-text-] and insertions as {+text+}.
func Explain(a, b string, p Palette) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			sb.WriteString(d.Text)
		case diffmatchpatch.DiffDelete:
			if p.Enabled {
				sb.WriteString(p.Deleted.Render(d.Text))
			} else {
				sb.WriteString("[-" + d.Text + "-]")
			}
		case diffmatchpatch.DiffInsert:
			if p.Enabled {
				sb.WriteString(p.Inserted.Render(d.Text))
			} else {
				sb.WriteString("{+" + d.Text + "+}")
			}
		}
	}
	return sb.String()
}
