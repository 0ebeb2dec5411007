package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"neardup/internal/audit"
	"neardup/internal/report"
)

// visibleRows is used until the terminal reports its size.
const visibleRows = 10

type resultsModel struct {
	result  *audit.Result
	palette report.Palette
	cursor  int
	offset  int
}

func newResultsModel(res *audit.Result) resultsModel {
	p := report.ColorPalette()
	p.TextA = selectedStyle
	p.TextB = listItemStyle
	return resultsModel{result: res, palette: p}
}

func (m resultsModel) Update(msg tea.Msg, height int) (resultsModel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || m.result == nil {
		return m, nil
	}
	n := len(m.result.Matches)
	rows := rowsFor(height)
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < n-1 {
			m.cursor++
		}
	case "pgup":
		m.cursor = max(m.cursor-rows, 0)
	case "pgdown":
		m.cursor = max(min(m.cursor+rows, n-1), 0)
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(n-1, 0)
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	return m, nil
}

// rowsFor returns how many matches fit next to the header and detail pane.
func rowsFor(height int) int {
	if height <= 0 {
		return visibleRows
	}
	return max(height-12, 3)
}

func (m resultsModel) selected() (int, bool) {
	if m.result == nil || len(m.result.Matches) == 0 {
		return 0, false
	}
	return m.cursor, true
}

func (m resultsModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  Levenshtein Distance Report") + "\n"
	if m.result == nil {
		return s
	}
	st := m.result.Stats
	s += subtitleStyle.Render(fmt.Sprintf("  %d files • %d lines • %d pairs • %s",
		st.Files, st.Lines, st.Pairs, (st.LoadTime+st.ScanTime).Round(time.Millisecond))) + "\n\n"

	if len(m.result.Matches) == 0 {
		s += successStyle.Render("  ✓ No similar lines found") + "\n\n"
		s += helpStyle.Render("  Enter/q quit") + "\n"
		return s
	}
	if st.SkippedLines > 0 {
		s += warnStyle.Render(fmt.Sprintf("  %d lines skipped (invalid UTF-8)", st.SkippedLines)) + "\n\n"
	}

	rows := rowsFor(height)
	end := min(m.offset+rows, len(m.result.Matches))
	for i := m.offset; i < end; i++ {
		mt := m.result.Matches[i]
		cursor := "  "
		style := listItemStyle
		if i == m.cursor {
			cursor = "▸ "
			style = selectedStyle
		}
		line := fmt.Sprintf("%q <-> %q", truncate(mt.TextA, width/3), truncate(mt.TextB, width/3))
		s += fmt.Sprintf("  %s%s %s\n", cursor, distanceStyle.Render(fmt.Sprintf("%3d", mt.Distance)), style.Render(line))
	}

	if i, ok := m.selected(); ok {
		mt := m.result.Matches[i]
		s += "\n"
		s += dimStyle.Render(fmt.Sprintf("  %s <-> %s", mt.SourceA, mt.SourceB)) + "\n"
		s += "  " + report.Explain(mt.TextA, mt.TextB, m.palette) + "\n"
	}

	s += "\n"
	s += helpStyle.Render(fmt.Sprintf("  %d/%d • ↑/↓ navigate • Enter/q quit", m.cursor+1, len(m.result.Matches))) + "\n"
	return s
}

func truncate(s string, n int) string {
	if n < 8 {
		n = 40
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
