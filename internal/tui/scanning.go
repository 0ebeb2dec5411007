package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"neardup/internal/audit"
)

type scanningModel struct {
	spinner  spinner.Model
	bar      progress.Model
	phase    string
	done     int64
	total    int64
	started  time.Time
	finished bool
}

func newScanningModel() scanningModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return scanningModel{
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		phase:   audit.PhaseRead,
		started: time.Now(),
	}
}

// scanDoneMsg is sent when the audit finishes.
type scanDoneMsg struct {
	result *audit.Result
	err    error
}

// scanProgressMsg is sent while the audit runs.
type scanProgressMsg struct {
	phase string
	done  int64
	total int64
}

func runScan(ctx context.Context, cfg audit.Config) tea.Cmd {
	return func() tea.Msg {
		a, err := audit.New(cfg)
		if err != nil {
			return scanDoneMsg{err: err}
		}
		defer a.Close()

		res, err := a.Run(ctx)
		return scanDoneMsg{result: res, err: err}
	}
}

func (m scanningModel) Update(msg tea.Msg) (scanningModel, tea.Cmd) {
	switch msg := msg.(type) {
	case scanDoneMsg:
		m.finished = true
		return m, nil
	case scanProgressMsg:
		m.phase = msg.phase
		m.done = msg.done
		m.total = msg.total
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m scanningModel) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

func (m scanningModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  Scanning") + "\n\n"

	s += fmt.Sprintf("  %s %s\n", m.spinner.View(), m.phase)
	switch {
	case m.phase == audit.PhaseScan && m.total > 0:
		s += "  " + m.bar.ViewAs(m.percent()) + "\n"
		s += fmt.Sprintf("  %d / %d pairs compared\n", m.done, m.total)
	case m.done > 0:
		s += fmt.Sprintf("  %d files read\n", m.done)
	}
	s += "\n"
	s += dimStyle.Render(fmt.Sprintf("  Elapsed %s • q to cancel", time.Since(m.started).Round(time.Second))) + "\n"
	return s
}
