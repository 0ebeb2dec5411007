package tui

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"neardup/internal/audit"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewScanning ViewState = iota
	ViewResults
)

// progressInterval throttles progress messages sent to the program.
const progressInterval = 50 * time.Millisecond

// programRef is an indirect pointer to the tea.Program so background goroutines
// can send messages. It must be set after tea.NewProgram returns but before Run.
type programRef struct {
	p *tea.Program
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	ctx    context.Context
	cancel context.CancelFunc
	config audit.Config
	width  int
	height int

	scanning scanningModel
	results  resultsModel
	result   *audit.Result
	err      error
}

func newModel(ctx context.Context, cancel context.CancelFunc, cfg audit.Config) Model {
	return Model{
		state:    ViewScanning,
		ctx:      ctx,
		cancel:   cancel,
		config:   cfg,
		scanning: newScanningModel(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.scanning.spinner.Tick, runScan(m.ctx, m.config))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.state == ViewScanning {
				m.cancel()
				m.err = context.Canceled
			}
			return m, tea.Quit
		case "enter":
			if m.state == ViewResults {
				return m, tea.Quit
			}
		}

	case scanDoneMsg:
		m.scanning, _ = m.scanning.Update(msg)
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.result = msg.result
		m.results = newResultsModel(msg.result)
		m.state = ViewResults
		return m, nil
	}

	var cmd tea.Cmd
	switch m.state {
	case ViewScanning:
		m.scanning, cmd = m.scanning.Update(msg)
	case ViewResults:
		m.results, cmd = m.results.Update(msg, m.height)
	}
	return m, cmd
}

func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}

	switch m.state {
	case ViewScanning:
		return m.scanning.View(m.width, m.height)
	case ViewResults:
		return m.results.View(m.width, m.height)
	}
	return ""
}

// Run executes the audit behind an interactive progress screen and lets the
// user browse the matches afterwards. The screen is drawn on stderr so the
// report can still be written to stdout.
func Run(ctx context.Context, cfg audit.Config) (*audit.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ref := &programRef{}
	var mu sync.Mutex
	var last time.Time
	cfg.OnProgress = func(phase string, done, total int64) {
		mu.Lock()
		now := time.Now()
		skip := now.Sub(last) < progressInterval && (total <= 0 || done < total)
		if !skip {
			last = now
		}
		mu.Unlock()
		if skip || ref.p == nil {
			return
		}
		ref.p.Send(scanProgressMsg{phase: phase, done: done, total: total})
	}

	p := tea.NewProgram(newModel(ctx, cancel, cfg), tea.WithAltScreen(), tea.WithOutput(os.Stderr))
	ref.p = p
	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	m, ok := final.(Model)
	if !ok {
		return nil, errors.New("unexpected model type")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}
