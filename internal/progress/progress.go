// Package progress draws a terminal progress bar for the phases of a scan.
package progress

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Options configures a Bar.
type Options struct {
	// Throttle limits how often the bar is redrawn.
	Throttle time.Duration
	Width    int
}

// DefaultOptions suits an interactive terminal.
func DefaultOptions() Options {
	return Options{Throttle: 65 * time.Millisecond, Width: 40}
}

// Bar shows one progress bar per phase. A new phase finishes the previous
// bar and starts a fresh one. Bar is safe for concurrent use.
type Bar struct {
	mu    sync.Mutex
	w     io.Writer
	opts  Options
	phase string
	bar   *progressbar.ProgressBar
}

// New creates a Bar writing to w.
func New(w io.Writer, opts Options) *Bar {
	return &Bar{w: w, opts: opts}
}

// Update reports progress for a phase. A total <= 0 means unknown and
// renders a spinner.
func (b *Bar) Update(phase string, done, total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil || phase != b.phase {
		if b.bar != nil {
			_ = b.bar.Finish()
		}
		b.phase = phase
		b.bar = b.newBar(phase, total)
	}
	if total > 0 && b.bar.GetMax64() != total {
		b.bar.ChangeMax64(total)
	}
	_ = b.bar.Set64(done)
}

// Finish completes the current bar, if any.
func (b *Bar) Finish() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar == nil {
		return nil
	}
	err := b.bar.Finish()
	b.bar = nil
	b.phase = ""
	return err
}

func (b *Bar) newBar(phase string, total int64) *progressbar.ProgressBar {
	limit := total
	if limit <= 0 {
		limit = -1
	}
	return progressbar.NewOptions64(limit,
		progressbar.OptionSetWriter(b.w),
		progressbar.OptionSetDescription(phase),
		progressbar.OptionSetWidth(b.opts.Width),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(b.opts.Throttle),
		progressbar.OptionSetPredictTime(total > 0),
		progressbar.OptionClearOnFinish(),
	)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
