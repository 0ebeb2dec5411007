package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"neardup/internal/audit"
	"neardup/internal/progress"
	"neardup/internal/report"
	"neardup/internal/similarity"
	"neardup/internal/tui"
)

var (
	flagPath        string
	flagDistance    int
	flagJSON        bool
	flagFormat      string
	flagOutDir      string
	flagWorkers     int
	flagIgnore      []string
	flagSkipInvalid bool
	flagNormalize   bool
	flagExplain     bool
	flagNoColor     bool
	flagTUI         bool
	flagNoProgress  bool
	flagHistory     bool
)

func runScan(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	if flagJSON {
		format = report.FormatJSON
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Close()

	cfg := audit.Config{
		Root:        flagPath,
		Threshold:   flagDistance,
		Workers:     flagWorkers,
		Ignore:      flagIgnore,
		SkipInvalid: flagSkipInvalid,
		Normalize:   flagNormalize,
		Logger:      log,
	}
	if flagHistory || flagDB != "" {
		if cfg.DBPath, err = dbPath(); err != nil {
			return fmt.Errorf("resolve history database: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	stderr := cmd.ErrOrStderr()
	var res *audit.Result
	if flagTUI {
		res, err = tui.Run(ctx, cfg)
	} else {
		fmt.Fprintf(stderr, "Processing files in directory: %s\n", flagPath)
		res, err = runPlain(ctx, cfg, stderr)
	}
	if err != nil {
		return err
	}
	if res.RunID != 0 {
		log.Info("Run recorded", "run_id", res.RunID, "db", cfg.DBPath)
	}

	return writeReport(cmd.OutOrStdout(), res.Matches, format)
}

// runPlain runs the audit with a progress bar on stderr when it is a terminal.
func runPlain(ctx context.Context, cfg audit.Config, stderr io.Writer) (*audit.Result, error) {
	var bar *progress.Bar
	if !flagNoProgress && progress.IsTerminal(stderr) {
		bar = progress.New(stderr, progress.DefaultOptions())
		cfg.OnProgress = bar.Update
	}

	a, err := audit.New(cfg)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	res, err := a.Run(ctx)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		var panicErr *similarity.WorkerPanicError
		if errors.As(err, &panicErr) {
			cfg.Logger.Error("Scan worker panicked", "entry", panicErr.Index, "stack", string(panicErr.Stack))
		}
		return nil, err
	}
	fmt.Fprintf(stderr, "Compared %d pairs from %d lines in %d files in %s\n",
		res.Stats.Pairs, res.Stats.Lines, res.Stats.Files,
		(res.Stats.LoadTime + res.Stats.ScanTime).Round(time.Millisecond))
	return res, nil
}

// writeReport renders sorted matches to w in the requested format. JSON is
// written to a timestamped file in --out-dir.
func writeReport(w io.Writer, matches []similarity.Match, format report.Format) error {
	terminal := progress.IsTerminal(w)
	switch format {
	case report.FormatJSON:
		path, err := report.WriteJSONFile(flagOutDir, matches, time.Now())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "Report saved as %s\n", path)
		return err
	case report.FormatMarkdown:
		opts := report.MarkdownOptions{WordWrap: 120}
		if terminal && !flagNoColor {
			opts.Style = "auto"
		}
		return report.WriteMarkdown(w, matches, opts)
	default:
		opts := report.ConsoleOptions{Explain: flagExplain}
		if terminal && !flagNoColor {
			opts.Palette = report.ColorPalette()
		}
		return report.WriteConsole(w, matches, opts)
	}
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&flagPath, "path", "p", "", "directory to process")
	f.IntVarP(&flagDistance, "distance", "d", audit.DefaultThreshold, "maximum Levenshtein distance")
	f.BoolVarP(&flagJSON, "json", "j", false, "write the report to a JSON file (same as --format json)")
	f.StringVar(&flagFormat, "format", string(report.FormatConsole), "report format: console, json, markdown")
	f.StringVar(&flagOutDir, "out-dir", ".", "directory for the JSON report")
	f.IntVar(&flagWorkers, "workers", runtime.NumCPU(), "parallel workers")
	f.StringSliceVar(&flagIgnore, "ignore", nil, "skip files and directories matching a glob (repeatable)")
	f.BoolVar(&flagSkipInvalid, "skip-invalid", false, "skip lines that are not valid UTF-8 instead of failing")
	f.BoolVar(&flagNormalize, "normalize", false, "compare lines in Unicode NFC form")
	f.BoolVar(&flagExplain, "explain", false, "show a character diff under each console match")
	f.BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	f.BoolVar(&flagTUI, "tui", false, "show an interactive progress screen and browse the matches")
	f.BoolVar(&flagNoProgress, "no-progress", false, "disable the progress bar")
	f.BoolVar(&flagHistory, "history", false, "record the run in the history database")
	rootCmd.MarkFlagRequired("path")
}
