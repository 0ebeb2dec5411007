package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"neardup/internal/audit"
	"neardup/internal/report"
	"neardup/internal/similarity"
	"neardup/internal/store"
)

var flagLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded scan runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openHistory()
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(flagLimit)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded. Scan with --history to record one.")
			return nil
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "STARTED", "ROOT", "DISTANCE", "FILES", "LINES", "MATCHES", "TOOK")
		for _, r := range runs {
			t.Row(
				strconv.FormatInt(r.ID, 10),
				r.StartedAt.Local().Format(time.DateTime),
				r.Root,
				strconv.Itoa(r.Threshold),
				strconv.Itoa(r.Files),
				strconv.Itoa(r.Lines),
				strconv.Itoa(r.MatchCount),
				r.Duration.String(),
			)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <run-id>",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run ID %q", args[0])
		}
		st, err := openHistory()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteRun(id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %d\n", id)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <run-id | report.json>",
	Short: "Render a recorded run or a saved JSON report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(flagFormat)
		if err != nil {
			return err
		}
		matches, err := loadMatches(args[0])
		if err != nil {
			return err
		}
		report.Sort(matches)
		return writeReport(cmd.OutOrStdout(), matches, format)
	},
}

// loadMatches reads matches from the history database when ref is a run ID
// and from a JSON report file otherwise.
func loadMatches(ref string) ([]similarity.Match, error) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		f, err := os.Open(ref)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		matches, err := report.ReadJSON(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ref, err)
		}
		return matches, nil
	}

	st, err := openHistory()
	if err != nil {
		return nil, err
	}
	defer st.Close()
	if _, err := st.GetRun(id); err != nil {
		return nil, err
	}
	records, err := st.Matches(id)
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	return audit.MatchesFromRecords(records), nil
}

// openHistory opens an existing history database.
func openHistory() (*store.SQLiteStore, error) {
	path, err := dbPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no history at %s\nRun 'neardup -p <dir> --history' first", path)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return st, nil
}

func init() {
	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum runs to list (0 = all)")
	historyCmd.AddCommand(historyRmCmd)

	showCmd.Flags().StringVar(&flagFormat, "format", string(report.FormatConsole), "report format: console, json, markdown")
	showCmd.Flags().StringVar(&flagOutDir, "out-dir", ".", "directory for the JSON report")
	showCmd.Flags().BoolVar(&flagExplain, "explain", false, "show a character diff under each console match")
	showCmd.Flags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
}
