package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"neardup/internal/audit"
	"neardup/internal/logging"
	"neardup/internal/report"
	"neardup/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing near-duplicate search tools",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Close()

	s := mcpserver.NewMCPServer("neardup", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(findNearDuplicatesTool(), makeFindHandler(log))
	s.AddTool(listRunsTool(), makeListRunsHandler())
	s.AddTool(getRunTool(), makeGetRunHandler())

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func findNearDuplicatesTool() mcp.Tool {
	return mcp.NewTool("find_near_duplicates",
		mcp.WithDescription("Scan every line of every file under a directory and return the pairs of lines whose Levenshtein distance is at most max_distance, as a JSON array of {str1, str2, file1, file2, distance} sorted by ascending distance."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Directory to scan"),
		),
		mcp.WithNumber("max_distance",
			mcp.Description(fmt.Sprintf("Maximum edit distance (default %d)", audit.DefaultThreshold)),
		),
		mcp.WithBoolean("skip_invalid",
			mcp.Description("Skip lines that are not valid UTF-8 instead of failing"),
		),
	)
}

func listRunsTool() mcp.Tool {
	return mcp.NewTool("list_runs",
		mcp.WithDescription("List scans recorded in the neardup history database, newest first."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of runs to return (default 20)"),
		),
	)
}

func getRunTool() mcp.Tool {
	return mcp.NewTool("get_run",
		mcp.WithDescription("Return the matches of a recorded scan as a JSON report."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Run ID as shown by list_runs"),
		),
	)
}

// --- Handler factories ---

func makeFindHandler(log logging.Logger) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			return mcp.NewToolResultError(fmt.Sprintf("%q is not a readable directory", path)), nil
		}

		a, err := audit.New(audit.Config{
			Root:        path,
			Threshold:   req.GetInt("max_distance", audit.DefaultThreshold),
			SkipInvalid: req.GetBool("skip_invalid", false),
			Logger:      log,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		defer a.Close()

		res, err := a.Run(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
		}

		var buf bytes.Buffer
		if err := report.WriteJSON(&buf, res.Matches); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode report: %v", err)), nil
		}
		return mcp.NewToolResultText(buf.String()), nil
	}
}

func makeListRunsHandler() mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, err := openHistory()
		if err != nil {
			return mcp.NewToolResultText("No runs recorded yet."), nil
		}
		defer st.Close()

		runs, err := st.ListRuns(req.GetInt("limit", 20))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list runs failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatRuns(runs)), nil
	}
}

func makeGetRunHandler() mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetInt("id", 0)
		if id <= 0 {
			return mcp.NewToolResultError("id is required"), nil
		}
		matches, err := loadMatches(fmt.Sprint(id))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		report.Sort(matches)

		var buf bytes.Buffer
		if err := report.WriteJSON(&buf, matches); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode report: %v", err)), nil
		}
		return mcp.NewToolResultText(buf.String()), nil
	}
}

// --- Formatting helpers ---

func formatRuns(runs []store.RunRecord) string {
	if len(runs) == 0 {
		return "No runs recorded yet."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Recorded runs (%d)\n\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(&sb, "- **#%d** %s: `%s`, distance ≤ %d, %d files, %d lines, %d matches (%s)\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Root, r.Threshold,
			r.Files, r.Lines, r.MatchCount, r.Duration)
	}
	return sb.String()
}
