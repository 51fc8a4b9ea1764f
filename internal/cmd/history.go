package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/ygrep/internal/history"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the 'ygrep history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently recorded runs",
		Long: `List the most recent ygrep runs recorded in the history database.

Runs are only recorded when history.enabled is true in the configuration.
Each line shows when the run started, its ID, the exit status, the counters
and the pattern with its paths.`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to show (0 = all)")

	return cmd
}

// runHistory executes the history command
func runHistory(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dbPath, err := cfg.HistoryDBPath()
	if err != nil {
		return fmt.Errorf("failed to get history database path: %w", err)
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(output, "No runs recorded yet\n")
		fmt.Fprintf(output, "Database path: %s\n", dbPath)
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(output, "No runs recorded yet\n")
		return nil
	}

	printRuns(output, runs, useColor(cfg.Color, output))
	return nil
}

// printRuns writes one line per run, most recent first.
func printRuns(w io.Writer, runs []*history.Run, colored bool) {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	dim := color.New(color.FgHiBlack)
	for _, c := range []*color.Color{ok, bad, dim} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	for _, run := range runs {
		status := ok
		if run.ExitCode != 0 {
			status = bad
		}

		id := run.ID
		if len(id) > 8 {
			id = id[:8]
		}

		fmt.Fprintf(w, "%s  %s  %s  files=%d matched=%d matches=%d binary=%d errors=%d  %s  %q %s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			dim.Sprint(id),
			status.Sprintf("exit=%d", run.ExitCode),
			run.Files,
			run.FilesMatched,
			run.Matches,
			run.Binary,
			run.Errors,
			run.Duration,
			run.Pattern,
			strings.Join(run.Paths, " "),
		)
	}
}
