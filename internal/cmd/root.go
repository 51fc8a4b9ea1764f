package cmd

import (
	"errors"
	"fmt"

	"github.com/harrison/ygrep/internal/config"
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// ErrHadErrors is returned when the search completed but at least one path could
// not be searched. main maps it to exit status 2 without printing it again.
var ErrHadErrors = errors.New("some paths could not be searched")

// NewRootCommand creates and returns the root cobra command for ygrep
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ygrep [flags] PATTERN [PATH...]",
		Short: "Search files for lines matching a regular expression",
		Long: `ygrep recursively searches each PATH for lines matching PATTERN.

Directories are walked depth-first with bounded memory. Every matching file
is printed once as a header, followed by "<line>:<text>" for each matching
line. A file containing a NUL byte is reported as binary and not printed.

A PATH of "-" reads standard input. With no PATH the current directory is
searched. Paths that cannot be read are reported on stderr and skipped.

Configuration is loaded from .ygrep/config.yaml if present, otherwise from
config.yaml in $YGREP_HOME (default ~/.ygrep). CLI flags override configuration
file settings.

Exit status: 0 when the search completed, 2 when some paths could not be
searched, 1 on a fatal error such as an invalid pattern or unwritable output.

Examples:
  ygrep 'func \w+' ./internal
  ygrep -i todo src docs
  ygrep -e history .              # pattern that looks like a subcommand
  ygrep --json --output hits.jsonl error /var/log
  cat notes.txt | ygrep idea -`,
		Version: Version,
		Args:    cobra.ArbitraryArgs,
		RunE:    runSearch,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		// main prints errors itself so ErrHadErrors can stay quiet
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .ygrep/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Diagnostic verbosity: trace, debug, info, warn, error")
	cmd.PersistentFlags().String("color", "", "Colorize output: auto, always, never")

	cmd.Flags().StringP("regexp", "e", "", "Use PATTERN as the pattern; all arguments are then paths")
	cmd.Flags().BoolP("ignore-case", "i", false, "Match case-insensitively")
	cmd.Flags().Bool("no-follow", false, "Do not follow symlinks found while walking directories")
	cmd.Flags().Bool("json", false, "Print results as JSON lines")
	cmd.Flags().Bool("stats", false, "Print a summary of the run to stderr")
	cmd.Flags().StringP("output", "o", "", "Write results to FILE atomically instead of stdout")
	cmd.Flags().Int("buffer-size", 0, "Read buffer size in bytes (0 = default)")

	cmd.AddCommand(NewHistoryCommand())

	return cmd
}

// loadConfig loads the configuration named by --config, or the default
// locations, and applies the flags shared by every command.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadDefaultConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var colorPtr, logLevelPtr *string
	if cmd.Flags().Changed("color") {
		v, _ := cmd.Flags().GetString("color")
		colorPtr = &v
	}
	if cmd.Flags().Changed("log-level") {
		v, _ := cmd.Flags().GetString("log-level")
		logLevelPtr = &v
	}
	cfg.MergeWithFlags(nil, nil, colorPtr, logLevelPtr, nil)

	return cfg, nil
}
