package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/ygrep/internal/config"
	"github.com/harrison/ygrep/internal/display"
	"github.com/harrison/ygrep/internal/filelock"
	"github.com/harrison/ygrep/internal/history"
	"github.com/harrison/ygrep/internal/logger"
	"github.com/harrison/ygrep/internal/search"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	progName   = "ygrep"
	stdinPath  = "-"
	stdinLabel = "(standard input)"
)

// runSearch implements the root command
func runSearch(cmd *cobra.Command, args []string) error {
	started := time.Now()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var followPtr, ignoreCasePtr *bool
	var bufferSizePtr *int
	if cmd.Flags().Changed("no-follow") {
		noFollow, _ := cmd.Flags().GetBool("no-follow")
		follow := !noFollow
		followPtr = &follow
	}
	if cmd.Flags().Changed("ignore-case") {
		v, _ := cmd.Flags().GetBool("ignore-case")
		ignoreCasePtr = &v
	}
	if cmd.Flags().Changed("buffer-size") {
		v, _ := cmd.Flags().GetInt("buffer-size")
		bufferSizePtr = &v
	}
	cfg.MergeWithFlags(followPtr, ignoreCasePtr, nil, nil, bufferSizePtr)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	pattern, paths, err := splitArgs(cmd, args)
	if err != nil {
		return err
	}

	matcher, err := search.NewRegexpMatcher(pattern, cfg.IgnoreCase)
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	errColor := useColor(cfg.Color, errOut)
	log := logger.NewConsoleLoggerWithColor(errOut, cfg.LogLevel, errColor)
	sink := search.NewWriterSink(errOut, progName, errColor)

	out := cmd.OutOrStdout()
	opts := search.Options{
		FollowSymlinks: cfg.FollowSymlinks,
		BufferSize:     cfg.BufferSize,
		Logger:         log,
	}

	outputPath, _ := cmd.Flags().GetString("output")
	var atomic *filelock.AtomicFile
	if outputPath != "" {
		atomic, err = filelock.CreateAtomic(outputPath)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer atomic.Abort()
		out = atomic

		if roots := rootsContaining(outputPath, paths); len(roots) > 0 {
			display.WarnOutputInSearchTree(outputPath, roots).Display(errOut, errColor)
		}
		opts.Skip, err = skipFile(atomic.TempPath())
		if err != nil {
			return err
		}
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	var printer search.Printer
	if jsonOutput {
		printer = search.NewJSONPrinter(out)
	} else {
		printer = search.NewTextPrinter(out, useColor(cfg.Color, out))
	}

	engine := search.New(matcher, printer, sink, opts)
	log.LogDebug(fmt.Sprintf("searching %s for %s (follow symlinks: %t)", strings.Join(paths, ", "), matcher, cfg.FollowSymlinks))

	var sum search.Summary
	for _, path := range paths {
		var pathSum search.Summary
		if path == stdinPath {
			pathSum, err = engine.SearchInput(cmd.InOrStdin(), stdinLabel)
		} else {
			pathSum, err = engine.SearchPath(path)
		}
		sum.Merge(pathSum)
		if err != nil {
			return err
		}
	}

	if atomic != nil {
		if err := atomic.Commit(); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	elapsed := time.Since(started)
	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		log.LogSummary(sum, elapsed)
	}

	exitCode := 0
	if sum.HadErrors() {
		exitCode = 2
	}

	if cfg.History.Enabled {
		run := &history.Run{
			StartedAt:    started,
			Duration:     elapsed,
			Pattern:      pattern,
			Paths:        paths,
			IgnoreCase:   cfg.IgnoreCase,
			Files:        sum.Files,
			FilesMatched: sum.FilesMatched,
			Matches:      sum.Matches,
			Binary:       sum.Binary,
			Bytes:        sum.Bytes,
			Errors:       sum.Errors,
			ExitCode:     exitCode,
		}
		if dbPath, err := recordRun(cmd.Context(), cfg, run); err != nil {
			display.WarnHistoryUnavailable(dbPath, err).Display(errOut, errColor)
		} else {
			log.LogDebug(fmt.Sprintf("recorded run %s in %s", run.ID, dbPath))
		}
	}

	if sum.HadErrors() {
		return ErrHadErrors
	}
	return nil
}

// splitArgs separates the pattern from the paths. With -e every argument is a
// path. No path means the current directory.
func splitArgs(cmd *cobra.Command, args []string) (string, []string, error) {
	var pattern string
	if cmd.Flags().Changed("regexp") {
		pattern, _ = cmd.Flags().GetString("regexp")
	} else {
		if len(args) == 0 {
			return "", nil, errors.New("missing PATTERN (see ygrep --help)")
		}
		pattern, args = args[0], args[1:]
	}

	if len(args) == 0 {
		return pattern, []string{"."}, nil
	}
	return pattern, args, nil
}

// useColor resolves a color mode for w. In auto mode only terminals get color,
// and NO_COLOR disables it.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}

	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// skipFile returns a predicate matching path by identity, so the output being
// written is never searched under any spelling of its name.
func skipFile(path string) (func(string) bool, error) {
	target, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat output: %w", err)
	}
	return func(candidate string) bool {
		info, err := os.Stat(candidate)
		return err == nil && os.SameFile(info, target)
	}, nil
}

// rootsContaining returns the directory roots that contain output.
func rootsContaining(output string, roots []string) []string {
	absOut, err := filepath.Abs(output)
	if err != nil {
		return nil
	}

	var found []string
	for _, root := range roots {
		if root == stdinPath {
			continue
		}
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absRoot, absOut)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		found = append(found, root)
	}
	return found
}

// recordRun stores run in the history database and prunes old runs.
func recordRun(ctx context.Context, cfg *config.Config, run *history.Run) (string, error) {
	dbPath, err := cfg.HistoryDBPath()
	if err != nil {
		return "", err
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return dbPath, err
	}
	defer store.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	if err := store.RecordRun(ctx, run); err != nil {
		return dbPath, err
	}
	if _, err := store.Prune(ctx, cfg.History.KeepRuns); err != nil {
		return dbPath, err
	}
	return dbPath, nil
}
