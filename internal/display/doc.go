// Package display formats user-facing warnings for the ygrep CLI.
//
// Warnings are advisory: they never change what is searched or the exit status.
// They go to stderr next to per-path errors, but use a multi-line layout so they
// stand out from the one-line "ygrep: <path>: <error>" reports:
//
//	warning := display.Warning{
//	    Title:      "Output file is inside a searched directory",
//	    Files:      []string{"out/results.txt"},
//	    Suggestion: "The file is skipped while it is being written",
//	}
//	warning.Display(os.Stderr, true)
//
// All functions accept io.Writer interfaces for testability.
package display
