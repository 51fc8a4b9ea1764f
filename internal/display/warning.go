package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files (optional)
	Suggestion string   // Action to take (optional)
}

// Display writes the warning to out, in yellow when useColor is set.
func (w Warning) Display(out io.Writer, useColor bool) {
	var b strings.Builder

	b.WriteString("warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		b.WriteString("    ")
		if len(w.Files) == 1 {
			b.WriteString("Affected file:\n")
		} else {
			b.WriteString("Affected files:\n")
		}

		for i, file := range w.Files {
			b.WriteString(fmt.Sprintf("      %d. %s\n", i+1, file))
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	c := color.New(color.FgYellow)
	if useColor {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	c.Fprint(out, b.String())
}

// WarnOutputInSearchTree creates the warning shown when --output points below a
// searched directory.
func WarnOutputInSearchTree(output string, roots []string) Warning {
	return Warning{
		Title:      "Output file is inside a searched directory",
		Message:    fmt.Sprintf("%s is below %s", output, strings.Join(roots, ", ")),
		Files:      []string{output},
		Suggestion: "The file is skipped while it is being written; results from a previous run are searched as usual",
	}
}

// WarnHistoryUnavailable creates the warning shown when the history database
// cannot be opened or written. The search result is unaffected.
func WarnHistoryUnavailable(dbPath string, err error) Warning {
	return Warning{
		Title:      "Run history was not recorded",
		Message:    err.Error(),
		Files:      []string{dbPath},
		Suggestion: "Set history.enabled: false in .ygrep/config.yaml to stop recording runs",
	}
}
