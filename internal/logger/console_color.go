package logger

import (
	"fmt"

	"github.com/fatih/color"
)

// colorScheme defines consistent colors for different metric types.
// Green: success/positive metrics
// Red: failure/error metrics
// Yellow: warning metrics
// Cyan: labels
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

// newColorScheme creates the standard color scheme for metrics. With enabled
// false every color renders as plain text.
func newColorScheme(enabled bool) *colorScheme {
	s := &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
	for _, c := range []*color.Color{s.success, s.fail, s.warn, s.label, s.value} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// formatColorizedMetric formats a single metric as "label: value".
func formatColorizedMetric(label string, value interface{}, labelColor, valueColor *color.Color) string {
	return fmt.Sprintf("%s: %s", labelColor.Sprint(label), valueColor.Sprintf("%v", value))
}
