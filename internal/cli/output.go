package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
	bold   = color.New(color.Bold)
	faint  = color.New(color.Faint)
)

func successf(w io.Writer, format string, args ...any) {
	_, _ = green.Fprintf(w, "✓ "+format+"\n", args...)
}

func warningf(w io.Writer, format string, args ...any) {
	_, _ = yellow.Fprintf(w, "⚠ "+format+"\n", args...)
}

func failuref(w io.Writer, format string, args ...any) {
	_, _ = red.Fprintf(w, "✗ "+format+"\n", args...)
}

func header(w io.Writer, text string) {
	_, _ = bold.Fprintln(w, text)
}

func detailf(w io.Writer, format string, args ...any) {
	_, _ = faint.Fprintf(w, "  "+format+"\n", args...)
}

// plainf writes without colour, for table rows.
func plainf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
