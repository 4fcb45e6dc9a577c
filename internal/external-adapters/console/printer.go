// Package console prints user-facing status lines with optional color.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Printer writes colored status output
type Printer struct {
	out io.Writer
	err io.Writer

	green  *color.Color
	yellow *color.Color
	red    *color.Color
	cyan   *color.Color
	faint  *color.Color
}

// NewPrinter creates a printer. Color is disabled when noColor is set or
// NO_COLOR is present in the environment.
func NewPrinter(out, errOut io.Writer, noColor bool) *Printer {
	p := &Printer{
		out:    out,
		err:    errOut,
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed, color.Bold),
		cyan:   color.New(color.FgCyan),
		faint:  color.New(color.Faint),
	}

	_, envNoColor := os.LookupEnv("NO_COLOR")
	if noColor || envNoColor {
		for _, c := range []*color.Color{p.green, p.yellow, p.red, p.cyan, p.faint} {
			c.DisableColor()
		}
	} else {
		for _, c := range []*color.Color{p.green, p.yellow, p.red, p.cyan, p.faint} {
			c.EnableColor()
		}
	}
	return p
}

// Stage announces the start of a pipeline stage
func (p *Printer) Stage(name, format string, a ...any) {
	_, _ = p.cyan.Fprintf(p.out, "==> %-8s ", name)
	_, _ = fmt.Fprintf(p.out, format+"\n", a...)
}

// Success prints a success line with a checkmark
func (p *Printer) Success(format string, a ...any) {
	_, _ = p.green.Fprintf(p.out, "✓ %s\n", fmt.Sprintf(format, a...))
}

// Info prints a plain line
func (p *Printer) Info(format string, a ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", a...)
}

// Detail prints a de-emphasized, indented line
func (p *Printer) Detail(format string, a ...any) {
	_, _ = p.faint.Fprintf(p.out, "    %s\n", fmt.Sprintf(format, a...))
}

// Warning prints a warning line to stderr
func (p *Printer) Warning(format string, a ...any) {
	_, _ = p.yellow.Fprintf(p.err, "! %s\n", fmt.Sprintf(format, a...))
}

// Failure prints a failed stage and its diagnostics to stderr.
// The first line of err is the headline; remaining lines are printed verbatim.
func (p *Printer) Failure(stage string, err error) {
	msg := err.Error()
	headline, rest, _ := strings.Cut(msg, "\n")

	if stage != "" {
		_, _ = p.red.Fprintf(p.err, "✗ %s failed: %s\n", stage, headline)
	} else {
		_, _ = p.red.Fprintf(p.err, "✗ %s\n", headline)
	}
	if rest != "" {
		_, _ = fmt.Fprintln(p.err, rest)
	}
}
