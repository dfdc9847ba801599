package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
	"jmdict/pkg/config"
)

// Color palette for status lines
var (
	cyan    = lipgloss.Color("#00D7FF")
	yellow  = lipgloss.Color("#FFD700")
	red     = lipgloss.Color("#FF5F5F")
	green   = lipgloss.Color("#5FFF87")
	magenta = lipgloss.Color("#D787FF")
	dim     = lipgloss.Color("#8A8A8A")
)

// Console prints human-readable status lines
type Console struct {
	out   io.Writer
	color bool
	quiet bool

	label     lipgloss.Style
	value     lipgloss.Style
	errStyle  lipgloss.Style
	success   lipgloss.Style
	warning   lipgloss.Style
	highlight lipgloss.Style
	faint     lipgloss.Style
}

// NewConsole creates a console writing to out. Color is only used when
// enabled in cfg and out is a terminal.
func NewConsole(out io.Writer, cfg config.UIConfig) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:       out,
		color:     cfg.Color && IsTerminal(out),
		quiet:     cfg.Quiet,
		label:     r.NewStyle().Foreground(cyan).Bold(true),
		value:     r.NewStyle().Foreground(yellow),
		errStyle:  r.NewStyle().Foreground(red).Bold(true),
		success:   r.NewStyle().Foreground(green),
		warning:   r.NewStyle().Foreground(yellow),
		highlight: r.NewStyle().Foreground(magenta).Bold(true),
		faint:     r.NewStyle().Foreground(dim),
	}
}

// Stdout creates a console on the process standard output
func Stdout(cfg config.UIConfig) *Console {
	return NewConsole(os.Stdout, cfg)
}

// IsTerminal reports whether w is a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of the console, or fallback
func (c *Console) Width(fallback int) int {
	if f, ok := c.out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return fallback
}

func (c *Console) render(style lipgloss.Style, s string) string {
	if !c.color {
		return s
	}
	return style.Render(s)
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

// PrintError prints an error message. Errors are printed in quiet mode too.
func (c *Console) PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	c.println(c.render(c.errStyle, msg))
}

// PrintSuccess prints a success message
func (c *Console) PrintSuccess(msg string) {
	if c.quiet {
		return
	}
	c.println(c.render(c.success, msg))
}

// PrintInfo prints a label/value pair
func (c *Console) PrintInfo(label string, value string) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "%s: %s\n", c.render(c.label, label), c.render(c.value, value))
}

// PrintWarning prints a warning message
func (c *Console) PrintWarning(msg string, args ...interface{}) {
	if c.quiet {
		return
	}
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	c.println(c.render(c.warning, msg))
}

// PrintHighlight prints a highlighted message
func (c *Console) PrintHighlight(msg string) {
	if c.quiet {
		return
	}
	c.println(c.render(c.highlight, msg))
}

// PrintRule prints a horizontal separator as wide as the terminal
func (c *Console) PrintRule() {
	if c.quiet {
		return
	}
	width := c.Width(60)
	if width > 80 {
		width = 80
	}
	c.println(c.render(c.faint, strings.Repeat("─", width)))
}
