package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ANSI color/style codes
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	cyan   = "\033[36m"
	green  = "\033[32m"
	yellow = "\033[33m"
	red    = "\033[31m"
	white  = "\033[97m"
)

var out io.Writer = os.Stderr

// SetOutput redirects all ui output. Color is only used when w is a terminal.
func SetOutput(w io.Writer) {
	out = w
}

// isTTY returns true if the output is a terminal.
func isTTY() bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// s wraps text with ANSI codes only when the output is a TTY.
func s(codes, text string) string {
	if !isTTY() {
		return text
	}
	return codes + text + reset
}

// Banner prints the startup banner.
//
//	screenwake v0.1.0
func Banner(version string) {
	fmt.Fprintf(out, "\n  %s %s\n", s(bold+cyan, "screenwake"), s(dim, "v"+version))
}

// KeyValue prints a labeled line:  ▸ label  value
func KeyValue(label, value string) {
	fmt.Fprintf(out, "  %s %-11s %s\n", s(cyan, "▸"), s(dim, label), s(white, value))
}

// Info prints an info line:  ● message
func Info(format string, a ...any) {
	fmt.Fprintf(out, "  %s %s\n", s(cyan, "●"), fmt.Sprintf(format, a...))
}

// Success prints a success line:  ✔ message
func Success(format string, a ...any) {
	fmt.Fprintf(out, "  %s %s\n", s(green, "✔"), fmt.Sprintf(format, a...))
}

// Warn prints a warning line:  ▲ message
func Warn(format string, a ...any) {
	fmt.Fprintf(out, "  %s %s\n", s(yellow, "▲"), fmt.Sprintf(format, a...))
}

// Error prints an error line:  ✖ message
func Error(format string, a ...any) {
	fmt.Fprintf(out, "  %s %s\n", s(red, "✖"), fmt.Sprintf(format, a...))
}

// Separator prints a dim horizontal line.
func Separator() {
	fmt.Fprintf(out, "  %s\n", s(dim, strings.Repeat("─", 48)))
}

// Dim wraps text in dim style (for use in other formatted output).
func Dim(text string) string {
	return s(dim, text)
}

// Duration renders a hold duration; zero means "until interrupted".
func Duration(d time.Duration) string {
	if d <= 0 {
		return "until interrupted"
	}
	return d.String()
}

// YesNo renders a boolean as a colored yes/no.
func YesNo(v bool) string {
	if v {
		return s(green, "yes")
	}
	return s(red, "no")
}
