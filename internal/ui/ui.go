// Package ui provides colored terminal output helpers for the
// human-facing commands.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
)

// Header prints a bold section header.
func Header(format string, args ...any) {
	headerColor.Fprintf(os.Stderr, format+"\n", args...)
}

// Info prints a plain progress line.
func Info(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// Success prints a green confirmation line.
func Success(format string, args ...any) {
	successColor.Fprintf(os.Stderr, format+"\n", args...)
}

// Warn prints a yellow warning line.
func Warn(format string, args ...any) {
	warnColor.Fprintf(os.Stderr, format+"\n", args...)
}
