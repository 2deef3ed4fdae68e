// Package termcolor prints the colored, human-facing progress/warning/error
// lines that flow to stdout/stderr during a piku invocation (spec.md §7).
package termcolor

import (
	"fmt"
	"os"
)

const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
)

var quiet bool

// SetQuiet suppresses Progress output (but not Warn/Error).
func SetQuiet(q bool) {
	quiet = q
}

// Progress prints a green status line to stdout.
func Progress(format string, args ...interface{}) {
	if quiet {
		return
	}
	fmt.Printf(Green+format+Reset+"\n", args...)
}

// Warn prints a yellow warning line to stdout.
func Warn(format string, args ...interface{}) {
	fmt.Printf(Yellow+"Warning: "+format+Reset+"\n", args...)
}

// Error prints a red error line to stderr.
func Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, Red+"Error: "+format+Reset+"\n", args...)
}
