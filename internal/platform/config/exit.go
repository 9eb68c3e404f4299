package config

import (
	"fmt"
	"os"
)

// ExitCodef writes a formatted error message to stderr and exits with status.
// It provides a consistent fatal-exit pattern for CLI entry points.
func ExitCodef(status int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(status)
}
