//go:build linux || darwin

package term

import (
	"os"

	"golang.org/x/sys/unix"
)

// IsTerminal reports whether f is attached to a terminal, used by the
// REPL to decide whether printing a "> " prompt makes sense (skipped for
// piped/redirected stdin, e.g. under test harnesses).
func IsTerminal(f *os.File) bool {
	_, err := unix.IoctlGetTermios(int(f.Fd()), ioctlGetTermios)
	return err == nil
}
