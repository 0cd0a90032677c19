// Package recovery turns an unrecovered panic into a logged, non-zero exit.
package recovery

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// HandlePanic should be deferred at the top of main() or a goroutine.
// It logs the panic with its stack and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		report("", r)
		os.Exit(1)
	}
}

// HandlePanicFunc is HandlePanic with a cleanup step before exit.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		report("", r)
		if cleanup != nil {
			cleanup()
		}
		os.Exit(1)
	}
}

// Go runs fn on its own goroutine under the same policy. name tags the log entry.
func Go(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				report(name, r)
				os.Exit(1)
			}
		}()
		fn()
	}()
}

func report(name string, r any) {
	entry := logrus.WithField("panic", fmt.Sprint(r))
	if name != "" {
		entry = entry.WithField("goroutine", name)
	}
	entry.Error("FATAL: unrecovered panic")
	_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
}
