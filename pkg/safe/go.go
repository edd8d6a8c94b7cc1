package safe

import (
	"log/slog"
	"runtime/debug"
)

// Go runs f in a new goroutine. A panic inside f is logged under name
// instead of crashing the process.
func Go(name string, f func()) {
	go func() {
		defer Recover(name)
		f()
	}()
}

// Recover must be deferred directly.
func Recover(name string) {
	if err := recover(); err != nil {
		PanicHandler(name)(err)
	}
}

// PanicHandler returns a handler suitable for worker pools that report
// recovered values instead of re-panicking.
func PanicHandler(name string) func(any) {
	return func(v any) {
		slog.Error("[safe] go panic", "task", name, "error", v, "stack", string(debug.Stack()))
	}
}
