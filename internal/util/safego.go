// safego.go - Panic recovery helpers for goroutines and tool handlers.
package util

import (
	"log/slog"
	"runtime/debug"

	"github.com/pkg/errors"
)

// SafeGo launches fn in a goroutine with deferred panic recovery.
// On panic: logs the stack trace. Does NOT exit; a background panic must not
// take the server down.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in background goroutine", "panic", r, "stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}

// Recover runs fn and converts a panic into an error carrying the panic value.
func Recover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("recovered panic", "panic", r, "stack", string(debug.Stack()))
			if e, ok := r.(error); ok {
				err = errors.Wrap(e, "panic")
				return
			}
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
