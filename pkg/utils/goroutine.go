package utils

import (
	"fmt"
	"log"
	"runtime/debug"
)

// GoSafe runs fn in a new goroutine and recovers any panic.
func GoSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("recovered from panic in goroutine: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// RecoverError converts a recovered panic value into an error.
func RecoverError(r interface{}) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
