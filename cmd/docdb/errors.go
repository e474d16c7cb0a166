package main

import "fmt"

// usageError marks an error as a user-input mistake (bad flag, malformed
// id, invalid JSON) rather than an internal storage failure, so main can
// map it to exit code 1 instead of 2.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// exitCodeFor maps a command error to a process exit code: 0 is handled by
// the caller (nil error), 1 for user-input mistakes, 2 for everything else
// (storage, codec, or internal engine failures).
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if _, ok := err.(*usageError); ok {
		return 1
	}
	return 2
}
