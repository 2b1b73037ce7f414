package log

import "errors"

// ErrEmptyLog is returned by Cache.Root when no leaf has been inserted yet.
// Callers in this package's domain (tree/transparency) use it as a plain
// boolean: an uninitialized log is an expected state at startup, not a
// failure.
var ErrEmptyLog = errors.New("log tree: empty")
