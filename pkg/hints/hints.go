// Package hints labels errors that report a skipped step rather than a
// failure. A disabled hook, a hook list with nothing to run or a job without
// retention all return a hint. Callers check IsHint and carry on without
// importing the producer's sentinel errors.
package hints

import "errors"

// hinter is the behaviour IsHint looks for anywhere in an error chain.
type hinter interface {
	error
	IsHint() bool
}

type hintErr struct {
	msg string
}

func (h *hintErr) Error() string { return h.msg }
func (h *hintErr) IsHint() bool  { return true }

// New creates a hint. Each call returns a distinct value, so the result can
// serve as a sentinel for errors.Is.
func New(msg string) error {
	return &hintErr{msg: msg}
}

// IsHint reports whether any error in the chain is a hint.
func IsHint(err error) bool {
	h, ok := errors.AsType[hinter](err)
	return ok && h.IsHint()
}
