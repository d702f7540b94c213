package grid

import "errors"

var (
	// ErrSkip is returned by a Filter to exclude the current combination.
	ErrSkip = errors.New("skip combination")

	// ErrArityMismatch is returned when a Filter rewrites a combination into one with
	// a different number of values than the space has parameters.
	ErrArityMismatch = errors.New("filter changed combination arity")

	// ErrDuplicateParam is returned when a parameter name is added twice.
	ErrDuplicateParam = errors.New("duplicate parameter")
)
