package detect

import "errors"

var (
	// ErrUnknownDependency is returned for a dependency name not in the registry.
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrNoVersion is returned when a version constraint is checked against a
	// dependency whose installed version could not be read.
	ErrNoVersion = errors.New("installed version unknown")
)
