package hooks

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateContainer is returned when a second hook container is registered for a type
	ErrDuplicateContainer = errors.New("hook container already registered")

	// ErrDatabaseValuesNotAllowed is returned when a definition asks for database values on
	// a hook that cannot receive them
	ErrDatabaseValuesNotAllowed = errors.New("database values not supported for hook")

	// ErrNoTargetedHooks is returned when a container is requested for "any targeted hook"
	// outside of a running operation
	ErrNoTargetedHooks = errors.New("no hooks targeted by the current operation")

	// ErrNoRepository is returned when stored state is needed but no repository is configured
	ErrNoRepository = errors.New("no repository configured")

	// ErrDatabaseValuesDisabled is returned when diffs are requested but database values
	// were not loaded for the hook
	ErrDatabaseValuesDisabled = errors.New("database values were not loaded")

	// ErrTooManyResults is returned when a hook yields more than one resource for a
	// single-result pipeline
	ErrTooManyResults = errors.New("hook returned more than one resource")
)

// CardinalityError reports a hook that broke the single-result contract of its pipeline
type CardinalityError struct {
	Hook     Kind
	Pipeline Pipeline
	Count    int
}

// Error implements the error interface
func (e *CardinalityError) Error() string {
	return fmt.Sprintf("%s hook returned %d resources for the %s pipeline, which allows at most one",
		e.Hook, e.Count, e.Pipeline)
}

// Unwrap returns ErrTooManyResults
func (e *CardinalityError) Unwrap() error {
	return ErrTooManyResults
}
