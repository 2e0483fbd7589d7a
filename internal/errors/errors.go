package errors

import (
	"errors"
	"fmt"
)

// Custom error types for the classifieds backend

// ErrListingNotFound is returned when no listing matches an id or short code
var ErrListingNotFound = errors.New("listing not found")

// ErrSubmissionNotFound is returned when a short code has no pending submission
var ErrSubmissionNotFound = errors.New("no pending submission for code")

// ErrUnsupportedExtension is returned when a local banner file has an
// extension outside the allowed image set
var ErrUnsupportedExtension = errors.New("unsupported file extension")

// ErrNoSuchFile is returned when a console command names a file that does
// not exist
var ErrNoSuchFile = errors.New("no such file")

// ErrStatePersist wraps a failure to rewrite the state document.
// Persistence is best-effort; callers log it and keep going.
type ErrStatePersist struct {
	Path   string
	Reason string
}

func (e ErrStatePersist) Error() string {
	return fmt.Sprintf("failed to persist state to %s: %s", e.Path, e.Reason)
}

// ErrFileRelocate is returned when a staged upload cannot be moved into its
// media area during publication
type ErrFileRelocate struct {
	Name   string
	Reason string
}

func (e ErrFileRelocate) Error() string {
	return fmt.Sprintf("failed to relocate file %s: %s", e.Name, e.Reason)
}

// ErrBadCommand is returned by the operator console when a command's
// arguments cannot be parsed
type ErrBadCommand struct {
	Command string
	Usage   string
}

func (e ErrBadCommand) Error() string {
	return fmt.Sprintf("bad %s command, usage: %s", e.Command, e.Usage)
}
