// Package source enumerates and downloads delivered creative files from the
// remote file store.
package source

import "fmt"

// File is a file discovered in the source store. JobNumber is derived from
// the job folder segment of the remote path and is 0 when no segment
// matches the convention.
type File struct {
	Name      string
	Path      string
	JobNumber int
}

// Job is a numbered delivery folder under the scan root.
type Job struct {
	Number int
	Name   string
	Path   string
}

// Error is a source store failure. Described is true when the provider
// supplied a user-facing message; otherwise Message is a generic fallback.
type Error struct {
	Op        string
	Message   string
	Described bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("source %s: %s", e.Op, e.Message)
}
