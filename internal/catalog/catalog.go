// Package catalog implements the HTTP client for the music catalog service.
package catalog

import (
	"fmt"
	"time"
)

// Track is one record sent to the catalog: a library-relative path plus the
// extracted metadata mapping. Records with empty metadata are never sent.
type Track struct {
	FilePath string         `json:"file_path"`
	Metadata map[string]any `json:"metadata"`
}

// healthyStatus is the body the server reports when it is up.
const healthyStatus = "Server is running"

// healthTimeout bounds the health check round trip.
const healthTimeout = 5 * time.Second

// ErrUnavailable indicates the catalog server could not be reached.
type ErrUnavailable struct {
	Cause error
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("catalog server unavailable: %v", e.Cause)
}

func (e *ErrUnavailable) Unwrap() error { return e.Cause }

// ErrStatus indicates the server answered with an unexpected HTTP status.
type ErrStatus struct {
	Code int
}

func (e *ErrStatus) Error() string {
	return fmt.Sprintf("catalog server returned HTTP %d", e.Code)
}

// ErrBadHealth indicates the health endpoint answered 200 with an
// unrecognized status body.
type ErrBadHealth struct {
	Status string
}

func (e *ErrBadHealth) Error() string {
	return fmt.Sprintf("unexpected health status %q", e.Status)
}
