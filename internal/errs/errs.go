// Package errs holds the error kinds a run can end with and the process
// exit code assigned to each of them.
package errs

import (
	"errors"
	"fmt"
)

const (
	ExitOK = iota
	ExitGeneric
	ExitNetwork
	ExitRemoteStatus
	ExitCleanup
	ExitFormatDetection
	ExitEmptyDataset
	ExitParse
)

// NetworkError is a transport-level failure while fetching the remote resource.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteStatusError is a completed request answered with a status other than 200.
type RemoteStatusError struct {
	URL        string
	StatusCode int
}

func (e *RemoteStatusError) Error() string {
	return fmt.Sprintf("fetch %s: bad status: %d", e.URL, e.StatusCode)
}

// CleanupError means a stale artifact could not be removed.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("remove old artifact %s: %v", e.Path, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }

// WriteError means the new artifact could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write artifact %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// FormatDetectionError means no candidate (delimiter, encoding) pair parsed the sample.
type FormatDetectionError struct {
	Path     string
	Attempts int
}

func (e *FormatDetectionError) Error() string {
	return fmt.Sprintf(
		"%s: unable to determine separator/encoding (%d combinations tried)",
		e.Path,
		e.Attempts,
	)
}

// EmptyDatasetError means the file holds no data rows.
type EmptyDatasetError struct {
	Path string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("%s: empty file", e.Path)
}

// ParseError is a row of the full file that does not fit the sniffed format.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExitCode maps err to the process exit code of its kind.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		network  *NetworkError
		status   *RemoteStatusError
		cleanup  *CleanupError
		write    *WriteError
		format   *FormatDetectionError
		empty    *EmptyDatasetError
		parseErr *ParseError
	)
	switch {
	case errors.As(err, &network):
		return ExitNetwork
	case errors.As(err, &status):
		return ExitRemoteStatus
	case errors.As(err, &cleanup), errors.As(err, &write):
		return ExitCleanup
	case errors.As(err, &format):
		return ExitFormatDetection
	case errors.As(err, &empty):
		return ExitEmptyDataset
	case errors.As(err, &parseErr):
		return ExitParse
	default:
		return ExitGeneric
	}
}
