package domain

import (
	"errors"
	"fmt"
)

// Adapter errors
var (
	// ErrNotFound indicates the requested file or directory does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates expected a regular file
	ErrNotFile = errors.New("not a regular file")
)

// Run errors
var (
	// ErrScan indicates the target directory could not be listed. Fatal for a run.
	ErrScan = errors.New("scan failed")

	// ErrRead indicates a single file could not be fingerprinted
	ErrRead = errors.New("read failed")

	// ErrDelete indicates a single duplicate could not be removed
	ErrDelete = errors.New("delete failed")

	// ErrSizeChanged indicates a file was modified between listing and hashing
	ErrSizeChanged = errors.New("file size changed during read")

	// ErrSurvivorMissing indicates the kept copy of a group vanished before deletion
	ErrSurvivorMissing = errors.New("survivor no longer exists")
)

// Config errors
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file or flags are malformed
	ErrConfigInvalid = errors.New("invalid config")
)

// FileError is a per-file failure recorded during a run.
// errors.Is matches both Kind and the underlying cause.
type FileError struct {
	Kind error
	Path string
	Err  error
}

// NewReadError wraps err as a read failure for path
func NewReadError(path string, err error) *FileError {
	return &FileError{Kind: ErrRead, Path: path, Err: err}
}

// NewDeleteError wraps err as a delete failure for path
func NewDeleteError(path string, err error) *FileError {
	return &FileError{Kind: ErrDelete, Path: path, Err: err}
}

func (e *FileError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As
func (e *FileError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsFileError checks if an error is a FileError
func IsFileError(err error) bool {
	var fe *FileError
	return errors.As(err, &fe)
}
