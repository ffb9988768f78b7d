package adapter

import (
	"context"
	"io"

	"github.com/Ning0612/dirdedup/internal/domain"
)

// Adapter defines the filesystem operations a dedup run needs.
// Implementations return domain-level errors for consistent error handling.
type Adapter interface {
	// List returns the regular files directly inside the adapter's root, sorted by name.
	// Returns an error wrapping domain.ErrScan if the root cannot be listed.
	List(ctx context.Context) ([]domain.FileEntry, error)

	// Open opens a file for reading. Caller is responsible for closing the reader.
	// Returns domain.ErrNotFound if the file doesn't exist
	// Returns domain.ErrNotFile if path is not a regular file
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Remove deletes a single file
	// Returns domain.ErrNotFound if path doesn't exist
	Remove(ctx context.Context, path string) error

	// Exists checks if a path exists
	Exists(ctx context.Context, path string) (bool, error)

	// Root returns the absolute directory this adapter operates on
	Root() string
}

// Opener is the subset of Adapter used by fingerprint workers
type Opener interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Remover is the subset of Adapter used by the deletion executor
type Remover interface {
	Remove(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}
