// Package storage defines the local working-copy file-system abstraction.
package storage

import (
	"context"

	"github.com/starford/inkwell/internal/models"
)

// Provider is the interface for working-copy file operations. Paths are
// relative to the working-copy root and use forward slashes.
type Provider interface {
	// List returns metadata for every regular file under dir, skipping
	// dot-files and dot-directories.
	List(dir string) ([]models.BlobMeta, error)
	// Read returns the raw bytes of the file at path. Missing files yield an
	// error matching apperr.ErrNotFound.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}

// Locker serializes writers of a working copy across processes.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}
