// Package storage defines where exported documents are downloaded to.
package storage

import (
	"context"

	"github.com/starford/tally/internal/models"
)

// Provider is the interface for export directory operations.
type Provider interface {
	// List returns metadata for every .pdf file in the directory.
	List() ([]models.ExportFile, error)
	// Read returns the raw bytes of the named file.
	Read(name string) ([]byte, error)
	// Write atomically writes content to the named file, replacing it.
	Write(name string, content []byte) error
	// Delete removes the named file.
	Delete(name string) error
	// Save is Write for the export pipeline.
	Save(ctx context.Context, name string, content []byte) error
}
