// Package storage defines the dataset directory abstraction.
package storage

import "github.com/starford/lineagemap/internal/models"

// Provider is the interface for dataset file operations.
type Provider interface {
	// List returns a ref for every supported dataset file under dir (relative to root),
	// in lexical path order.
	List(dir string) ([]models.DatasetRef, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Abs resolves path (relative to root) to an absolute file-system path.
	Abs(path string) (string, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
}
