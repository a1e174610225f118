package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrLocationNotFound is returned by Provider.Get for an unknown id.
	ErrLocationNotFound = errors.New("location not found")
	// ErrAbandoned is returned when the caller went away before the load
	// finished.  The result is dropped.
	ErrAbandoned = errors.New("catalog load abandoned")
	// ErrInvalidLocation marks a catalog entry that fails validation.
	ErrInvalidLocation = errors.New("invalid location")
)

// CatalogError wraps any failure to load the catalog.
type CatalogError struct {
	Err error
}

func (e *CatalogError) Error() string { return fmt.Sprintf("catalog load failed: %v", e.Err) }

func (e *CatalogError) Unwrap() error { return e.Err }
