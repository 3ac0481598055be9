// Package resourcefs contains the core domain types shared by the resource
// filesystem packages.
package resourcefs

import (
	"context"
	"io"
	"time"
)

// Locator is an external resource reference (typically a URL) that backs a
// single file in a mounted hierarchy. Implementations must be safe for
// concurrent use; each Open call returns an independent stream.
type Locator interface {
	// Path returns the absolute, "/" separated path the resource is
	// presented at, i.e. the URL path.
	Path() string

	// Open returns a fresh stream over the resource content starting at
	// byte zero. The caller owns and must close it.
	Open(ctx context.Context) (io.ReadCloser, error)

	// Metadata fetches size and timestamps for the resource.
	Metadata(ctx context.Context) (*Metadata, error)
}

// Metadata contains the resource-reported attributes of a [Locator].
// Nil timestamps mean the resource did not report a value.
type Metadata struct {
	Size         int64 // -1 if unknown
	LastModified *time.Time
	Created      *time.Time
}
