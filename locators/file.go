package locators

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/brettbedarf/resourcefs"
)

// FileLocator implements [resourcefs.Locator] for file:// URLs
type FileLocator struct {
	path string
}

// NewFileLocator returns a locator for a local file URL. Only an empty or
// localhost authority is accepted.
func NewFileLocator(u *url.URL) (*FileLocator, error) {
	if u.Scheme != FileScheme {
		return nil, fmt.Errorf("file locator %q: unsupported scheme %q", u, u.Scheme)
	}
	if u.Host != "" && u.Host != "localhost" {
		return nil, fmt.Errorf("file locator %q: remote host %q", u, u.Host)
	}
	if u.Path == "" {
		return nil, fmt.Errorf("file locator %q: missing path", u)
	}
	return &FileLocator{path: u.Path}, nil
}

func (f *FileLocator) Path() string {
	return f.path
}

func (f *FileLocator) String() string {
	return (&url.URL{Scheme: FileScheme, Path: f.path}).String()
}

func (f *FileLocator) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(f.path)
}

// Metadata stats the file. The modification time is reported; local files
// have no portable creation time.
func (f *FileLocator) Metadata(ctx context.Context) (*resourcefs.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("file locator %s: is a directory", f.path)
	}
	mod := info.ModTime().UTC()
	return &resourcefs.Metadata{
		Size:         info.Size(),
		LastModified: &mod,
	}, nil
}

var _ resourcefs.Locator = (*FileLocator)(nil)
