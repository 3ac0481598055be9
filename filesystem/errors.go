package filesystem

import (
	"errors"
	"io/fs"
)

// Errors returned by the filesystem. Path-level failures are wrapped in an
// [fs.PathError] so callers should match with errors.Is.
var (
	ErrMountConflict = errors.New("mount already exists")
	ErrNotFound      = fs.ErrNotExist
	ErrNotAFile      = errors.New("not a regular file")
	ErrNotADirectory = errors.New("not a directory")
	ErrUnsupported   = errors.ErrUnsupported
	ErrIndexing      = errors.New("indexing failed")
	ErrClosed        = fs.ErrClosed
	ErrIndex         = errors.New("path index out of range")
	ErrMountMismatch = errors.New("paths belong to different mounts")
)

func pathErr(op string, p Path, err error) error {
	return &fs.PathError{Op: op, Path: p.String(), Err: err}
}
