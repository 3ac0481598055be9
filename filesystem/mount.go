package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"

	"github.com/brettbedarf/resourcefs"
	"github.com/google/uuid"
)

// AccessMode is a permission requested from [Mount.CheckAccess]
type AccessMode uint8

const (
	AccessRead AccessMode = iota
	AccessWrite
	AccessExecute
)

func (m AccessMode) String() string {
	switch m {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessExecute:
		return "execute"
	default:
		return "unknown"
	}
}

// StoreInfo describes the storage behind a mount
type StoreInfo struct {
	Name             string
	Type             string
	ReadOnly         bool
	TotalSpace       int64
	UsableSpace      int64
	UnallocatedSpace int64
}

const storeName = "default"

// Mount is one named, read-only hierarchy built from a list of locators.
// Everything except the open state is fixed at construction.
type Mount struct {
	id       uuid.UUID
	name     string
	locators []resourcefs.Locator
	index    *Index
	registry *Registry
}

func newMount(ctx context.Context, r *Registry, name string, locators []resourcefs.Locator) (*Mount, error) {
	locs := slices.Clone(locators)
	idx, err := BuildIndex(ctx, name, locs)
	if err != nil {
		return nil, err
	}
	return &Mount{
		id:       uuid.New(),
		name:     name,
		locators: locs,
		index:    idx,
		registry: r,
	}, nil
}

// Name returns the mount name
func (m *Mount) Name() string {
	return m.name
}

// ID returns the instance id; a remount under the same name gets a new one
func (m *Mount) ID() uuid.UUID {
	return m.id
}

// Locators returns a copy of the source locator list in input order
func (m *Mount) Locators() []resourcefs.Locator {
	return slices.Clone(m.locators)
}

// IsOpen reports whether this instance is still registered under its name
func (m *Mount) IsOpen() bool {
	if m.registry == nil {
		return false
	}
	cur, ok := m.registry.mounts.Load(m.name)
	return ok && cur == m
}

// IsReadOnly is always true
func (m *Mount) IsReadOnly() bool {
	return true
}

// SupportedViews lists the attribute views understood by [Mount.ReadAttributes]
func (m *Mount) SupportedViews() []string {
	return []string{basicView}
}

// Close unregisters the mount if it is still the instance registered under
// its name. Open channels are unaffected.
func (m *Mount) Close() error {
	if m.registry != nil {
		m.registry.remove(m)
	}
	return nil
}

// Path parses raw into a Path of this mount
func (m *Mount) Path(raw string) Path {
	return NewPath(m.name, raw)
}

// Root returns the root path of this mount
func (m *Mount) Root() Path {
	return m.index.Root().Path()
}

// RootPaths returns the root directories of the mount. There is exactly one.
func (m *Mount) RootPaths() []Path {
	return []Path{m.Root()}
}

// TotalSize is the sum of all file sizes in the mount
func (m *Mount) TotalSize() int64 {
	return m.index.TotalSize()
}

// StoreInfo reports the mount's store; all space is accounted as used
func (m *Mount) StoreInfo() StoreInfo {
	return StoreInfo{
		Name:       storeName,
		Type:       storeName,
		ReadOnly:   true,
		TotalSpace: m.index.TotalSize(),
	}
}

// node returns the node at p after checking that the mount is open and p
// belongs to it.
func (m *Mount) node(op string, p Path) (*Node, error) {
	if !m.IsOpen() {
		return nil, pathErr(op, p, ErrClosed)
	}
	if p.Mount() != m.name {
		return nil, pathErr(op, p, fmt.Errorf("%w: %q is not %q", ErrMountMismatch, p.Mount(), m.name))
	}
	n, ok := m.index.Get(p)
	if !ok {
		return nil, pathErr(op, p, ErrNotFound)
	}
	return n, nil
}

// AttributesOf returns the attributes of the node at p
func (m *Mount) AttributesOf(p Path) (*Attributes, error) {
	n, err := m.node("stat", p)
	if err != nil {
		return nil, err
	}
	return &n.Attributes, nil
}

// Exists reports whether a node exists at p in an open mount
func (m *Mount) Exists(p Path) bool {
	_, err := m.node("stat", p)
	return err == nil
}

// ListChildren returns the direct children of the directory at dir in
// [Path.Compare] order.
func (m *Mount) ListChildren(dir Path) ([]Path, error) {
	n, err := m.node("readdir", dir)
	if err != nil {
		return nil, err
	}
	if !n.IsDirectory() {
		return nil, pathErr("readdir", dir, ErrNotADirectory)
	}
	return m.index.Children(dir), nil
}

// Open returns a new ReadChannel over the file at p
func (m *Mount) Open(ctx context.Context, p Path) (*ReadChannel, error) {
	n, err := m.node("open", p)
	if err != nil {
		return nil, err
	}
	if !n.IsRegularFile() {
		return nil, pathErr("open", p, ErrNotAFile)
	}
	return openChannel(ctx, n)
}

// IsSameFile reports whether a and b denote the same node: same mount and
// identical segments. Existence is not checked.
func (m *Mount) IsSameFile(a, b Path) bool {
	return a.Equal(b)
}

// CheckAccess verifies p exists and that every mode is permitted. Read is
// always permitted; write and execute never are.
func (m *Mount) CheckAccess(p Path, modes ...AccessMode) error {
	for _, mode := range modes {
		if mode != AccessRead {
			return pathErr("access", p, fmt.Errorf("%w: %s access", ErrUnsupported, mode))
		}
	}
	_, err := m.node("access", p)
	return err
}

// WalkFunc is called by [Mount.Walk] for every visited node. Returning
// [fs.SkipDir] from a directory skips its children, from a file it skips the
// remaining files of that directory. Any other error stops the walk.
type WalkFunc func(p Path, attrs *Attributes) error

// Walk visits start and everything below it depth-first, children in
// [Path.Compare] order.
func (m *Mount) Walk(start Path, fn WalkFunc) error {
	n, err := m.node("walk", start)
	if err != nil {
		return err
	}
	if err := m.walk(n, fn); err != nil && !errors.Is(err, fs.SkipDir) {
		return err
	}
	return nil
}

func (m *Mount) walk(n *Node, fn WalkFunc) error {
	if err := fn(n.Path(), &n.Attributes); err != nil {
		return err
	}
	if !n.IsDirectory() {
		return nil
	}
	for _, child := range m.index.Children(n.Path()) {
		cn, _ := m.index.Get(child)
		if err := m.walk(cn, fn); err != nil {
			if !errors.Is(err, fs.SkipDir) {
				return err
			}
			if !cn.IsDirectory() {
				// skip the remaining siblings
				return nil
			}
		}
	}
	return nil
}

/* Mutations: the hierarchy is read-only and these always fail. */

func (m *Mount) CreateDirectory(p Path) error {
	return pathErr("mkdir", p, ErrUnsupported)
}

func (m *Mount) CreateFile(p Path) (io.WriteCloser, error) {
	return nil, pathErr("create", p, ErrUnsupported)
}

func (m *Mount) Delete(p Path) error {
	return pathErr("delete", p, ErrUnsupported)
}

func (m *Mount) Move(src, dst Path) error {
	return pathErr("move", src, ErrUnsupported)
}

func (m *Mount) Copy(src, dst Path) error {
	return pathErr("copy", src, ErrUnsupported)
}

func (m *Mount) SetAttribute(p Path, name string, value any) error {
	return pathErr("setattr", p, ErrUnsupported)
}

func (m *Mount) String() string {
	return Scheme + "://" + m.name
}
