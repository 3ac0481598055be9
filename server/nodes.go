package server

import (
	"context"
	"errors"
	"io"
	"sync"
	"syscall"

	"github.com/brettbedarf/resourcefs/filesystem"
	"github.com/brettbedarf/resourcefs/internal/util"
	"github.com/cespare/xxhash/v2"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

const (
	dirMode  = syscall.S_IFDIR | 0o555
	fileMode = syscall.S_IFREG | 0o444
	blkSize  = 4096
)

// toErrno maps filesystem errors onto the errno the kernel expects
func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, filesystem.ErrNotFound), errors.Is(err, filesystem.ErrMountMismatch):
		return syscall.ENOENT
	case errors.Is(err, filesystem.ErrClosed):
		return syscall.ESTALE
	case errors.Is(err, filesystem.ErrNotADirectory):
		return syscall.ENOTDIR
	case errors.Is(err, filesystem.ErrNotAFile):
		return syscall.EISDIR
	case errors.Is(err, filesystem.ErrUnsupported):
		return syscall.EROFS
	case errors.Is(err, context.Canceled):
		return syscall.EINTR
	default:
		return syscall.EIO
	}
}

// inodeNumber derives a stable inode number for p within one mount
// instance. 0 and 1 are reserved by go-fuse.
func inodeNumber(m *filesystem.Mount, p filesystem.Path) uint64 {
	ino := xxhash.Sum64String(m.ID().String() + p.String())
	if ino < 2 {
		ino += 2
	}
	return ino
}

func fillAttr(a *filesystem.Attributes, out *fuse.Attr) {
	if a.IsDirectory() {
		out.Mode = dirMode
		out.Nlink = 2
	} else {
		out.Mode = fileMode
		out.Nlink = 1
	}
	out.Size = uint64(a.Size())
	out.Blocks = (out.Size + 511) / 512
	out.Blksize = blkSize
	atime, mtime, ctime := a.LastAccessTime(), a.LastModifiedTime(), a.CreationTime()
	out.SetTimes(&atime, &mtime, &ctime)
}

// newChild builds the inode for p below parent
func newChild(ctx context.Context, parent *gofuse.Inode, fs *ResourceFs, m *filesystem.Mount, p filesystem.Path, attrs *filesystem.Attributes) *gofuse.Inode {
	stable := gofuse.StableAttr{Ino: inodeNumber(m, p)}
	var node gofuse.InodeEmbedder
	if attrs.IsDirectory() {
		stable.Mode = syscall.S_IFDIR
		node = &dirNode{fs: fs, mount: m, path: p}
	} else {
		stable.Mode = syscall.S_IFREG
		node = &fileNode{fs: fs, mount: m, path: p, attrs: attrs}
	}
	return parent.NewInode(ctx, node, stable)
}

// rootNode lists the registered mounts. Lookups go to the registry every
// time, so mounts added or removed while serving show up.
type rootNode struct {
	gofuse.Inode
	fs *ResourceFs
}

var _ gofuse.InodeEmbedder = (*rootNode)(nil)
var _ gofuse.NodeLookuper = (*rootNode)(nil)
var _ gofuse.NodeReaddirer = (*rootNode)(nil)
var _ gofuse.NodeGetattrer = (*rootNode)(nil)

func (r *rootNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = dirMode
	out.Nlink = 2
	return 0
}

func (r *rootNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	m, err := r.fs.registry.Lookup(name)
	if err != nil {
		return nil, syscall.ENOENT
	}
	attrs, err := m.AttributesOf(m.Root())
	if err != nil {
		return nil, toErrno(err)
	}
	fillAttr(attrs, &out.Attr)
	return newChild(ctx, r.EmbeddedInode(), r.fs, m, m.Root(), attrs), 0
}

func (r *rootNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	names := r.fs.registry.Names()
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, fuse.DirEntry{Name: name, Mode: syscall.S_IFDIR})
	}
	return &sliceDirStream{entries: entries}, 0
}

// dirNode is a directory inside one mount
type dirNode struct {
	gofuse.Inode
	fs    *ResourceFs
	mount *filesystem.Mount
	path  filesystem.Path
}

var _ gofuse.InodeEmbedder = (*dirNode)(nil)
var _ gofuse.NodeLookuper = (*dirNode)(nil)
var _ gofuse.NodeReaddirer = (*dirNode)(nil)
var _ gofuse.NodeGetattrer = (*dirNode)(nil)

func (d *dirNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attrs, err := d.mount.AttributesOf(d.path)
	if err != nil {
		return toErrno(err)
	}
	fillAttr(attrs, &out.Attr)
	return 0
}

func (d *dirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	child := d.path.Join(name)
	attrs, err := d.mount.AttributesOf(child)
	if err != nil {
		return nil, toErrno(err)
	}
	fillAttr(attrs, &out.Attr)
	return newChild(ctx, d.EmbeddedInode(), d.fs, d.mount, child, attrs), 0
}

func (d *dirNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	children, err := d.mount.ListChildren(d.path)
	if err != nil {
		return nil, toErrno(err)
	}
	entries := make([]fuse.DirEntry, 0, len(children))
	for _, child := range children {
		attrs, err := d.mount.AttributesOf(child)
		if err != nil {
			return nil, toErrno(err)
		}
		mode := uint32(syscall.S_IFREG)
		if attrs.IsDirectory() {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{
			Name: child.FileName(),
			Mode: mode,
			Ino:  inodeNumber(d.mount, child),
		})
	}
	return &sliceDirStream{entries: entries}, 0
}

// fileNode is a regular file inside one mount
type fileNode struct {
	gofuse.Inode
	fs    *ResourceFs
	mount *filesystem.Mount
	path  filesystem.Path
	attrs *filesystem.Attributes
}

var _ gofuse.InodeEmbedder = (*fileNode)(nil)
var _ gofuse.NodeGetattrer = (*fileNode)(nil)
var _ gofuse.NodeSetattrer = (*fileNode)(nil)
var _ gofuse.NodeOpener = (*fileNode)(nil)

func (f *fileNode) Getattr(ctx context.Context, fh gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	fillAttr(f.attrs, &out.Attr)
	return 0
}

func (f *fileNode) Setattr(ctx context.Context, fh gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	return syscall.EROFS
}

func (f *fileNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_TRUNC|syscall.O_APPEND) != 0 {
		return nil, 0, syscall.EROFS
	}
	ch, err := f.mount.Open(f.fs.ctx, f.path)
	if err != nil {
		logger := util.GetLogger("FuseServer.Open")
		logger.Error().Err(err).Str("path", f.mount.String()+f.path.String()).Msg("Failed to open channel")
		return nil, 0, toErrno(err)
	}
	// Content is immutable for the life of the mount
	return &fileHandle{ch: ch}, fuse.FOPEN_KEEP_CACHE, 0
}

// fileHandle serves kernel reads from one channel. The kernel may issue
// reads at arbitrary offsets; the channel is repositioned when the offset
// is not where the previous read stopped.
type fileHandle struct {
	mu sync.Mutex
	ch *filesystem.ReadChannel
}

var _ gofuse.FileReader = (*fileHandle)(nil)
var _ gofuse.FileReleaser = (*fileHandle)(nil)

func (h *fileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if off != h.ch.Position() {
		if err := h.ch.SetPosition(off); err != nil {
			logger := util.GetLogger("FuseServer.Read")
			logger.Error().Err(err).Str("path", h.ch.Path().String()).Int64("offset", off).Msg("Failed to reposition")
			return nil, toErrno(err)
		}
	}

	n, err := io.ReadFull(h.ch, dest)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		logger := util.GetLogger("FuseServer.Read")
		logger.Error().Err(err).Str("path", h.ch.Path().String()).Int64("offset", off).Msg("Read failed")
		return nil, toErrno(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (h *fileHandle) Release(ctx context.Context) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()
	return toErrno(h.ch.Close())
}

// sliceDirStream implements gofuse.DirStream from a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}
