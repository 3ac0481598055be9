package filesystem

import (
	"time"

	"github.com/brettbedarf/resourcefs"
)

// Kind tags a [Node] as a directory or a regular file
type Kind uint8

const (
	KindDirectory Kind = iota
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "dir"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Epoch is reported for timestamps that are not known
var Epoch = time.Unix(0, 0).UTC()

// Attributes is the immutable metadata record of a node
type Attributes struct {
	path    Path
	kind    Kind
	size    int64
	modTime time.Time
	ctime   time.Time
}

func (a *Attributes) IsDirectory() bool   { return a.kind == KindDirectory }
func (a *Attributes) IsRegularFile() bool { return a.kind == KindFile }

// IsSymbolicLink is always false; links are not supported
func (a *Attributes) IsSymbolicLink() bool { return false }

// IsOther is always false
func (a *Attributes) IsOther() bool { return false }

func (a *Attributes) Kind() Kind { return a.kind }

// Size in bytes; always 0 for directories
func (a *Attributes) Size() int64 { return a.size }

func (a *Attributes) LastModifiedTime() time.Time { return a.modTime }

// LastAccessTime is not tracked and mirrors LastModifiedTime
func (a *Attributes) LastAccessTime() time.Time { return a.modTime }

func (a *Attributes) CreationTime() time.Time { return a.ctime }

// FileKey identifies the node. It is the node's own path, not an inode number.
func (a *Attributes) FileKey() Path { return a.path }

// Node is a single entry in an [Index]
type Node struct {
	Attributes
	locator resourcefs.Locator // nil for directories
}

func newDirNode(p Path) *Node {
	return &Node{Attributes: Attributes{
		path:    p,
		kind:    KindDirectory,
		modTime: Epoch,
		ctime:   Epoch,
	}}
}

func newFileNode(p Path, loc resourcefs.Locator, meta *resourcefs.Metadata) *Node {
	return &Node{
		Attributes: Attributes{
			path:    p,
			kind:    KindFile,
			size:    max(meta.Size, 0),
			modTime: timeOrEpoch(meta.LastModified),
			ctime:   timeOrEpoch(meta.Created),
		},
		locator: loc,
	}
}

// Path returns the node's location
func (n *Node) Path() Path {
	return n.path
}

func timeOrEpoch(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return Epoch
	}
	return *t
}
