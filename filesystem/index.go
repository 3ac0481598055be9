package filesystem

import (
	"context"
	"fmt"
	"slices"

	"github.com/brettbedarf/resourcefs"
	"github.com/brettbedarf/resourcefs/internal/util"
	"github.com/dustin/go-humanize"
)

// Index maps every path of a mount to its [Node]. It is built once by
// [BuildIndex] and never modified afterwards, so it is safe for concurrent
// readers without locking.
type Index struct {
	mount     string
	root      *Node
	nodes     map[string]*Node // keyed by Path.String(), root excluded
	children  map[string][]Path
	totalSize int64
}

// BuildIndex walks every locator in order and inserts a node for each prefix
// of its path: a file node for the full path and directory nodes for the
// proper prefixes. When a path is already taken the first node wins.
//
// Any metadata failure aborts the build with [ErrIndexing].
func BuildIndex(ctx context.Context, mount string, locators []resourcefs.Locator) (*Index, error) {
	logger := util.GetLogger("Index.Build")

	idx := &Index{
		mount:    mount,
		root:     newDirNode(NewPath(mount, Separator)),
		nodes:    make(map[string]*Node),
		children: make(map[string][]Path),
	}

	for i, loc := range locators {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIndexing, err)
		}
		if err := idx.insert(ctx, loc); err != nil {
			logger.Error().Err(err).Str("mount", mount).Int("locator", i).Msg("Failed to index locator")
			return nil, err
		}
	}

	for _, kids := range idx.children {
		slices.SortFunc(kids, Path.Compare)
	}

	logger.Debug().
		Str("mount", mount).
		Int("locators", len(locators)).
		Int("nodes", len(idx.nodes)).
		Str("total", humanize.Bytes(uint64(idx.totalSize))).
		Msg("Index built")
	return idx, nil
}

func (idx *Index) insert(ctx context.Context, loc resourcefs.Locator) error {
	logger := util.GetLogger("Index.insert")

	full := NewPath(idx.mount, loc.Path())
	if full.IsRoot() {
		logger.Warn().Str("mount", idx.mount).Str("locator", loc.Path()).Msg("Locator maps to the root; skipped")
		return nil
	}

	for n := 1; n <= full.NameCount(); n++ {
		cur, _ := full.Subpath(0, n)
		isLeaf := n == full.NameCount()

		if existing, ok := idx.nodes[cur.String()]; ok {
			if isLeaf || existing.IsRegularFile() {
				logger.Warn().
					Str("mount", idx.mount).
					Str("path", cur.String()).
					Str("locator", full.String()).
					Str("existing", existing.Kind().String()).
					Msg("Path already indexed; keeping first entry")
			}
			if existing.IsRegularFile() {
				// nothing may live below a file
				return nil
			}
			continue
		}

		var node *Node
		if isLeaf {
			meta, err := loc.Metadata(ctx)
			if err != nil {
				return pathErr("index", cur, fmt.Errorf("%w: %w", ErrIndexing, err))
			}
			if meta == nil {
				meta = &resourcefs.Metadata{Size: -1}
			}
			if meta.Size < 0 {
				logger.Warn().Str("path", cur.String()).Msg("Resource did not report a size; using 0")
			}
			node = newFileNode(cur, loc, meta)
		} else {
			node = newDirNode(cur)
		}

		idx.nodes[cur.String()] = node
		parent, _ := cur.Parent()
		idx.children[parent.String()] = append(idx.children[parent.String()], cur)
		idx.totalSize += node.Size()
	}
	return nil
}

// Root returns the root directory node
func (idx *Index) Root() *Node {
	return idx.root
}

// Len returns the number of indexed nodes, not counting the root
func (idx *Index) Len() int {
	return len(idx.nodes)
}

// TotalSize is the sum of all file sizes
func (idx *Index) TotalSize() int64 {
	return idx.totalSize
}

// Get returns the node at p
func (idx *Index) Get(p Path) (*Node, bool) {
	if p.IsRoot() {
		return idx.root, true
	}
	n, ok := idx.nodes[p.String()]
	return n, ok
}

// Children returns the direct children of p in [Path.Compare] order.
// The returned slice is a copy.
func (idx *Index) Children(p Path) []Path {
	return slices.Clone(idx.children[p.String()])
}

// Paths returns every indexed path, root excluded, in [Path.Compare] order
func (idx *Index) Paths() []Path {
	paths := make([]Path, 0, len(idx.nodes))
	for _, n := range idx.nodes {
		paths = append(paths, n.Path())
	}
	slices.SortFunc(paths, Path.Compare)
	return paths
}
