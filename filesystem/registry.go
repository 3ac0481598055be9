package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"slices"

	"github.com/brettbedarf/resourcefs"
	"github.com/brettbedarf/resourcefs/internal/util"
	"github.com/dustin/go-humanize"
	"github.com/puzpuzpuz/xsync/v4"
)

// Registry maps mount names to live [Mount] instances. It has no global
// state; create one per process (or per test) with [NewRegistry]. The
// registry becomes active with the first Mount and idle again once the last
// name is unmounted.
type Registry struct {
	mounts *xsync.Map[string, *Mount]
}

func NewRegistry() *Registry {
	return &Registry{mounts: xsync.NewMap[string, *Mount]()}
}

// ValidateMountName checks that name can be used as a mount name. Names
// become the authority of resources:// URIs, so only RFC 3986 unreserved
// characters are accepted: letters, digits, '-', '.', '_' and '~'.
func ValidateMountName(name string) error {
	if name == "" {
		return fmt.Errorf("mount name: empty: %w", fs.ErrInvalid)
	}
	for _, c := range name {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case c == '-', c == '.', c == '_', c == '~':
		default:
			return fmt.Errorf("mount name %q: invalid character %q: %w", name, c, fs.ErrInvalid)
		}
	}
	return nil
}

// Mount indexes locators and registers the result under name. It fails with
// [fs.ErrInvalid] for a malformed name, with [ErrMountConflict] if name is
// taken and with [ErrIndexing] if a locator's metadata cannot be fetched. On
// any failure the registry is unchanged.
//
// The index is built before the name is claimed, so a slow build never
// blocks other registry operations. Concurrent calls for the same name have
// exactly one winner; the losers discard their index.
func (r *Registry) Mount(ctx context.Context, name string, locators []resourcefs.Locator) (*Mount, error) {
	logger := util.GetLogger("Registry.Mount")

	if err := ValidateMountName(name); err != nil {
		return nil, err
	}
	if _, taken := r.mounts.Load(name); taken {
		logger.Debug().Str("name", name).Msg("Mount name already registered")
		return nil, fmt.Errorf("%w: %q", ErrMountConflict, name)
	}

	m, err := newMount(ctx, r, name, locators)
	if err != nil {
		logger.Error().Err(err).Str("name", name).Msg("Failed to build mount")
		return nil, fmt.Errorf("mount %q: %w", name, err)
	}

	if _, loaded := r.mounts.LoadOrStore(name, m); loaded {
		logger.Debug().Str("name", name).Msg("Lost mount race; discarding index")
		return nil, fmt.Errorf("%w: %q", ErrMountConflict, name)
	}

	if r.mounts.Size() == 1 {
		logger.Debug().Msg("Registry active")
	}
	logger.Info().
		Str("name", name).
		Str("id", m.ID().String()).
		Int("nodes", m.index.Len()).
		Str("size", humanize.Bytes(uint64(m.TotalSize()))).
		Msg("Mounted")
	return m, nil
}

// Lookup returns the mount registered under name
func (r *Registry) Lookup(name string) (*Mount, error) {
	if m, ok := r.mounts.Load(name); ok {
		return m, nil
	}
	return nil, fmt.Errorf("mount %q: %w", name, ErrNotFound)
}

// Unmount removes name from the registry. It reports whether a mount was
// removed; unmounting an unknown name is a no-op.
func (r *Registry) Unmount(name string) bool {
	m, ok := r.mounts.LoadAndDelete(name)
	if ok {
		r.logUnmount(m)
	}
	return ok
}

// remove unregisters m only if it is still the instance under its name
func (r *Registry) remove(m *Mount) bool {
	removed := false
	r.mounts.Compute(m.name, func(old *Mount, loaded bool) (*Mount, xsync.ComputeOp) {
		if loaded && old == m {
			removed = true
			return nil, xsync.DeleteOp
		}
		return old, xsync.CancelOp
	})
	if removed {
		r.logUnmount(m)
	}
	return removed
}

func (r *Registry) logUnmount(m *Mount) {
	logger := util.GetLogger("Registry.Unmount")
	logger.Info().Str("name", m.name).Str("id", m.id.String()).Msg("Unmounted")
	if r.mounts.Size() == 0 {
		logger.Debug().Msg("Registry idle")
	}
}

// ResolveURI parses a resources://<mount>/<path> URI and returns the
// registered mount together with the path inside it.
func (r *Registry) ResolveURI(raw string) (*Mount, Path, error) {
	p, err := ParseURI(raw)
	if err != nil {
		return nil, Path{}, err
	}
	m, err := r.Lookup(p.Mount())
	if err != nil {
		return nil, Path{}, err
	}
	return m, p, nil
}

// Names returns the registered mount names sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, r.mounts.Size())
	r.mounts.Range(func(name string, _ *Mount) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}

// Len returns the number of registered mounts
func (r *Registry) Len() int {
	return r.mounts.Size()
}

// Close unmounts every registered name
func (r *Registry) Close() error {
	for _, name := range r.Names() {
		r.Unmount(name)
	}
	return nil
}
