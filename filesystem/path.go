package filesystem

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

const (
	// Separator delimits path segments
	Separator = "/"
	// Scheme is the URI scheme used by [Path.URI]
	Scheme = "resources"
)

// Path is an immutable absolute path inside a named mount. It is a sequence
// of non-empty segments; the raw string it was parsed from is not retained,
// so "/a//b/" and "/a/b" are the same Path.
//
// The zero value is the root of the unnamed mount.
type Path struct {
	mount    string
	segments []string
}

// NewPath parses raw into a Path belonging to mount. Empty segments are
// dropped and a leading separator is optional; "/" and "" are the root.
func NewPath(mount, raw string) Path {
	return Path{mount: mount, segments: splitSegments(raw)}
}

func splitSegments(raw string) []string {
	if raw == "" || raw == Separator {
		return nil
	}
	parts := strings.Split(raw, Separator)
	segs := parts[:0]
	for _, s := range parts {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return nil
	}
	return slices.Clip(segs)
}

// Mount returns the name of the mount the path belongs to
func (p Path) Mount() string {
	return p.mount
}

// IsRoot reports whether p has no segments
func (p Path) IsRoot() bool {
	return len(p.segments) == 0
}

// IsAbsolute is always true; every Path is rooted at its mount
func (p Path) IsAbsolute() bool {
	return true
}

// NameCount returns the number of segments
func (p Path) NameCount() int {
	return len(p.segments)
}

// Name returns segment i, counted from the root
func (p Path) Name(i int) (string, error) {
	if i < 0 || i >= len(p.segments) {
		return "", fmt.Errorf("%w: name %d of %d", ErrIndex, i, len(p.segments))
	}
	return p.segments[i], nil
}

// Segments returns a copy of the segment sequence
func (p Path) Segments() []string {
	return slices.Clone(p.segments)
}

// FileName returns the last segment, or "" for the root
func (p Path) FileName() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Parent returns p without its last segment. ok is false for the root.
func (p Path) Parent() (parent Path, ok bool) {
	if len(p.segments) == 0 {
		return Path{}, false
	}
	return Path{mount: p.mount, segments: p.segments[:len(p.segments)-1 : len(p.segments)-1]}, true
}

// Subpath returns the segments in [begin, end) as a new Path in the same
// mount. begin == end yields the root.
func (p Path) Subpath(begin, end int) (Path, error) {
	if begin < 0 || end > len(p.segments) || begin > end {
		return Path{}, fmt.Errorf("%w: subpath [%d:%d] of %d", ErrIndex, begin, end, len(p.segments))
	}
	return Path{mount: p.mount, segments: slices.Clip(p.segments[begin:end])}, nil
}

// Join appends the segments of each elem to p. Elements are split on the
// separator; "." and ".." are ordinary names.
func (p Path) Join(elem ...string) Path {
	segs := slices.Clone(p.segments)
	for _, e := range elem {
		segs = append(segs, splitSegments(e)...)
	}
	return Path{mount: p.mount, segments: slices.Clip(segs)}
}

// StartsWith reports whether other's segments are a positional prefix of
// p's segments. Paths in different mounts never match.
func (p Path) StartsWith(other Path) bool {
	if p.mount != other.mount || len(other.segments) > len(p.segments) {
		return false
	}
	for i, s := range other.segments {
		if p.segments[i] != s {
			return false
		}
	}
	return true
}

// EndsWith reports whether other's segments are a positional suffix of p's
// segments, comparing from the last segment backwards.
func (p Path) EndsWith(other Path) bool {
	if p.mount != other.mount || len(other.segments) > len(p.segments) {
		return false
	}
	off := len(p.segments) - len(other.segments)
	for i := len(other.segments) - 1; i >= 0; i-- {
		if p.segments[off+i] != other.segments[i] {
			return false
		}
	}
	return true
}

// Compare orders paths by the bytes of their root-relative form; a shorter
// path sorts first when one is a prefix of the other ("/a" < "/aa"). Equal
// forms from different mounts are ordered by mount name, so Compare returns
// 0 exactly when [Path.Equal] is true.
func (p Path) Compare(other Path) int {
	if c := strings.Compare(p.relative(), other.relative()); c != 0 {
		return c
	}
	return strings.Compare(p.mount, other.mount)
}

// Equal reports whether both paths name the same mount and segments
func (p Path) Equal(other Path) bool {
	return p.mount == other.mount && slices.Equal(p.segments, other.segments)
}

// Resolve returns other. Every Path is absolute so the receiver never
// contributes to the result.
func (p Path) Resolve(other Path) Path {
	return other
}

// Relativize returns the segments of target that follow the longest prefix
// shared with p, as a Path in the same mount. For p=/a/b and target=/a/c/d
// the result is /c/d.
func (p Path) Relativize(target Path) (Path, error) {
	if p.mount != target.mount {
		return Path{}, fmt.Errorf("%w: %s and %s", ErrMountMismatch, p.URI(), target.URI())
	}
	shared := 0
	for shared < len(p.segments) && shared < len(target.segments) && p.segments[shared] == target.segments[shared] {
		shared++
	}
	return Path{mount: p.mount, segments: slices.Clone(target.segments[shared:])}, nil
}

// ToAbsolutePath returns p
func (p Path) ToAbsolutePath() Path {
	return p
}

// String returns the separator-joined absolute form, e.g. "/a/b"
func (p Path) String() string {
	return Separator + p.relative()
}

// URI returns the path as a resources://<mount>/<path> URI
func (p Path) URI() string {
	u := url.URL{Scheme: Scheme, Host: p.mount, Path: p.String()}
	return u.String()
}

// ParseURI is the inverse of [Path.URI]
func ParseURI(raw string) (Path, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Path{}, err
	}
	if u.Scheme != Scheme {
		return Path{}, fmt.Errorf("unsupported scheme %q, want %q", u.Scheme, Scheme)
	}
	if u.Host == "" {
		return Path{}, fmt.Errorf("missing mount name in %q", raw)
	}
	return NewPath(u.Host, u.Path), nil
}

func (p Path) relative() string {
	return strings.Join(p.segments, Separator)
}
