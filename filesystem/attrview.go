package filesystem

import (
	"fmt"
	"strings"
)

const basicView = "basic"

// Names of the attributes available through [Mount.ReadAttributes]
const (
	AttrSize             = "size"
	AttrLastModifiedTime = "lastModifiedTime"
	AttrLastAccessTime   = "lastAccessTime"
	AttrCreationTime     = "creationTime"
	AttrIsRegularFile    = "isRegularFile"
	AttrIsDirectory      = "isDirectory"
	AttrIsSymbolicLink   = "isSymbolicLink"
	AttrIsOther          = "isOther"
	AttrFileKey          = "fileKey"
)

var basicAttrNames = []string{
	AttrSize, AttrLastModifiedTime, AttrLastAccessTime, AttrCreationTime,
	AttrIsRegularFile, AttrIsDirectory, AttrIsSymbolicLink, AttrIsOther, AttrFileKey,
}

func (a *Attributes) basicValue(name string) (any, bool) {
	switch name {
	case AttrSize:
		return a.Size(), true
	case AttrLastModifiedTime:
		return a.LastModifiedTime(), true
	case AttrLastAccessTime:
		return a.LastAccessTime(), true
	case AttrCreationTime:
		return a.CreationTime(), true
	case AttrIsRegularFile:
		return a.IsRegularFile(), true
	case AttrIsDirectory:
		return a.IsDirectory(), true
	case AttrIsSymbolicLink:
		return a.IsSymbolicLink(), true
	case AttrIsOther:
		return a.IsOther(), true
	case AttrFileKey:
		return a.FileKey(), true
	}
	return nil, false
}

// ReadAttributes returns the attributes named in query, which has the form
// "[view:]name[,name...]". The only view is "basic" and "*" selects every
// attribute, e.g. "basic:size,lastModifiedTime" or "*".
func (m *Mount) ReadAttributes(p Path, query string) (map[string]any, error) {
	attrs, err := m.AttributesOf(p)
	if err != nil {
		return nil, err
	}

	view, list, found := strings.Cut(query, ":")
	if !found {
		view, list = basicView, query
	}
	if view != basicView {
		return nil, pathErr("readattrs", p, fmt.Errorf("%w: attribute view %q", ErrUnsupported, view))
	}

	out := make(map[string]any)
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "*" {
			for _, n := range basicAttrNames {
				out[n], _ = attrs.basicValue(n)
			}
			continue
		}
		v, ok := attrs.basicValue(name)
		if !ok {
			return nil, pathErr("readattrs", p, fmt.Errorf("unknown attribute %q", name))
		}
		out[name] = v
	}
	return out, nil
}
