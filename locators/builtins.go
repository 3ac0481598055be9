package locators

import (
	"net/url"

	"github.com/brettbedarf/resourcefs"
)

type BuiltInScheme = string

const (
	HTTPScheme  BuiltInScheme = "http"
	HTTPSScheme BuiltInScheme = "https"
	FileScheme  BuiltInScheme = "file"
)

// RegisterBuiltins registers all built-in locator factories by default
// or only the specific ones if schemes are provided
func RegisterBuiltins(r *Registry, opts HTTPOptions, schemes ...BuiltInScheme) {
	if len(schemes) == 0 {
		schemes = append(schemes, HTTPScheme, HTTPSScheme, FileScheme)
	}

	for _, scheme := range schemes {
		switch scheme {
		case HTTPScheme, HTTPSScheme:
			r.Register(scheme, func(u *url.URL) (resourcefs.Locator, error) {
				return NewHTTPLocator(u, opts)
			})
		case FileScheme:
			r.Register(scheme, func(u *url.URL) (resourcefs.Locator, error) {
				return NewFileLocator(u)
			})
		}
	}
}
