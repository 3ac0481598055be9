package locators

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/brettbedarf/resourcefs"
	"github.com/brettbedarf/resourcefs/internal/util"
)

// ErrUnknownScheme is returned when no factory is registered for a URL scheme
var ErrUnknownScheme = errors.New("no locator factory for scheme")

// Factory builds a locator from a parsed URL
type Factory func(u *url.URL) (resourcefs.Locator, error)

// Registry maps URL schemes to locator factories. The zero value is not
// usable; create one with [NewRegistry].
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register ties a factory to a scheme. The first registration for a scheme
// wins; later ones are ignored.
func (r *Registry) Register(scheme string, f Factory) {
	logger := util.GetLogger("Locators.Register")
	scheme = strings.ToLower(scheme)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[scheme]; exists {
		logger.Warn().Str("scheme", scheme).Msg("Locator factory already registered")
		return
	}
	r.factories[scheme] = f
	logger.Trace().Str("scheme", scheme).Msg("Registered locator factory")
}

// Schemes returns the registered schemes sorted
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemes := make([]string, 0, len(r.factories))
	for s := range r.factories {
		schemes = append(schemes, s)
	}
	slices.Sort(schemes)
	return schemes
}

// Resolve parses raw and builds a locator with the factory for its scheme
func (r *Registry) Resolve(raw string) (resourcefs.Locator, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("locator %q: missing scheme", raw)
	}

	r.mu.RLock()
	f, ok := r.factories[u.Scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("locator %q: %w %q", raw, ErrUnknownScheme, u.Scheme)
	}
	return f(u)
}

// ResolveAll resolves every URL in order and stops at the first failure
func (r *Registry) ResolveAll(raws []string) ([]resourcefs.Locator, error) {
	locs := make([]resourcefs.Locator, 0, len(raws))
	for _, raw := range raws {
		loc, err := r.Resolve(raw)
		if err != nil {
			return nil, err
		}
		locs = append(locs, loc)
	}
	return locs, nil
}
