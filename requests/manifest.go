// Package requests loads mount manifests: files that list the mounts to
// create and the resource URLs each one is built from.
package requests

import (
	"fmt"
	"os"
	"strings"

	"github.com/brettbedarf/resourcefs"
	"github.com/brettbedarf/resourcefs/config"
	"github.com/brettbedarf/resourcefs/filesystem"
)

// MountRequestDTO is the file representation of one mount
type MountRequestDTO struct {
	Name string   `yaml:"name" json:"name"`
	URLs []string `yaml:"urls" json:"urls"`
}

// ManifestDTO is the file representation of a manifest
type ManifestDTO struct {
	Mounts []MountRequestDTO `yaml:"mounts" json:"mounts"`
}

// Resolver turns resource URLs into locators, e.g. *locators.Registry
type Resolver interface {
	ResolveAll(raws []string) ([]resourcefs.Locator, error)
}

// MountRequest is a validated mount ready to be passed to a registry
type MountRequest struct {
	Name     string
	Locators []resourcefs.Locator
}

// LoadManifestFile reads a YAML (.yaml, .yml) or JSON (.json) manifest
func LoadManifestFile(path string) (*ManifestDTO, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var dto ManifestDTO
	if err := config.Unmarshal(path, data, &dto); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &dto, nil
}

// Validate checks for empty, malformed and duplicate mount names
func (m *ManifestDTO) Validate() error {
	seen := make(map[string]int, len(m.Mounts))
	for i, mnt := range m.Mounts {
		name := strings.TrimSpace(mnt.Name)
		if name == "" {
			return fmt.Errorf("mount %d: missing name", i)
		}
		if err := filesystem.ValidateMountName(name); err != nil {
			return err
		}
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("mount %q: duplicate of mount %d", name, prev)
		}
		seen[name] = i
	}
	return nil
}

// Convert validates the manifest and resolves every URL. Mounts keep the
// manifest order and locators keep the URL order.
func (m *ManifestDTO) Convert(r Resolver) ([]MountRequest, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	reqs := make([]MountRequest, 0, len(m.Mounts))
	for _, mnt := range m.Mounts {
		locs, err := r.ResolveAll(mnt.URLs)
		if err != nil {
			return nil, fmt.Errorf("mount %q: %w", mnt.Name, err)
		}
		reqs = append(reqs, MountRequest{Name: strings.TrimSpace(mnt.Name), Locators: locs})
	}
	return reqs, nil
}
