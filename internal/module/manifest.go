package module

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// ManifestName is the dependency manifest a module directory may carry;
// `ejsc compile` folds its entries into the output module's Dependency
// sections. `--use-module` dependencies are added separately and are not
// resolved against it.
const ManifestName = ".ejsmod.yaml"

// ManifestDependency is one declared dependency with its accepted
// version range.
type ManifestDependency struct {
	Name     string `yaml:"name"`
	Checksum uint32 `yaml:"checksum,omitempty"`
	Min      string `yaml:"min,omitempty"`
	Max      string `yaml:"max,omitempty"`
}

// Manifest is the parsed.ejsmod.yaml build manifest.
type Manifest struct {
	Name         string               `yaml:"name,omitempty"`
	Version      string               `yaml:"version,omitempty"`
	Dependencies []ManifestDependency `yaml:"dependencies,omitempty"`
}

// LoadManifest reads and parses path. A missing file is not an error —
// most compilations have no manifest — and returns (nil, nil).
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// Resolve converts the manifest's version strings into Dependency
// records ready for the module writer.
func (m *Manifest) Resolve() ([]Dependency, error) {
	var deps []Dependency
	for _, d := range m.Dependencies {
		minV, err := ParseVersion(d.Min)
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", d.Name, err)
		}
		maxV, err := ParseVersion(d.Max)
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", d.Name, err)
		}
		if d.Max == "" {
			maxV = Version{Major: VersionFactor - 1, Minor: VersionFactor - 1, Patch: VersionFactor - 1}
		}
		deps = append(deps, Dependency{Name: d.Name, Checksum: d.Checksum, Min: minV, Max: maxV})
	}
	return deps, nil
}
