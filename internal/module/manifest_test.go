package module

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	content := `name: app
version: 1.2.3
dependencies:
  - name: ejs.sys
    min: 1.0.0
    max: 2.0.0
  - name: ejs.io
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "app", m.Name)
	require.Equal(t, "1.2.3", m.Version)
	require.Len(t, m.Dependencies, 2)

	deps, err := m.Resolve()
	require.NoError(t, err)
	require.Equal(t, "ejs.sys", deps[0].Name)
	require.Equal(t, Version{Major: 1}, deps[0].Min)
	require.Equal(t, Version{Major: 2}, deps[0].Max)
	// An open-ended dependency accepts any version.
	require.Equal(t, Version{}, deps[1].Min)
	require.Equal(t, Version{Major: VersionFactor - 1, Minor: VersionFactor - 1, Patch: VersionFactor - 1}, deps[1].Max)
}

func TestLoadManifestMissingFile(t *testing.T) {
	m, err := LoadManifest(filepath.Join(t.TempDir(), ManifestName))
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestLoadManifestMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)
	require.NoError(t, os.WriteFile(path, []byte(":\n  - not yaml"), 0644))
	_, err := LoadManifest(path)
	require.Error(t, err)
}

func TestManifestBadVersionRange(t *testing.T) {
	m := &Manifest{Dependencies: []ManifestDependency{{Name: "x", Min: "bogus"}}}
	_, err := m.Resolve()
	require.Error(t, err)
}
