package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ejscript/ejsc/internal/module"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func TestParseDefines(t *testing.T) {
	defs := parseDefines([]string{"FEATURE", "OFF=false", "LEVEL=2", "NAME=prod"})
	require.Equal(t, true, defs["FEATURE"])
	require.Equal(t, false, defs["OFF"])
	require.Equal(t, float64(2), defs["LEVEL"])
	require.Equal(t, "prod", defs["NAME"])
	require.Nil(t, parseDefines(nil))
}

func TestDefaultOutputPath(t *testing.T) {
	require.Equal(t, "script.mod", defaultOutputPath("script.ejs"))
	require.Equal(t, "plain.mod", defaultOutputPath("plain"))
}

func TestCompileFlagsOptions(t *testing.T) {
	cf := compileFlags{mode: "strict", lang: "ecma", optimize: 2, moduleVersion: "1.2.3"}
	opts, err := cf.options(nil)
	require.NoError(t, err)
	require.Equal(t, 2, opts.Optimize)
	require.Equal(t, module.Version{Major: 1, Minor: 2, Patch: 3}, opts.Version)

	cf.mode = "bogus"
	_, err = cf.options(nil)
	require.Error(t, err)
}

func TestOptionsPickUpManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := `name: fromfile
version: 2.0.0
dependencies:
  - name: ejs.sys
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, module.ManifestName), []byte(manifest), 0644))
	script := filepath.Join(dir, "main.ejs")
	require.NoError(t, os.WriteFile(script, []byte("var x;"), 0644))

	cf := compileFlags{mode: "standard", lang: "plus"}
	opts, err := cf.options([]string{script})
	require.NoError(t, err)
	require.Equal(t, "fromfile", opts.ModuleName)
	require.Equal(t, module.Version{Major: 2}, opts.Version)
	require.Len(t, opts.Dependencies, 1)
	require.Equal(t, "ejs.sys", opts.Dependencies[0].Name)
}

func TestCompileCommandWritesModule(t *testing.T) {
	script := writeScript(t, "main.ejs", "var x = 1;")
	out := filepath.Join(filepath.Dir(script), "out.mod")

	compileOpts = compileFlags{optimize: 1, mode: "standard", lang: "plus", output: out}
	compileDump = false
	diagnosticsFormat = "text"
	compileReport = ""
	require.NoError(t, runCompile(nil, []string{script}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	images, _, err := module.Read(data)
	require.NoError(t, err)
	require.Len(t, images, 1)
	require.Equal(t, "default", images[0].Name)
}

func TestCompileCommandRejectsBrokenSource(t *testing.T) {
	script := writeScript(t, "bad.ejs", "var = ;")
	compileOpts = compileFlags{optimize: 1, mode: "standard", lang: "plus"}
	diagnosticsFormat = "text"
	err := runCompile(nil, []string{script})
	require.Error(t, err)
	require.NoFileExists(t, filepath.Join(filepath.Dir(script), "bad.mod"),
		"no module file is written when any error occurred")
}

func TestLoadScriptsRejectsModInput(t *testing.T) {
	_, err := loadScripts([]string{"prebuilt.mod"})
	require.Error(t, err)
}
