package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodePlainUTF8(t *testing.T) {
	text, err := Decode([]byte("var x = 1;"))
	require.NoError(t, err)
	require.Equal(t, "var x = 1;", text)
}

func TestDecodeUTF8BOM(t *testing.T) {
	text, err := Decode(append([]byte{0xEF, 0xBB, 0xBF}, "var x;"...))
	require.NoError(t, err)
	require.Equal(t, "var x;", text)
}

func TestDecodeUTF16LE(t *testing.T) {
	// "hi" with a UTF-16 LE BOM.
	data := []byte{0xFF, 0xFE, 'h', 0, 'i', 0}
	text, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, "hi", text)
}

func TestDecodeUTF16BE(t *testing.T) {
	data := []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}
	text, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, "hi", text)
}

func TestClassify(t *testing.T) {
	kind, err := Classify("a.ejs")
	require.NoError(t, err)
	require.Equal(t, KindScript, kind)

	kind, err = Classify("b.mod")
	require.NoError(t, err)
	require.Equal(t, KindModule, kind)

	_, err = Classify("c.txt")
	require.Error(t, err)
}

func TestLoadAllRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.ejs")
	require.NoError(t, os.WriteFile(path, []byte("var x;"), 0644))

	files, err := LoadAll([]string{path})
	require.NoError(t, err)
	require.Len(t, files, 1)

	_, err = LoadAll([]string{path, path})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")
}

func TestLoadAllPreservesArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.ejs")
	b := filepath.Join(dir, "b.ejs")
	require.NoError(t, os.WriteFile(a, []byte("// a"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("// b"), 0644))

	files, err := LoadAll([]string{b, a})
	require.NoError(t, err)
	require.Equal(t, b, files[0].Path)
	require.Equal(t, a, files[1].Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "ghost.ejs"))
	require.Error(t, err)
}
