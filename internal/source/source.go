// Package source loads Ejscript input files: BOM-based charset
// detection (UTF-8, UTF-16 LE/BE), argument-order preservation,
// duplicate rejection, and .ejs source vs .mod pre-compiled
// classification.
package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// File is one loaded input.
type File struct {
	Path string
	Text string
}

// Kind classifies an input path by extension.
type Kind int

const (
	KindScript Kind = iota //.ejs source
	KindModule             // .mod pre-compiled module
)

// Classify maps a path to its input kind.
func Classify(path string) (Kind, error) {
	switch filepath.Ext(path) {
	case ".ejs", ".es", ".js":
		return KindScript, nil
	case ".mod":
		return KindModule, nil
	}
	return 0, fmt.Errorf("%s: unrecognized input extension", path)
}

// Load reads and decodes one source file.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	text, err := Decode(data)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return File{Path: path, Text: text}, nil
}

// LoadAll loads paths in argument order, rejecting duplicates.
func LoadAll(paths []string) ([]File, error) {
	seen := make(map[string]bool, len(paths))
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		clean := filepath.Clean(p)
		if seen[clean] {
			return nil, fmt.Errorf("%s: duplicate input file", p)
		}
		seen[clean] = true
		f, err := Load(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// Decode converts raw file bytes to a UTF-8 string, honoring a UTF-8,
// UTF-16 LE, or UTF-16 BE byte order mark; BOM-less input is assumed
// UTF-8.
func Decode(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return string(data[3:]), nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return decodeUTF16(data, unicode.LittleEndian)
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return decodeUTF16(data, unicode.BigEndian)
	}
	return string(data), nil
}

func decodeUTF16(data []byte, endianness unicode.Endianness) (string, error) {
	decoder := unicode.UTF16(endianness, unicode.UseBOM).NewDecoder()
	utf8Data, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", fmt.Errorf("decoding UTF-16: %w", err)
	}
	return string(bytes.TrimPrefix(utf8Data, []byte{0xEF, 0xBB, 0xBF})), nil
}
