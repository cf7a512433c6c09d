// Package sidecar reads and writes the ".meta" files that sit beside every
// asset and carry its identifier.
//
// Only the identifier line is interpreted: the second line of a sidecar
// must read "guid: <32 hex>". Everything else in the file is opaque and
// copied through untouched.
package sidecar

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meigma/unitypackage/internal/guid"
)

// Ext is the suffix appended to an asset's name to form its sidecar name.
const Ext = ".meta"

// FileFormatVersion is written into synthesized sidecars.
const FileFormatVersion = 2

const guidPrefix = "guid: "

// maxHeaderLine bounds the length of the first two lines; sidecars put
// short scalars there, so anything longer is not a sidecar.
const maxHeaderLine = 4096

// PathFor returns the sidecar path for the asset at name.
func PathFor(name string) string {
	return name + Ext
}

// IsSidecar reports whether name looks like a sidecar file.
func IsSidecar(name string) bool {
	return strings.HasSuffix(name, Ext)
}

// Parse extracts the identifier from sidecar content.
// It returns false if the second line is missing or malformed.
func Parse(r io.Reader) (string, bool) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 256), maxHeaderLine)
	for line := 0; sc.Scan(); line++ {
		if line < 1 {
			continue
		}
		text := strings.TrimSuffix(sc.Text(), "\r")
		id, ok := strings.CutPrefix(text, guidPrefix)
		if !ok {
			return "", false
		}
		id = strings.TrimRight(id, " \t")
		if !guid.Valid(id) {
			return "", false
		}
		return id, true
	}
	return "", false
}

// Read opens the sidecar at name in fsys and parses its identifier.
// A missing, unreadable, or malformed sidecar reports false.
func Read(fsys fs.FS, name string) (string, bool) {
	f, err := fsys.Open(name)
	if err != nil {
		return "", false
	}
	defer f.Close()
	return Parse(f)
}

// Synthesize returns the content of a minimal sidecar for id.
//
// The document is built as an untagged node so the identifier is always
// emitted as a plain scalar, even when it happens to read as a number.
func Synthesize(id string) ([]byte, error) {
	if !guid.Valid(id) {
		return nil, fmt.Errorf("sidecar: invalid identifier %q", id)
	}
	doc := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: "fileFormatVersion"},
			{Kind: yaml.ScalarNode, Value: strconv.Itoa(FileFormatVersion)},
			{Kind: yaml.ScalarNode, Value: "guid"},
			{Kind: yaml.ScalarNode, Value: id},
		},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("sidecar: encode: %w", err)
	}
	return out, nil
}
