// Package pkginfo extracts values from macOS installer PackageInfo
// files, the XML manifests found inside flat packages.
package pkginfo

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrKeyNotFound reports that no attribute or element with the
// requested name exists anywhere in the document.
var ErrKeyNotFound = errors.New("pkginfo: key not found")

// node is a generic XML element. Attributes and children are captured
// wholesale so documents of any shape can be searched.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []node     `xml:",any"`
}

// Find searches the XML document in data for key and returns its value.
// Each element is checked for an attribute named key before its tag
// name, and children are visited depth-first in document order. A
// matching element contributes its text with surrounding whitespace
// stripped; empty values are skipped.
func Find(data []byte, key string) (string, error) {
	var root node
	if err := xml.Unmarshal(data, &root); err != nil {
		return "", fmt.Errorf("parsing package info: %w", err)
	}
	if v, ok := match(&root, key); ok {
		return v, nil
	}
	if v, ok := search(&root, key); ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrKeyNotFound, key)
}

// FindFile reads the PackageInfo file at path and searches it for key.
func FindFile(path, key string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading package info: %w", err)
	}
	return Find(data, key)
}

// match reports whether the element itself carries the key, as one of
// its attributes or as its own tag.
func match(n *node, key string) (string, bool) {
	for _, attr := range n.Attrs {
		if attr.Name.Local == key && attr.Value != "" {
			return attr.Value, true
		}
	}
	if n.XMLName.Local == key {
		if v := strings.TrimSpace(n.Text); v != "" {
			return v, true
		}
	}
	return "", false
}

func search(n *node, key string) (string, bool) {
	for i := range n.Children {
		child := &n.Children[i]
		if v, ok := match(child, key); ok {
			return v, true
		}
		if v, ok := search(child, key); ok {
			return v, true
		}
	}
	return "", false
}
