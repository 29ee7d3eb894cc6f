// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TMX builds a small Tiled map document with a tileset section of local id
// references and a layer of gid references.
type TMX struct {
	FirstGID int
	IDs      []int
	GIDs     []int
}

// String renders the document. Local ids use the open <tile id="N"> form;
// gids use the self-closing <tile gid="N"/> form, as Tiled writes them.
func (m TMX) String() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<map version="1.0" orientation="orthogonal" width="4" height="4" tilewidth="32" tileheight="32">` + "\n")
	fmt.Fprintf(&b, ` <tileset firstgid="%d" name="terrain" tilewidth="32" tileheight="32">`+"\n", m.FirstGID)
	for _, id := range m.IDs {
		fmt.Fprintf(&b, "  <tile id=\"%d\">\n   <properties>\n    <property name=\"walkable\" value=\"true\"/>\n   </properties>\n  </tile>\n", id)
	}
	b.WriteString(" </tileset>\n")
	b.WriteString(` <layer name="ground" width="4" height="4">` + "\n  <data>\n")
	for _, gid := range m.GIDs {
		fmt.Fprintf(&b, "   <tile gid=\"%d\"/>\n", gid)
	}
	b.WriteString("  </data>\n </layer>\n</map>\n")
	return b.String()
}

// WriteFile writes content to name inside dir and returns the full path.
//
// Postcondition: the file exists or the test fails.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture %s: %v", path, err)
	}
	return path
}

// ReadFile returns the content of path or fails the test.
func ReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
