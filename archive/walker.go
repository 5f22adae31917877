// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/maruel/natural"
	"golang.org/x/text/encoding"
)

// WalkFunc is called for each file in archive visited by Walk. The name
// argument is path of the file inside archive, decoded when archive does not
// declare UTF-8 names and code page was supplied. If an error is returned,
// processing stops.
type WalkFunc func(name string, file *zip.File) error

// Walk visits files in the archive whose (decoded) path starts with pattern
// in natural order of their names. Archives with absolute paths or ".."
// components are rejected as a whole.
func Walk(ctx context.Context, archive, pattern string, cp encoding.Encoding, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	type item struct {
		name string
		file *zip.File
	}

	items := make([]item, 0, len(r.File))
	for _, f := range r.File {
		if !isSafePath(f.Name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.Name)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		name := DecodeName(f, cp)
		if strings.HasPrefix(name, pattern) {
			items = append(items, item{name: name, file: f})
		}
	}
	slices.SortStableFunc(items, func(a, b item) int {
		switch {
		case natural.Less(a.name, b.name):
			return -1
		case natural.Less(b.name, a.name):
			return 1
		}
		return 0
	})

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := walkFn(it.name, it.file); err != nil {
			return err
		}
	}
	return nil
}

// DecodeName returns file name converted from cp when archive entry is not
// marked as UTF-8. Original name is kept if conversion fails.
func DecodeName(f *zip.File, cp encoding.Encoding) string {
	if cp == nil || !f.NonUTF8 {
		return f.Name
	}
	if n, err := cp.NewDecoder().String(f.Name); err == nil {
		return n
	}
	return f.Name
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	return !slices.Contains(strings.Split(name, "/"), "..")
}
