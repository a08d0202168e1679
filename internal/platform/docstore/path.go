package docstore

import (
	"fmt"
	"strings"
)

func segments(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}

func validSegments(segs []string) bool {
	for _, s := range segs {
		if s == "" || s == "." || s == ".." {
			return false
		}
	}
	return true
}

// CheckDocPath reports whether p names a document.
func CheckDocPath(p string) error {
	segs := segments(p)
	if len(segs)%2 != 0 || !validSegments(segs) {
		return fmt.Errorf("%w: %q is not a document path", ErrInvalidPath, p)
	}
	return nil
}

// CheckCollectionPath reports whether p names a collection.
func CheckCollectionPath(p string) error {
	segs := segments(p)
	if len(segs)%2 != 1 || !validSegments(segs) {
		return fmt.Errorf("%w: %q is not a collection path", ErrInvalidPath, p)
	}
	return nil
}

// Join builds a path from segments.
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

// Split returns the parent collection and document ID of a document path.
func Split(docPath string) (collection, id string) {
	p := strings.Trim(docPath, "/")
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

// Clean trims leading and trailing slashes.
func Clean(p string) string {
	return strings.Trim(p, "/")
}
