package safety

import (
	"fmt"
	"strings"
)

// CleanEntryName validates a single path component received from the
// remote store before it is joined into an archive entry name.
// Drive names are arbitrary strings, so separators and traversal
// segments must not leak into tar entry paths.
func CleanEntryName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name is empty")
	}
	clean := strings.ReplaceAll(name, "/", "_")
	clean = strings.ReplaceAll(clean, "\\", "_")
	clean = strings.Trim(clean, " ")
	if clean == "" || clean == "." || clean == ".." {
		return "", fmt.Errorf("name %q is not usable as an archive entry", name)
	}
	return clean, nil
}

// CleanFileName sanitizes a remote folder name for use as a local
// filename. The default archive name is derived from the folder name,
// which the local filesystem has no say over.
func CleanFileName(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '\x00':
			return '_'
		}
		return r
	}, name)
	clean = strings.Trim(clean, " .")
	if clean == "" {
		return "folder"
	}
	return clean
}
