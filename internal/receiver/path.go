package receiver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fileferry/internal/engine"
)

// SafeJoin normalizes a wire-supplied relative path to local separator
// convention and joins it against root, rejecting any path whose
// components resolve to "." or ".." or that otherwise escapes root.
// This check exists on the Go side even though the original the engine
// is descended from does not perform it — spec.md mandates rejecting
// `..` segments explicitly, and that requirement is not weakened by the
// original's omission. See DESIGN.md.
func SafeJoin(root, relative string) (string, error) {
	if strings.HasPrefix(relative, "/") || strings.HasPrefix(relative, "\\") {
		return "", fmt.Errorf("receiver: %w: absolute path %q", engine.ErrPathEscape, relative)
	}
	for _, part := range strings.FieldsFunc(relative, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." || part == "." {
			return "", fmt.Errorf("receiver: %w: path segment %q in %q", engine.ErrPathEscape, part, relative)
		}
	}

	normalized := filepath.FromSlash(strings.ReplaceAll(relative, "\\", "/"))
	cleanRoot := filepath.Clean(root)
	dest := filepath.Clean(filepath.Join(cleanRoot, normalized))
	if dest != cleanRoot && !strings.HasPrefix(dest, cleanRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("receiver: %w: %q escapes save directory", engine.ErrPathEscape, relative)
	}
	return dest, nil
}
