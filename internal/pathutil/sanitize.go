// Package pathutil provides path handling shared by the storage backends and the HTTP layer.
package pathutil

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/ebogdum/datarepo/metadata"
)

// NormalizeRemote converts a caller-supplied remote path to forward-slash form.
// An empty path passes through unchanged.
func NormalizeRemote(p string) string {
	if p == "" {
		return p
	}
	return strings.ReplaceAll(p, "\\", "/")
}

// JoinRemote joins remote path elements with forward slashes, normalizing each element first.
func JoinRemote(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for _, e := range elem {
		if e == "" {
			continue
		}
		parts = append(parts, NormalizeRemote(e))
	}
	return path.Join(parts...)
}

// RelativeTo returns key with prefix and any separating slash removed.
// It returns false when key does not live under prefix.
func RelativeTo(prefix, key string) (string, bool) {
	if prefix == "" {
		return key, true
	}
	p := strings.TrimSuffix(prefix, "/") + "/"
	if !strings.HasPrefix(key, p) {
		return "", false
	}
	return strings.TrimPrefix(key, p), true
}

// Clean sanitizes a path received from an external caller.
// It rejects absolute paths and any ".." sequence that would climb above the root,
// and returns the path in rooted, cleaned form.
func Clean(p string) (string, error) {
	if p == "" {
		return "/", nil
	}

	if filepath.IsAbs(p) && p != "/" {
		return "", metadata.InvalidArgument("absolute path %q is not allowed", p)
	}

	cleaned := path.Clean("/" + strings.TrimPrefix(p, "/"))
	if cleaned == "/" {
		return cleaned, nil
	}

	depth := 0
	for _, part := range strings.Split(strings.TrimPrefix(p, "/"), "/") {
		if part == "" || part == "." {
			continue
		}
		if part == ".." {
			depth--
			if depth < 0 {
				return "", metadata.InvalidArgument("path %q escapes the root", p)
			}
		} else {
			depth++
		}
	}

	return cleaned, nil
}

// SafeJoin joins a local root with a relative path, ensuring
// the result stays within the root directory boundary.
func SafeJoin(root, rel string) (string, error) {
	cleanRoot := filepath.Clean(root)

	cleanRel, err := Clean(rel)
	if err != nil {
		return "", err
	}

	joined := filepath.Join(cleanRoot, filepath.FromSlash(strings.TrimPrefix(cleanRel, "/")))

	// Resolve symlinks when the target exists; a missing target is checked lexically
	checked := joined
	if resolved, err := filepath.EvalSymlinks(joined); err == nil {
		if resolvedRoot, rootErr := filepath.EvalSymlinks(cleanRoot); rootErr == nil {
			cleanRoot = resolvedRoot
		}
		checked = resolved
	}

	relPath, err := filepath.Rel(cleanRoot, checked)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", metadata.InvalidArgument("path %q escapes root %q", rel, root)
	}

	return joined, nil
}

// ValidatePath checks a caller-supplied path for control characters and traversal.
func ValidatePath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: path cannot be empty", metadata.ErrInvalidArgument)
	}

	if strings.Contains(p, "\x00") {
		return metadata.InvalidArgument("path contains a null byte")
	}

	for _, char := range p {
		if char < 32 && char != '\t' {
			return metadata.InvalidArgument("path contains control characters")
		}
	}

	_, err := Clean(p)
	return err
}
