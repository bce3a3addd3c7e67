package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ebogdum/datarepo/internal/pathutil"
	"github.com/ebogdum/datarepo/metadata"
)

// cleanRemotePath sanitizes a remote path received from a client.
// Backslashes are treated as separators and the result carries no leading slash;
// the remote root is returned as "".
func cleanRemotePath(raw string) (string, error) {
	p := strings.TrimLeft(pathutil.NormalizeRemote(raw), "/")
	if p == "" {
		return "", nil
	}
	if err := pathutil.ValidatePath(p); err != nil {
		return "", err
	}
	cleaned, err := pathutil.Clean(p)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}

// remotePathParam extracts the wildcard remote path of a v1 route
func remotePathParam(r *http.Request) (string, error) {
	return cleanRemotePath(chi.URLParam(r, "*"))
}

// requireRemotePath is remotePathParam for routes that cannot act on the remote root
func requireRemotePath(r *http.Request) (string, error) {
	p, err := remotePathParam(r)
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", metadata.InvalidArgument("a remote path is required")
	}
	return p, nil
}

// localPath resolves a client-supplied local path under the configured local root
func localPath(root, rel string) (string, error) {
	if root == "" {
		return "", metadata.InvalidArgument("local paths are disabled: server.local_root is not set")
	}
	if rel == "" {
		return "", metadata.InvalidArgument("a local path is required")
	}
	trimmed := strings.TrimLeft(rel, "/")
	if trimmed == "" {
		return filepath.Clean(root), nil
	}
	if err := pathutil.ValidatePath(trimmed); err != nil {
		return "", err
	}
	return pathutil.SafeJoin(root, trimmed)
}
