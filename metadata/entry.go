// Package metadata holds the domain types shared by every storage backend:
// listing entries, existence probes and the error taxonomy.
package metadata

import (
	"path"
	"time"
)

// Entry is one item returned by a directory listing
type Entry struct {
	Name        string    `json:"name"` // full object key or base-relative path
	IsDirectory bool      `json:"is_directory"`
	Size        int64     `json:"size"`
	MTime       time.Time `json:"mtime"`
	BackendType string    `json:"backend_type"` // "s3" or "sftp"
}

// BaseName returns the last element of the entry name
func (e *Entry) BaseName() string {
	return path.Base(e.Name)
}

// Presence is the outcome of an existence probe against a remote store.
type Presence int

const (
	// Absent means the remote store answered and the path does not exist
	Absent Presence = iota
	// Present means the path exists with the probed type
	Present
	// Indeterminate means the probe itself failed; the accompanying error holds the cause
	Indeterminate
)

func (p Presence) String() string {
	switch p {
	case Absent:
		return "absent"
	case Present:
		return "present"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}
