// Package log redacts file paths before they reach request logs.
package log

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/ebogdum/datarepo/metadata"
)

// SanitizationMode controls how paths appear in logs
type SanitizationMode int

const (
	// FullMode logs paths unchanged
	FullMode SanitizationMode = iota
	// TruncateMode keeps the head and tail of long paths
	TruncateMode
	// HashMode replaces paths with a short digest
	HashMode
)

// ParseMode maps a log.path_mode setting to a SanitizationMode
func ParseMode(s string) (SanitizationMode, error) {
	switch strings.ToLower(s) {
	case "", "full":
		return FullMode, nil
	case "truncate":
		return TruncateMode, nil
	case "hash":
		return HashMode, nil
	default:
		return FullMode, metadata.InvalidArgument("unknown path log mode %q", s)
	}
}

// Sanitizer redacts paths according to its mode. The zero value logs paths in full.
type Sanitizer struct {
	Mode SanitizationMode
}

// Path sanitizes a single path
func (s Sanitizer) Path(p string) string {
	if p == "" {
		return ""
	}

	switch s.Mode {
	case HashMode:
		hash := sha256.Sum256([]byte(p))
		return fmt.Sprintf("hash:%x", hash[:8])
	case TruncateMode:
		if len(p) <= 20 {
			return p
		}
		return p[:10] + "..." + p[len(p)-7:]
	default:
		return p
	}
}

// Paths sanitizes a list of names, as reported by a sync run
func (s Sanitizer) Paths(ps []string) []string {
	if s.Mode == FullMode {
		return ps
	}
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = s.Path(p)
	}
	return out
}
