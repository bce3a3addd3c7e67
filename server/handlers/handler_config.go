package handlers

import (
	"context"
	"time"

	"github.com/ebogdum/datarepo/core/log"
)

// HandlerConfig carries the settings shared by the v1 handlers
type HandlerConfig struct {
	LocalRoot        string        // local paths in sync requests resolve under this root
	FileOpTimeout    time.Duration // upper bound for a single backend call
	DefaultURLExpiry time.Duration
	MaxBodyBytes     int64
	Paths            log.Sanitizer // redaction applied to paths in request logs
}

const defaultMaxBodyBytes = 1 << 20

func (c HandlerConfig) maxBodyBytes() int64 {
	if c.MaxBodyBytes <= 0 {
		return defaultMaxBodyBytes
	}
	return c.MaxBodyBytes
}

// withTimeout bounds ctx by FileOpTimeout, when one is set
func (c HandlerConfig) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.FileOpTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.FileOpTimeout)
}
