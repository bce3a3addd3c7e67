package handlers

import (
	"io"
	"mime"
	"net/http"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/core"
	"github.com/ebogdum/datarepo/metadata"
	"github.com/ebogdum/datarepo/metrics"
	"github.com/ebogdum/datarepo/server/middleware"
)

// maxURLExpiry is the longest lifetime an S3 presigned URL may carry
const maxURLExpiry = 7 * 24 * time.Hour

// ObjectURLResponse carries a presigned GET URL
type ObjectURLResponse struct {
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// V1GetObject handles GET /v1/objects/* requests by streaming the remote file
func V1GetObject(fm *core.FileManager, cfg HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remotePath, err := requireRemotePath(r)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}

		ctx, cancel := cfg.withTimeout(r.Context())
		defer cancel()

		body, err := fm.GetObject(ctx, remotePath)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}
		defer body.Close()

		w.Header().Set("Content-Type", contentType(remotePath))
		w.Header().Set("X-Datarepo-Backend", fm.BackendType())
		w.WriteHeader(http.StatusOK)

		written, err := io.Copy(w, body)
		metrics.RecordTransfer(fm.BackendType(), "download", written)
		if err != nil {
			// Headers are already sent; the client sees a truncated body
			logger.Error("Object stream interrupted",
				zap.String("path", cfg.Paths.Path(remotePath)),
				zap.Int64("bytes_written", written),
				zap.String("request_id", middleware.GetRequestID(r.Context())),
				zap.Error(err))
			return
		}

		logger.Debug("Object streamed via API",
			zap.String("path", cfg.Paths.Path(remotePath)),
			zap.Int64("bytes_written", written))
	}
}

// V1DeleteObject handles DELETE /v1/objects/* requests.
// Deleting a missing file succeeds.
func V1DeleteObject(fm *core.FileManager, cfg HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remotePath, err := requireRemotePath(r)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}

		ctx, cancel := cfg.withTimeout(r.Context())
		defer cancel()

		dir, name := path.Split(remotePath)
		if err := fm.DeleteFile(ctx, dir, name); err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)

		logger.Info("Object deleted via API",
			zap.String("path", cfg.Paths.Path(remotePath)),
			zap.String("request_id", middleware.GetRequestID(r.Context())))
	}
}

// V1GetObjectURL handles GET /v1/urls/* requests.
// The optional expiry query parameter is a Go duration such as "15m" or "24h".
func V1GetObjectURL(fm *core.FileManager, cfg HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remotePath, err := requireRemotePath(r)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}

		expiry, err := parseExpiry(r.URL.Query().Get("expiry"), cfg.DefaultURLExpiry)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}

		ctx, cancel := cfg.withTimeout(r.Context())
		defer cancel()

		issued := time.Now().UTC()
		objectURL, err := fm.GetObjectURL(ctx, remotePath, expiry)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		SendJSONResponse(w, ObjectURLResponse{
			Path:      remotePath,
			URL:       objectURL,
			ExpiresAt: issued.Add(expiry),
		})
	}
}

func parseExpiry(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		if fallback <= 0 || fallback > maxURLExpiry {
			return maxURLExpiry, nil
		}
		return fallback, nil
	}

	expiry, err := time.ParseDuration(raw)
	if err != nil {
		return 0, metadata.InvalidArgument("invalid expiry %q: %v", raw, err)
	}
	if expiry <= 0 || expiry > maxURLExpiry {
		return 0, metadata.InvalidArgument("expiry must be between 1s and %s, got %s", maxURLExpiry, expiry)
	}
	return expiry, nil
}

func contentType(remotePath string) string {
	if ct := mime.TypeByExtension(path.Ext(remotePath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
