package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/core"
	"github.com/ebogdum/datarepo/metadata"
	"github.com/ebogdum/datarepo/server/middleware"
)

// DirectoryListingResponse represents the response for directory listing operations
type DirectoryListingResponse struct {
	Path    string            `json:"path"`
	Backend string            `json:"backend"`
	Count   int               `json:"count"`
	Items   []*metadata.Entry `json:"items"`
}

// NamesResponse holds the base names of a remote directory's entries
type NamesResponse struct {
	Path  string   `json:"path"`
	Count int      `json:"count"`
	Names []string `json:"names"`
}

// V1ListDirectory handles GET /v1/directories/* requests.
// A missing directory lists as empty.
func V1ListDirectory(fm *core.FileManager, cfg HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remotePath, err := remotePathParam(r)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}

		ctx, cancel := cfg.withTimeout(r.Context())
		defer cancel()

		entries, err := fm.ListDirectory(ctx, remotePath)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []*metadata.Entry{}
		}

		w.Header().Set("X-Datarepo-Count", fmt.Sprintf("%d", len(entries)))
		SendJSONResponse(w, DirectoryListingResponse{
			Path:    remotePath,
			Backend: fm.BackendType(),
			Count:   len(entries),
			Items:   entries,
		})

		logger.Debug("Directory listed via API",
			zap.String("path", cfg.Paths.Path(remotePath)),
			zap.Int("items_count", len(entries)),
			zap.String("request_id", middleware.GetRequestID(r.Context())))
	}
}

// V1ListNames handles GET /v1/names/* requests
func V1ListNames(fm *core.FileManager, cfg HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remotePath, err := remotePathParam(r)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}

		ctx, cancel := cfg.withTimeout(r.Context())
		defer cancel()

		names, err := fm.ListRemote(ctx, remotePath)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}
		if names == nil {
			names = []string{}
		}

		SendJSONResponse(w, NamesResponse{Path: remotePath, Count: len(names), Names: names})
	}
}

// V1CreateDirectory handles POST /v1/directories/* requests.
// Creating an existing directory succeeds.
func V1CreateDirectory(fm *core.FileManager, cfg HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remotePath, err := requireRemotePath(r)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}

		ctx, cancel := cfg.withTimeout(r.Context())
		defer cancel()

		if err := fm.CreateDirectory(ctx, remotePath); err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		SendJSONResponseWithStatus(w, http.StatusCreated, map[string]string{"path": remotePath})

		logger.Info("Directory created via API",
			zap.String("path", cfg.Paths.Path(remotePath)),
			zap.String("request_id", middleware.GetRequestID(r.Context())))
	}
}

// V1DeleteDirectory handles DELETE /v1/directories/* requests.
// The whole tree is removed; deleting a missing directory succeeds.
func V1DeleteDirectory(fm *core.FileManager, cfg HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remotePath, err := requireRemotePath(r)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}

		ctx, cancel := cfg.withTimeout(r.Context())
		defer cancel()

		if err := fm.DeleteDirectory(ctx, remotePath); err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)

		logger.Info("Directory deleted via API",
			zap.String("path", cfg.Paths.Path(remotePath)),
			zap.String("request_id", middleware.GetRequestID(r.Context())))
	}
}
