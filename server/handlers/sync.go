package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/core"
	"github.com/ebogdum/datarepo/server/middleware"
)

// SyncRequest is the body of POST /v1/sync
type SyncRequest struct {
	LocalDir  string `json:"local_dir"`
	RemoteDir string `json:"remote_dir"`
}

// SingleRequest is the body of POST /v1/single
type SingleRequest struct {
	LocalFile string `json:"local_file"`
	RemoteDir string `json:"remote_dir"`
}

// SyncResponse reports the actions taken by a sync run
type SyncResponse struct {
	Algorithm string `json:"algorithm"`
	RemoteDir string `json:"remote_dir"`
	*core.SyncReport
}

// V1PushData handles POST /v1/sync requests.
// local_dir is resolved under the server's local root.
func V1PushData(fm *core.FileManager, cfg HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SyncRequest
		if err := decodeJSONBody(w, r, cfg.maxBodyBytes(), &req); err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}

		localDir, err := localPath(cfg.LocalRoot, req.LocalDir)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}
		remoteDir, err := cleanRemotePath(req.RemoteDir)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}

		ctx, cancel := cfg.withTimeout(r.Context())
		defer cancel()

		report, err := fm.PushData(ctx, localDir, remoteDir)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		SendJSONResponse(w, SyncResponse{Algorithm: "push", RemoteDir: remoteDir, SyncReport: report})

		logger.Info("Push sync completed via API",
			zap.String("local_dir", cfg.Paths.Path(localDir)),
			zap.String("remote_dir", cfg.Paths.Path(remoteDir)),
			zap.Strings("uploaded", cfg.Paths.Paths(report.Uploaded)),
			zap.Strings("deleted", cfg.Paths.Paths(report.Deleted)),
			zap.String("request_id", middleware.GetRequestID(r.Context())))
	}
}

// V1CopySingleFile handles POST /v1/single requests.
// local_file is resolved under the server's local root.
func V1CopySingleFile(fm *core.FileManager, cfg HandlerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SingleRequest
		if err := decodeJSONBody(w, r, cfg.maxBodyBytes(), &req); err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}

		localFile, err := localPath(cfg.LocalRoot, req.LocalFile)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}
		remoteDir, err := cleanRemotePath(req.RemoteDir)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusBadRequest)
			return
		}

		ctx, cancel := cfg.withTimeout(r.Context())
		defer cancel()

		report, err := fm.CopySingleFile(ctx, localFile, remoteDir)
		if err != nil {
			SendErrorResponse(w, logger, err, http.StatusInternalServerError)
			return
		}

		SendJSONResponse(w, SyncResponse{Algorithm: "single", RemoteDir: remoteDir, SyncReport: report})

		logger.Info("Single file sync completed via API",
			zap.String("local_file", cfg.Paths.Path(localFile)),
			zap.String("remote_dir", cfg.Paths.Path(remoteDir)),
			zap.Strings("deleted", cfg.Paths.Paths(report.Deleted)),
			zap.String("request_id", middleware.GetRequestID(r.Context())))
	}
}
