package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ebogdum/datarepo/backends"
	"github.com/ebogdum/datarepo/backends/noop"
	"github.com/ebogdum/datarepo/backends/s3"
	"github.com/ebogdum/datarepo/backends/s3/s3test"
	"github.com/ebogdum/datarepo/config"
	"github.com/ebogdum/datarepo/core"
	"github.com/ebogdum/datarepo/locks"
	"github.com/ebogdum/datarepo/server/handlers"
)

const localRoot = "/srv/datarepo-test"

type testServer struct {
	handler http.Handler
	fm      *core.FileManager
	fs      afero.Fs
}

func testConfig() config.AppConfig {
	cfg := config.DefaultAppConfig()
	cfg.Control.Storage = config.StorageMinIO
	cfg.Server.LocalRoot = localRoot
	cfg.Server.SyncRateLimit = 0
	return cfg
}

func newTestServer(t *testing.T, cfg config.AppConfig, opts core.Options) *testServer {
	t.Helper()
	fs := afero.NewMemMapFs()
	logger := zaptest.NewLogger(t)

	store, err := s3.NewS3AdapterWithClient(context.Background(), s3test.NewClient(), "media", 0, fs, logger)
	require.NoError(t, err)
	return newTestServerWithStore(t, cfg, store, fs, opts)
}

func newTestServerWithStore(t *testing.T, cfg config.AppConfig, store backends.Storage, fs afero.Fs, opts core.Options) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	fm := core.NewFileManager(store, fs, opts, logger)

	router, err := NewRouter(fm, cfg, logger)
	require.NoError(t, err)
	return &testServer{handler: router, fm: fm, fs: fs}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seed(t *testing.T, remotePath, content string) {
	t.Helper()
	local := "/seed/" + strings.ReplaceAll(remotePath, "/", "_")
	require.NoError(t, afero.WriteFile(s.fs, local, []byte(content), 0644))
	require.NoError(t, s.fm.StoreFile(context.Background(), remotePath, local))
}

func (s *testServer) names(t *testing.T, remoteDir string) []string {
	t.Helper()
	names, err := s.fm.ListRemote(context.Background(), remoteDir)
	require.NoError(t, err)
	sort.Strings(names)
	return names
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handlers.ErrorResponse
	decode(t, rec, &resp)
	return resp.Code
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), core.Options{})

	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "s3", body["backend"])
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := newTestServer(t, testConfig(), core.Options{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "sync-run-42")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "sync-run-42", rec.Header().Get("X-Request-ID"))
}

func TestMetricsEndpointToggle(t *testing.T) {
	s := newTestServer(t, testConfig(), core.Options{})
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/metrics", "").Code)

	cfg := testConfig()
	cfg.Metrics.Enabled = false
	s = newTestServer(t, cfg, core.Options{})
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/metrics", "").Code)
}

func TestNewRouterRejectsUnknownPathMode(t *testing.T) {
	cfg := testConfig()
	cfg.Log.PathMode = "redact"
	fm := core.NewFileManager(noop.NewNoopAdapter(), afero.NewMemMapFs(), core.Options{}, zaptest.NewLogger(t))

	_, err := NewRouter(fm, cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestListDirectoryAndNames(t *testing.T) {
	s := newTestServer(t, testConfig(), core.Options{})
	s.seed(t, "videos/a.mp4", "a")
	s.seed(t, "videos/b.mp4", "bb")

	rec := s.do(t, http.MethodGet, "/v1/directories/videos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-Datarepo-Count"))

	var listing handlers.DirectoryListingResponse
	decode(t, rec, &listing)
	assert.Equal(t, "videos", listing.Path)
	assert.Equal(t, "s3", listing.Backend)
	assert.Equal(t, 2, listing.Count)

	rec = s.do(t, http.MethodGet, "/v1/names/videos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var names handlers.NamesResponse
	decode(t, rec, &names)
	assert.ElementsMatch(t, []string{"a.mp4", "b.mp4"}, names.Names)

	// a missing directory lists as empty
	rec = s.do(t, http.MethodGet, "/v1/directories/missing", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &listing)
	assert.Equal(t, 0, listing.Count)
	assert.NotNil(t, listing.Items)
}

func TestCreateAndDeleteDirectory(t *testing.T) {
	s := newTestServer(t, testConfig(), core.Options{})
	s.seed(t, "videos/cam1/a.mp4", "a")

	rec := s.do(t, http.MethodPost, "/v1/directories/videos/cam2", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = s.do(t, http.MethodDelete, "/v1/directories/videos/cam1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, s.names(t, "videos/cam1"))

	// ensure-absence semantics
	rec = s.do(t, http.MethodDelete, "/v1/directories/videos/cam1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// the remote root cannot be deleted through the API
	rec = s.do(t, http.MethodDelete, "/v1/directories/", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", errorCode(t, rec))
}

func TestGetObject(t *testing.T) {
	s := newTestServer(t, testConfig(), core.Options{})
	s.seed(t, "videos/a.mp4", "frames")

	rec := s.do(t, http.MethodGet, "/v1/objects/videos/a.mp4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "frames", rec.Body.String())
	assert.Equal(t, "s3", rec.Header().Get("X-Datarepo-Backend"))
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))

	rec = s.do(t, http.MethodGet, "/v1/objects/videos/missing.mp4", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestDeleteObject(t *testing.T) {
	s := newTestServer(t, testConfig(), core.Options{})
	s.seed(t, "videos/a.mp4", "a")
	s.seed(t, "videos/b.mp4", "b")

	rec := s.do(t, http.MethodDelete, "/v1/objects/videos/a.mp4", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"b.mp4"}, s.names(t, "videos"))

	rec = s.do(t, http.MethodDelete, "/v1/objects/videos/a.mp4", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetObjectURL(t *testing.T) {
	s := newTestServer(t, testConfig(), core.Options{})
	s.seed(t, "videos/a.mp4", "a")

	rec := s.do(t, http.MethodGet, "/v1/urls/videos/a.mp4?expiry=15m", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp handlers.ObjectURLResponse
	decode(t, rec, &resp)
	assert.Equal(t, "videos/a.mp4", resp.Path)
	assert.Contains(t, resp.URL, "/media/videos/a.mp4?")
	assert.Contains(t, resp.URL, "X-Amz-Expires=900")
	assert.False(t, resp.ExpiresAt.IsZero())

	for _, expiry := range []string{"soon", "-1m", "720h"} {
		rec = s.do(t, http.MethodGet, "/v1/urls/videos/a.mp4?expiry="+expiry, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, expiry)
	}
}

func TestPushData(t *testing.T) {
	s := newTestServer(t, testConfig(), core.Options{})
	require.NoError(t, afero.WriteFile(s.fs, localRoot+"/in/a.mp4", []byte("a"), 0644))
	require.NoError(t, afero.WriteFile(s.fs, localRoot+"/in/b.mp4", []byte("b"), 0644))
	s.seed(t, "videos/b.mp4", "b")
	s.seed(t, "videos/c.mp4", "c")

	rec := s.do(t, http.MethodPost, "/v1/sync", `{"local_dir":"in","remote_dir":"videos"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.SyncResponse
	decode(t, rec, &resp)
	assert.Equal(t, "push", resp.Algorithm)
	assert.Equal(t, "videos", resp.RemoteDir)
	assert.Equal(t, []string{"a.mp4"}, resp.Uploaded)
	assert.Equal(t, []string{"c.mp4"}, resp.Deleted)
	assert.Equal(t, []string{"b.mp4"}, resp.Skipped)
	assert.Equal(t, []string{"a.mp4", "b.mp4"}, s.names(t, "videos"))
}

func TestCopySingleFile(t *testing.T) {
	s := newTestServer(t, testConfig(), core.Options{})
	require.NoError(t, afero.WriteFile(s.fs, localRoot+"/in/x.mp4", []byte("x"), 0644))
	s.seed(t, "videos/old.mp4", "old")

	rec := s.do(t, http.MethodPost, "/v1/single", `{"local_file":"/in/x.mp4","remote_dir":"/videos"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.SyncResponse
	decode(t, rec, &resp)
	assert.Equal(t, "single", resp.Algorithm)
	assert.Equal(t, []string{"x.mp4"}, resp.Uploaded)
	assert.Equal(t, []string{"old.mp4"}, resp.Deleted)
	assert.Equal(t, []string{"x.mp4"}, s.names(t, "videos"))
}

func TestSyncRequestValidation(t *testing.T) {
	s := newTestServer(t, testConfig(), core.Options{})
	require.NoError(t, afero.WriteFile(s.fs, localRoot+"/in/a.mp4", []byte("a"), 0644))

	tests := []struct {
		name, target, body string
	}{
		{"malformed", "/v1/sync", `{"local_dir":`},
		{"unknown field", "/v1/sync", `{"local_dir":"in","remote_dir":"videos","force":true}`},
		{"local escape", "/v1/sync", `{"local_dir":"../etc","remote_dir":"videos"}`},
		{"remote escape", "/v1/sync", `{"local_dir":"in","remote_dir":"videos/../../x"}`},
		{"missing local dir", "/v1/sync", `{"local_dir":"nope","remote_dir":"videos"}`},
		{"local file is a directory", "/v1/single", `{"local_file":"in","remote_dir":"videos"}`},
		{"local file required", "/v1/single", `{"remote_dir":"videos"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "INVALID_ARGUMENT", errorCode(t, rec))
		})
	}
	assert.Empty(t, s.names(t, "videos"))
}

func TestSyncRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Server.SyncRateLimit = 0.5
	s := newTestServer(t, cfg, core.Options{})
	require.NoError(t, afero.WriteFile(s.fs, localRoot+"/in/a.mp4", []byte("a"), 0644))

	body := `{"local_dir":"in","remote_dir":"videos"}`
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/sync", body).Code)

	rec := s.do(t, http.MethodPost, "/v1/single", `{"local_file":"in/a.mp4","remote_dir":"videos"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errorCode(t, rec))

	// other routes are not limited
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/names/videos", "").Code)
}

func TestSyncConflictsWithHeldLock(t *testing.T) {
	lockManager := locks.NewLocalManager()
	s := newTestServer(t, testConfig(), core.Options{Locks: lockManager})
	require.NoError(t, afero.WriteFile(s.fs, localRoot+"/in/a.mp4", []byte("a"), 0644))

	acquired, err := lockManager.Acquire(context.Background(), locks.DirectoryKey("s3", "videos"))
	require.NoError(t, err)
	require.True(t, acquired)

	rec := s.do(t, http.MethodPost, "/v1/sync", `{"local_dir":"in","remote_dir":"videos"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DIRECTORY_LOCKED", errorCode(t, rec))
	assert.Empty(t, s.names(t, "videos"))
}

func TestDisabledBackendIsUnavailable(t *testing.T) {
	s := newTestServerWithStore(t, testConfig(), noop.NewNoopAdapter(), afero.NewMemMapFs(), core.Options{})

	rec := s.do(t, http.MethodGet, "/v1/names/videos", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "BACKEND_NOT_CONFIGURED", errorCode(t, rec))
}
