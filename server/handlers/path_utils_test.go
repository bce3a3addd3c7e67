package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebogdum/datarepo/locks"
	"github.com/ebogdum/datarepo/metadata"
)

func TestCleanRemotePath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: ""},
		{in: "/", want: ""},
		{in: "videos", want: "videos"},
		{in: "/videos/cam1/", want: "videos/cam1"},
		{in: "videos\\cam1\\a.mp4", want: "videos/cam1/a.mp4"},
		{in: "videos/./cam1//a.mp4", want: "videos/cam1/a.mp4"},
		{in: "videos/cam1/../a.mp4", want: "videos/a.mp4"},
		{in: "../etc/passwd", wantErr: true},
		{in: "videos/../../x", wantErr: true},
		{in: "videos/\x00a.mp4", wantErr: true},
		{in: "videos/\na.mp4", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			got, err := cleanRemotePath(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, metadata.ErrInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalPath(t *testing.T) {
	got, err := localPath("/srv/datarepo-test", "in/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "/srv/datarepo-test/in/a.mp4", got)

	got, err = localPath("/srv/datarepo-test", "/")
	require.NoError(t, err)
	assert.Equal(t, "/srv/datarepo-test", got)

	for _, rel := range []string{"", "../etc", "in/../../etc"} {
		_, err := localPath("/srv/datarepo-test", rel)
		assert.True(t, errors.Is(err, metadata.ErrInvalidArgument), rel)
	}

	_, err = localPath("", "in")
	assert.True(t, errors.Is(err, metadata.ErrInvalidArgument))
}

func TestParseExpiry(t *testing.T) {
	got, err := parseExpiry("", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, got)

	got, err = parseExpiry("", 0)
	require.NoError(t, err)
	assert.Equal(t, maxURLExpiry, got)

	got, err = parseExpiry("90s", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, got)

	for _, raw := range []string{"tomorrow", "0s", "169h"} {
		_, err := parseExpiry(raw, time.Hour)
		assert.True(t, errors.Is(err, metadata.ErrInvalidArgument), raw)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{metadata.InvalidArgument("bad"), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{fmt.Errorf("open: %w", metadata.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("%w: videos", locks.ErrLockHeld), http.StatusConflict, "DIRECTORY_LOCKED"},
		{fmt.Errorf("%w: presign", metadata.ErrUnsupported), http.StatusNotImplemented, "UNSUPPORTED"},
		{metadata.Connection("list", errors.New("reset")), http.StatusBadGateway, "REMOTE_UNAVAILABLE"},
		{fmt.Errorf("%w: disabled", metadata.ErrConfiguration), http.StatusServiceUnavailable, "BACKEND_NOT_CONFIGURED"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		status, code := classifyError(tt.err, http.StatusInternalServerError)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
