package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/config"
	"github.com/ebogdum/datarepo/core"
	"github.com/ebogdum/datarepo/metadata"
)

func TestInitializeLogger(t *testing.T) {
	tests := []struct {
		cfg  config.LogConfig
		want zap.AtomicLevel
	}{
		{config.LogConfig{Level: "debug", Format: "console"}, zap.NewAtomicLevelAt(zap.DebugLevel)},
		{config.LogConfig{Level: "warn", Format: "json"}, zap.NewAtomicLevelAt(zap.WarnLevel)},
		{config.LogConfig{Level: "verbose", Format: "json"}, zap.NewAtomicLevelAt(zap.InfoLevel)},
	}
	for _, tt := range tests {
		logger, err := initializeLogger(tt.cfg)
		require.NoError(t, err)
		assert.Equal(t, tt.want.Level().Enabled(zap.DebugLevel), logger.Core().Enabled(zap.DebugLevel), tt.cfg.Level)
		assert.Equal(t, tt.want.Level().Enabled(zap.InfoLevel), logger.Core().Enabled(zap.InfoLevel), tt.cfg.Level)
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "***", maskSecret("short"))
	assert.Equal(t, "AKIA***", maskSecret("AKIAEXAMPLEKEY"))
}

func TestSplitDeleteArgs(t *testing.T) {
	dir, name := splitDeleteArgs([]string{"videos", "a.mp4"})
	assert.Equal(t, "videos", dir)
	assert.Equal(t, "a.mp4", name)

	dir, name = splitDeleteArgs([]string{"videos/cam1/a.mp4"})
	assert.Equal(t, "videos/cam1/", dir)
	assert.Equal(t, "a.mp4", name)
}

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer
	mtime := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, printEntries(&buf, []*metadata.Entry{
		{Name: "videos/a.mp4", Size: 6, MTime: mtime},
		{Name: "videos/cam1", IsDirectory: true},
	}))

	out := buf.String()
	assert.Contains(t, out, "videos/a.mp4")
	assert.Contains(t, out, "2023-05-01T12:00:00Z")
	assert.Contains(t, out, "d  ")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, &core.SyncReport{
		Uploaded: []string{"a.mp4"},
		Deleted:  []string{},
		Skipped:  []string{"b.mp4"},
	}))
	assert.JSONEq(t, `{"uploaded":["a.mp4"],"deleted":[],"skipped":["b.mp4"]}`, buf.String())
}
