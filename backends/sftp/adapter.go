// Package sftp implements the remote store contract over a hierarchical remote
// filesystem reached through an SSH file-transfer session.
package sftp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/ebogdum/datarepo/config"
	"github.com/ebogdum/datarepo/internal/pathutil"
	"github.com/ebogdum/datarepo/metadata"
	"github.com/ebogdum/datarepo/metrics"
)

const backendType = "sftp"

// dirMode is applied to every directory the adapter creates
const dirMode os.FileMode = 0755

// SFTPAdapter implements the backends.Storage interface for SFTP servers.
// Every public path is resolved under basePath.
type SFTPAdapter struct {
	client   *sftp.Client
	conn     *ssh.Client // nil when the caller supplied the sftp client
	basePath string
	fs       afero.Fs
	logger   *zap.Logger
}

// NewSFTPAdapter dials the configured host and opens one SFTP session
func NewSFTPAdapter(ctx context.Context, cfg config.SFTPConfig, fs afero.Fs, logger *zap.Logger) (*SFTPAdapter, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: sftp host is required", metadata.ErrConfiguration)
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("%w: sftp user is required", metadata.ErrConfiguration)
	}

	auth, err := authMethods(cfg, fs)
	if err != nil {
		return nil, err
	}
	hostKeyCallback, err := hostKeyCallback(cfg, logger)
	if err != nil {
		return nil, err
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))

	sshConfig := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.DialTimeout,
	}

	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, metadata.Connection("failed to dial "+addr, err)
	}

	c, chans, reqs, err := ssh.NewClientConn(netConn, addr, sshConfig)
	if err != nil {
		netConn.Close()
		return nil, metadata.Connection("ssh handshake with "+addr+" failed", err)
	}
	sshClient := ssh.NewClient(c, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, metadata.Connection("failed to start sftp subsystem on "+addr, err)
	}

	adapter := NewSFTPAdapterWithClient(client, cfg.BasePath, fs, logger)
	adapter.conn = sshClient

	logger.Info("Connected to SFTP server",
		zap.String("addr", addr),
		zap.String("user", cfg.User),
		zap.String("base_path", adapter.basePath))

	return adapter, nil
}

// NewSFTPAdapterWithClient wraps an established SFTP session
func NewSFTPAdapterWithClient(client *sftp.Client, basePath string, fs afero.Fs, logger *zap.Logger) *SFTPAdapter {
	return &SFTPAdapter{
		client:   client,
		basePath: cleanBase(basePath),
		fs:       fs,
		logger:   logger.With(zap.String("backend", backendType)),
	}
}

func authMethods(cfg config.SFTPConfig, fs afero.Fs) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if cfg.PrivateKeyPath != "" {
		key, err := afero.ReadFile(fs, cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read private key %s: %v", metadata.ErrConfiguration, cfg.PrivateKeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse private key %s: %v", metadata.ErrConfiguration, cfg.PrivateKeyPath, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: sftp password or private key is required", metadata.ErrConfiguration)
	}
	return methods, nil
}

func hostKeyCallback(cfg config.SFTPConfig, logger *zap.Logger) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		logger.Warn("SFTP host key verification is disabled", zap.String("host", cfg.Host))
		return ssh.InsecureIgnoreHostKey(), nil
	}

	knownHostsPath := cfg.KnownHostsPath
	if knownHostsPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: cannot locate known_hosts: %v", metadata.ErrConfiguration, err)
		}
		knownHostsPath = filepath.Join(home, ".ssh", "known_hosts")
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load known_hosts %s: %v", metadata.ErrConfiguration, knownHostsPath, err)
	}
	return callback, nil
}

// Type returns "sftp"
func (a *SFTPAdapter) Type() string {
	return backendType
}

// Close ends the SFTP session and the underlying SSH connection
func (a *SFTPAdapter) Close() error {
	err := a.client.Close()
	if a.conn != nil {
		if connErr := a.conn.Close(); err == nil {
			err = connErr
		}
	}
	return err
}

// cleanBase normalizes sftp.base_path. A relative base stays relative and is
// resolved by the server against the login directory; "" means the login directory.
func cleanBase(basePath string) string {
	b := pathutil.NormalizeRemote(basePath)
	if b == "" {
		return "."
	}
	return path.Clean(b)
}

// resolve maps a caller path to a remote path under the base.
// Paths already rooted at the base are not prefixed a second time;
// paths that climb out of the base are rejected.
func (a *SFTPAdapter) resolve(remotePath string) (string, error) {
	p := path.Clean(pathutil.NormalizeRemote(remotePath))

	var full string
	if a.rootedAtBase(p) {
		full = p
	} else {
		full = path.Join(a.basePath, p)
	}

	if !a.within(full) {
		return "", metadata.InvalidArgument("remote path %q escapes base path %q", remotePath, a.basePath)
	}
	return full, nil
}

func (a *SFTPAdapter) rootedAtBase(p string) bool {
	if a.basePath == "/" || a.basePath == "." {
		return false
	}
	return p == a.basePath || strings.HasPrefix(p, a.basePath+"/")
}

// within reports whether a joined remote path lies at or under the base
func (a *SFTPAdapter) within(full string) bool {
	switch a.basePath {
	case "/":
		return path.IsAbs(full)
	case ".":
		return !path.IsAbs(full) && full != ".." && !strings.HasPrefix(full, "../")
	}
	if full == a.basePath {
		return true
	}
	_, ok := pathutil.RelativeTo(a.basePath, full)
	return ok
}

// EntryPath returns the base-relative name listings report for remotePath
func (a *SFTPAdapter) EntryPath(remotePath string) (string, error) {
	full, err := a.resolve(remotePath)
	if err != nil {
		return "", err
	}
	return a.relative(full), nil
}

// relative strips the base from a resolved remote path
func (a *SFTPAdapter) relative(full string) string {
	switch a.basePath {
	case "/":
		return strings.TrimPrefix(full, "/")
	case ".":
		return full
	}
	if rel, ok := pathutil.RelativeTo(a.basePath, full); ok {
		return rel
	}
	return full
}

// stat probes an absolute remote path
func (a *SFTPAdapter) stat(abs string) (os.FileInfo, metadata.Presence, error) {
	start := time.Now()
	info, err := a.client.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			metrics.ObserveBackendOp(backendType, "stat", start, nil)
			return nil, metadata.Absent, nil
		}
		metrics.ObserveBackendOp(backendType, "stat", start, err)
		return nil, metadata.Indeterminate, err
	}
	metrics.ObserveBackendOp(backendType, "stat", start, nil)
	return info, metadata.Present, nil
}

// checkFile reports whether abs exists as a regular file
func (a *SFTPAdapter) checkFile(abs string) (os.FileInfo, metadata.Presence, error) {
	info, p, err := a.stat(abs)
	if p == metadata.Present && !info.Mode().IsRegular() {
		return info, metadata.Absent, nil
	}
	return info, p, err
}

// checkDir reports whether abs exists as a directory
func (a *SFTPAdapter) checkDir(abs string) (os.FileInfo, metadata.Presence, error) {
	info, p, err := a.stat(abs)
	if p == metadata.Present && !info.IsDir() {
		return info, metadata.Absent, nil
	}
	return info, p, err
}

func (a *SFTPAdapter) toEntry(abs string, info os.FileInfo) *metadata.Entry {
	return &metadata.Entry{
		Name:        a.relative(abs),
		IsDirectory: info.IsDir(),
		Size:        info.Size(),
		MTime:       info.ModTime(),
		BackendType: backendType,
	}
}
