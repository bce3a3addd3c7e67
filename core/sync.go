package core

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/internal/pathutil"
	"github.com/ebogdum/datarepo/locks"
	"github.com/ebogdum/datarepo/metadata"
	"github.com/ebogdum/datarepo/metrics"
)

// SyncReport lists the base names a sync run acted on
type SyncReport struct {
	Uploaded []string `json:"uploaded"`
	Deleted  []string `json:"deleted"`
	Skipped  []string `json:"skipped"`
}

func (r *SyncReport) record(algorithm, action, name string) {
	switch action {
	case "upload":
		r.Uploaded = append(r.Uploaded, name)
	case "delete":
		r.Deleted = append(r.Deleted, name)
	case "skip":
		r.Skipped = append(r.Skipped, name)
	}
	metrics.SyncActionsTotal.WithLabelValues(algorithm, action).Inc()
}

func newSyncReport() *SyncReport {
	return &SyncReport{Uploaded: []string{}, Deleted: []string{}, Skipped: []string{}}
}

// CopySingleFile leaves srcPath as the only pattern-matching file in remoteDir.
// Other matching files, nested ones included, are deleted; the upload is skipped
// when a file with the same base name is already directly in remoteDir, without comparing content.
func (m *FileManager) CopySingleFile(ctx context.Context, srcPath, remoteDir string) (*SyncReport, error) {
	info, err := m.fs.Stat(srcPath)
	if err != nil || !info.Mode().IsRegular() {
		return nil, metadata.InvalidArgument("%s is not a local file", srcPath)
	}
	name := filepath.Base(srcPath)

	report := newSyncReport()
	err = m.withDirectoryLock(ctx, remoteDir, func() error {
		if err := m.store.CreateDirectory(ctx, remoteDir); err != nil {
			return err
		}
		target := pathutil.JoinRemote(remoteDir, name)
		targetEntry, err := m.store.EntryPath(target)
		if err != nil {
			return err
		}

		entries, err := m.store.ListDirectory(ctx, remoteDir)
		if err != nil {
			return err
		}
		matches := m.matchingFiles(entries)
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].BaseName() < matches[j].BaseName()
		})

		// Only the direct child counts; nested files sharing its name are superseded too
		present := false
		for _, entry := range matches {
			if entry.Name == targetEntry {
				present = true
				report.record("single", "skip", name)
				continue
			}
			if err := m.store.DeleteFile(ctx, entry.Name); err != nil {
				return err
			}
			report.record("single", "delete", entry.BaseName())
			m.logger.Info("Deleted superseded file", zap.String("remote_path", entry.Name))
		}

		if present {
			return nil
		}
		if err := m.store.StoreFile(ctx, target, srcPath, nil); err != nil {
			return err
		}
		report.record("single", "upload", name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Single file copied",
		zap.String("src", srcPath),
		zap.String("remote_dir", remoteDir),
		zap.Strings("deleted", report.Deleted),
		zap.Bool("uploaded", len(report.Uploaded) > 0))
	return report, nil
}

// PushData mirrors the matching files of localDir into remoteDir by name.
// Names only present locally are uploaded and names only present remotely are deleted.
// With the size comparison enabled, names on both sides whose sizes differ are re-uploaded.
func (m *FileManager) PushData(ctx context.Context, localDir, remoteDir string) (*SyncReport, error) {
	local, err := m.localFiles(localDir)
	if err != nil {
		return nil, err
	}

	report := newSyncReport()
	err = m.withDirectoryLock(ctx, remoteDir, func() error {
		entries, err := m.store.ListDirectory(ctx, remoteDir)
		if err != nil {
			return err
		}

		// Direct children are compared by name; anything nested is not part of the mirror
		remote := make(map[string][]*metadata.Entry)
		var nested, subdirs []*metadata.Entry
		for _, entry := range entries {
			if entry.IsDirectory {
				subdirs = append(subdirs, entry)
				continue
			}
			direct, err := m.store.EntryPath(pathutil.JoinRemote(remoteDir, entry.BaseName()))
			if err != nil {
				return err
			}
			if entry.Name != direct {
				nested = append(nested, entry)
				continue
			}
			remote[entry.BaseName()] = append(remote[entry.BaseName()], entry)
		}

		for _, name := range sortedKeys(local) {
			existing, ok := remote[name]
			if ok && !m.sizeDiffers(local[name], existing) {
				report.record("push", "skip", name)
				continue
			}
			if err := m.store.StoreFile(ctx, pathutil.JoinRemote(remoteDir, name), filepath.Join(localDir, name), nil); err != nil {
				return err
			}
			report.record("push", "upload", name)
		}

		for _, name := range sortedKeys(remote) {
			if _, ok := local[name]; ok {
				continue
			}
			for _, entry := range remote[name] {
				if err := m.store.DeleteFile(ctx, entry.Name); err != nil {
					return err
				}
			}
			report.record("push", "delete", name)
		}

		if err := m.pruneNested(ctx, nested, subdirs, report); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Directory pushed",
		zap.String("local_dir", localDir),
		zap.String("remote_dir", remoteDir),
		zap.Int("uploaded", len(report.Uploaded)),
		zap.Int("deleted", len(report.Deleted)),
		zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

// pruneNested removes nested files and then the subdirectories holding them.
// Object stores list nested keys directly while tree stores only list the subdirectory.
func (m *FileManager) pruneNested(ctx context.Context, nested, subdirs []*metadata.Entry, report *SyncReport) error {
	sort.Slice(nested, func(i, j int) bool { return nested[i].Name < nested[j].Name })
	for _, entry := range nested {
		if err := m.store.DeleteFile(ctx, entry.Name); err != nil {
			return err
		}
		report.record("push", "delete", entry.BaseName())
	}

	sort.Slice(subdirs, func(i, j int) bool { return subdirs[i].Name < subdirs[j].Name })
	var removed []string
	for _, dir := range subdirs {
		if coveredBy(removed, dir.Name) {
			continue
		}
		if err := m.store.DeleteDirectory(ctx, dir.Name); err != nil {
			return err
		}
		removed = append(removed, strings.TrimSuffix(dir.Name, "/"))
		report.record("push", "delete", dir.BaseName())
	}
	return nil
}

func coveredBy(removed []string, name string) bool {
	for _, dir := range removed {
		if strings.HasPrefix(name, dir+"/") {
			return true
		}
	}
	return false
}

// localFiles returns the regular files directly under dir whose names match the pattern
func (m *FileManager) localFiles(dir string) (map[string]os.FileInfo, error) {
	info, err := m.fs.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, metadata.InvalidArgument("%s is not a local directory", dir)
	}

	children, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read local directory %s: %w", dir, err)
	}

	files := make(map[string]os.FileInfo)
	for _, child := range children {
		if !child.Mode().IsRegular() {
			continue
		}
		if ok, _ := path.Match(m.pattern, child.Name()); ok {
			files[child.Name()] = child
		}
	}
	return files, nil
}

func (m *FileManager) sizeDiffers(local os.FileInfo, remote []*metadata.Entry) bool {
	if m.compare != CompareSize {
		return false
	}
	for _, entry := range remote {
		if entry.Size != local.Size() {
			return true
		}
	}
	return false
}

// withDirectoryLock runs fn while holding the writer lock for remoteDir, when locking is enabled
func (m *FileManager) withDirectoryLock(ctx context.Context, remoteDir string, fn func() error) error {
	if m.locks == nil {
		return fn()
	}

	lockKey := locks.DirectoryKey(m.store.Type(), pathutil.JoinRemote(remoteDir))
	acquired, err := m.locks.Acquire(ctx, lockKey)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: %s", locks.ErrLockHeld, remoteDir)
	}
	defer func() {
		if err := m.locks.Release(context.Background(), lockKey); err != nil {
			m.logger.Error("Failed to release lock", zap.String("lock_key", lockKey), zap.Error(err))
		}
	}()

	return fn()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
