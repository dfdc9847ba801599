package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"jmdict/pkg/config"
)

// OutputExtension is the extension of the serialized entry list
const OutputExtension = "json"

// DefaultKeep lists the downloads directory files Clean never removes
var DefaultKeep = []string{".gitKeep", "README.md"}

// Manager handles dated artifact paths and file storage
type Manager struct {
	downloadsDir string
	outputDir    string
	baseName     string
	extension    string
}

// NewManager creates a new storage manager, creating both directories if needed
func NewManager(paths config.PathsConfig) (*Manager, error) {
	for _, dir := range []string{paths.DownloadsDir, paths.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &Manager{
		downloadsDir: paths.DownloadsDir,
		outputDir:    paths.OutputDir,
		baseName:     paths.BaseName,
		extension:    paths.Extension,
	}, nil
}

// ArtifactName returns "<base>-<dateKey>.<ext>"
func ArtifactName(baseName, dateKey, ext string) string {
	return fmt.Sprintf("%s-%s.%s", baseName, dateKey, ext)
}

// RawPath returns the dated path of the decompressed dictionary
func (m *Manager) RawPath(dateKey string) string {
	return filepath.Join(m.downloadsDir, ArtifactName(m.baseName, dateKey, m.extension))
}

// OutputPath returns the dated path of the JSON entry list
func (m *Manager) OutputPath(dateKey string) string {
	return filepath.Join(m.outputDir, ArtifactName(m.baseName, dateKey, OutputExtension))
}

// LockPath returns the dated path of the advisory run lock
func (m *Manager) LockPath(dateKey string) string {
	return filepath.Join(m.downloadsDir, "."+ArtifactName(m.baseName, dateKey, "lock"))
}

// ExportMarkerPath returns the dated path recording a completed export
func (m *Manager) ExportMarkerPath(dateKey string) string {
	return filepath.Join(m.downloadsDir, "."+ArtifactName(m.baseName, dateKey, "exported"))
}

// DownloadsDir returns the raw artifact directory
func (m *Manager) DownloadsDir() string {
	return m.downloadsDir
}

// OutputDir returns the JSON artifact directory
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// Exists reports whether a file is present at path
func (m *Manager) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadFile reads a whole artifact into memory
func (m *Manager) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteAtomic streams r into path through a temporary file and a rename,
// so path either holds the complete content or does not exist.
func (m *Manager) WriteAtomic(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := tmp.Name()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tempFile)
		return written, fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tempFile)
		return written, fmt.Errorf("failed to sync file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tempFile)
		return written, fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return written, fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return written, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return written, nil
}

// Clean removes every regular file from the downloads directory except the
// names in keep, lock files and export markers. Temporary files are kept
// while any lock is present since they may belong to a running download.
// With dryRun set nothing is removed. It returns the names that were (or
// would be) removed.
func (m *Manager) Clean(dryRun bool, keep ...string) ([]string, error) {
	if len(keep) == 0 {
		keep = DefaultKeep
	}
	kept := make(map[string]bool, len(keep))
	for _, name := range keep {
		kept[name] = true
	}

	entries, err := os.ReadDir(m.downloadsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	locked := false
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".lock") {
			locked = true
			break
		}
	}

	var removed []string
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir(), kept[name]:
			continue
		case strings.HasSuffix(name, ".lock"), strings.HasSuffix(name, ".exported"):
			continue
		case locked && strings.HasSuffix(name, ".tmp"):
			continue
		}
		if !dryRun {
			if err := os.Remove(filepath.Join(m.downloadsDir, name)); err != nil {
				return removed, fmt.Errorf("failed to remove %s: %w", name, err)
			}
		}
		removed = append(removed, name)
	}

	return removed, nil
}

// CountOutputs returns the number of regular files in the output directory
func (m *Manager) CountOutputs() (int, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			count++
		}
	}
	return count, nil
}
