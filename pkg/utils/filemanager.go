// =============================================================================
// SDSVG Book - File Manager Utility
// =============================================================================
//
// This module provides the file handling shared by the web server and the
// CLI:
//   - Archiving uploaded workbooks under a unique name
//   - Writing generated files (exports, sample workbooks) atomically
//   - Retention clean-up of old archives
//   - Upload file name checks
//
// ARCHIVAL STRATEGY:
//   - Only workbooks that imported successfully are archived
//   - Archived names never collide: {timestamp}_{uuid}_{original}
//   - With UseTimestampSubdirs, archives go to archive/YYYY/MM/DD/
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// unsafeNameChars are replaced when an uploaded name is reused on disk.
var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager archives uploads and writes generated files.
type FileManager struct {
	// ArchiveDir receives archived uploads.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: uploads/2024/01/15/file.xlsx
	UseTimestampSubdirs bool

	// now is replaceable in tests.
	now func() time.Time
}

// NewFileManager creates a FileManager archiving into archiveDir.
func NewFileManager(archiveDir string) *FileManager {
	return &FileManager{
		ArchiveDir:          archiveDir,
		UseTimestampSubdirs: true,
		now:                 time.Now,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the archive directory if it doesn't exist.
func (fm *FileManager) EnsureDirectories() error {
	if err := os.MkdirAll(fm.ArchiveDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.ArchiveDir, err)
	}
	return nil
}

// =============================================================================
// ARCHIVAL
// =============================================================================

// ArchiveUpload stores an uploaded file and returns its archive path.
func (fm *FileManager) ArchiveUpload(originalName string, data []byte) (string, error) {
	now := fm.now()
	dir := fm.archiveDir(now)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := GenerateFileName("{timestamp}_{uuid}_{original}", now, map[string]string{
		"original": SanitizeFileName(originalName),
	})
	path := filepath.Join(dir, name)
	if err := WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to archive upload: %w", err)
	}
	return path, nil
}

// archiveDir returns the directory an upload made at now is archived in.
func (fm *FileManager) archiveDir(now time.Time) string {
	if !fm.UseTimestampSubdirs {
		return fm.ArchiveDir
	}
	return filepath.Join(
		fm.ArchiveDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()),
	)
}

// =============================================================================
// FILE NAMING
// =============================================================================

// GenerateFileName fills a name template.
//
// Placeholders:
//
//	{uuid}      - A random UUID
//	{timestamp} - YYYYMMDD_HHMMSS
//	{date}      - YYYYMMDD
//	plus any key given in params, e.g. {original}
func GenerateFileName(format string, now time.Time, params map[string]string) string {
	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

// SanitizeFileName keeps the base name of an uploaded file and replaces
// characters that are unsafe in paths.
func SanitizeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.Trim(unsafeNameChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		return "upload"
	}
	return base
}

// HasExtension reports whether name ends in ext, ignoring case.
func HasExtension(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}

// =============================================================================
// OUTPUT
// =============================================================================

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// =============================================================================
// RETENTION
// =============================================================================

// CleanOldArchives removes archive files older than maxAge and returns how
// many were removed.
func CleanOldArchives(archiveDir string, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	err := filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == archiveDir {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clean archives: %w", err)
	}

	return removed, nil
}
