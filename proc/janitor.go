package proc

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/leeineian/jukebox/sys"
)

// ArtifactPrefix starts every temp artifact name.
const ArtifactPrefix = "temp_audio_"

var (
	sidecarSuffixes  = []string{".part", ".ytdl", ".temp", ".tmp"}
	artifactSuffixes = []string{".part", ".ytdl", ".temp", ".tmp", ".mp3", ".webm", ".m4a", ".opus"}
)

// NewArtifactPath returns a fresh artifact path inside dir.
func NewArtifactPath(dir string) string {
	return filepath.Join(dir, ArtifactPrefix+uuid.NewString()+".mp3")
}

// Cleanup removes the artifact; a missing file is not an error.
func Cleanup(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		sys.LogDownloadWarn(sys.MsgDownloadCleanupErr, path, err)
		return err
	}
	return nil
}

// CleanupSidecars removes partial-download files that share the artifact's base
// name. Individual failures are logged and counted, never returned.
func CleanupSidecars(path string) int {
	if path == "" {
		return 0
	}
	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	files, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasPrefix(name, base) || name == filepath.Base(path) {
			continue
		}
		if !isSidecar(name[len(base):]) {
			continue
		}
		full := filepath.Join(dir, name)
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			sys.LogDownloadWarn(sys.MsgDownloadCleanupErr, full, err)
			continue
		}
		removed++
	}
	return removed
}

// isSidecar matches what yt-dlp leaves next to an interrupted download:
// ".mp3.part", ".part-Frag3", ".webm.ytdl", ".f251.webm.part" and so on.
func isSidecar(rest string) bool {
	if !strings.HasPrefix(rest, ".") {
		return false
	}
	if strings.Contains(rest, ".part-") {
		return true
	}
	for _, s := range sidecarSuffixes {
		if strings.HasSuffix(rest, s) {
			return true
		}
	}
	// Format-suffixed intermediates such as ".f140.m4a".
	return strings.HasPrefix(rest, ".f") || strings.HasPrefix(rest, ".temp")
}

// Discard removes the artifact and all its sidecars.
func Discard(path string) {
	if path == "" {
		return
	}
	if err := Cleanup(path); err == nil {
		sys.LogDebug(sys.MsgDownloadCleanup, path)
	}
	CleanupSidecars(path)
}

// SweptFile is one orphan removed by Sweep.
type SweptFile struct {
	Name string
	Size int64
	Err  error
}

// Sweep removes orphaned temp artifacts from dir. keep, when non-nil, protects
// paths that are still in use.
func Sweep(dir string, keep func(path string) bool) ([]SweptFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var swept []SweptFile
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !IsArtifactName(name) {
			continue
		}
		full := filepath.Join(dir, name)
		if keep != nil && keep(full) {
			continue
		}
		var size int64
		if info, err := f.Info(); err == nil {
			size = info.Size()
		}
		err := os.Remove(full)
		if err != nil && errors.Is(err, fs.ErrNotExist) {
			continue
		}
		swept = append(swept, SweptFile{Name: name, Size: size, Err: err})
	}
	if n := len(swept); n > 0 {
		sys.LogDownload(sys.MsgDownloadSwept, n, dir)
	}
	return swept, nil
}

// IsArtifactName reports whether name looks like a temp artifact or one of its sidecars.
func IsArtifactName(name string) bool {
	if !strings.HasPrefix(name, ArtifactPrefix) {
		return false
	}
	if strings.Contains(name, ".part-") {
		return true
	}
	for _, s := range artifactSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// ValidateArtifact checks the artifact exists and is at least minBytes long.
func ValidateArtifact(path string, minBytes int64) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Join(ErrArtifact, err)
	}
	if info.IsDir() || info.Size() < minBytes {
		return info.Size(), ErrArtifact
	}
	return info.Size(), nil
}
