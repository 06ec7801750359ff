package manifest

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const SentinelName = "updated.json"

// Load reads a JSON manifest into v. A missing path, a directory, or
// invalid JSON all return false rather than an error; the caller treats
// the manifest as absent.
func Load(path string, v any) bool {
	info, err := os.Stat(path)
	if err != nil {
		zap.L().Debug("manifest does not exist",
			zap.String("path", path),
		)
		return false
	}
	if info.IsDir() {
		zap.L().Debug("manifest path is a directory",
			zap.String("path", path),
		)
		return false
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		zap.L().Debug("failed to read manifest",
			zap.String("path", path),
			zap.Error(err),
		)
		return false
	}

	if err := sonic.Unmarshal(raw, v); err != nil {
		zap.L().Debug("failed to decode manifest",
			zap.String("path", path),
			zap.Error(err),
		)
		return false
	}
	return true
}

// Write serializes v to path, creating parent directories. The content is
// written to a temp file first and renamed into place so readers never
// observe a half-written manifest.
func Write(path string, v any) error {
	raw, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal manifest")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "create manifest directory")
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return errors.Wrap(err, "create temp manifest")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write temp manifest")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close temp manifest")
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "rename manifest into place")
	}
	return nil
}

// FirstFileMatching returns the lexicographically first match of the glob
// pattern under dir, or the last when reverse is set.
func FirstFileMatching(dir, pattern string, reverse bool) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	if reverse {
		return matches[len(matches)-1], true
	}
	return matches[0], true
}

// SubDirs lists the immediate subdirectories of dir, name-sorted
// descending. A missing directory yields an empty list.
func SubDirs(dir string) []os.DirEntry {
	return scan(dir, func(e os.DirEntry) bool { return e.IsDir() })
}

// FilesIn lists the regular files in dir, name-sorted descending.
func FilesIn(dir string) []os.DirEntry {
	return scan(dir, func(e os.DirEntry) bool { return !e.IsDir() })
}

func scan(dir string, keep func(os.DirEntry) bool) []os.DirEntry {
	entries, err := os.ReadDir(dir)
	if err != nil {
		zap.L().Debug("failed to scan directory",
			zap.String("dir", dir),
			zap.Error(err),
		)
		return nil
	}
	var out []os.DirEntry
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() > out[j].Name() })
	return out
}

type sentinel struct {
	Updated time.Time `json:"updated"`
}

// SignalUpdated writes the sentinel the serving side watches to trigger
// an out-of-cycle catalog rebuild.
func SignalUpdated(artifactRoot string) error {
	if err := os.MkdirAll(artifactRoot, os.ModePerm); err != nil {
		return errors.Wrap(err, "create artifact root")
	}
	return Write(filepath.Join(artifactRoot, SentinelName), sentinel{Updated: time.Now().UTC()})
}

// ReadUpdatedSignal reports the sentinel timestamp, if one exists.
func ReadUpdatedSignal(artifactRoot string) (time.Time, bool) {
	var s sentinel
	if !Load(filepath.Join(artifactRoot, SentinelName), &s) {
		return time.Time{}, false
	}
	return s.Updated, true
}
