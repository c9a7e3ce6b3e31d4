package store

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	perr "spinlog/internal/platform/errors"
	"spinlog/internal/platform/logger"
)

// fsObjects stores objects as plain files under a root directory.
// Commit relies on POSIX rename being atomic within one filesystem,
// so temp keys must live under the same root as their final keys
type fsObjects struct {
	root string
	log  logger.Logger
}

func newFSObjects(root string, log logger.Logger) (Objects, error) {
	if strings.TrimSpace(root) == "" {
		return nil, perr.Configf("objects fs backend requires a root directory")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeConfig, "resolve objects root")
	}
	return &fsObjects{root: abs, log: log}, nil
}

func (f *fsObjects) path(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}

func (f *fsObjects) Ping(_ context.Context) error {
	if err := os.MkdirAll(f.root, 0o755); err != nil {
		return perr.Wrap(err, perr.ErrorCodeStorage, "objects root not writable")
	}
	return nil
}

func (f *fsObjects) Open(_ context.Context, key string) (io.ReadCloser, error) {
	fh, err := os.Open(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perr.NotFoundf("object %s not found", key)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "open object %s", key)
	}
	return fh, nil
}

// Put writes through a same-directory partial file and renames it into
// place, so readers never observe a half-written object
func (f *fsObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	dst := f.path(key)
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "mkdir for object %s", key)
	}
	tmp, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "create partial for %s", key)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return perr.Wrapf(err, perr.ErrorCodeStorage, "write object %s", key)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return perr.Wrapf(err, perr.ErrorCodeStorage, "close object %s", key)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return perr.Wrapf(err, perr.ErrorCodeStorage, "publish object %s", key)
	}
	return nil
}

func (f *fsObjects) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	// walk only the deepest directory the prefix pins down
	dirPart := ""
	if idx := strings.LastIndex(prefix, "/"); idx >= 0 {
		dirPart = prefix[:idx]
	}
	start := filepath.Join(f.root, filepath.FromSlash(dirPart))

	var out []ObjectInfo
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".partial-") {
			return nil
		}
		rel, rerr := filepath.Rel(f.root, p)
		if rerr != nil {
			return rerr
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, ierr := d.Info()
		if ierr != nil {
			return ierr
		}
		out = append(out, ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "list objects under %s", prefix)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fsObjects) Remove(_ context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "remove object %s", key)
	}
	return nil
}

func (f *fsObjects) Commit(_ context.Context, src, dst string) error {
	dstPath := f.path(dst)
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "mkdir for object %s", dst)
	}
	if err := os.Rename(f.path(src), dstPath); err != nil {
		if os.IsNotExist(err) {
			return perr.NotFoundf("object %s not found", src)
		}
		return perr.Wrapf(err, perr.ErrorCodeStorage, "commit %s to %s", src, dst)
	}
	return nil
}
