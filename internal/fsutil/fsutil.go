// Package fsutil holds the file writes shared by the stores and editors.
package fsutil

import (
	"os"
	"path/filepath"

	"github.com/phobologic/classgraph/internal/errors"
)

// WriteAtomic replaces path with data in one rename, creating the parent
// directory first. Readers see either the old or the new content, never a
// partial write.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WrapFS(err, "create temp file for %s", path)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return errors.WrapFS(err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return errors.WrapFS(err, "close %s", name)
	}
	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(name, info.Mode().Perm())
	} else {
		_ = os.Chmod(name, 0o644)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return errors.WrapFS(err, "rename into %s", path)
	}
	return nil
}

// EnsureDir creates dir and its parents; an existing directory is success.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapFS(err, "create directory %s", dir)
	}
	return nil
}

// ReadFile reads path, wrapping failures as file system errors. A missing
// file is reported with ok == false and no error.
func ReadFile(path string) (data []byte, ok bool, err error) {
	data, err = os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WrapFS(err, "read %s", path)
	}
	return data, true, nil
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
