package util

import (
	"os"
	"path/filepath"
)

func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// NonEmptyFile reports whether path exists as a regular file with
// content. Used to decide whether a cluster's output can be skipped on
// restart.
func NonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

// AtomicWriteFile writes data to a temp file in the target directory
// and renames it into place, so readers never observe a partial file.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}

	tmp_name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp_name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp_name)
		return err
	}
	if err := os.Chmod(tmp_name, perm); err != nil {
		os.Remove(tmp_name)
		return err
	}

	return os.Rename(tmp_name, path)
}
