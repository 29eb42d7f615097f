package vault

import (
	"os"
	"path/filepath"
)

// writeHook runs between the temp-file fsync and the rename. Tests use it to
// simulate a crash at the worst moment.
type writeHook func(tmpPath string) error

// AtomicWriteFile writes data to a temporary sibling of path, forces it to
// stable storage and renames it over path. A crash at any point leaves either
// the old or the new complete file. On failure the temporary file is removed,
// path is untouched and the original error is returned inside an *IOError.
func AtomicWriteFile(path string, data []byte) error {
	return atomicWriteFile(path, data, nil)
}

func atomicWriteFile(path string, data []byte, beforeRename writeHook) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return &IOError{Op: "create temp file", Path: dir, Err: err}
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(FileMode); err != nil {
		return &IOError{Op: "chmod", Path: tmpPath, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		return &IOError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &IOError{Op: "fsync", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "close", Path: tmpPath, Err: err}
	}

	if beforeRename != nil {
		if err := beforeRename(tmpPath); err != nil {
			return &IOError{Op: "write", Path: tmpPath, Err: err}
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return &IOError{Op: "rename", Path: path, Err: err}
	}

	// The rename is durable only once the directory entry is flushed. Some
	// platforms cannot fsync a directory, so a failure here is ignored.
	_ = syncDir(dir)
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
