//go:build windows

package config

import (
	"os"
)

// openConfigFile opens the config file on Windows, which has no O_NOFOLLOW.
func openConfigFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDONLY, 0)
}

// checkFileOwnership on Windows is a no-op; ownership is governed by ACLs.
func checkFileOwnership(_ os.FileInfo) error {
	return nil
}
