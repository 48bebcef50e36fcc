package database

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	appDirName      = "rider-router"
	cacheDBFileName = "cache.db"
	privateDirPerms = 0o700
)

// DefaultCacheDBPath returns the sqlite cache location under the user's cache
// directory (for example ~/.cache/rider-router/cache.db on Linux), creating the
// directory when it does not exist yet.
func DefaultCacheDBPath() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return "", fmt.Errorf("no cache or home directory: %w", err)
		}
		base = filepath.Join(home, ".cache")
	}

	dir := filepath.Join(base, appDirName)
	if err := os.MkdirAll(dir, privateDirPerms); err != nil {
		return "", fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return filepath.Join(dir, cacheDBFileName), nil
}
