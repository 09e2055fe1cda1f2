package storage

import (
	"errors"
	"io/fs"
	"os"
)

// sqliteSidecars are the suffixes of files SQLite keeps next to a WAL database.
var sqliteSidecars = []string{"-wal", "-shm"}

// fileSizes returns the summed size of the regular files among paths.
// Missing paths and directories contribute 0.
func fileSizes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return 0, err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
	}
	return total, nil
}

// CacheFootprint returns the bytes used by a store's backing file, including
// any SQLite sidecar files.
func CacheFootprint(s CacheStore) (int64, error) {
	paths := []string{s.Path()}
	if _, ok := s.(*SQLiteStore); ok {
		for _, suffix := range sqliteSidecars {
			paths = append(paths, s.Path()+suffix)
		}
	}
	return fileSizes(paths...)
}
