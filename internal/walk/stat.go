package walk

import "os"

// Stat returns the modification time of path in milliseconds since the Unix
// epoch, following symbolic links. A missing path returns an error matching
// fs.ErrNotExist; every other error is left for the caller to classify.
func Stat(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.ModTime().UnixMilli(), nil
}
