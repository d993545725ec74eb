package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const maxNameAttempts = 10000

// UniquePath picks dir/name.ext, or the first free "name (N).ext" with N
// counting from 1, and creates it empty so that no other export can take
// the same name.
func UniquePath(dir, name, ext string) (string, error) {
	ext = strings.TrimPrefix(ext, ".")
	for n := 0; n < maxNameAttempts; n++ {
		file := name
		if n > 0 {
			file = fmt.Sprintf("%s (%d)", name, n)
		}
		if ext != "" {
			file += "." + ext
		}
		path := filepath.Join(dir, file)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("no free name for %s.%s in %s", name, ext, dir)
}

// FrameName returns the stem for frame index (0-based) of n, e.g. clip_0007.
// The counter is 1-based and at least four digits wide.
func FrameName(base string, index, n int) string {
	width := max(4, len(strconv.Itoa(n)))
	return fmt.Sprintf("%s_%0*d", base, width, index+1)
}
