package filesystem

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/artifactlink/artifactlink/pkg/util"
)

// Storage serves artifacts from a local directory laid out as
// <root>/<buildID>/<artifact path>.
type Storage struct {
	Root string `mapstructure:"root"`
}

func (s *Storage) Open(buildID int64, path string) (io.ReadCloser, error) {
	buildDir := filepath.Join(s.Root, strconv.FormatInt(buildID, 10))
	full := filepath.Join(buildDir, filepath.FromSlash(path))

	// A crafted artifact path must not escape the build's directory.
	rel, err := filepath.Rel(buildDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("Storage.Open: %s: %w", path, fs.ErrNotExist)
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("Storage.Open: %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("Storage.Open: %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("Storage.Open: %s: %w", path, fs.ErrNotExist)
	}

	return f, nil
}

// NewStorage returns a new initialized Storage
func NewStorage(c map[string]any) (*Storage, error) {
	s := util.ConfigToStruct[Storage](c)
	if s.Root == "" {
		return nil, fmt.Errorf("filesystem artifact store requires a root directory")
	}
	return s, nil
}
