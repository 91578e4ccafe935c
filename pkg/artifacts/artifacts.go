package artifacts

import (
	"fmt"
	"io"
	"io/fs"

	"github.com/artifactlink/artifactlink/pkg/artifacts/filesystem"
	"github.com/artifactlink/artifactlink/pkg/artifacts/memory"
	"github.com/artifactlink/artifactlink/pkg/artifacts/s3"
	"github.com/artifactlink/artifactlink/pkg/config"
)

// ErrNotFound matches the error returned when a build has no artifact at
// the requested path. Backends wrap fs.ErrNotExist so they don't need to
// import this package.
var ErrNotFound = fs.ErrNotExist

// ArtifactStore retrieves artifact bytes for a build.
type ArtifactStore interface {
	Open(buildID int64, path string) (io.ReadCloser, error)
}

func NewArtifactStore(conf config.Artifacts) (ArtifactStore, error) {
	switch conf.Type {
	case "filesystem":
		return filesystem.NewStorage(conf.Settings)
	case "s3":
		return s3.NewStorage(conf.Settings)
	case "memory":
		return memory.NewStorage(), nil
	}

	return nil, fmt.Errorf("unsupported artifact store %q", conf.Type)
}
