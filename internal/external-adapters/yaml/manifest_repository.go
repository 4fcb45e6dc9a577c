package yaml

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ochairo/tincture/internal/domain/entities"
)

// ManifestRepository loads the release manifest from a YAML file
type ManifestRepository struct {
	path     string
	explicit bool
	parser   *ManifestParser
}

// NewManifestRepository creates a repository for the manifest at path.
// An empty path means the default manifest file, which may be absent.
func NewManifestRepository(path string) *ManifestRepository {
	explicit := path != ""
	if !explicit {
		path = entities.DefaultManifestFile
	}
	return &ManifestRepository{
		path:     path,
		explicit: explicit,
		parser:   NewManifestParser(),
	}
}

// Path returns the manifest location
func (r *ManifestRepository) Path() string {
	return r.path
}

// LoadManifest reads and parses the manifest.
// A missing default manifest yields the built-in defaults; a missing
// explicitly requested manifest is a configuration error.
func (r *ManifestRepository) LoadManifest(_ context.Context) (*entities.Manifest, error) {
	if _, err := os.Stat(r.path); errors.Is(err, fs.ErrNotExist) {
		if r.explicit {
			return nil, fmt.Errorf("%w: manifest not found: %s", entities.ErrConfig, r.path)
		}
		return entities.DefaultManifest(), nil
	}

	return r.parser.ParseFile(r.path)
}
