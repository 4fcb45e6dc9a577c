package yaml

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/tincture/internal/domain/entities"
)

type yamlStamp struct {
	Revision      string    `yaml:"revision"`
	URL           string    `yaml:"url"`
	ArchiveDigest string    `yaml:"archive_digest"`
	TreeHash      string    `yaml:"tree_hash"`
	TopLevelDir   string    `yaml:"top_level_dir"`
	FetchedAt     time.Time `yaml:"fetched_at"`
	Files         []string  `yaml:"files,omitempty"`
}

// StampStore reads and writes fetch stamps
type StampStore struct{}

// NewStampStore creates a new stamp store
func NewStampStore() *StampStore {
	return &StampStore{}
}

// ReadStamp loads a fetch stamp
func (s *StampStore) ReadStamp(path string) (*entities.FetchStamp, error) {
	//nolint:gosec // G304: stamp path is derived from the workspace root
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw yamlStamp
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse fetch stamp %s: %w", path, err)
	}
	if raw.Revision == "" {
		return nil, fmt.Errorf("fetch stamp %s has no revision", path)
	}

	return &entities.FetchStamp{
		Revision:      entities.Revision(raw.Revision),
		URL:           raw.URL,
		ArchiveDigest: raw.ArchiveDigest,
		TreeHash:      raw.TreeHash,
		TopLevelDir:   raw.TopLevelDir,
		FetchedAt:     raw.FetchedAt,
		Files:         raw.Files,
	}, nil
}

// WriteStamp stores a fetch stamp
func (s *StampStore) WriteStamp(path string, stamp *entities.FetchStamp) error {
	data, err := yaml.Marshal(yamlStamp{
		Revision:      stamp.Revision.String(),
		URL:           stamp.URL,
		ArchiveDigest: stamp.ArchiveDigest,
		TreeHash:      stamp.TreeHash,
		TopLevelDir:   stamp.TopLevelDir,
		FetchedAt:     stamp.FetchedAt.UTC(),
		Files:         stamp.Files,
	})
	if err != nil {
		return fmt.Errorf("failed to encode fetch stamp: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write fetch stamp: %w", err)
	}
	return nil
}
