// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/tincture/internal/domain/entities"
)

// ManifestRepository defines the interface for loading the release manifest
type ManifestRepository interface {
	// LoadManifest returns the manifest with defaults applied
	LoadManifest(ctx context.Context) (*entities.Manifest, error)
}

// StampRepository persists fetch stamps alongside workspaces
type StampRepository interface {
	ReadStamp(path string) (*entities.FetchStamp, error)
	WriteStamp(path string, stamp *entities.FetchStamp) error
}
