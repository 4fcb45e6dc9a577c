package gateways

import (
	"fmt"
	"os"
	"strings"

	"github.com/ochairo/tincture/internal/domain/entities"
)

// RevisionEnvVar overrides the pinned revision from the environment
const RevisionEnvVar = "TINCTURE_REVISION"

// RevisionSource names where the resolved revision came from
type RevisionSource string

// Revision sources, highest precedence first
const (
	SourceFlag     RevisionSource = "flag"
	SourceEnv      RevisionSource = "env"
	SourceManifest RevisionSource = "manifest"
	SourceDefault  RevisionSource = "default"
)

// RevisionConfig lists the candidate revisions in precedence order
type RevisionConfig struct {
	Flag     string
	Manifest string
	Default  string

	// LookupEnv reads the environment; os.LookupEnv when nil
	LookupEnv func(key string) (string, bool)
}

// RevisionResolver holds the single pinned revision for a run
type RevisionResolver struct {
	revision entities.Revision
	source   RevisionSource
}

// NewRevisionResolver picks the first non-empty candidate and validates it.
// An invalid or missing revision is a configuration error.
func NewRevisionResolver(cfg RevisionConfig) (*RevisionResolver, error) {
	lookup := cfg.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	candidates := []struct {
		value  string
		source RevisionSource
	}{
		{cfg.Flag, SourceFlag},
		{envValue(lookup), SourceEnv},
		{cfg.Manifest, SourceManifest},
		{cfg.Default, SourceDefault},
	}

	for _, c := range candidates {
		if strings.TrimSpace(c.value) == "" {
			continue
		}
		rev, err := entities.ParseRevision(c.value)
		if err != nil {
			return nil, fmt.Errorf("revision from %s: %w", c.source, err)
		}
		return &RevisionResolver{revision: rev, source: c.source}, nil
	}

	return nil, fmt.Errorf("%w: no revision pinned (set --revision, %s, or the manifest revision)", entities.ErrConfig, RevisionEnvVar)
}

func envValue(lookup func(string) (string, bool)) string {
	v, ok := lookup(RevisionEnvVar)
	if !ok {
		return ""
	}
	return v
}

// CurrentRevision returns the pinned revision
func (r *RevisionResolver) CurrentRevision() entities.Revision {
	return r.revision
}

// Source reports which setting supplied the revision
func (r *RevisionResolver) Source() RevisionSource {
	return r.source
}
