// Package yaml provides YAML-based manifest parsing and fetch stamp storage.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"

	"github.com/ochairo/tincture/internal/domain/entities"
)

// yamlManifest represents the raw YAML structure
type yamlManifest struct {
	Name      string        `yaml:"name"`
	Revision  string        `yaml:"revision"`
	Source    yamlSource    `yaml:"source"`
	Toolchain yamlToolchain `yaml:"toolchain"`
	Strip     yamlStrip     `yaml:"strip"`
	Release   yamlRelease   `yaml:"release"`
	WorkDir   string        `yaml:"workdir"`
}

type yamlSource struct {
	ArchiveHost   string        `yaml:"archive_host"`
	Project       string        `yaml:"project"`
	ArchiveDigest string        `yaml:"archive_digest"`
	Signature     yamlSignature `yaml:"signature"`
}

type yamlSignature struct {
	URL     string `yaml:"url"`
	KeyFile string `yaml:"key_file"`
	KeysURL string `yaml:"keys_url"`
}

type yamlToolchain struct {
	Command  string            `yaml:"command"`
	Args     []string          `yaml:"args"`
	Artifact string            `yaml:"artifact"`
	Env      map[string]string `yaml:"env"`
}

type yamlStrip struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

type yamlRelease struct {
	Dir        string `yaml:"dir"`
	BinaryName string `yaml:"binary_name"`
}

// ManifestParser parses YAML release manifests
type ManifestParser struct{}

// NewManifestParser creates a new YAML parser
func NewManifestParser() *ManifestParser {
	return &ManifestParser{}
}

// ParseFile parses a YAML manifest file
func (p *ManifestParser) ParseFile(filePath string) (*entities.Manifest, error) {
	//nolint:gosec // G304: filePath is the operator-supplied manifest path
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read manifest %s: %w", entities.ErrConfig, filePath, err)
	}

	m, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return m, nil
}

// Parse parses YAML bytes into a Manifest with defaults applied.
// Unknown keys are rejected so that typos do not silently fall back to defaults.
func (p *ManifestParser) Parse(data []byte) (*entities.Manifest, error) {
	var raw yamlManifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to parse YAML: %w", entities.ErrConfig, err)
	}

	m := &entities.Manifest{
		Name:     strings.TrimSpace(raw.Name),
		Revision: strings.TrimSpace(raw.Revision),
		Source: entities.SourceConfig{
			ArchiveHost:   raw.Source.ArchiveHost,
			Project:       raw.Source.Project,
			ArchiveDigest: raw.Source.ArchiveDigest,
			Signature: entities.SignatureConfig{
				URL:     raw.Source.Signature.URL,
				KeyFile: raw.Source.Signature.KeyFile,
				KeysURL: raw.Source.Signature.KeysURL,
			},
		},
		Toolchain: entities.ToolchainConfig{
			Command:  raw.Toolchain.Command,
			Args:     raw.Toolchain.Args,
			Artifact: raw.Toolchain.Artifact,
			Env:      raw.Toolchain.Env,
		},
		Strip: entities.StripConfig{
			Command: raw.Strip.Command,
			Args:    raw.Strip.Args,
		},
		Release: entities.ReleaseConfig{
			Dir:        raw.Release.Dir,
			BinaryName: raw.Release.BinaryName,
		},
		WorkDir: raw.WorkDir,
	}
	m.ApplyDefaults()

	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks a manifest for values that would make a pipeline run unsafe
func Validate(m *entities.Manifest) error {
	if strings.ContainsAny(m.Release.BinaryName, `/\`) || m.Release.BinaryName == "." || m.Release.BinaryName == ".." {
		return fmt.Errorf("%w: release.binary_name %q must be a plain file name", entities.ErrConfig, m.Release.BinaryName)
	}

	artifact := m.Toolchain.Artifact
	if path.IsAbs(artifact) || strings.HasPrefix(path.Clean(artifact), "..") {
		return fmt.Errorf("%w: toolchain.artifact %q must be relative to the source tree", entities.ErrConfig, artifact)
	}

	if d := m.Source.ArchiveDigest; d != "" {
		if _, err := digest.Parse(d); err != nil {
			return fmt.Errorf("%w: source.archive_digest %q: %w", entities.ErrConfig, d, err)
		}
	}

	if !strings.HasPrefix(m.Source.ArchiveHost, "http://") && !strings.HasPrefix(m.Source.ArchiveHost, "https://") {
		return fmt.Errorf("%w: source.archive_host %q must be an http(s) URL", entities.ErrConfig, m.Source.ArchiveHost)
	}

	return nil
}
