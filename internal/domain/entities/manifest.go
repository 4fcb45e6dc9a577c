package entities

import "strings"

// Defaults used when the manifest omits a field
const (
	DefaultManifestFile = "tincture.yml"
	DefaultArchiveHost  = "https://github.com"
	DefaultProject      = "wasp-ws/wasp"
	DefaultRevision     = "v0.1.0"
	DefaultBinaryName   = "wasp"
	DefaultReleaseDir   = "release"
	DefaultToolchain    = "cargo"
	DefaultStripTool    = "strip"
)

// Manifest describes the upstream project and how to release it
type Manifest struct {
	Name      string
	Revision  string // raw pin; validated by the revision resolver
	Source    SourceConfig
	Toolchain ToolchainConfig
	Strip     StripConfig
	Release   ReleaseConfig
	WorkDir   string
}

// SourceConfig describes where source archives come from
type SourceConfig struct {
	ArchiveHost   string
	Project       string
	ArchiveDigest string // optional sha256:<hex> pin of the archive
	Signature     SignatureConfig
}

// SignatureConfig configures detached OpenPGP verification of the archive
type SignatureConfig struct {
	URL     string // defaults to <archive url>.asc
	KeyFile string
	KeysURL string
}

// Enabled reports whether signature verification is configured
func (s SignatureConfig) Enabled() bool {
	return s.KeyFile != "" || s.KeysURL != ""
}

// ToolchainConfig describes the release build invocation
type ToolchainConfig struct {
	Command  string
	Args     []string
	Artifact string // slash-separated path relative to the source tree
	Env      map[string]string
}

// StripConfig describes the symbol stripping tool
type StripConfig struct {
	Command string
	Args    []string
}

// ReleaseConfig describes the release output
type ReleaseConfig struct {
	Dir        string
	BinaryName string
}

// DefaultManifest returns a manifest with every default applied
func DefaultManifest() *Manifest {
	m := &Manifest{}
	m.ApplyDefaults()
	return m
}

// ApplyDefaults fills in empty fields
func (m *Manifest) ApplyDefaults() {
	if m.Name == "" {
		m.Name = DefaultBinaryName
	}
	if m.Source.ArchiveHost == "" {
		m.Source.ArchiveHost = DefaultArchiveHost
	}
	m.Source.ArchiveHost = strings.TrimRight(m.Source.ArchiveHost, "/")
	if m.Source.Project == "" {
		m.Source.Project = DefaultProject
	}
	m.Source.Project = strings.Trim(m.Source.Project, "/")
	if m.Toolchain.Command == "" {
		m.Toolchain.Command = DefaultToolchain
		if len(m.Toolchain.Args) == 0 {
			m.Toolchain.Args = []string{"build", "--release"}
		}
	}
	if m.Toolchain.Artifact == "" {
		m.Toolchain.Artifact = "target/release/" + m.Name
	}
	if m.Strip.Command == "" {
		m.Strip.Command = DefaultStripTool
	}
	if m.Release.Dir == "" {
		m.Release.Dir = DefaultReleaseDir
	}
	if m.Release.BinaryName == "" {
		m.Release.BinaryName = m.Name
	}
}

// ReleaseDirectory returns the configured release output
func (m *Manifest) ReleaseDirectory() ReleaseDirectory {
	return ReleaseDirectory{Path: m.Release.Dir, BinaryName: m.Release.BinaryName}
}
