package yaml

import (
	"errors"
	"strings"
	"testing"

	"github.com/ochairo/tincture/internal/domain/entities"
)

func TestManifestParser_Parse_Valid(t *testing.T) {
	parser := NewManifestParser()
	yamlData := []byte(`name: wasp
revision: 3f1c0d9
source:
  archive_host: https://github.com/
  project: /wasp-ws/wasp/
  archive_digest: sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824
  signature:
    key_file: keys/upstream.asc
toolchain:
  command: cargo
  args: [build, --release, --locked]
  artifact: target/release/wasp
  env:
    CARGO_TERM_COLOR: never
strip:
  command: llvm-strip
  args: [--strip-all]
release:
  dir: dist
  binary_name: wasp-cli
workdir: /var/cache/tincture
`)

	m, err := parser.Parse(yamlData)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if m.Name != "wasp" {
		t.Errorf("Name = %v, want wasp", m.Name)
	}
	if m.Revision != "3f1c0d9" {
		t.Errorf("Revision = %v, want 3f1c0d9", m.Revision)
	}
	if m.Source.ArchiveHost != "https://github.com" {
		t.Errorf("ArchiveHost = %v, want trailing slash trimmed", m.Source.ArchiveHost)
	}
	if m.Source.Project != "wasp-ws/wasp" {
		t.Errorf("Project = %v, want wasp-ws/wasp", m.Source.Project)
	}
	if !m.Source.Signature.Enabled() {
		t.Error("Signature should be enabled when key_file is set")
	}
	if got := strings.Join(m.Toolchain.Args, " "); got != "build --release --locked" {
		t.Errorf("Toolchain.Args = %q", got)
	}
	if m.Toolchain.Env["CARGO_TERM_COLOR"] != "never" {
		t.Errorf("Toolchain.Env = %v", m.Toolchain.Env)
	}
	if m.Strip.Command != "llvm-strip" {
		t.Errorf("Strip.Command = %v, want llvm-strip", m.Strip.Command)
	}
	if m.ReleaseDirectory().BinaryPath() != "dist/wasp-cli" {
		t.Errorf("BinaryPath() = %v, want dist/wasp-cli", m.ReleaseDirectory().BinaryPath())
	}
	if m.WorkDir != "/var/cache/tincture" {
		t.Errorf("WorkDir = %v", m.WorkDir)
	}
}

func TestManifestParser_Parse_Defaults(t *testing.T) {
	parser := NewManifestParser()

	m, err := parser.Parse([]byte(`name: hello`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if m.Source.ArchiveHost != entities.DefaultArchiveHost {
		t.Errorf("ArchiveHost = %v, want default", m.Source.ArchiveHost)
	}
	if m.Toolchain.Command != "cargo" || strings.Join(m.Toolchain.Args, " ") != "build --release" {
		t.Errorf("Toolchain = %v %v, want cargo build --release", m.Toolchain.Command, m.Toolchain.Args)
	}
	if m.Toolchain.Artifact != "target/release/hello" {
		t.Errorf("Artifact = %v, want target/release/hello", m.Toolchain.Artifact)
	}
	if m.Release.BinaryName != "hello" || m.Release.Dir != "release" {
		t.Errorf("Release = %+v", m.Release)
	}
	if m.Source.Signature.Enabled() {
		t.Error("Signature should be disabled by default")
	}
}

func TestManifestParser_Parse_Empty(t *testing.T) {
	parser := NewManifestParser()

	m, err := parser.Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Name != entities.DefaultBinaryName {
		t.Errorf("Name = %v, want %v", m.Name, entities.DefaultBinaryName)
	}
}

func TestManifestParser_Parse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown key",
			yaml:    "name: wasp\nrevison: abc\n",
			wantErr: "revison",
		},
		{
			name:    "binary name with separator",
			yaml:    "release:\n  binary_name: bin/wasp\n",
			wantErr: "binary_name",
		},
		{
			name:    "artifact escaping source tree",
			yaml:    "toolchain:\n  artifact: ../../etc/passwd\n",
			wantErr: "toolchain.artifact",
		},
		{
			name:    "absolute artifact",
			yaml:    "toolchain:\n  artifact: /usr/bin/wasp\n",
			wantErr: "toolchain.artifact",
		},
		{
			name:    "malformed digest",
			yaml:    "source:\n  archive_digest: sha256:nothex\n",
			wantErr: "archive_digest",
		},
		{
			name:    "non http host",
			yaml:    "source:\n  archive_host: ftp://example.com\n",
			wantErr: "archive_host",
		},
		{
			name:    "not a mapping",
			yaml:    "[]",
			wantErr: "failed to parse YAML",
		},
	}

	parser := NewManifestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if !errors.Is(err, entities.ErrConfig) {
				t.Errorf("Parse() error = %v, want ErrConfig", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestManifestParser_ParseFile_NotFound(t *testing.T) {
	parser := NewManifestParser()

	_, err := parser.ParseFile("/nonexistent/tincture.yml")
	if !errors.Is(err, entities.ErrConfig) {
		t.Errorf("ParseFile() error = %v, want ErrConfig", err)
	}
}
