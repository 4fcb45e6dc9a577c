package gateways

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"golang.org/x/mod/sumdb/dirhash"

	"github.com/ochairo/tincture/internal/domain/entities"
	"github.com/ochairo/tincture/internal/domain/interfaces"
	"github.com/ochairo/tincture/internal/domain/interfaces/gateways"
	"github.com/ochairo/tincture/internal/domain/interfaces/repositories"
	"github.com/ochairo/tincture/internal/external-adapters/yaml"
)

const (
	// Name of the normalized source tree inside a workspace root
	sourceDirName = "src"

	// Marker written last; its presence means the workspace is complete
	stampFileName = ".tincture-fetch.yml"

	// Scratch area for downloads and extraction, on the same filesystem as
	// the workspaces so the final rename is atomic
	stagingDirName = ".staging"

	userAgent = "tincture/1.0"
)

// FetcherConfig holds the source location and workspace root
type FetcherConfig struct {
	Source     entities.SourceConfig
	WorkDir    string
	HTTPClient *http.Client
}

// Fetcher downloads the pinned source archive and stages it as a workspace
type Fetcher struct {
	source     entities.SourceConfig
	workDir    string
	httpClient *http.Client
	signatures gateways.SignatureGateway
	stamps     repositories.StampRepository
	logger     interfaces.Logger
	now        func() time.Time
}

// NewFetcher creates a fetcher. signatures may be nil when the manifest does
// not configure signature verification.
func NewFetcher(config FetcherConfig, signatures gateways.SignatureGateway, logger interfaces.Logger) *Fetcher {
	client := config.HTTPClient
	if client == nil {
		// No client timeout: a hung download is cancelled by the invoking process
		client = &http.Client{}
	}
	return &Fetcher{
		source:     config.Source,
		workDir:    config.WorkDir,
		httpClient: client,
		signatures: signatures,
		stamps:     yaml.NewStampStore(),
		logger:     interfaces.OrNop(logger),
		now:        time.Now,
	}
}

// ArchiveURL returns <archive-host>/<project>/archive/<revision>.tar.gz
func (f *Fetcher) ArchiveURL(revision entities.Revision) string {
	return fmt.Sprintf("%s/%s/archive/%s.tar.gz",
		strings.TrimRight(f.source.ArchiveHost, "/"),
		strings.Trim(f.source.Project, "/"),
		revision,
	)
}

// SignatureURL returns where the detached signature for revision is served
func (f *Fetcher) SignatureURL(revision entities.Revision) string {
	if f.source.Signature.URL != "" {
		return strings.ReplaceAll(f.source.Signature.URL, "{revision}", revision.String())
	}
	return f.ArchiveURL(revision) + ".asc"
}

// Workspace returns the workspace layout for revision without touching disk
func (f *Fetcher) Workspace(revision entities.Revision) *entities.Workspace {
	root := filepath.Join(f.workDir, revision.String())
	return &entities.Workspace{
		Revision:  revision,
		Root:      root,
		SourceDir: filepath.Join(root, sourceDirName),
	}
}

// Lookup returns the existing complete workspace for revision, if any
func (f *Fetcher) Lookup(revision entities.Revision) (*entities.Workspace, bool) {
	ws := f.Workspace(revision)

	stamp, err := f.stamps.ReadStamp(filepath.Join(ws.Root, stampFileName))
	if err != nil || stamp.Revision != revision {
		return nil, false
	}
	if info, err := os.Stat(ws.SourceDir); err != nil || !info.IsDir() {
		return nil, false
	}

	ws.Stamp = stamp
	ws.Reused = true
	return ws, true
}

// Fetch returns the workspace for revision, downloading and extracting the
// source archive only if no complete workspace exists yet. A failed fetch
// leaves no workspace behind.
func (f *Fetcher) Fetch(ctx context.Context, revision entities.Revision) (*entities.Workspace, error) {
	if ws, ok := f.Lookup(revision); ok {
		f.logger.Info("workspace already staged", interfaces.F("revision", revision), interfaces.F("path", ws.Root))
		return ws, nil
	}

	ws := f.Workspace(revision)
	url := f.ArchiveURL(revision)

	staging := filepath.Join(f.workDir, stagingDirName)
	if err := os.MkdirAll(staging, 0750); err != nil {
		return nil, fmt.Errorf("%w: failed to create staging directory: %w", entities.ErrExtract, err)
	}

	f.logger.Info("downloading source archive", interfaces.F("revision", revision), interfaces.F("url", url))
	archivePath, archiveDigest, err := f.download(ctx, url, staging)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Archive is only needed until extraction
	defer os.Remove(archivePath)

	if err := f.verify(ctx, revision, archivePath); err != nil {
		return nil, err
	}

	tmpRoot, err := os.MkdirTemp(staging, revision.String()+"-")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create staging workspace: %w", entities.ErrExtract, err)
	}
	//nolint:errcheck // tmpRoot no longer exists after a successful rename
	defer os.RemoveAll(tmpRoot)

	topLevel, files, treeHash, err := f.stage(archivePath, tmpRoot, revision)
	if err != nil {
		return nil, err
	}

	stamp := &entities.FetchStamp{
		Revision:      revision,
		URL:           url,
		ArchiveDigest: archiveDigest.String(),
		TreeHash:      treeHash,
		TopLevelDir:   topLevel,
		FetchedAt:     f.now(),
		Files:         files,
	}
	if err := f.stamps.WriteStamp(filepath.Join(tmpRoot, stampFileName), stamp); err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrExtract, err)
	}

	// An incomplete workspace (no stamp) may be left from an interrupted run
	if err := os.RemoveAll(ws.Root); err != nil {
		return nil, fmt.Errorf("%w: failed to remove incomplete workspace: %w", entities.ErrExtract, err)
	}
	if err := os.Rename(tmpRoot, ws.Root); err != nil {
		return nil, fmt.Errorf("%w: failed to move workspace into place: %w", entities.ErrExtract, err)
	}

	ws.Stamp = stamp
	f.logger.Info("workspace staged",
		interfaces.F("revision", revision),
		interfaces.F("path", ws.SourceDir),
		interfaces.F("tree_hash", treeHash),
	)
	return ws, nil
}

// Discard removes the workspace for revision
func (f *Fetcher) Discard(revision entities.Revision) error {
	ws := f.Workspace(revision)
	if err := os.RemoveAll(ws.Root); err != nil {
		return fmt.Errorf("failed to discard workspace %s: %w", ws.Root, err)
	}
	return nil
}

// Verify re-hashes the fetched files of the workspace and compares them with
// the stamp. Files added to the tree after the fetch, such as build output,
// are ignored.
func (f *Fetcher) Verify(ws *entities.Workspace) error {
	if ws.Stamp == nil {
		return fmt.Errorf("workspace %s has no fetch stamp", ws.Root)
	}

	files := ws.Stamp.Files
	if len(files) == 0 {
		// Stamps written without a file list cover the whole tree
		var err error
		if files, err = listTree(ws.SourceDir); err != nil {
			return err
		}
	}
	for _, name := range files {
		info, err := os.Lstat(filepath.Join(ws.SourceDir, filepath.FromSlash(name)))
		if err != nil {
			return fmt.Errorf("workspace %s was modified: %s is missing", ws.Root, name)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("workspace %s was modified: %s is no longer a regular file", ws.Root, name)
		}
	}

	actual, err := hashFiles(ws.SourceDir, files, ws.Revision)
	if err != nil {
		return err
	}
	if actual != ws.Stamp.TreeHash {
		return fmt.Errorf("workspace %s was modified: tree hash %s, stamp %s", ws.Root, actual, ws.Stamp.TreeHash)
	}
	return nil
}

// download streams url into a temp file in dir, hashing it on the way
func (f *Fetcher) download(ctx context.Context, url, dir string) (string, digest.Digest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("%w: failed to create request: %w", entities.ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", entities.ErrFetch, err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", fmt.Errorf("%w: GET %s: %s", entities.ErrFetch, url, resp.Status)
	}

	out, err := os.CreateTemp(dir, "archive-*.tar.gz")
	if err != nil {
		return "", "", fmt.Errorf("%w: failed to create archive file: %w", entities.ErrExtract, err)
	}
	cleanup := func() {
		_ = out.Close()
		_ = os.Remove(out.Name())
	}

	digester := digest.Canonical.Digester()
	written, err := io.Copy(io.MultiWriter(out, digester.Hash()), resp.Body)
	if err != nil {
		cleanup()
		return "", "", fmt.Errorf("%w: download of %s interrupted after %d bytes: %w", entities.ErrFetch, url, written, err)
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		cleanup()
		return "", "", fmt.Errorf("%w: download of %s truncated: got %d of %d bytes", entities.ErrFetch, url, written, resp.ContentLength)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", "", fmt.Errorf("%w: failed to write archive: %w", entities.ErrExtract, err)
	}

	f.logger.Debug("downloaded archive", interfaces.F("bytes", written), interfaces.F("digest", digester.Digest()))
	return out.Name(), digester.Digest(), nil
}

// verify checks the pinned archive digest and detached signature, if configured
func (f *Fetcher) verify(ctx context.Context, revision entities.Revision, archivePath string) error {
	if f.source.ArchiveDigest != "" {
		if err := VerifyDigest(archivePath, digest.Digest(f.source.ArchiveDigest)); err != nil {
			return fmt.Errorf("%w: archive %w", entities.ErrFetch, err)
		}
	}

	if f.signatures != nil {
		if err := f.signatures.VerifyGPGSignature(ctx, archivePath, f.SignatureURL(revision)); err != nil {
			return fmt.Errorf("%w: %w", entities.ErrFetch, err)
		}
	}
	return nil
}

// stage extracts the archive into tmpRoot and normalizes its single
// top-level directory to tmpRoot/src. It returns the top-level directory
// name, the regular files of the tree and their hash.
func (f *Fetcher) stage(archivePath, tmpRoot string, revision entities.Revision) (string, []string, string, error) {
	extractDir := filepath.Join(tmpRoot, "extract")
	if err := extractArchive(archivePath, extractDir); err != nil {
		return "", nil, "", fmt.Errorf("%w: %w", entities.ErrExtract, err)
	}

	topLevel, err := singleTopLevelDir(extractDir)
	if err != nil {
		return "", nil, "", fmt.Errorf("%w: %w", entities.ErrExtract, err)
	}
	if !strings.Contains(topLevel, revision.String()) {
		f.logger.Warn("archive top-level directory does not name the revision",
			interfaces.F("revision", revision),
			interfaces.F("directory", topLevel),
		)
	}

	sourceDir := filepath.Join(tmpRoot, sourceDirName)
	if err := os.Rename(filepath.Join(extractDir, topLevel), sourceDir); err != nil {
		return "", nil, "", fmt.Errorf("%w: failed to normalize source tree: %w", entities.ErrExtract, err)
	}
	if err := os.Remove(extractDir); err != nil {
		return "", nil, "", fmt.Errorf("%w: %w", entities.ErrExtract, err)
	}

	files, err := listTree(sourceDir)
	if err != nil {
		return "", nil, "", fmt.Errorf("%w: %w", entities.ErrExtract, err)
	}
	treeHash, err := hashFiles(sourceDir, files, revision)
	if err != nil {
		return "", nil, "", fmt.Errorf("%w: %w", entities.ErrExtract, err)
	}
	return topLevel, files, treeHash, nil
}

// listTree returns the regular files under dir as sorted slash-separated
// relative paths. Symlinks are skipped since dirhash opens every listed file.
func listTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if strings.ContainsRune(rel, '\n') {
			return fmt.Errorf("file name with newline in source tree: %q", rel)
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list source tree: %w", err)
	}
	return files, nil
}

// hashFiles computes a dirhash (h1:) over files, relative to dir
func hashFiles(dir string, files []string, revision entities.Revision) (string, error) {
	h, err := dirhash.Hash1(files, func(name string) (io.ReadCloser, error) {
		return os.Open(filepath.Join(dir, filepath.FromSlash(name)))
	})
	if err != nil {
		return "", fmt.Errorf("failed to hash source tree for %s: %w", revision, err)
	}
	return h, nil
}
