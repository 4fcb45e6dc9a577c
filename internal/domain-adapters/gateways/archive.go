package gateways

import (
	"archive/tar"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// errUnrecognizedArchive is returned for streams that are neither gzip nor xz
var errUnrecognizedArchive = errors.New("unrecognized archive format (expected gzip or xz compressed tar)")

// decompress sniffs the compression format of r and returns a decompressing reader
func decompress(r io.Reader) (io.Reader, func() error, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(len(xzMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("failed to read archive header: %w", err)
	}

	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gzr, gzr.Close, nil
	case bytes.HasPrefix(magic, xzMagic):
		xzr, err := xz.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xzr, func() error { return nil }, nil
	default:
		return nil, nil, errUnrecognizedArchive
	}
}

// extractArchive extracts a compressed tarball into destDir
func extractArchive(archivePath, destDir string) error {
	//nolint:gosec // G304: archivePath is the downloaded archive in staging
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer file.Close()

	r, closeFn, err := decompress(file)
	if err != nil {
		return err
	}
	//nolint:errcheck // Defer close on decompressor
	defer closeFn()

	return extractTar(tar.NewReader(r), destDir)
}

// extractTar writes the entries of tr below destDir
func extractTar(tr *tar.Reader, destDir string) error {
	if err := os.MkdirAll(destDir, 0750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	root := filepath.Clean(destDir)

	// Links are created after all regular files exist
	type linkInfo struct {
		target   string
		linkname string
		hard     bool
	}
	var links []linkInfo

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read error: %w", err)
		}

		target, err := withinRoot(root, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			if err := writeFile(tr, target, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}

		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) {
				return fmt.Errorf("invalid absolute symlink in archive: %s -> %s", header.Name, header.Linkname)
			}
			resolved := filepath.Join(filepath.Dir(target), header.Linkname)
			if _, err := withinRoot(root, mustRel(root, resolved)); err != nil {
				return fmt.Errorf("invalid symlink in archive: %s -> %s", header.Name, header.Linkname)
			}
			links = append(links, linkInfo{target: target, linkname: header.Linkname})

		case tar.TypeLink:
			source, err := withinRoot(root, header.Linkname)
			if err != nil {
				return err
			}
			links = append(links, linkInfo{target: target, linkname: source, hard: true})

		case tar.TypeXGlobalHeader:
			// GitHub archives carry the commit id in a global pax header

		default:
			// devices and fifos have no place in a source tree
		}
	}

	for _, link := range links {
		if err := os.MkdirAll(filepath.Dir(link.target), 0750); err != nil {
			return fmt.Errorf("failed to create directory for link: %w", err)
		}
		if link.hard {
			if err := os.Link(link.linkname, link.target); err != nil {
				return fmt.Errorf("failed to create hard link %s: %w", link.target, err)
			}
			continue
		}
		if err := os.Symlink(link.linkname, link.target); err != nil {
			return fmt.Errorf("failed to create symlink %s: %w", link.target, err)
		}
	}

	return nil
}

func writeFile(r io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	//nolint:gosec // G304: target is validated against the extraction root
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode|0600)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

// withinRoot joins name onto root and rejects paths that escape it
func withinRoot(root, name string) (string, error) {
	target := filepath.Join(root, name)
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid file path in archive: %s", name)
	}
	return target, nil
}

func mustRel(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return ".."
	}
	return rel
}

// singleTopLevelDir returns the only entry of dir, which must be a directory
func singleTopLevelDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read extracted directory: %w", err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		return "", fmt.Errorf("archive must contain exactly one top-level directory, found %v", names)
	}
	return entries[0].Name(), nil
}
