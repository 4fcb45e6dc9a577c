// Package services holds pure domain rules that need no I/O.
package services

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/ochairo/tincture/internal/domain/entities"
)

// ReleaseStatus represents the state of a release directory
type ReleaseStatus string

// Release validation statuses
const (
	StatusReady            ReleaseStatus = "ready"
	StatusNoRelease        ReleaseStatus = "no_release"
	StatusMissingBinary    ReleaseStatus = "missing_binary"
	StatusUnexpectedFiles  ReleaseStatus = "unexpected_files"
	StatusNotRegularFile   ReleaseStatus = "not_regular_file"
	StatusNotExecutable    ReleaseStatus = "not_executable"
	StatusInvalidDirectory ReleaseStatus = "invalid_directory"
)

// ReleaseEntry is one directory entry of a release directory
type ReleaseEntry struct {
	Name string
	Mode fs.FileMode
}

// ReleaseValidation contains the validation result for a release directory
type ReleaseValidation struct {
	Status          ReleaseStatus
	Directory       entities.ReleaseDirectory
	UnexpectedFiles []string
	Mode            fs.FileMode
}

// IsReady returns true if the release directory holds exactly the expected binary
func (rv *ReleaseValidation) IsReady() bool {
	return rv.Status == StatusReady
}

// ErrorMessage returns a human-readable error message if not ready
func (rv *ReleaseValidation) ErrorMessage() string {
	switch rv.Status {
	case StatusReady:
		return ""
	case StatusNoRelease:
		return fmt.Sprintf("No release directory at %s", rv.Directory.Path)
	case StatusInvalidDirectory:
		return fmt.Sprintf("%s is not a directory", rv.Directory.Path)
	case StatusMissingBinary:
		return fmt.Sprintf("Release binary %s not found", rv.Directory.BinaryPath())
	case StatusUnexpectedFiles:
		return fmt.Sprintf("Release directory must contain only %s, found: %s",
			rv.Directory.BinaryName, strings.Join(rv.UnexpectedFiles, ", "))
	case StatusNotRegularFile:
		return fmt.Sprintf("%s is not a regular file (mode %s)", rv.Directory.BinaryPath(), rv.Mode)
	case StatusNotExecutable:
		return fmt.Sprintf("%s is not executable (mode %s)", rv.Directory.BinaryPath(), rv.Mode.Perm())
	default:
		return "Unknown status"
	}
}

// ReleaseService handles release directory validation rules
type ReleaseService struct{}

// NewReleaseService creates a new release service
func NewReleaseService() *ReleaseService {
	return &ReleaseService{}
}

// ValidateRelease checks that entries (the listing of dir) contain exactly
// one executable regular file named dir.BinaryName. A nil entries slice means
// the directory does not exist.
func (s *ReleaseService) ValidateRelease(dir entities.ReleaseDirectory, entries []ReleaseEntry) *ReleaseValidation {
	validation := &ReleaseValidation{Directory: dir}

	if entries == nil {
		validation.Status = StatusNoRelease
		return validation
	}

	var binary *ReleaseEntry
	for i := range entries {
		if entries[i].Name == dir.BinaryName {
			binary = &entries[i]
			continue
		}
		validation.UnexpectedFiles = append(validation.UnexpectedFiles, entries[i].Name)
	}
	sort.Strings(validation.UnexpectedFiles)

	switch {
	case binary == nil:
		validation.Status = StatusMissingBinary
	case len(validation.UnexpectedFiles) > 0:
		validation.Status = StatusUnexpectedFiles
	case !binary.Mode.IsRegular():
		validation.Mode = binary.Mode
		validation.Status = StatusNotRegularFile
	case binary.Mode.Perm()&0111 == 0:
		validation.Mode = binary.Mode
		validation.Status = StatusNotExecutable
	default:
		validation.Mode = binary.Mode
		validation.Status = StatusReady
	}

	return validation
}
