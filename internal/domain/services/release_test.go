package services

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/ochairo/tincture/internal/domain/entities"
)

func TestValidateRelease(t *testing.T) {
	dir := entities.ReleaseDirectory{Path: "release", BinaryName: "wasp"}

	tests := []struct {
		name            string
		entries         []ReleaseEntry
		expectedStatus  ReleaseStatus
		expectedReady   bool
		expectedExtra   int
		messageContains string
	}{
		{
			name:           "single executable - ready",
			entries:        []ReleaseEntry{{Name: "wasp", Mode: 0755}},
			expectedStatus: StatusReady,
			expectedReady:  true,
		},
		{
			name:            "directory missing",
			entries:         nil,
			expectedStatus:  StatusNoRelease,
			messageContains: "No release directory",
		},
		{
			name:            "empty directory",
			entries:         []ReleaseEntry{},
			expectedStatus:  StatusMissingBinary,
			messageContains: "release/wasp",
		},
		{
			name: "leftover files",
			entries: []ReleaseEntry{
				{Name: "wasp", Mode: 0755},
				{Name: "wasp.debug", Mode: 0644},
				{Name: "README", Mode: 0644},
			},
			expectedStatus:  StatusUnexpectedFiles,
			expectedExtra:   2,
			messageContains: "README, wasp.debug",
		},
		{
			name:            "wrong name",
			entries:         []ReleaseEntry{{Name: "wasp-cli", Mode: 0755}},
			expectedStatus:  StatusMissingBinary,
			expectedExtra:   1,
			messageContains: "not found",
		},
		{
			name:            "binary is a directory",
			entries:         []ReleaseEntry{{Name: "wasp", Mode: fs.ModeDir | 0755}},
			expectedStatus:  StatusNotRegularFile,
			messageContains: "not a regular file",
		},
		{
			name:            "not executable",
			entries:         []ReleaseEntry{{Name: "wasp", Mode: 0644}},
			expectedStatus:  StatusNotExecutable,
			messageContains: "-rw-r--r--",
		},
	}

	service := NewReleaseService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validation := service.ValidateRelease(dir, tt.entries)

			if validation.Status != tt.expectedStatus {
				t.Errorf("Status = %v, want %v", validation.Status, tt.expectedStatus)
			}
			if validation.IsReady() != tt.expectedReady {
				t.Errorf("IsReady() = %v, want %v", validation.IsReady(), tt.expectedReady)
			}
			if len(validation.UnexpectedFiles) != tt.expectedExtra {
				t.Errorf("UnexpectedFiles = %v, want %d entries", validation.UnexpectedFiles, tt.expectedExtra)
			}

			msg := validation.ErrorMessage()
			if tt.expectedReady && msg != "" {
				t.Errorf("ErrorMessage() = %q, want empty", msg)
			}
			if tt.messageContains != "" && !strings.Contains(msg, tt.messageContains) {
				t.Errorf("ErrorMessage() = %q, want it to contain %q", msg, tt.messageContains)
			}
		})
	}
}
