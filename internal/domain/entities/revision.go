package entities

import (
	"fmt"
	"strings"
)

const maxRevisionLength = 128

// Revision names an exact, immutable snapshot of upstream source
// (a commit hash or tag). It is resolved once at startup and never mutated.
type Revision string

// ParseRevision validates a raw revision identifier.
// The identifier ends up in a URL path and a directory name, so only
// [A-Za-z0-9._-] is accepted.
func ParseRevision(raw string) (Revision, error) {
	rev := strings.TrimSpace(raw)
	if rev == "" {
		return "", fmt.Errorf("%w: pinned revision is empty", ErrConfig)
	}
	if len(rev) > maxRevisionLength {
		return "", fmt.Errorf("%w: pinned revision exceeds %d characters", ErrConfig, maxRevisionLength)
	}
	// Names starting with a dot are reserved for tincture's own entries in
	// the workspace root, such as the staging area
	if strings.HasPrefix(rev, ".") {
		return "", fmt.Errorf("%w: invalid pinned revision %q", ErrConfig, rev)
	}
	for _, c := range rev {
		if !isRevisionChar(c) {
			return "", fmt.Errorf("%w: invalid character %q in pinned revision %q", ErrConfig, c, rev)
		}
	}
	return Revision(rev), nil
}

func isRevisionChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '.', c == '_', c == '-':
		return true
	}
	return false
}

// String returns the revision identifier
func (r Revision) String() string {
	return string(r)
}

// Short returns an abbreviated identifier for display
func (r Revision) Short() string {
	if len(r) > 12 {
		return string(r[:12])
	}
	return string(r)
}
