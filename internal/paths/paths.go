// Package paths resolves default on-disk locations.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// Name used for directory naming.
	appName = "tincture"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for packaged binaries.
	DefaultBinaryMode os.FileMode = 0755
)

// Default root for per-revision workspaces.
//
//	Linux:   $XDG_CACHE_HOME/tincture/workspaces or ~/.cache/tincture/workspaces
//	macOS:   ~/Library/Caches/tincture/workspaces
func Workspaces() string {
	return filepath.Join(xdg.CacheHome, appName, "workspaces")
}

// WorkDir returns dir when set, otherwise the default workspace root.
func WorkDir(dir string) string {
	if dir != "" {
		return dir
	}
	return Workspaces()
}
