package entities

import "time"

// Workspace is a local, extracted copy of the pinned source tree.
//
// Root is named after the revision so that workspaces for different pins
// coexist. SourceDir is always Root/src, whatever top-level directory name
// the upstream archive used.
type Workspace struct {
	Revision  Revision
	Root      string
	SourceDir string
	Stamp     *FetchStamp
	Reused    bool // true when an existing workspace was returned without fetching
}

// FetchStamp records how a workspace was produced. Its presence marks the
// workspace as complete.
type FetchStamp struct {
	Revision      Revision
	URL           string
	ArchiveDigest string
	TreeHash      string
	TopLevelDir   string
	FetchedAt     time.Time

	// Files lists the fetched regular files (slash-separated, relative to
	// SourceDir) that TreeHash covers. Build outputs added later are not in it.
	Files []string
}
