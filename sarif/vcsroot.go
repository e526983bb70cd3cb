package sarif

import (
	"path/filepath"

	"github.com/Masterminds/vcs"
	"github.com/pkg/errors"
)

// ErrNoRepoRoot is returned when no ancestor of the starting directory
// carries VCS metadata vcs.DetectVcsFromFS recognizes.
var ErrNoRepoRoot = errors.New("sarif: no VCS repository root found")

// ResolveArtifactRoot walks upward from startDir looking for a VCS
// checkout root, the same repo-root-detection job the teacher's
// getVCSRepo/vcs.Repo machinery performs against an import path - only
// the lightweight detection half is used here, never the mutable
// clone/update surface, since the core never clones anything.
func ResolveArtifactRoot(startDir string) (root string, kind vcs.Type, err error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", "", errors.Wrapf(err, "sarif: failed to resolve %q", startDir)
	}
	for {
		if t, err := vcs.DetectVcsFromFS(dir); err == nil {
			return dir, t, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", ErrNoRepoRoot
		}
		dir = parent
	}
}

// NormalizeArtifactURI rewrites a SARIF artifactLocation.uri (always
// relative, SARIF-schema forward-slash form) into a native path joined
// onto root.
func NormalizeArtifactURI(root, uri string) string {
	return filepath.Join(root, filepath.FromSlash(uri))
}
