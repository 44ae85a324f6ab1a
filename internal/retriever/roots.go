package retriever

import (
	"os"
	"path/filepath"
)

// Roots maps a repository name (a workspace root's final path component) to
// its absolute path on disk, letting a retriever turn a full-text or
// metadata path — which carries no root prefix — back into a readable file
// and the repository it belongs to.
type Roots map[string]string

// NewRoots builds a Roots map from a list of workspace root paths.
func NewRoots(workspaceRoots []string) Roots {
	roots := make(Roots, len(workspaceRoots))
	for _, root := range workspaceRoots {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		roots[filepath.Base(abs)] = abs
	}
	return roots
}

// Resolve finds which root a relative path lives under and returns its
// absolute path and owning repository name. Roots are tried in map order;
// if two roots happen to share a relative path, the first one found wins
// — the same simplification the full-text and metadata stores already
// make by not prefixing documents with their root.
func (r Roots) Resolve(relPath string) (absPath, repository string, ok bool) {
	for repo, root := range r {
		candidate := filepath.Join(root, relPath)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, repo, true
		}
	}
	return "", "", false
}
