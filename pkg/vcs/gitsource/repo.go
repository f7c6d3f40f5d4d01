// Package gitsource implements the vcs.Source capability on top of libgit2.
// Commit metadata and tags come straight from the object database; per-commit
// line stats are computed by diffing blob contents line-wise.
package gitsource

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

// clonedDirPerm is the permission for created clone cache directories.
const clonedDirPerm = 0o750

// Repo is a git-backed commit source.
type Repo struct {
	repo *git2go.Repository
	path string
	url  string

	// commitVersion maps commit ID to the release version tagged on it,
	// loaded lazily on first ListCommits call.
	commitVersion map[string]string
}

// Open opens an existing repository working copy. repoURL identifies the
// repository for cache keying; pass the path again for purely local repos.
func Open(path, repoURL string) (*Repo, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}

	if repoURL == "" {
		repoURL = path
	}

	return &Repo{repo: repo, path: path, url: repoURL}, nil
}

// EnsureCloned opens the clone of repoURL under cloneDir, cloning it first
// when absent and fast-forwarding it when present. A failed update is not
// fatal; analysis proceeds with the commits already on disk.
func EnsureCloned(ctx context.Context, repoURL, cloneDir string) (*Repo, error) {
	path := filepath.Join(cloneDir, sanitizeRepoName(repoURL))

	if isRepo(path) {
		pull := exec.CommandContext(ctx, "git", "-C", path, "pull", "--ff-only", "--quiet")
		_ = pull.Run()

		return Open(path, repoURL)
	}

	err := os.MkdirAll(cloneDir, clonedDirPerm)
	if err != nil {
		return nil, fmt.Errorf("create clone dir: %w", err)
	}

	clone := exec.CommandContext(ctx, "git", "clone", "--quiet", repoURL, path)

	out, err := clone.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w: %s", repoURL, err, strings.TrimSpace(string(out)))
	}

	return Open(path, repoURL)
}

// isRepo reports whether path holds a usable git repository.
func isRepo(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))

	return err == nil && info.IsDir()
}

// sanitizeRepoName converts a repository URL into a directory name.
func sanitizeRepoName(repoURL string) string {
	name := strings.TrimSuffix(repoURL, ".git")
	name = strings.TrimRight(name, "/")

	if idx := strings.LastIndexAny(name, "/:"); idx >= 0 {
		name = name[idx+1:]
	}

	if name == "" {
		name = "repo"
	}

	return strings.ToLower(name)
}

// Name implements vcs.Source.
func (r *Repo) Name() string {
	return "git"
}

// RepoID implements vcs.Source.
func (r *Repo) RepoID() string {
	return r.url
}

// Path returns the working copy location.
func (r *Repo) Path() string {
	return r.path
}

// Free releases the underlying libgit2 handle.
func (r *Repo) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}
