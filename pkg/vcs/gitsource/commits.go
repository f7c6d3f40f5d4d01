package gitsource

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/repopulse/repopulse/pkg/vcs"
)

// versionTagPattern matches release tags made of dotted numeric components,
// e.g. "6.4" or "6.4.1". Prefixed tags such as "v1.2" are not release markers
// in the repositories this tool targets.
var versionTagPattern = regexp.MustCompile(`^\d+(\.\d+)*$`)

const tagRefPrefix = "refs/tags/"

// ListCommits implements vcs.Source. Commits are returned newest first,
// restricted to author timestamps within [since, to]. Zero bounds disable
// the corresponding cutoff.
func (r *Repo) ListCommits(ctx context.Context, since, to time.Time) ([]vcs.RawCommit, error) {
	err := r.loadVersionTags()
	if err != nil {
		return nil, err
	}

	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}
	defer walk.Free()

	walk.Sorting(git2go.SortTime)

	err = walk.PushHead()
	if err != nil {
		return nil, fmt.Errorf("push HEAD: %w", err)
	}

	var commits []vcs.RawCommit

	var iterErr error

	err = walk.Iterate(func(commit *git2go.Commit) bool {
		select {
		case <-ctx.Done():
			iterErr = ctx.Err()

			return false
		default:
		}

		defer commit.Free()

		when := commit.Author().When.UTC()
		if !since.IsZero() && when.Before(since) {
			return true
		}

		if !to.IsZero() && when.After(to) {
			return true
		}

		id := commit.Id().String()

		raw := vcs.RawCommit{
			ID:        id,
			Author:    commit.Author().Name,
			Timestamp: when,
			Message:   commit.Message(),
		}

		if version, ok := r.commitVersion[id]; ok {
			raw.TagRefs = []string{version}
		}

		commits = append(commits, raw)

		return true
	})
	if err != nil {
		return nil, fmt.Errorf("walk commits: %w", err)
	}

	if iterErr != nil {
		return nil, iterErr
	}

	return commits, nil
}

// loadVersionTags scans refs/tags once and records, per tagged commit, the
// release version pointing at it. When several release tags land on one
// commit the lowest tag name in lexical order wins, keeping output stable
// across runs.
func (r *Repo) loadVersionTags() error {
	if r.commitVersion != nil {
		return nil
	}

	iter, err := r.repo.NewReferenceIteratorGlob(tagRefPrefix + "*")
	if err != nil {
		return fmt.Errorf("iterate tags: %w", err)
	}
	defer iter.Free()

	tagged := make(map[string][]string)

	for {
		ref, err := iter.Next()
		if err != nil {
			if git2go.IsErrorCode(err, git2go.ErrorCodeIterOver) {
				break
			}

			return fmt.Errorf("iterate tags: %w", err)
		}

		name := strings.TrimPrefix(ref.Name(), tagRefPrefix)
		if !versionTagPattern.MatchString(name) {
			ref.Free()

			continue
		}

		// Annotated tags need peeling through the tag object to the commit.
		obj, err := ref.Peel(git2go.ObjectCommit)

		ref.Free()

		if err != nil {
			continue
		}

		id := obj.Id().String()

		obj.Free()

		tagged[id] = append(tagged[id], name)
	}

	r.commitVersion = make(map[string]string, len(tagged))

	for id, names := range tagged {
		sort.Strings(names)

		r.commitVersion[id] = names[0]
	}

	return nil
}
