package gitsource

import (
	"bytes"
	"context"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/repopulse/repopulse/pkg/vcs"
)

// binarySniffLen bounds how much of a blob is inspected for null bytes when
// deciding whether it holds text.
const binarySniffLen = 8000

// FetchDiffStats implements vcs.Source. Stats are computed against the first
// parent; the root commit is diffed against the empty tree. Binary files
// contribute nothing to the counts.
func (r *Repo) FetchDiffStats(ctx context.Context, commitID string) (vcs.DiffStats, error) {
	var stats vcs.DiffStats

	oid, err := git2go.NewOid(commitID)
	if err != nil {
		return stats, &vcs.FetchError{CommitID: commitID, Err: fmt.Errorf("bad commit id: %w", err)}
	}

	commit, err := r.repo.LookupCommit(oid)
	if err != nil {
		return stats, &vcs.FetchError{CommitID: commitID, Err: fmt.Errorf("lookup commit: %w", err)}
	}
	defer commit.Free()

	tree, err := commit.Tree()
	if err != nil {
		return stats, &vcs.FetchError{CommitID: commitID, Err: fmt.Errorf("lookup tree: %w", err)}
	}
	defer tree.Free()

	var parentTree *git2go.Tree

	if commit.ParentCount() > 0 {
		parent := commit.Parent(0)
		defer parent.Free()

		parentTree, err = parent.Tree()
		if err != nil {
			return stats, &vcs.FetchError{CommitID: commitID, Err: fmt.Errorf("lookup parent tree: %w", err)}
		}
		defer parentTree.Free()
	}

	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return stats, &vcs.FetchError{CommitID: commitID, Err: fmt.Errorf("diff options: %w", err)}
	}

	diff, err := r.repo.DiffTreeToTree(parentTree, tree, &opts)
	if err != nil {
		return stats, &vcs.FetchError{CommitID: commitID, Err: fmt.Errorf("diff trees: %w", err)}
	}
	defer func() { _ = diff.Free() }()

	numDeltas, err := diff.NumDeltas()
	if err != nil {
		return stats, &vcs.FetchError{CommitID: commitID, Err: fmt.Errorf("count deltas: %w", err)}
	}

	for i := 0; i < numDeltas; i++ {
		select {
		case <-ctx.Done():
			return vcs.DiffStats{}, ctx.Err()
		default:
		}

		delta, err := diff.Delta(i)
		if err != nil {
			return vcs.DiffStats{}, &vcs.FetchError{CommitID: commitID, Err: fmt.Errorf("read delta: %w", err)}
		}

		if delta.Flags&git2go.DiffFlagBinary != 0 {
			continue
		}

		added, deleted, err := r.deltaLineCounts(delta)
		if err != nil {
			return vcs.DiffStats{}, &vcs.FetchError{CommitID: commitID, Err: err}
		}

		stats.Added += added
		stats.Deleted += deleted
	}

	return stats, nil
}

// deltaLineCounts resolves the blobs on both sides of a delta and counts
// line additions and deletions between them.
func (r *Repo) deltaLineCounts(delta git2go.DiffDelta) (int, int, error) {
	oldData, err := r.blobContents(delta.OldFile.Oid)
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", delta.OldFile.Path, err)
	}

	newData, err := r.blobContents(delta.NewFile.Oid)
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", delta.NewFile.Path, err)
	}

	if isBinary(oldData) || isBinary(newData) {
		return 0, 0, nil
	}

	added, deleted := diffLineCounts(oldData, newData)

	return added, deleted, nil
}

// blobContents loads blob data by id; a zero id means the file does not
// exist on that side of the diff.
func (r *Repo) blobContents(oid *git2go.Oid) ([]byte, error) {
	if oid == nil || oid.IsZero() {
		return nil, nil
	}

	blob, err := r.repo.LookupBlob(oid)
	if err != nil {
		return nil, err
	}
	defer blob.Free()

	data := make([]byte, len(blob.Contents()))
	copy(data, blob.Contents())

	return data, nil
}

// isBinary applies the null-byte heuristic git itself uses on the leading
// chunk of the data.
func isBinary(data []byte) bool {
	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// diffLineCounts counts added and deleted lines between two text blobs using
// a line-granular diff. Whole-file creation and deletion fall out naturally:
// one side is empty and every line lands on the other side of the diff.
func diffLineCounts(from, to []byte) (added, deleted int) {
	if bytes.Equal(from, to) {
		return 0, 0
	}

	dmp := diffmatchpatch.New()

	src, dst, _ := dmp.DiffLinesToRunes(string(from), string(to))
	diffs := dmp.DiffMainRunes(src, dst, false)
	diffs = dmp.DiffCleanupMerge(dmp.DiffCleanupSemanticLossless(diffs))

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += lineRuneCount(d.Text)
		case diffmatchpatch.DiffDelete:
			deleted += lineRuneCount(d.Text)
		case diffmatchpatch.DiffEqual:
		}
	}

	return added, deleted
}

// lineRuneCount counts runes in a DiffLinesToRunes-encoded segment, where
// each rune stands for one source line.
func lineRuneCount(text string) int {
	n := 0
	for range text {
		n++
	}

	return n
}
