package services

import (
	"sort"

	"github.com/quarrylabs/ragsync/internal/core/domain"
)

// ComputeChanges diffs the current source enumeration against the
// persisted snapshot. A file counts as modified only when its source
// modification time is strictly after the recorded one; an equal or
// earlier timestamp (clock skew, restored backup) is not a change.
func ComputeChanges(current []domain.SourceFile, known domain.KnownFilesSnapshot) domain.FileChanges {
	var changes domain.FileChanges

	seen := make(map[string]struct{}, len(current))
	for _, file := range current {
		seen[file.FileID] = struct{}{}

		prev, ok := known[file.FileID]
		if !ok {
			changes.Added = append(changes.Added, file)
			continue
		}
		if file.ModifiedAt.After(prev.ModifiedAt) {
			changes.Modified = append(changes.Modified, file)
		}
	}

	for id := range known {
		if _, ok := seen[id]; !ok {
			changes.Deleted = append(changes.Deleted, id)
		}
	}
	sort.Strings(changes.Deleted)

	return changes
}

// ComputeOrphans returns the indexed file IDs that no longer exist in
// the current enumeration. The diff runs against the index rather than
// the snapshot, so files deleted from the source while the process was
// down are caught on the first cycle after restart.
func ComputeOrphans(indexed []string, current []domain.SourceFile) []string {
	live := make(map[string]struct{}, len(current))
	for _, file := range current {
		live[file.FileID] = struct{}{}
	}

	var orphans []string
	for _, id := range indexed {
		if _, ok := live[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)

	return orphans
}
