package service

import (
	"sort"
	"strings"
)

// ChangeSet holds the clause-level differences between two document
// revisions, sorted lexicographically in each direction.
type ChangeSet struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// DetectChanges computes a structural diff between two text snapshots. Each
// non-blank line is one opaque clause unit; comparison is exact string
// equality over the two line sets, so a reordered but otherwise identical
// clause produces no diff entries.
func DetectChanges(oldText, newText string) ChangeSet {
	oldLines := clauseSet(oldText)
	newLines := clauseSet(newText)

	added := []string{}
	for line := range newLines {
		if !oldLines[line] {
			added = append(added, line)
		}
	}
	removed := []string{}
	for line := range oldLines {
		if !newLines[line] {
			removed = append(removed, line)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	return ChangeSet{Added: added, Removed: removed}
}

func clauseSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			set[line] = true
		}
	}
	return set
}
