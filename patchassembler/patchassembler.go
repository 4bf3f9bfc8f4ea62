// Package patchassembler serializes clustered sub-hunks back into
// applicable unified-diff patch texts, propagating renames across a
// cluster and sorting each cluster's output for in-order application.
package patchassembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/toyinlola/commitgroup/diffmodel"
)

// Assembler tracks rename history across the whole run: once a rename
// patch is emitted for old->new, any later sub-hunk whose OldFilepath is
// the old path is rewritten to new before serialization, since the file
// no longer exists at its original path after the rename applies.
type Assembler struct {
	renamed map[string]string
}

// New returns an Assembler with no rename history.
func New() *Assembler {
	return &Assembler{renamed: make(map[string]string)}
}

// AssembleCluster orders hunks by (new_filepath, start) and serializes
// each into a patch text, one per hunk in that order. The new_filepath
// used for ordering is the post-rename path: a hunk naming a file that is
// renamed earlier in the run or in this cluster sorts with the rename's
// target. A sub-hunk that produces no diff yields an empty string in its
// slot; the caller skips those.
func (a *Assembler) AssembleCluster(hunks []*diffmodel.DiffChunk) []string {
	ordered := make([]*diffmodel.DiffChunk, len(hunks))
	copy(ordered, hunks)
	renames := make(map[string]string, len(a.renamed))
	for from, to := range a.renamed {
		renames[from] = to
	}
	for _, h := range hunks {
		if h.IsRename() {
			renames[h.OldFilepath] = h.NewFilepath
		}
	}
	sortPath := func(h *diffmodel.DiffChunk) string {
		if to, ok := renames[h.NewFilepath]; ok {
			return to
		}
		return h.NewFilepath
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := sortPath(ordered[i]), sortPath(ordered[j])
		if pi != pj {
			return pi < pj
		}
		return ordered[i].Start < ordered[j].Start
	})

	patches := make([]string, 0, len(ordered))
	for _, h := range ordered {
		patches = append(patches, a.assembleOne(h))
	}
	return patches
}

func (a *Assembler) assembleOne(h *diffmodel.DiffChunk) string {
	oldCount := h.OldCount()
	newCount := h.NewCount()
	if oldCount == 0 && newCount == 0 {
		return ""
	}

	oldPath := h.OldFilepath
	newPath := h.NewFilepath
	_, alreadyRenamed := a.renamed[oldPath]
	if alreadyRenamed {
		oldPath = a.renamed[oldPath]
		newPath = oldPath
	}

	var b strings.Builder

	// Every sub-hunk the Chunker derives from the same renamed-and-modified
	// parent hunk still carries that hunk's OldFilepath/NewFilepath, so
	// IsRename is true for all of them. Only the first one processed may
	// announce the rename; by the time a later patch applies, the file has
	// already moved, so re-declaring the rename would fail to apply.
	if h.IsRename() && !alreadyRenamed {
		fmt.Fprintf(&b, "diff --git a/%s b/%s\n", h.OldFilepath, h.NewFilepath)
		fmt.Fprintf(&b, "rename from %s\n", h.OldFilepath)
		fmt.Fprintf(&b, "rename to   %s\n", h.NewFilepath)
		a.renamed[h.OldFilepath] = h.NewFilepath
	}

	if h.IsNew {
		b.WriteString("--- /dev/null\n")
	} else {
		fmt.Fprintf(&b, "--- a/%s\n", oldPath)
	}
	if h.IsDeleted {
		b.WriteString("+++ /dev/null\n")
	} else {
		fmt.Fprintf(&b, "+++ b/%s\n", newPath)
	}

	oldStart := h.Start
	if h.IsNew {
		// Conventional new-file hunk header is "-0,0", not "-1,0"; Start is
		// normalized to 1 internally (diffreader.beginHunk) so later
		// sub-hunk offset arithmetic has a real line number to add to, but
		// the serialized header should still read the conventional way.
		oldStart = 0
	}
	fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, h.Start, newCount)

	for _, line := range h.Lines {
		switch line.Mode {
		case diffmodel.EQ:
			fmt.Fprintf(&b, " %s\n", line.Content)
		case diffmodel.Insertion:
			fmt.Fprintf(&b, "+%s\n", line.Content)
		case diffmodel.Deletion:
			fmt.Fprintf(&b, "-%s\n", line.Content)
		case diffmodel.NoNewline:
			b.WriteString("\\ No newline at end of file\n")
		}
	}

	return b.String()
}
