package tests

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleInsertion_ProducesOnePatchWithExpectedHeaderAndCounts(t *testing.T) {
	hunks := LoadFixtureDiff(t, "single-insertion")
	require.Len(t, hunks, 1)

	subHunks := ChunkAll(t, hunks, 1500)
	require.Len(t, subHunks, 1)
	h := subHunks[0]
	assert.Equal(t, 3, h.OldCount())
	assert.Equal(t, 4, h.NewCount())

	patches := AssembleAsOneCluster(subHunks)
	require.Len(t, patches, 1)
	patch := patches[0]

	assert.Contains(t, patch, "@@ -1,3 +1,4 @@")
	assert.True(t, strings.HasSuffix(patch, " a\n+b\n c\n d\n"), "patch body = %q", patch)
}

func TestRenameWithModification_PatchNamesOldAndNewPaths(t *testing.T) {
	hunks := LoadFixtureDiff(t, "rename-then-modify")
	require.Len(t, hunks, 1, "diffreader merges the rename and its modification into one hunk")
	require.True(t, hunks[0].IsRename())

	subHunks := ChunkAll(t, hunks, 1500)
	patches := AssembleAsOneCluster(subHunks)
	require.Len(t, patches, 1)
	patch := patches[0]

	assert.Contains(t, patch, "rename from a.py")
	assert.Contains(t, patch, "rename to   b.py")
	assert.Contains(t, patch, "--- a/a.py")
	assert.Contains(t, patch, "+++ b/b.py")
}

func TestNewFileHunk_ProducesDevNullPreImage(t *testing.T) {
	hunks := LoadFixtureDiff(t, "new-file")
	require.Len(t, hunks, 1)
	h := hunks[0]
	require.True(t, h.IsNew)
	assert.Equal(t, 0, h.OldCount())
	assert.Equal(t, 2, h.NewCount())

	subHunks := ChunkAll(t, hunks, 1500)
	patches := AssembleAsOneCluster(subHunks)
	require.Len(t, patches, 1)
	patch := patches[0]

	assert.Contains(t, patch, "@@ -0,0 +1,2 @@")
	assert.True(t, strings.HasPrefix(patch, "--- /dev/null\n"), "patch = %q", patch)
	assert.Contains(t, patch, "+++ b/new.txt")
	assert.Contains(t, patch, "+foo\n+bar\n")
}

func TestEmptyDiff_ProducesNoHunks(t *testing.T) {
	hunks := LoadFixtureDiff(t, "empty")
	assert.Len(t, hunks, 0)
}
