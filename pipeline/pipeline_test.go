package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/toyinlola/commitgroup/diffmodel"
)

func TestBuildCommitPrompt_FormatsEachPatch(t *testing.T) {
	patches := []string{
		"--- a/x.go\n+++ b/x.go\n@@ -1,1 +1,1 @@\n-old\n+new\n",
	}
	got := buildCommitPrompt(patches)
	want := "--- a/x.go\n+++ b/x.go\n@@ -1,1 +1,1 @@\nDeletion: old\nInsertion: new\n"
	if got != want {
		t.Fatalf("buildCommitPrompt = %q, want %q", got, want)
	}
}

func TestWriteManifest_WritesJSONArrayInClusterOrder(t *testing.T) {
	runDir := t.TempDir()
	manifest := &Manifest{
		{PatchPaths: []string{"cluster_0/patch_0.patch"}, CommitMessage: "fix: one"},
		{PatchPaths: []string{"cluster_1/patch_0.patch", "cluster_1/patch_1.patch"}, CommitMessage: "feat: two"},
	}

	if err := writeManifest(runDir, manifest); err != nil {
		t.Fatalf("writeManifest: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(runDir, "commits.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	var got []diffmodel.CommitGroup
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("commits.json is not a JSON array of CommitGroup: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].CommitMessage != "fix: one" || got[1].CommitMessage != "feat: two" {
		t.Fatalf("commit messages out of order: %+v", got)
	}
	if got[1].PatchPaths[1] != "cluster_1/patch_1.patch" {
		t.Fatalf("patch paths not preserved: %+v", got[1])
	}

	// The manifest must serialize with the wire's documented field names.
	if want := `"patch_paths"`; !strings.Contains(string(data), want) {
		t.Fatalf("commits.json missing %s field: %s", want, data)
	}
	if want := `"commit_message"`; !strings.Contains(string(data), want) {
		t.Fatalf("commits.json missing %s field: %s", want, data)
	}
}

func TestSingleCluster_FoldsAllIndicesIntoOne(t *testing.T) {
	got := singleCluster(3)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	want := []int{0, 1, 2}
	for i, idx := range want {
		if got[0].Indices[i] != idx {
			t.Fatalf("Indices = %v, want %v", got[0].Indices, want)
		}
	}
}

func TestSingleCluster_EmptyInputYieldsNoClusters(t *testing.T) {
	if got := singleCluster(0); got != nil {
		t.Fatalf("singleCluster(0) = %v, want nil", got)
	}
}

func TestClusterDirsInOrder_SortsNumericallyNotLexicographically(t *testing.T) {
	runDir := t.TempDir()
	for _, name := range []string{"cluster_2", "cluster_10", "cluster_1"} {
		if err := os.MkdirAll(filepath.Join(runDir, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	got, err := clusterDirsInOrder(runDir)
	if err != nil {
		t.Fatalf("clusterDirsInOrder: %v", err)
	}
	want := []string{"cluster_1", "cluster_2", "cluster_10"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i, w := range want {
		if filepath.Base(got[i]) != w {
			t.Fatalf("got[%d] = %s, want %s", i, filepath.Base(got[i]), w)
		}
	}
}

func TestReadPatchFiles_SortsByIndexAndSkipsOthers(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"patch_1.patch": "second",
		"patch_0.patch": "first",
		"notes.txt":     "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	paths, patches, err := readPatchFiles(dir)
	if err != nil {
		t.Fatalf("readPatchFiles: %v", err)
	}
	if len(paths) != 2 || len(patches) != 2 {
		t.Fatalf("got %d paths, %d patches, want 2 and 2", len(paths), len(patches))
	}
	if patches[0] != "first" || patches[1] != "second" {
		t.Fatalf("patches = %v, want [first second]", patches)
	}
}
