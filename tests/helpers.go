// Package tests provides integration test utilities for the commitgroup
// pipeline, grounded on the teacher's own helpers.go: a fixture loader plus
// helpers that run the chunking and patch-assembly stages, so scenario
// tests stay readable.
package tests

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/toyinlola/commitgroup/chunker"
	"github.com/toyinlola/commitgroup/diffmodel"
	"github.com/toyinlola/commitgroup/diffreader"
	"github.com/toyinlola/commitgroup/langdetect"
	"github.com/toyinlola/commitgroup/patchassembler"
	"github.com/toyinlola/commitgroup/syntaxtree"
)

// fixturesDir returns the absolute path to the test fixtures/diffs directory.
func fixturesDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "fixtures", "diffs")
}

// LoadFixtureDiff reads a fixture diff file by name (e.g. "clean" loads
// "clean.diff") and parses it with DiffReader.
func LoadFixtureDiff(t *testing.T, name string) []*diffmodel.DiffChunk {
	t.Helper()

	path := filepath.Join(fixturesDir(), name+".diff")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening fixture %s: %v", path, err)
	}
	defer f.Close()

	chunks, err := diffreader.Read(f)
	if err != nil && err != diffreader.ErrEmptyDiff {
		t.Fatalf("parsing fixture %s: %v", path, err)
	}
	return chunks
}

// ChunkAll runs C2/C3/C4 over every hunk, in order, the way Pipeline.Run
// does before submitting anything to C6 — the network stage this package
// deliberately stops short of, since no fake HTTPS transport exists yet.
func ChunkAll(t *testing.T, hunks []*diffmodel.DiffChunk, maxChars int) []*diffmodel.DiffChunk {
	t.Helper()

	provider := syntaxtree.NewProvider()
	defer provider.Close()

	var subHunks []*diffmodel.DiffChunk
	for _, h := range hunks {
		lang := langdetect.Detect(h.NewFilepath)
		parts, err := chunker.Chunk(context.Background(), provider, h, lang, maxChars)
		if err != nil {
			t.Fatalf("chunking %s: %v", h.NewFilepath, err)
		}
		subHunks = append(subHunks, parts...)
	}
	return subHunks
}

// AssembleAsOneCluster runs C8 over every given sub-hunk as if the
// clusterer had placed them all in a single cluster, for scenarios that
// don't exercise C7 directly.
func AssembleAsOneCluster(subHunks []*diffmodel.DiffChunk) []string {
	return patchassembler.New().AssembleCluster(subHunks)
}
