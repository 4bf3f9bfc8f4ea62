package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/toyinlola/commitgroup/diffmodel"
	"github.com/toyinlola/commitgroup/syntaxtree"
)

func textHunk(n int) *diffmodel.DiffChunk {
	lines := make([]diffmodel.DiffLine, n)
	for i := range lines {
		lines[i] = diffmodel.DiffLine{Mode: diffmodel.EQ, Content: strings.Repeat("x", 20)}
	}
	return &diffmodel.DiffChunk{
		OldFilepath: "f.txt",
		NewFilepath: "f.txt",
		Start:       1,
		Lines:       lines,
	}
}

func TestChunk_EmptyHunk(t *testing.T) {
	hunk := &diffmodel.DiffChunk{OldFilepath: "f.txt", NewFilepath: "f.txt", Start: 1}
	out, err := Chunk(context.Background(), nil, hunk, diffmodel.LangText, 1500)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no sub-hunks for an empty hunk, got %d", len(out))
	}
}

func TestChunk_PassThroughWhenSmall(t *testing.T) {
	hunk := textHunk(3)
	out, err := Chunk(context.Background(), nil, hunk, diffmodel.LangText, 1500)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 pass-through sub-hunk, got %d", len(out))
	}
	if len(out[0].Lines) != 3 {
		t.Fatalf("expected the pass-through sub-hunk to keep all lines, got %d", len(out[0].Lines))
	}
	if &out[0].Lines[0] == &hunk.Lines[0] {
		t.Fatal("pass-through sub-hunk must not share storage with the parent")
	}
}

func TestChunk_TextFallbackCoversEveryLine(t *testing.T) {
	hunk := textHunk(20) // 20 * 22 bytes = 440 bytes, maxChars forces splitting
	out, err := Chunk(context.Background(), nil, hunk, diffmodel.LangText, 100)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(out) < 2 {
		t.Fatalf("expected multiple sub-hunks, got %d", len(out))
	}
	total := 0
	for _, c := range out {
		if c.ByteSize() > 100 {
			t.Errorf("sub-hunk exceeds maxChars: %d", c.ByteSize())
		}
		total += len(c.Lines)
	}
	if total != 20 {
		t.Errorf("expected all 20 lines covered exactly once, got %d", total)
	}
}

func TestChunk_TextFallbackStartOffsets(t *testing.T) {
	hunk := &diffmodel.DiffChunk{
		OldFilepath: "f.txt",
		NewFilepath: "f.txt",
		Start:       10,
		Lines: []diffmodel.DiffLine{
			{Mode: diffmodel.EQ, Content: strings.Repeat("a", 40)},
			{Mode: diffmodel.EQ, Content: strings.Repeat("b", 40)},
			{Mode: diffmodel.EQ, Content: strings.Repeat("c", 40)},
		},
	}
	out, err := Chunk(context.Background(), nil, hunk, diffmodel.LangText, 50)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected one sub-hunk per line at this budget, got %d", len(out))
	}
	if out[0].Start != 10 || out[1].Start != 11 || out[2].Start != 12 {
		t.Errorf("unexpected starts: %d %d %d", out[0].Start, out[1].Start, out[2].Start)
	}
}

func TestChunk_ASTSplitsGoFunctions(t *testing.T) {
	provider := syntaxtree.NewProvider()
	defer provider.Close()

	src := "package main\n\nfunc a() {\n\treturn 1\n}\n\nfunc b() {\n\treturn 2\n}\n"
	lines := make([]diffmodel.DiffLine, 0)
	for _, l := range strings.Split(strings.TrimRight(src, "\n"), "\n") {
		lines = append(lines, diffmodel.DiffLine{Mode: diffmodel.EQ, Content: l})
	}
	hunk := &diffmodel.DiffChunk{
		OldFilepath: "main.go",
		NewFilepath: "main.go",
		Start:       1,
		Lines:       lines,
	}

	out, err := Chunk(context.Background(), provider, hunk, diffmodel.LangGo, 20)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected at least one sub-hunk")
	}

	total := 0
	for _, c := range out {
		total += len(c.Lines)
	}
	if total != len(lines) {
		t.Errorf("expected coverage of all %d lines, got %d across sub-hunks", len(lines), total)
	}
}

func TestChunk_TextLanguageTakesLineWalkWithoutProvider(t *testing.T) {
	// LangText always takes the line-based path regardless of provider.
	hunk := textHunk(50)
	out, err := Chunk(context.Background(), nil, hunk, diffmodel.LangText, 200)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected sub-hunks")
	}
}
