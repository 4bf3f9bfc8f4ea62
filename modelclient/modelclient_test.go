package modelclient

import (
	"strings"
	"testing"
)

func TestExtractMessage_TrimsWhitespaceAndQuotes(t *testing.T) {
	cases := map[string]string{
		`"fix: handle nil pointer"`: "fix: handle nil pointer",
		"  add retry logic  \n":     "add retry logic",
		"'tidy imports'":            "tidy imports",
		"":                          "",
	}
	for in, want := range cases {
		if got := extractMessage(in); got != want {
			t.Errorf("extractMessage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDiffContext_PrefixesLines(t *testing.T) {
	patch := "--- a/x\n+++ b/x\n@@ -1,2 +1,2 @@\n-old line\n+new line\n context\n"
	got := FormatDiffContext(patch)
	if !strings.Contains(got, "Deletion: old line") {
		t.Fatalf("missing Deletion prefix, got: %q", got)
	}
	if !strings.Contains(got, "Insertion: new line") {
		t.Fatalf("missing Insertion prefix, got: %q", got)
	}
	if !strings.Contains(got, "--- a/x") {
		t.Fatalf("header lines should pass through unchanged, got: %q", got)
	}
}

func TestFormatDiffContext_HeaderLinesNotMisprefixed(t *testing.T) {
	patch := "--- a/x\n+++ b/x\n"
	got := FormatDiffContext(patch)
	if strings.Contains(got, "Insertion: ++ b/x") || strings.Contains(got, "Deletion: -- a/x") {
		t.Fatalf("file header lines must not be treated as insertion/deletion markers, got: %q", got)
	}
}

func TestTruncateEmbedInput(t *testing.T) {
	long := strings.Repeat("x", maxEmbedInputChars+500)
	if got := truncateEmbedInput(long); len(got) != maxEmbedInputChars {
		t.Fatalf("len(truncated) = %d, want %d", len(got), maxEmbedInputChars)
	}
	short := "small diff"
	if got := truncateEmbedInput(short); got != short {
		t.Fatalf("truncateEmbedInput(%q) = %q, want unchanged", short, got)
	}
}
