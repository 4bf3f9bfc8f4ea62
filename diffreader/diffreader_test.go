package diffreader

import (
	"strings"
	"testing"

	"github.com/toyinlola/commitgroup/diffmodel"
)

func assertEqual(t *testing.T, what string, want, got any) {
	t.Helper()
	if want != got {
		t.Errorf("%s: want %v, got %v", what, want, got)
	}
}

func assertIntEqual(t *testing.T, what string, want, got int) {
	t.Helper()
	if want != got {
		t.Errorf("%s: want %d, got %d", what, want, got)
	}
}

func TestRead_SingleInsertion(t *testing.T) {
	input := `diff --git a/foo.txt b/foo.txt
index abc..def 100644
--- a/foo.txt
+++ b/foo.txt
@@ -1,3 +1,4 @@
 a
+b
 c
 d
`
	chunks, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	assertEqual(t, "old path", "foo.txt", c.OldFilepath)
	assertEqual(t, "new path", "foo.txt", c.NewFilepath)
	assertIntEqual(t, "start", 1, c.Start)
	assertIntEqual(t, "old_count", 3, c.OldCount())
	assertIntEqual(t, "new_count", 4, c.NewCount())
	assertEqual(t, "is_new", false, c.IsNew)
	assertEqual(t, "is_deleted", false, c.IsDeleted)
}

func TestRead_NewFile(t *testing.T) {
	input := `diff --git a/new.txt b/new.txt
new file mode 100644
index 0000000..abc 100644
--- /dev/null
+++ b/new.txt
@@ -0,0 +1,2 @@
+foo
+bar
`
	chunks, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	assertEqual(t, "is_new", true, c.IsNew)
	assertIntEqual(t, "old_count", 0, c.OldCount())
	assertIntEqual(t, "new_count", 2, c.NewCount())
}

func TestRead_DeletedFile(t *testing.T) {
	input := `diff --git a/gone.txt b/gone.txt
deleted file mode 100644
index abc..0000000 100644
--- a/gone.txt
+++ /dev/null
@@ -1,2 +0,0 @@
-foo
-bar
`
	chunks, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	c := chunks[0]
	assertEqual(t, "is_deleted", true, c.IsDeleted)
	assertIntEqual(t, "old_count", 2, c.OldCount())
	assertIntEqual(t, "new_count", 0, c.NewCount())
}

func TestRead_Rename(t *testing.T) {
	input := `diff --git a/old.txt b/new.txt
similarity index 100%
rename from old.txt
rename to new.txt
`
	chunks, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	// A pure rename with no content change produces no hunks at all.
	assertIntEqual(t, "chunks", 0, len(chunks))
}

func TestRead_RenameWithModification(t *testing.T) {
	input := `diff --git a/old.txt b/new.txt
similarity index 90%
rename from old.txt
rename to new.txt
index abc..def 100644
--- a/old.txt
+++ b/new.txt
@@ -1,2 +1,2 @@
 a
-b
+c
`
	chunks, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if !c.IsRename() {
		t.Fatalf("expected chunk to be detected as a rename")
	}
	assertEqual(t, "old path", "old.txt", c.OldFilepath)
	assertEqual(t, "new path", "new.txt", c.NewFilepath)
}

func TestRead_NoNewlineMarker(t *testing.T) {
	input := `diff --git a/foo.txt b/foo.txt
index abc..def 100644
--- a/foo.txt
+++ b/foo.txt
@@ -1,1 +1,1 @@
-a
\ No newline at end of file
+a
\ No newline at end of file
`
	chunks, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	c := chunks[0]
	var noNewlineCount int
	for _, l := range c.Lines {
		if l.Mode == diffmodel.NoNewline {
			noNewlineCount++
		}
	}
	assertIntEqual(t, "no_newline markers", 2, noNewlineCount)
	// NO_NEWLINE contributes to neither side's count.
	assertIntEqual(t, "old_count", 1, c.OldCount())
	assertIntEqual(t, "new_count", 1, c.NewCount())
}

func TestRead_MultiFileMultiHunk(t *testing.T) {
	input := `diff --git a/a.go b/a.go
index 1..2 100644
--- a/a.go
+++ b/a.go
@@ -1,2 +1,2 @@
 package main
-var x int
+var x int64
@@ -10,1 +10,2 @@
 func f() {}
+func g() {}
diff --git a/b.py b/b.py
index 3..4 100644
--- a/b.py
+++ b/b.py
@@ -5,1 +5,1 @@
-pass
+return
`
	chunks, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	assertIntEqual(t, "chunk count", 3, len(chunks))
	assertEqual(t, "chunk 0 path", "a.go", chunks[0].NewFilepath)
	assertIntEqual(t, "chunk 1 start", 10, chunks[1].Start)
	assertEqual(t, "chunk 2 path", "b.py", chunks[2].NewFilepath)
}

func TestRead_EmptyDiff(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	if err != ErrEmptyDiff {
		t.Fatalf("expected ErrEmptyDiff, got %v", err)
	}
}

func TestRead_MalformedHunkHeader(t *testing.T) {
	input := `diff --git a/foo.txt b/foo.txt
--- a/foo.txt
+++ b/foo.txt
@@ garbage @@
 a
`
	_, err := Read(strings.NewReader(input))
	if err == nil {
		t.Fatalf("expected an error for a malformed hunk header")
	}
}

func TestRead_RoundTrip(t *testing.T) {
	input := `diff --git a/foo.txt b/foo.txt
index abc..def 100644
--- a/foo.txt
+++ b/foo.txt
@@ -1,4 +1,4 @@
 a
-b
+B
 c
 d
`
	chunks, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	c := chunks[0]
	pre := c.PreImageLines()
	post := c.PostImageLines()
	assertEqual(t, "pre-image", "a b c d", strings.Join(pre, " "))
	assertEqual(t, "post-image", "a B c d", strings.Join(post, " "))
}
