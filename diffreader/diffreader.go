// Package diffreader stream-parses a unified diff into diffmodel.DiffChunk
// values. It implements the OUTSIDE -> IN_FILE_HEADER -> IN_HUNK state
// machine: file headers set the current paths and new/deleted flags, and
// each "@@" hunk header opens a fresh DiffChunk that accumulates lines until
// a line outside {' ', '+', '-', '\\'} closes it.
package diffreader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/toyinlola/commitgroup/diffmodel"
)

// ErrEmptyDiff is returned when the input stream contains no recognizable
// diff content at all.
var ErrEmptyDiff = errors.New("diffreader: empty diff input")

// FormatError reports a malformed hunk header, identifying the offending
// line. File header lines are not validated. It corresponds to the
// DiffFormat error kind.
type FormatError struct {
	Line string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("diffreader: malformed diff line: %q", e.Line)
}

var (
	diffHeaderRegex = regexp.MustCompile(`^diff --git a/(.*) b/(.*)$`)
	hunkHeaderRegex = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)
)

type state int

const (
	outside state = iota
	inFileHeader
	inHunk
)

// Read parses the unified diff read from r into an ordered list of
// DiffChunks, one per hunk, in the order they appeared in the input.
func Read(r io.Reader) ([]*diffmodel.DiffChunk, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var chunks []*diffmodel.DiffChunk
	var cur *diffmodel.DiffChunk

	st := outside
	var oldPath, newPath string
	var isNew, isDeleted bool
	sawAnyLine := false

	flushHunk := func() {
		if cur != nil {
			chunks = append(chunks, cur)
			cur = nil
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		sawAnyLine = true

		if m := diffHeaderRegex.FindStringSubmatch(line); m != nil {
			flushHunk()
			oldPath, newPath = m[1], m[2]
			isNew, isDeleted = false, false
			st = inFileHeader
			continue
		}

		switch st {
		case outside:
			// Lines before the first "diff --git" are ignored by design.
			continue

		case inFileHeader:
			switch {
			case hasPrefix(line, "new file mode"):
				isNew = true
			case hasPrefix(line, "deleted file mode"):
				isDeleted = true
			case hasPrefix(line, "@@"):
				chunk, err := beginHunk(line, oldPath, newPath, isNew, isDeleted)
				if err != nil {
					return nil, err
				}
				cur = chunk
				st = inHunk
			default:
				// index, mode, similarity, ---, +++ lines: ignored by design.
			}

		case inHunk:
			if hasPrefix(line, "@@") {
				flushHunk()
				chunk, err := beginHunk(line, oldPath, newPath, isNew, isDeleted)
				if err != nil {
					return nil, err
				}
				cur = chunk
				continue
			}
			if !appendLine(cur, line) {
				// First byte doesn't match ' ', '+', '-', '\\': the hunk ends.
				flushHunk()
				st = inFileHeader
				// Re-dispatch this line as if we'd just entered the file header.
				switch {
				case hasPrefix(line, "new file mode"):
					isNew = true
				case hasPrefix(line, "deleted file mode"):
					isDeleted = true
				}
			}
		}
	}
	flushHunk()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("diffreader: reading diff: %w", err)
	}
	if !sawAnyLine {
		return nil, ErrEmptyDiff
	}

	return chunks, nil
}

func beginHunk(line, oldPath, newPath string, isNew, isDeleted bool) (*diffmodel.DiffChunk, error) {
	m := hunkHeaderRegex.FindStringSubmatch(line)
	if m == nil {
		return nil, &FormatError{Line: line}
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, &FormatError{Line: line}
	}
	if start < 1 {
		// A new-file hunk conventionally reports "@@ -0,0 +1,N @@"; the
		// pre-image is empty, so the invariant Start >= 1 is normalized to 1.
		if !isNew {
			return nil, &FormatError{Line: line}
		}
		start = 1
	}
	return &diffmodel.DiffChunk{
		OldFilepath: oldPath,
		NewFilepath: newPath,
		Start:       start,
		IsNew:       isNew,
		IsDeleted:   isDeleted,
	}, nil
}

// appendLine dispatches on the line's first byte and appends a DiffLine to
// chunk. Returns false if the line's first byte doesn't belong inside a
// hunk, signaling that the hunk has ended.
func appendLine(chunk *diffmodel.DiffChunk, line string) bool {
	if line == "" {
		// Some diff producers emit a bare blank line for an empty context line.
		chunk.Lines = append(chunk.Lines, diffmodel.DiffLine{Mode: diffmodel.EQ, Content: ""})
		return true
	}
	switch line[0] {
	case ' ':
		chunk.Lines = append(chunk.Lines, diffmodel.DiffLine{Mode: diffmodel.EQ, Content: line[1:]})
	case '+':
		chunk.Lines = append(chunk.Lines, diffmodel.DiffLine{Mode: diffmodel.Insertion, Content: line[1:]})
	case '-':
		chunk.Lines = append(chunk.Lines, diffmodel.DiffLine{Mode: diffmodel.Deletion, Content: line[1:]})
	case '\\':
		chunk.Lines = append(chunk.Lines, diffmodel.DiffLine{Mode: diffmodel.NoNewline, Content: line})
	default:
		return false
	}
	return true
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
